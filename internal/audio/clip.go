// Package audio serializes narration playback.
package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyClip is returned when a clip carries no audio data.
var ErrEmptyClip = errors.New("empty audio clip")

// ErrReleased is returned when playing a clip whose data has been released.
var ErrReleased = errors.New("audio clip released")

// Clip is one encoded audio payload tied to a narration result.
type Clip struct {
	ID        string
	Text      string
	Format    string
	CreatedAt time.Time

	mu       sync.Mutex
	data     []byte
	released bool
}

// NewClip wraps raw audio bytes.
func NewClip(data []byte, format, text string) *Clip {
	if format == "" {
		format = "mp3"
	}
	return &Clip{
		ID:        uuid.New().String(),
		Text:      text,
		Format:    format,
		CreatedAt: time.Now(),
		data:      data,
	}
}

// DecodeClip decodes a base64 payload, optionally prefixed as a data URL
// ("data:audio/mpeg;base64,...").
func DecodeClip(encoded, text string) (*Clip, error) {
	format := "mp3"
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.IndexByte(encoded, ',')
		if comma < 0 {
			return nil, fmt.Errorf("decode clip: malformed data url")
		}
		format = formatFromMime(encoded[len("data:"):comma])
		encoded = encoded[comma+1:]
	}
	if encoded == "" {
		return nil, ErrEmptyClip
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode clip: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyClip
	}

	return NewClip(data, format, text), nil
}

func formatFromMime(header string) string {
	mime := strings.TrimSuffix(header, ";base64")
	switch mime {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	case "audio/ogg":
		return "ogg"
	default:
		return "mp3"
	}
}

// Data returns the audio payload, or ErrReleased once the clip has been played.
func (c *Clip) Data() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil, ErrReleased
	}
	return c.data, nil
}

// Release drops the payload. A released clip cannot be played again.
func (c *Clip) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.released = true
	c.data = nil
}

// Released reports whether Release has been called.
func (c *Clip) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}
