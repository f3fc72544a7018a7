// Package narration talks to the scene narration service.
package narration

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrServiceUnavailable is returned when the service cannot be reached or reports an error.
	ErrServiceUnavailable = errors.New("narration service unavailable")
	// ErrMalformedPayload is returned when the service response cannot be understood.
	ErrMalformedPayload = errors.New("malformed narration payload")
)

// DefaultTimeout bounds one narration request.
const DefaultTimeout = 15 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// Preferences tune the narration style.
type Preferences struct {
	Style      string `json:"style"`
	Language   string `json:"language"`
	VoiceSpeed string `json:"voice_speed"`
}

// DefaultPreferences returns the preferences used when none are stored.
func DefaultPreferences() Preferences {
	return Preferences{
		Style:      "concise",
		Language:   "en",
		VoiceSpeed: "normal",
	}
}

// Result is one narration of a frame.
type Result struct {
	Text       string
	Audio      string
	Detections int
	Elapsed    time.Duration
}

// HasAudio reports whether the service returned an audio payload.
func (r *Result) HasAudio() bool {
	return r != nil && r.Audio != ""
}

type request struct {
	Image       string      `json:"image"`
	Preferences Preferences `json:"preferences"`
}

type response struct {
	Text       *string `json:"text"`
	Audio      string  `json:"audio"`
	Error      string  `json:"error"`
	Detections struct {
		TotalCount int `json:"total_count"`
	} `json:"detections"`
	ElapsedMs float64 `json:"elapsed_ms"`
}

// Client posts frames to the narration endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a client for the given endpoint URL. A non-positive timeout uses DefaultTimeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Narrate sends a JPEG-encoded frame and returns the service's description.
func (c *Client) Narrate(ctx context.Context, image []byte, prefs Preferences) (*Result, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("narrate: empty image")
	}

	body, err := json.Marshal(request{
		Image:       "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
		Preferences: prefs,
	})
	if err != nil {
		return nil, fmt.Errorf("narrate: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrServiceUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, errorMessage(raw))
	}

	var payload response
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrServiceUnavailable, payload.Error)
	}
	if payload.Text == nil {
		return nil, fmt.Errorf("%w: missing text", ErrMalformedPayload)
	}

	return &Result{
		Text:       *payload.Text,
		Audio:      payload.Audio,
		Detections: payload.Detections.TotalCount,
		Elapsed:    time.Duration(payload.ElapsedMs * float64(time.Millisecond)),
	}, nil
}

func errorMessage(raw []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
