package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrPlayback is returned when the audio device or player refuses a clip.
var ErrPlayback = errors.New("playback failed")

// Player plays one clip and returns when playback has finished or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, clip *Clip) error
}

// Default external commands.
const (
	DefaultPlayerCommand = "ffplay -nodisp -autoexit -loglevel quiet"
	DefaultSpeakCommand  = "espeak --stdin"
)

// CommandPlayer plays clips through an external program. The clip is written to a
// temporary file whose path is appended to the command line.
type CommandPlayer struct {
	name string
	args []string
}

// NewCommandPlayer parses a whitespace-separated command line.
func NewCommandPlayer(command string) *CommandPlayer {
	name, args := splitCommand(command, DefaultPlayerCommand)
	return &CommandPlayer{name: name, args: args}
}

// Play writes the clip to a temp file and runs the player on it.
func (p *CommandPlayer) Play(ctx context.Context, clip *Clip) error {
	data, err := clip.Data()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrEmptyClip
	}

	f, err := os.CreateTemp("", "ctrla-clip-*."+clip.Format)
	if err != nil {
		return fmt.Errorf("create clip file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write clip file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close clip file: %w", err)
	}

	args := append(append([]string{}, p.args...), path)
	return run(ctx, p.name, args, nil)
}

// Speaker reads a clip's text aloud with a local text-to-speech program.
// It is the fallback when the narration service returned no audio.
type Speaker struct {
	name string
	args []string
}

// NewSpeaker parses a whitespace-separated TTS command line. The text is passed on stdin.
func NewSpeaker(command string) *Speaker {
	name, args := splitCommand(command, DefaultSpeakCommand)
	return &Speaker{name: name, args: args}
}

// Play speaks clip.Text.
func (s *Speaker) Play(ctx context.Context, clip *Clip) error {
	if strings.TrimSpace(clip.Text) == "" {
		return ErrEmptyClip
	}
	return run(ctx, s.name, s.args, strings.NewReader(clip.Text))
}

// SpeechClip builds a text-only clip for the Speaker.
func SpeechClip(text string) *Clip {
	return NewClip(nil, "tts", text)
}

// MultiPlayer routes text-only clips to the speaker and everything else to the audio player.
type MultiPlayer struct {
	Audio  Player
	Speech Player
}

// Play dispatches on the clip format.
func (m *MultiPlayer) Play(ctx context.Context, clip *Clip) error {
	if clip.Format == "tts" {
		if m.Speech == nil {
			return fmt.Errorf("%w: no speech player", ErrPlayback)
		}
		return m.Speech.Play(ctx, clip)
	}
	if m.Audio == nil {
		return fmt.Errorf("%w: no audio player", ErrPlayback)
	}
	return m.Audio.Play(ctx, clip)
}

func splitCommand(command, fallback string) (string, []string) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = strings.Fields(fallback)
	}
	return fields[0], fields[1:]
}

func run(ctx context.Context, name string, args []string, stdin *strings.Reader) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s: %v: %s", ErrPlayback, name, err, msg)
		}
		return fmt.Errorf("%w: %s: %v", ErrPlayback, name, err)
	}
	return nil
}
