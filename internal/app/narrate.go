package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ctrla/ctrla/internal/audio"
	"github.com/ctrla/ctrla/internal/narration"
	"github.com/ctrla/ctrla/internal/store"
)

// unavailableMessage is spoken locally when the narration service goes down.
const unavailableMessage = "Scene description is unavailable"

// runNarration samples a frame every NarrationInterval and narrates it in the
// background. Requests may overlap and are bounded by the narrator's own timeout;
// results from a finished session are dropped.
func (a *App) runNarration(ctx context.Context, sess *Session) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.NarrationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			img, err := a.snapshot()
			if err != nil {
				if !errors.Is(err, errNoFrame) {
					log.Printf("Error capturing frame for narration: %v", err)
				}
				continue
			}

			// Stopping the session does not abort a request in flight;
			// its result is dropped by the generation check.
			a.narrationWG.Add(1)
			go func() {
				defer a.narrationWG.Done()
				if _, err := a.narrate(context.Background(), sess.Generation, img); err != nil && a.isCurrent(sess.Generation) {
					log.Printf("Narration failed: %v", err)
				}
			}()
		}
	}
}

// Narrate describes the current frame on demand and queues the result for playback.
func (a *App) Narrate(ctx context.Context) (*narration.Result, error) {
	if a.narrator == nil {
		return nil, fmt.Errorf("narrate: %w", narration.ErrServiceUnavailable)
	}

	sess := a.Session()
	if sess == nil {
		return nil, ErrNotActive
	}

	img, err := a.snapshot()
	if err != nil {
		return nil, fmt.Errorf("narrate: %w", err)
	}
	return a.narrate(ctx, sess.Generation, img)
}

var errNoFrame = errors.New("no frame ready")

// snapshot JPEG-encodes the camera's current frame.
func (a *App) snapshot() ([]byte, error) {
	frame, err := a.camera.CurrentFrame()
	if err != nil {
		return nil, err
	}
	if !frame.Ready() {
		return nil, errNoFrame
	}
	return a.config.Encode(frame)
}

// narrate sends img to the narrator and queues the audio if gen is still current.
func (a *App) narrate(ctx context.Context, gen uint64, img []byte) (*narration.Result, error) {
	result, err := a.narrator.Narrate(ctx, img, a.Preferences())

	if !a.isCurrent(gen) {
		log.Printf("Dropping narration from finished session")
		return result, err
	}

	if err != nil {
		if errors.Is(err, narration.ErrServiceUnavailable) && ctx.Err() == nil {
			a.narrationDown(gen)
		}
		return nil, err
	}

	a.mu.Lock()
	a.narrationOK = true
	a.mu.Unlock()

	a.setStatus(gen, result.Text)
	if clip := a.clipFor(result); clip != nil {
		a.queue.Enqueue(clip)
	}
	return result, nil
}

// narrationDown announces an outage once until the service recovers.
func (a *App) narrationDown(gen uint64) {
	a.mu.Lock()
	announce := a.narrationOK
	a.narrationOK = false
	a.mu.Unlock()

	a.setStatus(gen, "Narration service unavailable")
	if announce {
		a.queue.Enqueue(audio.SpeechClip(unavailableMessage))
	}
}

// clipFor returns the service audio, or local speech of the text when there is none.
// It returns nil when there is nothing to say.
func (a *App) clipFor(result *narration.Result) *audio.Clip {
	if result.HasAudio() {
		clip, err := audio.DecodeClip(result.Audio, result.Text)
		if err == nil {
			return clip
		}
		log.Printf("Error decoding narration audio, speaking text instead: %v", err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return nil
	}
	return audio.SpeechClip(result.Text)
}

// Preferences returns the stored narration preferences, falling back to defaults.
func (a *App) Preferences() narration.Preferences {
	prefs := narration.DefaultPreferences()
	if a.config.Store == nil {
		return prefs
	}

	repo := a.config.Store.Preferences()
	prefs.Style = repo.GetOr(store.KeyNarrationStyle, prefs.Style)
	prefs.Language = repo.GetOr(store.KeyNarrationLanguage, prefs.Language)
	prefs.VoiceSpeed = repo.GetOr(store.KeyNarrationVoiceSpeed, prefs.VoiceSpeed)
	return prefs
}
