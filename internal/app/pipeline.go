package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ctrla/ctrla/internal/command"
	"github.com/ctrla/ctrla/internal/gesture"
)

func newSessionID() string {
	return uuid.New().String()
}

// runLocal is the on-device detection loop.
//
// Every tick:
// 1. Read the current frame; skip if the camera has none ready
// 2. Find skin regions and classify the chosen one into a symbol
// 3. Offer the symbol to the buffer and dispatch what it resolves
func (a *App) runLocal(ctx context.Context, sess *Session) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.LocalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.localCycle(sess)
		}
	}
}

// localCycle runs one frame through the local detector.
func (a *App) localCycle(sess *Session) {
	if !a.isCurrent(sess.Generation) {
		return
	}

	frame, err := a.camera.CurrentFrame()
	if err != nil {
		log.Printf("Error reading frame: %v", err)
		return
	}
	if !frame.Ready() {
		return
	}

	detections, err := a.detector.Detect(frame)
	if err != nil {
		log.Printf("Error detecting symbol: %v", err)
		return
	}

	for _, d := range detections {
		a.offer(sess, d)
	}
}

// runRemote forwards symbols pushed by the remote service until the stream ends.
// A lost stream is not failed over to local detection; the session stays in remote mode.
func (a *App) runRemote(ctx context.Context, sess *Session) {
	defer a.wg.Done()

	err := a.remote.Run(ctx, func(d gesture.Detection) {
		a.offer(sess, d)
	})
	if err != nil {
		log.Printf("Remote detection stream ended: %v", err)
		a.setStatus(sess.Generation, "Remote detection disconnected")
		return
	}
	if ctx.Err() == nil {
		a.setStatus(sess.Generation, "Remote detection closed")
	}
}

// offer feeds one detection to the buffer and dispatches the resolved commands.
// Detections from a finished session are dropped.
func (a *App) offer(sess *Session, d gesture.Detection) {
	a.dispatch.Lock()
	defer a.dispatch.Unlock()

	a.mu.RLock()
	buf := a.buffer
	current := a.session != nil && a.session.Generation == sess.Generation
	a.mu.RUnlock()

	if !current {
		return
	}

	result := buf.Offer(d)
	if result.Accepted {
		log.Printf("Symbol accepted: %s (%s)", d.Symbol, d.Source)
	}

	for _, r := range result.Resolutions {
		event := command.NewEvent(r, string(sess.Mode), sess.ID)
		log.Printf("Command resolved: %s (%s, %v)", event.Name, event.Kind, event.Symbols)

		a.mu.Lock()
		a.lastCommand = &event
		a.mu.Unlock()
		a.setStatus(sess.Generation, "Command: "+event.Name)

		a.dispatcher.Dispatch(event)
	}
}
