// Package detector produces gesture symbols from frames, either locally or
// through the remote recognition service.
package detector

import (
	"time"

	"github.com/ctrla/ctrla/internal/gesture"
	"github.com/ctrla/ctrla/internal/vision"
)

// Mode selects where symbols come from for a session.
type Mode string

const (
	// ModeLocal runs the region heuristic on captured frames.
	ModeLocal Mode = "local"
	// ModeRemote consumes events pushed by the recognition service.
	ModeRemote Mode = "remote"
)

// Cooldown returns the buffer cooldown for the mode.
func (m Mode) Cooldown() time.Duration {
	if m == ModeRemote {
		return RemoteCooldown
	}
	return LocalCooldown
}

// Default cadence.
const (
	LocalInterval  = 100 * time.Millisecond
	LocalCooldown  = time.Second
	RemoteCooldown = 1500 * time.Millisecond
)

// Detector defines the interface for frame-based symbol detection.
type Detector interface {
	// Detect analyzes a frame and returns at most one symbol per call.
	// Returns an empty slice if nothing usable is visible.
	Detect(frame *vision.Frame) ([]gesture.Detection, error)
}

// LocalDetector classifies the first skin region of each frame by position.
type LocalDetector struct {
	regions *vision.RegionDetector
	now     func() time.Time
}

// NewLocalDetector creates a LocalDetector with the given region settings.
func NewLocalDetector(config vision.RegionDetectorConfig) *LocalDetector {
	return &LocalDetector{
		regions: vision.NewRegionDetector(config),
		now:     time.Now,
	}
}

// Detect runs region detection and classifies the selected region.
func (d *LocalDetector) Detect(frame *vision.Frame) ([]gesture.Detection, error) {
	if !frame.Ready() {
		return nil, nil
	}

	region, ok := vision.SelectRegion(d.regions.Detect(frame))
	if !ok {
		return nil, nil
	}

	at := frame.CapturedAt
	if at.IsZero() {
		at = d.now()
	}

	return []gesture.Detection{{
		Symbol:     vision.Classify(region, frame.Width, frame.Height),
		Confidence: gesture.NoConfidence,
		Source:     gesture.SourceLocal,
		At:         at,
	}}, nil
}
