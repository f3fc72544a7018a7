package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/ctrla/ctrla/internal/vision"
)

// MockCamera plays back prepared frames for testing
type MockCamera struct {
	frames   []*vision.Frame
	index    int
	loop     bool
	mu       sync.Mutex
	running  bool
	openErr  error
	fps      int
	opens    int
	closes   int
	releases int
	now      func() time.Time
}

// NewMockCamera creates a camera that serves frames in order. A nil entry
// simulates a frame whose dimensions are not resolved yet.
func NewMockCamera(frames []*vision.Frame, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
		fps:    DefaultFPS,
		now:    time.Now,
	}
}

// SetClock sets the clock used to stamp served frames.
func (c *MockCamera) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// FailOpen makes the next Open calls fail with err wrapped in ErrAcquisition.
func (c *MockCamera) FailOpen(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++
	if c.openErr != nil {
		return fmt.Errorf("%w: %v", ErrAcquisition, c.openErr)
	}
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	if c.running {
		c.releases++
	}
	c.running = false
	return nil
}

func (c *MockCamera) CurrentFrame() (*vision.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}

	if len(c.frames) == 0 {
		return nil, fmt.Errorf("no frames available")
	}

	if c.index >= len(c.frames) {
		if c.loop {
			c.index = 0
		} else {
			return nil, fmt.Errorf("no more frames")
		}
	}

	frame := c.frames[c.index]
	c.index++
	if frame == nil {
		return nil, nil
	}

	// Copy the frame so the original isn't modified
	clone := *frame
	clone.Pix = append([]uint8(nil), frame.Pix...)
	// Each read is a new capture, like MatToFrame on a live device.
	clone.CapturedAt = c.now()
	return &clone, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetFrames replaces the frame sequence
func (c *MockCamera) SetFrames(frames []*vision.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// Reset restarts playback from the beginning
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}

// Counts returns how many times Open and Close were called and how many
// Close calls actually released an open device.
func (c *MockCamera) Counts() (opens, closes, releases int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens, c.closes, c.releases
}
