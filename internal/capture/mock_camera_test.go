package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/ctrla/ctrla/internal/vision"
)

func TestMockCamera_Playback(t *testing.T) {
	frame1 := vision.NewFrame(640, 480)
	frame2 := vision.NewFrame(320, 240)

	cam := NewMockCamera([]*vision.Frame{frame1, frame2}, false)

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	f1, err := cam.CurrentFrame()
	if err != nil {
		t.Fatalf("CurrentFrame() error = %v", err)
	}
	if f1.Width != 640 {
		t.Errorf("first frame width = %d, want 640", f1.Width)
	}

	f2, err := cam.CurrentFrame()
	if err != nil {
		t.Fatalf("CurrentFrame() error = %v", err)
	}
	if f2.Width != 320 {
		t.Errorf("second frame width = %d, want 320", f2.Width)
	}

	// Third read should fail (no loop)
	if _, err := cam.CurrentFrame(); err == nil {
		t.Error("expected error after all frames consumed")
	}
}

func TestMockCamera_Loop(t *testing.T) {
	cam := NewMockCamera([]*vision.Frame{vision.NewFrame(4, 4)}, true)
	cam.Open()
	defer cam.Close()

	for i := 0; i < 5; i++ {
		if _, err := cam.CurrentFrame(); err != nil {
			t.Fatalf("CurrentFrame() iteration %d error = %v", i, err)
		}
	}
}

func TestMockCamera_FramesAreCopies(t *testing.T) {
	src := vision.NewFrame(2, 2)
	cam := NewMockCamera([]*vision.Frame{src}, true)
	cam.Open()

	f, _ := cam.CurrentFrame()
	f.Set(0, 0, 255, 255, 255)

	if r, _, _ := src.RGB(0, 0); r != 0 {
		t.Error("modifying a served frame changed the source frame")
	}
}

func TestMockCamera_ReplayedFramesAreRestamped(t *testing.T) {
	cam := NewMockCamera([]*vision.Frame{vision.NewFrame(2, 2)}, true)
	now := time.Unix(100, 0)
	cam.SetClock(func() time.Time { return now })
	cam.Open()

	first, _ := cam.CurrentFrame()
	now = now.Add(100 * time.Millisecond)
	second, _ := cam.CurrentFrame()

	if !first.CapturedAt.Equal(time.Unix(100, 0)) {
		t.Errorf("first CapturedAt = %v", first.CapturedAt)
	}
	if got := second.CapturedAt.Sub(first.CapturedAt); got != 100*time.Millisecond {
		t.Errorf("replayed frame gap = %v, want 100ms", got)
	}
}

func TestMockCamera_UnreadyFrame(t *testing.T) {
	cam := NewMockCamera([]*vision.Frame{nil, vision.NewFrame(2, 2)}, false)
	cam.Open()

	f, err := cam.CurrentFrame()
	if err != nil || f != nil {
		t.Fatalf("CurrentFrame() = %v, %v; want nil, nil", f, err)
	}
	if f, _ := cam.CurrentFrame(); !f.Ready() {
		t.Error("second frame should be ready")
	}
}

func TestMockCamera_FailOpen(t *testing.T) {
	cam := NewMockCamera(nil, false)
	cam.FailOpen(errors.New("permission denied"))

	err := cam.Open()
	if !errors.Is(err, ErrAcquisition) {
		t.Fatalf("Open() error = %v, want ErrAcquisition", err)
	}
	if cam.IsOpen() {
		t.Error("camera should not be open after failure")
	}
	if _, err := cam.CurrentFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("CurrentFrame() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestMockCamera_Counts(t *testing.T) {
	cam := NewMockCamera(nil, false)
	cam.Open()
	cam.Close()
	cam.Close()

	opens, closes, releases := cam.Counts()
	if opens != 1 || closes != 2 || releases != 1 {
		t.Errorf("Counts() = %d, %d, %d; want 1, 2, 1", opens, closes, releases)
	}
}
