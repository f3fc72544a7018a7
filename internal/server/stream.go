package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ctrla/ctrla/internal/capture"
	"github.com/ctrla/ctrla/internal/vision"
)

// streamInterval paces the MJPEG stream at roughly the camera's default rate.
const streamInterval = time.Second / capture.DefaultFPS

// FrameSource supplies frames for the live view.
type FrameSource interface {
	Frame() (*vision.Frame, error)
}

// StreamHandler serves MJPEG frames from the active session's camera.
type StreamHandler struct {
	source FrameSource
	encode func(*vision.Frame) ([]byte, error)
}

// NewStreamHandler creates a new StreamHandler reading from source.
func NewStreamHandler(source FrameSource) *StreamHandler {
	return &StreamHandler{source: source, encode: capture.EncodeJPEG}
}

// ServeHTTP streams MJPEG frames until the client goes away.
// Frames are skipped while no session is running.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame, err := h.source.Frame()
		if err != nil || !frame.Ready() {
			continue
		}

		buf, err := h.encode(frame)
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(buf))
		if _, err := w.Write(buf); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
