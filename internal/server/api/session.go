package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/ctrla/ctrla/internal/app"
	"github.com/ctrla/ctrla/internal/capture"
	"github.com/ctrla/ctrla/internal/command"
	"github.com/ctrla/ctrla/internal/gesture"
	"github.com/ctrla/ctrla/internal/narration"
)

// Controller is the part of the application the session endpoints drive.
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	Session() *app.Session
	Status() app.Status
	Buffer() []gesture.Symbol
	ClearBuffer(ctx context.Context)
	StopSpeech()
	Speaking() bool
	LastCommand() (command.Event, bool)
	Narrate(ctx context.Context) (*narration.Result, error)
}

// SessionHandler serves detection session control, the symbol buffer,
// speech and on-demand narration.
type SessionHandler struct {
	ctrl Controller
}

// NewSessionHandler creates a new SessionHandler for ctrl.
func NewSessionHandler(ctrl Controller) *SessionHandler {
	return &SessionHandler{ctrl: ctrl}
}

type sessionResponse struct {
	Active      bool           `json:"active"`
	Session     *app.Session   `json:"session,omitempty"`
	Status      app.Status     `json:"status"`
	Buffer      []string       `json:"buffer"`
	Speaking    bool           `json:"speaking"`
	LastCommand *command.Event `json:"last_command,omitempty"`
}

type bufferResponse struct {
	Symbols []string `json:"symbols"`
	Text    string   `json:"text"`
}

type narrateResponse struct {
	Text       string `json:"text"`
	HasAudio   bool   `json:"has_audio"`
	Detections int    `json:"detections"`
	ElapsedMs  int64  `json:"elapsed_ms"`
}

// Register mounts the handler's routes on mux.
func (h *SessionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/session", h.handleSession)
	mux.HandleFunc("/api/session/start", h.handleStart)
	mux.HandleFunc("/api/session/stop", h.handleStop)
	mux.HandleFunc("/api/buffer", h.handleBuffer)
	mux.HandleFunc("/api/speech/stop", h.handleStopSpeech)
	mux.HandleFunc("/api/narrate", h.handleNarrate)
}

func (h *SessionHandler) snapshot() sessionResponse {
	resp := sessionResponse{
		Session:  h.ctrl.Session(),
		Status:   h.ctrl.Status(),
		Buffer:   symbolStrings(h.ctrl.Buffer()),
		Speaking: h.ctrl.Speaking(),
	}
	resp.Active = resp.Session != nil
	if e, ok := h.ctrl.LastCommand(); ok {
		resp.LastCommand = &e
	}
	return resp
}

// handleSession handles GET /api/session.
func (h *SessionHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot())
}

// handleStart handles POST /api/session/start. Starting a running session succeeds.
func (h *SessionHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.ctrl.Start(r.Context()); err != nil {
		if errors.Is(err, capture.ErrAcquisition) {
			writeError(w, http.StatusServiceUnavailable, "Camera unavailable")
			return
		}
		log.Printf("Error starting session: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to start detection")
		return
	}

	writeJSON(w, http.StatusOK, h.snapshot())
}

// handleStop handles POST /api/session/stop.
func (h *SessionHandler) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.ctrl.Stop()
	writeJSON(w, http.StatusOK, h.snapshot())
}

// handleBuffer handles GET and DELETE /api/buffer.
func (h *SessionHandler) handleBuffer(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodDelete:
		h.ctrl.ClearBuffer(r.Context())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	symbols := symbolStrings(h.ctrl.Buffer())
	writeJSON(w, http.StatusOK, bufferResponse{Symbols: symbols, Text: strings.Join(symbols, "")})
}

// handleStopSpeech handles POST /api/speech/stop.
func (h *SessionHandler) handleStopSpeech(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.ctrl.StopSpeech()
	w.WriteHeader(http.StatusNoContent)
}

// handleNarrate handles POST /api/narrate.
func (h *SessionHandler) handleNarrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.ctrl.Narrate(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNotActive):
			writeError(w, http.StatusConflict, "Detection is not running")
		case errors.Is(err, narration.ErrServiceUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Narration service unavailable")
		case errors.Is(err, narration.ErrMalformedPayload):
			writeError(w, http.StatusBadGateway, "Narration service returned a malformed response")
		default:
			log.Printf("Error narrating frame: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to narrate frame")
		}
		return
	}

	writeJSON(w, http.StatusOK, narrateResponse{
		Text:       result.Text,
		HasAudio:   result.HasAudio(),
		Detections: result.Detections,
		ElapsedMs:  result.Elapsed.Milliseconds(),
	})
}

func symbolStrings(symbols []gesture.Symbol) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = string(s)
	}
	return out
}
