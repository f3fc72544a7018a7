package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/ctrla/ctrla/internal/narration"
	"github.com/ctrla/ctrla/internal/store"
)

var (
	narrationStyles = []string{"concise", "detailed"}
	voiceSpeeds     = []string{"slow", "normal", "fast"}
)

// PreferencesHandler reads and updates the narration preferences.
type PreferencesHandler struct {
	store *store.Store
}

// NewPreferencesHandler creates a new PreferencesHandler with the given store.
func NewPreferencesHandler(s *store.Store) *PreferencesHandler {
	return &PreferencesHandler{store: s}
}

type updatePreferencesRequest struct {
	Style      *string `json:"style"`
	Language   *string `json:"language"`
	VoiceSpeed *string `json:"voice_speed"`
}

// ServeHTTP handles GET and PUT /api/preferences.
func (h *PreferencesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.current())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *PreferencesHandler) current() narration.Preferences {
	prefs := narration.DefaultPreferences()
	repo := h.store.Preferences()
	prefs.Style = repo.GetOr(store.KeyNarrationStyle, prefs.Style)
	prefs.Language = repo.GetOr(store.KeyNarrationLanguage, prefs.Language)
	prefs.VoiceSpeed = repo.GetOr(store.KeyNarrationVoiceSpeed, prefs.VoiceSpeed)
	return prefs
}

// update applies the fields present in the body; absent fields are left alone.
func (h *PreferencesHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	values := make(map[string]string)
	if req.Style != nil {
		if !slices.Contains(narrationStyles, *req.Style) {
			writeError(w, http.StatusBadRequest, "style must be concise or detailed")
			return
		}
		values[store.KeyNarrationStyle] = *req.Style
	}
	if req.Language != nil {
		if *req.Language == "" {
			writeError(w, http.StatusBadRequest, "language must not be empty")
			return
		}
		values[store.KeyNarrationLanguage] = *req.Language
	}
	if req.VoiceSpeed != nil {
		if !slices.Contains(voiceSpeeds, *req.VoiceSpeed) {
			writeError(w, http.StatusBadRequest, "voice_speed must be slow, normal or fast")
			return
		}
		values[store.KeyNarrationVoiceSpeed] = *req.VoiceSpeed
	}

	if err := h.store.Preferences().SetAll(values); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save preferences")
		return
	}

	writeJSON(w, http.StatusOK, h.current())
}
