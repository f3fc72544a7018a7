package api

import (
	"net/http"
	"strconv"

	"github.com/ctrla/ctrla/internal/store"
)

// HistoryHandler serves the command log.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a new HistoryHandler with the given store.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

type historyEntryResponse struct {
	ID        string   `json:"id"`
	SessionID string   `json:"session_id"`
	Command   string   `json:"command"`
	Kind      string   `json:"kind"`
	Symbols   []string `json:"symbols"`
	Mode      string   `json:"mode"`
	CreatedAt string   `json:"created_at"`
}

type historyResponse struct {
	Entries []historyEntryResponse `json:"entries"`
	Total   int                    `json:"total"`
}

// ServeHTTP handles GET /api/history?limit=N, newest first.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.store.History().Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}
	total, err := h.store.History().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}

	response := historyResponse{
		Entries: make([]historyEntryResponse, 0, len(entries)),
		Total:   total,
	}
	for _, e := range entries {
		symbols := e.Symbols
		if symbols == nil {
			symbols = []string{}
		}
		response.Entries = append(response.Entries, historyEntryResponse{
			ID:        e.ID,
			SessionID: e.SessionID,
			Command:   e.Command,
			Kind:      e.Kind,
			Symbols:   symbols,
			Mode:      e.Mode,
			CreatedAt: formatTime(e.CreatedAt),
		})
	}

	writeJSON(w, http.StatusOK, response)
}
