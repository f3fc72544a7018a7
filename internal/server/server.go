// Package server provides the HTTP server for the Ctrl-A command pipeline.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/ctrla/ctrla/internal/app"
	"github.com/ctrla/ctrla/internal/gesture"
	"github.com/ctrla/ctrla/internal/plugin"
	"github.com/ctrla/ctrla/internal/server/api"
	"github.com/ctrla/ctrla/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	Store      *store.Store
	App        *app.App
	Vocabulary *gesture.Vocabulary
}

// Server represents the HTTP server for the Ctrl-A application.
type Server struct {
	config   Config
	mux      *http.ServeMux
	start    time.Time
	commands *CommandsHandler

	mu   sync.Mutex
	http *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		var plugins *plugin.Manager
		if s.config.App != nil {
			plugins = s.config.App.PluginManager()
		}
		bindings := api.NewBindingHandler(s.config.Store, s.config.Vocabulary, plugins)
		s.mux.Handle("/api/bindings", bindings)
		s.mux.Handle("/api/bindings/", bindings)
		s.mux.Handle("/api/preferences", api.NewPreferencesHandler(s.config.Store))
		s.mux.Handle("/api/history", api.NewHistoryHandler(s.config.Store))
	}

	if s.config.App != nil {
		api.NewSessionHandler(s.config.App).Register(s.mux)
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App))

		s.commands = NewCommandsHandler()
		s.config.App.Dispatcher().Subscribe(s.commands)
		s.mux.Handle("/ws/commands", s.commands)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["detecting"] = s.config.App.Active()
		response["mode"] = s.config.App.Mode()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
// It returns nil once Shutdown has been called.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.commands != nil {
		if s.config.App != nil {
			s.config.App.Dispatcher().Unsubscribe(s.commands)
		}
		s.commands.Close()
	}
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
