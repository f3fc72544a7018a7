package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrla/ctrla/internal/app"
	"github.com/ctrla/ctrla/internal/audio"
	"github.com/ctrla/ctrla/internal/capture"
	"github.com/ctrla/ctrla/internal/detector"
	"github.com/ctrla/ctrla/internal/gesture"
	"github.com/ctrla/ctrla/internal/store"
	"github.com/ctrla/ctrla/internal/vision"
)

type silentPlayer struct{}

func (silentPlayer) Play(ctx context.Context, clip *audio.Clip) error { return nil }

func newTestServer(t *testing.T, symbols ...gesture.Symbol) (*httptest.Server, *app.App, *store.Store) {
	t.Helper()

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	a := app.New(app.Config{
		Store:         s,
		PluginDir:     tmpDir,
		Camera:        capture.NewMockCamera([]*vision.Frame{vision.NewFrame(64, 48)}, true),
		Detector:      detector.NewMockDetector(symbols...),
		Player:        silentPlayer{},
		LocalInterval: 10 * time.Millisecond,
	})
	t.Cleanup(a.Close)

	srv := New(Config{Store: s, App: a})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	return ts, a, s
}

func TestAPI_SessionCommandFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ts, a, s := newTestServer(t, "B")
	client := ts.Client()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/commands", nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscriber must be registered before the symbol is detected.
	time.Sleep(50 * time.Millisecond)

	resp, err := client.Post(ts.URL+"/api/session/start", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var started struct {
		Active  bool `json:"active"`
		Session struct {
			ID   string `json:"id"`
			Mode string `json:"mode"`
		} `json:"session"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	resp.Body.Close()
	assert.True(t, started.Active)
	assert.Equal(t, "local", started.Session.Mode)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg commandMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "music", msg.Event.Name)
	assert.Equal(t, started.Session.ID, msg.Event.SessionID)

	require.Eventually(t, func() bool {
		n, _ := s.History().Count()
		return n == 1
	}, time.Second, 10*time.Millisecond)

	resp, err = client.Get(ts.URL + "/api/history")
	require.NoError(t, err)
	var history struct {
		Entries []struct {
			Command string   `json:"command"`
			Symbols []string `json:"symbols"`
		} `json:"entries"`
		Total int `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	resp.Body.Close()
	require.Len(t, history.Entries, 1)
	assert.Equal(t, "music", history.Entries[0].Command)
	assert.Equal(t, []string{"B"}, history.Entries[0].Symbols)

	resp, err = client.Post(ts.URL+"/api/session/stop", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.False(t, a.Active())
}

func TestAPI_BindingWorkflow(t *testing.T) {
	ts, _, _ := newTestServer(t)
	client := ts.Client()

	// No plugins are installed, so the plugin check rejects the binding.
	body := `{"command":"music","plugin_name":"media-control","action_name":"play-pause"}`
	resp, err := client.Post(ts.URL+"/api/bindings", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/api/bindings")
	require.NoError(t, err)
	var listed struct {
		Bindings []json.RawMessage `json:"bindings"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	assert.Empty(t, listed.Bindings)
}

func TestAPI_Preferences(t *testing.T) {
	ts, a, _ := newTestServer(t)
	client := ts.Client()

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/preferences", bytes.NewBufferString(`{"style":"detailed"}`))
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "detailed", a.Preferences().Style)
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}
