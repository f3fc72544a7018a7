package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrla/ctrla/internal/app"
	"github.com/ctrla/ctrla/internal/audio"
	"github.com/ctrla/ctrla/internal/capture"
	"github.com/ctrla/ctrla/internal/command"
	"github.com/ctrla/ctrla/internal/detector"
	"github.com/ctrla/ctrla/internal/server"
	"github.com/ctrla/ctrla/internal/store"
	"github.com/ctrla/ctrla/internal/vision"
	"github.com/ctrla/ctrla/testdata"
)

type silentPlayer struct{}

func (silentPlayer) Play(ctx context.Context, clip *audio.Clip) error { return nil }

// recognitionService stands in for the remote sign recognition service,
// speaking Socket.IO over a websocket.
type recognitionService struct {
	upgrader websocket.Upgrader
	events   [][]byte

	mu    sync.Mutex
	calls []string
}

func (s *recognitionService) handler() http.Handler {
	mux := http.NewServeMux()
	for _, name := range []string{"start_detection", "stop_detection", "clear_buffer"} {
		name := name
		mux.HandleFunc("/api/"+name, func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.calls = append(s.calls, name)
			s.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "ok"})
		})
	}
	mux.HandleFunc("/socket.io/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Engine.IO open, then wait for the client to join the default namespace.
		conn.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"e2e","pingInterval":25000,"pingTimeout":20000}`))
		if _, raw, err := conn.ReadMessage(); err != nil || string(raw) != "40" {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"e2e-sio"}`))

		for _, e := range s.events {
			if err := conn.WriteMessage(websocket.TextMessage, append([]byte("42"), e...)); err != nil {
				return
			}
		}
		// Hold the stream open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	return mux
}

func (s *recognitionService) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type collector struct {
	mu     sync.Mutex
	events []command.Event
}

func (c *collector) OnCommand(e command.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.events))
	for _, e := range c.events {
		names = append(names, e.Name)
	}
	return names
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestE2E_LocalSymbolToCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s := newStore(t)
	frame, err := testdata.SymbolFrame(vision.SymbolDown)
	require.NoError(t, err)

	// The real region detector classifies the fixture frame.
	application := app.New(app.Config{
		Store:         s,
		PluginDir:     t.TempDir(),
		Camera:        capture.NewMockCamera([]*vision.Frame{frame}, true),
		Player:        silentPlayer{},
		LocalInterval: 10 * time.Millisecond,
	})
	defer application.Close()

	srv := server.New(server.Config{Store: s, App: application})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	defer srv.Shutdown(context.Background())

	client := ts.Client()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/commands", nil)
	require.NoError(t, err)
	defer conn.Close()
	time.Sleep(50 * time.Millisecond)

	t.Run("StartSession", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/session/start", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("ReceiveCommand", func(t *testing.T) {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg struct {
			Type  string        `json:"type"`
			Event command.Event `json:"event"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "command", msg.Type)
		assert.Equal(t, "music", msg.Event.Name)
		assert.Equal(t, detector.ModeLocal, msg.Event.Mode)
	})

	t.Run("CooldownSuppressesRepeats", func(t *testing.T) {
		time.Sleep(200 * time.Millisecond)
		n, err := s.History().Count()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("HistoryRecorded", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/history?limit=5")
		require.NoError(t, err)
		defer resp.Body.Close()

		var history struct {
			Entries []struct {
				Command string `json:"command"`
				Mode    string `json:"mode"`
			} `json:"entries"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
		require.Len(t, history.Entries, 1)
		assert.Equal(t, "music", history.Entries[0].Command)
	})

	t.Run("HeldSymbolRepeatsAfterCooldown", func(t *testing.T) {
		require.Eventually(t, func() bool {
			n, err := s.History().Count()
			return err == nil && n >= 2
		}, 3*time.Second, 20*time.Millisecond)
	})

	t.Run("StopSession", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/session/stop", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.False(t, application.Active())
		assert.False(t, application.Camera().IsOpen())
	})
}

func TestE2E_RemoteSymbolsDebounced(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	sign := func(char string) []byte {
		b, _ := json.Marshal([]any{"sign_detected", map[string]any{"character": char, "confidence": 0.95}})
		return b
	}
	svc := &recognitionService{events: [][]byte{sign("E"), sign("E")}}
	remote := httptest.NewServer(svc.handler())
	defer remote.Close()

	bc := detector.DefaultBridgeConfig()
	bc.BaseURL = remote.URL

	application := app.New(app.Config{
		Store:     newStore(t),
		PluginDir: t.TempDir(),
		Camera:    capture.NewMockCamera([]*vision.Frame{testdata.BlankFrame()}, true),
		Remote:    detector.NewRemoteBridge(bc),
		Player:    silentPlayer{},
	})
	defer application.Close()

	got := &collector{}
	application.Dispatcher().Subscribe(got)

	require.NoError(t, application.Start(context.Background()))
	assert.Equal(t, detector.ModeRemote, application.Mode())

	require.Eventually(t, func() bool {
		return len(got.Names()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The second E arrives inside the debounce window.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"schemes"}, got.Names())

	application.Stop()
	assert.Equal(t, []string{"start_detection", "stop_detection"}, svc.Calls())
}
