package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ctrla/ctrla/internal/gesture"
)

var (
	// ErrMalformedPayload is returned for events that cannot be decoded.
	ErrMalformedPayload = errors.New("malformed detection event")
	// ErrServiceUnavailable is returned when the recognition service cannot be reached.
	ErrServiceUnavailable = errors.New("detection service unavailable")
	// ErrNotConnected is returned by Run when TryConnect has not succeeded.
	ErrNotConnected = errors.New("detection bridge not connected")
)

// Remote defaults.
const (
	DefaultRemoteURL   = "http://127.0.0.1:5001"
	DefaultEventsPath  = "/socket.io/"
	DefaultDebounce    = 1500 * time.Millisecond
	DefaultHTTPTimeout = 3 * time.Second
)

// EventSignDetected is the only event type forwarded as a symbol.
const EventSignDetected = "sign_detected"

// BridgeConfig configures a RemoteBridge.
type BridgeConfig struct {
	BaseURL string
	// EventsPath is the Socket.IO endpoint of the service.
	EventsPath string
	Timeout    time.Duration
	Debounce   time.Duration
	// Gate drops low-confidence events before they can claim the debounce window.
	Gate gesture.ConfidenceGate
	Now  func() time.Time
}

// DefaultBridgeConfig returns the local recognition service defaults.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		BaseURL:    DefaultRemoteURL,
		EventsPath: DefaultEventsPath,
		Timeout:    DefaultHTTPTimeout,
		Debounce:   DefaultDebounce,
	}
}

// Event is the payload of a Socket.IO event pushed by the recognition service.
// Type holds the event name; the payload itself carries no type field.
type Event struct {
	Type       string   `json:"-"`
	Character  string   `json:"character"`
	Confidence *float64 `json:"confidence,omitempty"`
	Action     string   `json:"action,omitempty"`
	TextBuffer string   `json:"text_buffer,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// Detection converts a sign_detected event to a remote Detection.
func (e Event) Detection(at time.Time) gesture.Detection {
	conf := gesture.NoConfidence
	if e.Confidence != nil {
		conf = *e.Confidence
	}
	return gesture.Detection{
		Symbol:     gesture.Symbol(strings.TrimSpace(e.Character)),
		Confidence: conf,
		Action:     e.Action,
		Source:     gesture.SourceRemote,
		At:         at,
	}
}

type controlResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RemoteBridge connects to the recognition service and forwards its symbols.
type RemoteBridge struct {
	cfg        BridgeConfig
	httpClient *http.Client
	dialer     *websocket.Dialer

	mu           sync.Mutex
	conn         *websocket.Conn
	heartbeat    time.Duration
	lastForward  time.Time
	hasForwarded bool
	forwarded    int
	dropped      int
	rejected     int

	// wmu serializes text frames written by Run and Stop.
	wmu sync.Mutex
}

// NewRemoteBridge creates a bridge. Zero fields fall back to DefaultBridgeConfig.
func NewRemoteBridge(cfg BridgeConfig) *RemoteBridge {
	def := DefaultBridgeConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.EventsPath == "" {
		cfg.EventsPath = def.EventsPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &RemoteBridge{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.Timeout,
		},
	}
}

// TryConnect asks the service to start detection and opens the event stream.
// Any failure is logged and reported as false; the caller falls back to local mode.
func (b *RemoteBridge) TryConnect(ctx context.Context) bool {
	if err := b.control(ctx, "/api/start_detection"); err != nil {
		log.Printf("remote detection unavailable: %v", err)
		return false
	}

	wsURL, err := b.eventsURL()
	if err != nil {
		log.Printf("remote detection unavailable: %v", err)
		return false
	}

	dialCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	conn, resp, err := b.dialer.DialContext(dialCtx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		log.Printf("remote detection unavailable: dial %s: %v", wsURL, err)
		return false
	}

	open, err := b.handshake(conn)
	if err != nil {
		conn.Close()
		log.Printf("remote detection unavailable: %v", err)
		return false
	}

	b.mu.Lock()
	if b.conn != nil {
		b.conn.Close()
	}
	b.conn = conn
	b.heartbeat = open.heartbeat()
	b.hasForwarded = false
	b.mu.Unlock()

	log.Printf("connected to remote detection at %s (sid %s)", b.cfg.BaseURL, open.SID)
	return true
}

// handshake reads the Engine.IO open packet and joins the default namespace.
func (b *RemoteBridge) handshake(conn *websocket.Conn) (openPayload, error) {
	conn.SetReadDeadline(time.Now().Add(b.cfg.Timeout))
	defer conn.SetReadDeadline(time.Time{})

	var open openPayload
	p, err := readPacket(conn)
	if err != nil {
		return open, err
	}
	if p.engine != eioOpen {
		return open, fmt.Errorf("%w: expected open packet, got %q", ErrMalformedPayload, p.engine)
	}
	if err := json.Unmarshal(p.data, &open); err != nil {
		return open, fmt.Errorf("%w: open packet: %v", ErrMalformedPayload, err)
	}

	if err := b.writeFrame(conn, connectFrame); err != nil {
		return open, fmt.Errorf("join namespace: %w", err)
	}

	for {
		p, err := readPacket(conn)
		if err != nil {
			return open, err
		}
		switch {
		case p.engine == eioPing:
			if err := b.writeFrame(conn, pongFrame); err != nil {
				return open, err
			}
		case p.engine == eioMessage && p.socket == sioConnect:
			return open, nil
		case p.engine == eioMessage && p.socket == sioConnectError:
			return open, fmt.Errorf("%w: namespace refused: %s", ErrServiceUnavailable, p.data)
		case p.engine == eioClose:
			return open, fmt.Errorf("%w: closed during handshake", ErrServiceUnavailable)
		}
	}
}

func readPacket(conn *websocket.Conn) (packet, error) {
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return packet{}, err
	}
	return decodePacket(raw)
}

func (b *RemoteBridge) writeFrame(conn *websocket.Conn, frame string) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// Connected reports whether an event stream is open.
func (b *RemoteBridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Run reads Socket.IO packets until the stream closes or ctx is cancelled,
// answering pings and passing debounced symbols to sink. It does not reconnect.
func (b *RemoteBridge) Run(ctx context.Context, sink func(gesture.Detection)) error {
	b.mu.Lock()
	conn := b.conn
	heartbeat := b.heartbeat
	b.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		if heartbeat > 0 {
			conn.SetReadDeadline(time.Now().Add(heartbeat))
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			stopped := !b.detach(conn)
			if stopped || ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("remote event stream: %w", err)
		}

		p, err := decodePacket(raw)
		if err != nil {
			log.Printf("dropping remote frame: %v", err)
			continue
		}

		switch p.engine {
		case eioPing:
			if err := b.writeFrame(conn, pongFrame); err != nil {
				b.detach(conn)
				return fmt.Errorf("remote event stream: pong: %w", err)
			}
		case eioClose:
			b.detach(conn)
			return nil
		case eioMessage:
			switch p.socket {
			case sioEvent:
				b.handle(p.data, sink)
			case sioDisconnect:
				b.detach(conn)
				return nil
			}
		}
	}
}

// handle processes the body of one event packet.
func (b *RemoteBridge) handle(data []byte, sink func(gesture.Detection)) {
	e, err := ParseEvent(data)
	if err != nil {
		log.Printf("dropping remote event: %v", err)
		return
	}

	switch e.Type {
	case EventSignDetected:
	case "status":
		log.Printf("remote detection: %s", e.Message)
		return
	case "error":
		log.Printf("remote detection error: %s", e.Message)
		return
	default:
		log.Printf("dropping remote event: unknown event %q", e.Type)
		return
	}

	now := b.cfg.Now()
	d := e.Detection(now)

	b.mu.Lock()
	if !b.cfg.Gate.Allows(d) {
		b.rejected++
		b.mu.Unlock()
		return
	}
	if b.hasForwarded && now.Sub(b.lastForward) < b.cfg.Debounce {
		b.dropped++
		b.mu.Unlock()
		return
	}
	b.lastForward = now
	b.hasForwarded = true
	b.forwarded++
	b.mu.Unlock()

	if sink != nil {
		sink(d)
	}
}

// Stats returns forwarded, debounced and low-confidence event counts.
func (b *RemoteBridge) Stats() (forwarded, debounced, rejected int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.forwarded, b.dropped, b.rejected
}

// Stop asks the service to stop detection and closes the event stream.
func (b *RemoteBridge) Stop(ctx context.Context) error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()

	if conn != nil {
		b.writeFrame(conn, disconnectFrame)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}

	return b.control(ctx, "/api/stop_detection")
}

// ClearBuffer asks the service to clear its own text buffer.
func (b *RemoteBridge) ClearBuffer(ctx context.Context) error {
	return b.control(ctx, "/api/clear_buffer")
}

// detach drops conn and reports whether it was still the active stream.
func (b *RemoteBridge) detach(conn *websocket.Conn) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	conn.Close()
	if b.conn != conn {
		return false
	}
	b.conn = nil
	return true
}

func (b *RemoteBridge) control(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.BaseURL+path, bytes.NewReader([]byte("{}")))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned status %d", ErrServiceUnavailable, path, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	var cr controlResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, path, err)
	}
	// A service that is already running counts as started.
	if !cr.Success && !strings.Contains(strings.ToLower(cr.Message), "already active") {
		return fmt.Errorf("%w: %s: %s", ErrServiceUnavailable, path, cr.Message)
	}
	return nil
}

func (b *RemoteBridge) eventsURL() (string, error) {
	u, err := url.Parse(b.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse remote url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + b.cfg.EventsPath
	u.RawQuery = url.Values{"EIO": {"4"}, "transport": {"websocket"}}.Encode()
	return u.String(), nil
}
