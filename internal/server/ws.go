package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ctrla/ctrla/internal/command"
)

const (
	// clientBuffer is how many events may queue for a slow client before it misses some.
	clientBuffer = 16
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// commandMessage is the websocket payload for a dispatched command.
type commandMessage struct {
	Type  string        `json:"type"`
	Event command.Event `json:"event"`
}

// CommandsHandler fans dispatched commands out to websocket clients.
// It is a command.Listener; OnCommand never blocks on a client.
type CommandsHandler struct {
	clients map[*websocket.Conn]chan []byte
	mu      sync.RWMutex
	closed  bool
}

// NewCommandsHandler creates a new CommandsHandler.
func NewCommandsHandler() *CommandsHandler {
	return &CommandsHandler{
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *CommandsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan []byte, clientBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.clients[conn] = send
	h.mu.Unlock()

	defer h.remove(conn)

	go h.writeLoop(conn, send)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *CommandsHandler) writeLoop(conn *websocket.Conn, send <-chan []byte) {
	for msg := range send {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			return
		}
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func (h *CommandsHandler) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if send, ok := h.clients[conn]; ok {
		close(send)
		delete(h.clients, conn)
	}
}

// OnCommand broadcasts e to all connected clients.
func (h *CommandsHandler) OnCommand(e command.Event) {
	msg, err := json.Marshal(commandMessage{Type: "command", Event: e})
	if err != nil {
		log.Printf("Error encoding command event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn, send := range h.clients {
		select {
		case send <- msg:
		default:
			log.Printf("Dropping command %s for slow client %s", e.Name, conn.RemoteAddr())
		}
	}
}

// Clients returns the number of connected clients.
func (h *CommandsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *CommandsHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn, send := range h.clients {
		close(send)
		delete(h.clients, conn)
	}
}
