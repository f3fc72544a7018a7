package detector

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Engine.IO v4 packet types. Each websocket text frame carries one packet.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
)

// Socket.IO packet types, carried inside an Engine.IO message packet.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

// Frames the bridge writes.
const (
	pongFrame       = "3"
	connectFrame    = "40"
	disconnectFrame = "41"
)

// packet is one decoded Engine.IO frame.
type packet struct {
	engine byte
	socket byte // set when engine is eioMessage
	data   []byte
}

// openPayload is the Engine.IO handshake sent by the server.
type openPayload struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// heartbeat is how long the server may stay silent before the stream is dead.
func (o openPayload) heartbeat() time.Duration {
	return time.Duration(o.PingInterval+o.PingTimeout) * time.Millisecond
}

// decodePacket splits a frame into its type bytes and payload. Namespace
// prefixes and ack ids are stripped from Socket.IO packets.
func decodePacket(raw []byte) (packet, error) {
	if len(raw) == 0 {
		return packet{}, fmt.Errorf("%w: empty frame", ErrMalformedPayload)
	}

	p := packet{engine: raw[0], data: raw[1:]}
	if p.engine < eioOpen || p.engine > '6' {
		return packet{}, fmt.Errorf("%w: unknown engine packet %q", ErrMalformedPayload, p.engine)
	}
	if p.engine != eioMessage {
		return p, nil
	}

	if len(p.data) == 0 {
		return packet{}, fmt.Errorf("%w: empty message packet", ErrMalformedPayload)
	}
	p.socket = p.data[0]
	rest := string(p.data[1:])

	if strings.HasPrefix(rest, "/") {
		i := strings.IndexByte(rest, ',')
		if i < 0 {
			rest = ""
		} else {
			rest = rest[i+1:]
		}
	}
	rest = strings.TrimLeft(rest, "0123456789")

	p.data = []byte(rest)
	return p, nil
}

// ParseEvent decodes the body of a Socket.IO event packet, a JSON array of
// the event name and its payload object. The name becomes Event.Type.
func ParseEvent(data []byte) (Event, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(parts) == 0 {
		return Event{}, fmt.Errorf("%w: missing event name", ErrMalformedPayload)
	}

	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil || name == "" {
		return Event{}, fmt.Errorf("%w: missing event name", ErrMalformedPayload)
	}

	var e Event
	if len(parts) > 1 {
		if err := json.Unmarshal(parts[1], &e); err != nil {
			return Event{}, fmt.Errorf("%w: %s payload: %v", ErrMalformedPayload, name, err)
		}
	}
	e.Type = name

	if e.Type == EventSignDetected && strings.TrimSpace(e.Character) == "" {
		return Event{}, fmt.Errorf("%w: missing character", ErrMalformedPayload)
	}
	return e, nil
}
