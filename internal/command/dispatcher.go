// Package command publishes resolved commands to registered listeners.
package command

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ctrla/ctrla/internal/gesture"
)

// Event is a resolved command notification.
type Event struct {
	ID        string           `json:"id"`
	Name      string           `json:"command"`
	Kind      gesture.Kind     `json:"kind"`
	Symbols   []gesture.Symbol `json:"symbols"`
	Mode      string           `json:"mode,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	At        time.Time        `json:"at"`
}

// NewEvent builds an Event from a buffer resolution.
func NewEvent(r gesture.Resolution, mode, sessionID string) Event {
	at := r.Detection.At
	if at.IsZero() {
		at = time.Now()
	}
	return Event{
		ID:        uuid.New().String(),
		Name:      r.Command,
		Kind:      r.Kind,
		Symbols:   r.Symbols,
		Mode:      mode,
		SessionID: sessionID,
		At:        at,
	}
}

// Listener receives dispatched events.
// Implementations must be comparable (pointer types) so they can be unsubscribed.
type Listener interface {
	OnCommand(Event)
}

// FuncListener adapts a function to the Listener interface.
type FuncListener struct {
	fn func(Event)
}

// NewFuncListener wraps fn. Keep the returned pointer to unsubscribe later.
func NewFuncListener(fn func(Event)) *FuncListener {
	return &FuncListener{fn: fn}
}

// OnCommand calls the wrapped function.
func (l *FuncListener) OnCommand(e Event) {
	if l.fn != nil {
		l.fn(e)
	}
}

// Dispatcher delivers events to listeners in subscription order.
// Delivery is synchronous; order matches Dispatch order. There is no replay
// for listeners that subscribe later.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers a listener. Subscribing the same listener twice is a no-op.
func (d *Dispatcher) Subscribe(l Listener) {
	if l == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.listeners {
		if existing == l {
			return
		}
	}
	d.listeners = append(d.listeners, l)
}

// Unsubscribe removes a listener by reference.
func (d *Dispatcher) Unsubscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, existing := range d.listeners {
		if existing == l {
			d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered listeners.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners)
}

// Dispatch delivers e to every listener registered at call time.
// A panicking listener is logged and does not stop delivery to the rest.
func (d *Dispatcher) Dispatch(e Event) {
	d.mu.RLock()
	snapshot := make([]Listener, len(d.listeners))
	copy(snapshot, d.listeners)
	d.mu.RUnlock()

	for _, l := range snapshot {
		deliver(l, e)
	}
}

func deliver(l Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("command listener panicked on %q: %v", e.Name, r)
		}
	}()
	l.OnCommand(e)
}
