package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrla/ctrla/internal/gesture"
)

type recorder struct {
	names []string
}

func (r *recorder) OnCommand(e Event) {
	r.names = append(r.names, e.Name)
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	d := NewDispatcher()
	rec := &recorder{}
	d.Subscribe(rec)

	for _, name := range []string{"music", "help", "stop"} {
		d.Dispatch(Event{Name: name})
	}

	assert.Equal(t, []string{"music", "help", "stop"}, rec.names)
}

func TestDispatcher_MultipleListeners(t *testing.T) {
	d := NewDispatcher()
	var order []string
	first := NewFuncListener(func(e Event) { order = append(order, "first:"+e.Name) })
	second := NewFuncListener(func(e Event) { order = append(order, "second:"+e.Name) })

	d.Subscribe(first)
	d.Subscribe(second)
	d.Dispatch(Event{Name: "ok"})

	assert.Equal(t, []string{"first:ok", "second:ok"}, order)
}

func TestDispatcher_Unsubscribe(t *testing.T) {
	d := NewDispatcher()
	a := &recorder{}
	b := &recorder{}
	d.Subscribe(a)
	d.Subscribe(b)

	d.Unsubscribe(a)
	d.Dispatch(Event{Name: "yes"})

	assert.Empty(t, a.names)
	assert.Equal(t, []string{"yes"}, b.names)
	assert.Equal(t, 1, d.Len())

	// Unknown listener is ignored.
	d.Unsubscribe(&recorder{})
	assert.Equal(t, 1, d.Len())
}

func TestDispatcher_SubscribeTwiceIsNoop(t *testing.T) {
	d := NewDispatcher()
	rec := &recorder{}
	d.Subscribe(rec)
	d.Subscribe(rec)
	d.Subscribe(nil)

	d.Dispatch(Event{Name: "next"})

	assert.Equal(t, []string{"next"}, rec.names)
}

func TestDispatcher_NoReplayForLateListeners(t *testing.T) {
	d := NewDispatcher()
	d.Dispatch(Event{Name: "early"})

	late := &recorder{}
	d.Subscribe(late)
	d.Dispatch(Event{Name: "later"})

	assert.Equal(t, []string{"later"}, late.names)
}

func TestDispatcher_RecoversFromPanickingListener(t *testing.T) {
	d := NewDispatcher()
	rec := &recorder{}
	d.Subscribe(NewFuncListener(func(Event) { panic("boom") }))
	d.Subscribe(rec)

	require.NotPanics(t, func() { d.Dispatch(Event{Name: "play"}) })
	assert.Equal(t, []string{"play"}, rec.names)
}

func TestNewEvent(t *testing.T) {
	at := time.Unix(42, 0)
	r := gesture.Resolution{
		Command:   "help",
		Kind:      gesture.KindSequence,
		Symbols:   []gesture.Symbol{"H", "L", "P"},
		Detection: gesture.Detection{Symbol: "P", At: at},
	}

	e := NewEvent(r, "local", "session-1")

	require.NotEmpty(t, e.ID)
	assert.Equal(t, "help", e.Name)
	assert.Equal(t, gesture.KindSequence, e.Kind)
	assert.Equal(t, []gesture.Symbol{"H", "L", "P"}, e.Symbols)
	assert.Equal(t, "local", e.Mode)
	assert.Equal(t, "session-1", e.SessionID)
	assert.True(t, e.At.Equal(at))
}
