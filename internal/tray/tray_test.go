package tray

import (
	"errors"
	"testing"

	"github.com/ctrla/ctrla/internal/command"
)

func TestTray_Toggle(t *testing.T) {
	tr := New()

	var got []bool
	tr.OnToggle(func(active bool) error {
		got = append(got, active)
		return nil
	})

	tr.handleToggle()
	if !tr.IsActive() {
		t.Error("expected active after first toggle")
	}
	tr.handleToggle()
	if tr.IsActive() {
		t.Error("expected stopped after second toggle")
	}

	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("callback saw %v, want [true false]", got)
	}
}

func TestTray_ToggleFailureKeepsState(t *testing.T) {
	tr := New()
	tr.OnToggle(func(active bool) error {
		return errors.New("camera unavailable")
	})

	tr.handleToggle()
	if tr.IsActive() {
		t.Error("state should not change when the callback fails")
	}
}

func TestTray_ToggleAfterExternalStart(t *testing.T) {
	tr := New()

	var got []bool
	tr.OnToggle(func(active bool) error {
		got = append(got, active)
		return nil
	})

	// A session started from the web UI.
	tr.SetActive(true)
	tr.handleToggle()

	if tr.IsActive() {
		t.Error("expected stopped after toggling a running session")
	}
	if len(got) != 1 || got[0] {
		t.Errorf("callback saw %v, want [false]", got)
	}
}

func TestTray_LastCommand(t *testing.T) {
	tr := New()
	if tr.LastCommand() != "" {
		t.Errorf("LastCommand() = %q, want empty", tr.LastCommand())
	}

	var l command.Listener = tr
	l.OnCommand(command.Event{Name: "music"})

	if tr.LastCommand() != "music" {
		t.Errorf("LastCommand() = %q, want music", tr.LastCommand())
	}
}

func TestTitles(t *testing.T) {
	if got := toggleTitle(true); got != "● Detecting" {
		t.Errorf("toggleTitle(true) = %q", got)
	}
	if got := toggleTitle(false); got != "○ Stopped" {
		t.Errorf("toggleTitle(false) = %q", got)
	}
	if got := lastTitle(""); got != "Last: none" {
		t.Errorf("lastTitle(\"\") = %q", got)
	}
	if got := lastTitle("clear"); got != "Last: clear" {
		t.Errorf("lastTitle(clear) = %q", got)
	}
}
