// Package tray provides a system tray menu for controlling detection.
package tray

import (
	"log"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ctrla/ctrla/internal/command"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle     func(active bool) error
	onStopSpeech func()
	onSettings   func()
	onQuit       func()
	active       bool
	lastCommand  string
	mu           sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastCommand *systray.MenuItem
}

// New creates a new Tray instance with detection stopped.
func New() *Tray {
	return &Tray{}
}

// OnToggle sets the callback run when detection is switched on or off from the menu.
// The menu keeps its previous state when the callback fails.
func (t *Tray) OnToggle(fn func(active bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnStopSpeech sets the callback for the stop speech menu item.
func (t *Tray) OnStopSpeech(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStopSpeech = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
func (t *Tray) onReady() {
	systray.SetTitle("Ctrl-A")
	systray.SetTooltip("Ctrl-A visual commands")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.active), "Start or stop detection")
	systray.AddSeparator()
	t.menuLastCommand = systray.AddMenuItem(lastTitle(t.lastCommand), "Last dispatched command")
	t.menuLastCommand.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuStopSpeech := systray.AddMenuItem("Stop Speech", "Silence narration")
	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Ctrl-A")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuStopSpeech.ClickedCh:
				t.handleStopSpeech()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle flips the detection state and reports it to the toggle callback.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	active := !t.active
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		if err := callback(active); err != nil {
			log.Printf("Toggle detection failed: %v", err)
			return
		}
	}
	t.SetActive(active)
}

// handleStopSpeech handles the stop speech menu item click.
func (t *Tray) handleStopSpeech() {
	t.mu.RLock()
	callback := t.onStopSpeech
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetActive updates the toggle item to reflect the detection state.
func (t *Tray) SetActive(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active = active
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(active))
	}
}

// IsActive returns the detection state shown in the menu.
func (t *Tray) IsActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// OnCommand shows the dispatched command in the menu. It makes Tray a command.Listener.
func (t *Tray) OnCommand(e command.Event) {
	t.SetLastCommand(e.Name)
}

// SetLastCommand updates the last command display in the menu.
func (t *Tray) SetLastCommand(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastCommand = name
	if t.menuLastCommand != nil {
		t.menuLastCommand.SetTitle(lastTitle(name))
	}
}

// LastCommand returns the name shown in the menu, or "" before any command.
func (t *Tray) LastCommand() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastCommand
}

func toggleTitle(active bool) string {
	if active {
		return "● Detecting"
	}
	return "○ Stopped"
}

func lastTitle(name string) string {
	if name == "" {
		return "Last: none"
	}
	return "Last: " + name
}
