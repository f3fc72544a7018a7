// Package app runs detection sessions: it owns the camera, the symbol source,
// the gesture buffer, narration and the command dispatcher.
package app

import (
	"context"
	"errors"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/ctrla/ctrla/internal/audio"
	"github.com/ctrla/ctrla/internal/capture"
	"github.com/ctrla/ctrla/internal/command"
	"github.com/ctrla/ctrla/internal/detector"
	"github.com/ctrla/ctrla/internal/gesture"
	"github.com/ctrla/ctrla/internal/narration"
	"github.com/ctrla/ctrla/internal/plugin"
	"github.com/ctrla/ctrla/internal/store"
	"github.com/ctrla/ctrla/internal/vision"
)

// ErrNotActive is returned by operations that need a running session.
var ErrNotActive = errors.New("detection session not active")

// RemoteSource is the remote recognition service as seen by a session.
type RemoteSource interface {
	TryConnect(ctx context.Context) bool
	Run(ctx context.Context, sink func(gesture.Detection)) error
	Stop(ctx context.Context) error
	ClearBuffer(ctx context.Context) error
}

// Narrator describes frames.
type Narrator interface {
	Narrate(ctx context.Context, image []byte, prefs narration.Preferences) (*narration.Result, error)
}

// Config holds configuration options for the application.
type Config struct {
	Store     *store.Store
	PluginDir string
	CameraID  int

	// Collaborators; nil values get production defaults or disable the feature.
	Camera   capture.Camera
	Detector detector.Detector
	Remote   RemoteSource
	Narrator Narrator
	Player   audio.Player
	Encode   func(*vision.Frame) ([]byte, error)

	Vocabulary      *gesture.Vocabulary
	Region          vision.RegionDetectorConfig
	MinConfidence   float64
	ClassThresholds map[gesture.Symbol]float64

	LocalInterval     time.Duration
	LocalCooldown     time.Duration
	RemoteCooldown    time.Duration
	NarrationInterval time.Duration
	AudioGap          time.Duration
	PluginTimeout     time.Duration
	StopTimeout       time.Duration

	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.Camera == nil {
		c.Camera = capture.NewCamera(c.CameraID)
	}
	if c.Region == (vision.RegionDetectorConfig{}) {
		c.Region = vision.DefaultRegionDetectorConfig()
	}
	if c.Detector == nil {
		c.Detector = detector.NewLocalDetector(c.Region)
	}
	if c.Player == nil {
		c.Player = &audio.MultiPlayer{
			Audio:  audio.NewCommandPlayer(""),
			Speech: audio.NewSpeaker(""),
		}
	}
	if c.Encode == nil {
		c.Encode = capture.EncodeJPEG
	}
	if c.Vocabulary == nil {
		c.Vocabulary = gesture.DefaultVocabulary()
	}
	if c.LocalInterval <= 0 {
		c.LocalInterval = detector.LocalInterval
	}
	if c.LocalCooldown <= 0 {
		c.LocalCooldown = detector.LocalCooldown
	}
	if c.RemoteCooldown <= 0 {
		c.RemoteCooldown = detector.RemoteCooldown
	}
	if c.NarrationInterval <= 0 {
		c.NarrationInterval = 3 * time.Second
	}
	if c.AudioGap <= 0 {
		c.AudioGap = audio.DefaultGap
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 2 * time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Session is one Start..Stop span.
type Session struct {
	ID         string        `json:"id"`
	Generation uint64        `json:"generation"`
	Mode       detector.Mode `json:"mode"`
	StartedAt  time.Time     `json:"started_at"`
}

// Status is the user-facing state line.
type Status struct {
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// App orchestrates detection sessions and command side effects.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	remote     RemoteSource
	narrator   Narrator
	queue      *audio.Queue
	dispatcher *command.Dispatcher
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	lifecycle sync.Mutex // serializes Start and Stop
	dispatch  sync.Mutex // keeps Offer and Dispatch in order

	mu          sync.RWMutex
	session     *Session
	generation  uint64
	buffer      *gesture.Buffer
	cancel      context.CancelFunc
	status      Status
	lastCommand *command.Event
	narrationOK bool
	onActive    []func(active bool)

	wg          sync.WaitGroup
	pluginsWG   sync.WaitGroup
	narrationWG sync.WaitGroup // requests in flight; Stop does not wait for them
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	config.applyDefaults()

	a := &App{
		config:      config,
		camera:      config.Camera,
		detector:    config.Detector,
		remote:      config.Remote,
		narrator:    config.Narrator,
		queue:       audio.NewQueue(config.Player, config.AudioGap),
		dispatcher:  command.NewDispatcher(),
		pluginMgr:   plugin.NewManager(config.PluginDir, config.Vocabulary.Commands()...),
		pluginExec:  plugin.NewExecutor(config.PluginTimeout),
		narrationOK: true,
	}
	a.buffer = a.newBuffer(detector.ModeLocal)
	a.queue.OnError(func(c *audio.Clip, err error) {
		a.setStatus(0, "Audio playback failed: "+err.Error())
	})

	if config.Store != nil {
		a.dispatcher.Subscribe(command.NewFuncListener(a.recordHistory))
		a.dispatcher.Subscribe(command.NewFuncListener(a.runBinding))
	}

	return a
}

func (a *App) newBuffer(mode detector.Mode) *gesture.Buffer {
	cooldown := a.config.LocalCooldown
	if mode == detector.ModeRemote {
		cooldown = a.config.RemoteCooldown
	}
	return gesture.NewBuffer(a.config.Vocabulary, gesture.BufferConfig{
		Cooldown:        cooldown,
		MinConfidence:   a.config.MinConfidence,
		ClassThresholds: a.config.ClassThresholds,
		Now:             a.config.Now,
	})
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start opens the camera, picks a mode and starts the session loops.
// Starting an active session is a no-op.
func (a *App) Start(ctx context.Context) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	if a.Active() {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		if cerr := a.camera.Close(); cerr != nil {
			log.Printf("Error closing camera: %v", cerr)
		}
		a.setStatus(0, "Camera unavailable")
		log.Printf("Failed to start detection: %v", err)
		return err
	}

	mode := detector.ModeLocal
	if a.remote != nil && a.remote.TryConnect(ctx) {
		mode = detector.ModeRemote
	}

	runCtx, cancel := context.WithCancel(context.Background())

	a.mu.Lock()
	a.generation++
	sess := &Session{
		ID:         newSessionID(),
		Generation: a.generation,
		Mode:       mode,
		StartedAt:  a.config.Now(),
	}
	a.session = sess
	a.buffer = a.newBuffer(mode)
	a.cancel = cancel
	a.narrationOK = true
	a.mu.Unlock()

	a.wg.Add(1)
	if mode == detector.ModeRemote {
		go a.runRemote(runCtx, sess)
	} else {
		go a.runLocal(runCtx, sess)
	}

	if a.narrator != nil {
		a.wg.Add(1)
		go a.runNarration(runCtx, sess)
	}

	a.setStatus(sess.Generation, "Detection started ("+string(mode)+")")
	log.Printf("Detection session %s started in %s mode", sess.ID, mode)
	a.notifyActive(true)
	return nil
}

// Stop ends the session, releases the camera and silences audio.
// It is safe to call before Start and more than once.
func (a *App) Stop() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.mu.Lock()
	sess := a.session
	cancel := a.cancel
	a.session = nil
	a.cancel = nil
	a.mu.Unlock()

	if sess == nil {
		a.queue.Stop()
		return
	}

	cancel()

	if sess.Mode == detector.ModeRemote {
		ctx, done := context.WithTimeout(context.Background(), a.config.StopTimeout)
		if err := a.remote.Stop(ctx); err != nil {
			log.Printf("Error stopping remote detection: %v", err)
		}
		done()
	}

	a.wg.Wait()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.queue.Stop()

	a.setStatus(0, "Detection stopped")
	log.Printf("Detection session %s stopped", sess.ID)
	a.notifyActive(false)
}

// OnActiveChange registers fn to run after every session start and stop,
// whichever surface triggered it. fn must not call Start or Stop.
func (a *App) OnActiveChange(fn func(active bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onActive = append(a.onActive, fn)
}

func (a *App) notifyActive(active bool) {
	a.mu.RLock()
	fns := slices.Clone(a.onActive)
	a.mu.RUnlock()

	for _, fn := range fns {
		fn(active)
	}
}

// Close stops the session and waits for narration requests, plugin runs and audio to finish.
func (a *App) Close() {
	a.Stop()
	a.narrationWG.Wait()
	a.queue.Close()
	a.pluginsWG.Wait()
}

// Active reports whether a session is running.
func (a *App) Active() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session != nil
}

// Session returns a copy of the current session, or nil.
func (a *App) Session() *Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return nil
	}
	s := *a.session
	return &s
}

// Mode returns the current session's mode, or "" when idle.
func (a *App) Mode() detector.Mode {
	if s := a.Session(); s != nil {
		return s.Mode
	}
	return ""
}

// Status returns the latest status line.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// Buffer returns the symbols currently buffered.
func (a *App) Buffer() []gesture.Symbol {
	a.mu.RLock()
	buf := a.buffer
	a.mu.RUnlock()
	return buf.Symbols()
}

// BufferStats returns counters for the current buffer.
func (a *App) BufferStats() gesture.Stats {
	a.mu.RLock()
	buf := a.buffer
	a.mu.RUnlock()
	return buf.Stats()
}

// ClearBuffer empties the buffer. In remote mode the service's buffer is cleared too.
func (a *App) ClearBuffer(ctx context.Context) {
	a.mu.RLock()
	buf := a.buffer
	sess := a.session
	a.mu.RUnlock()

	buf.Clear()

	if sess != nil && sess.Mode == detector.ModeRemote {
		if err := a.remote.ClearBuffer(ctx); err != nil {
			log.Printf("Error clearing remote buffer: %v", err)
		}
	}
}

// LastCommand returns the most recently dispatched command.
func (a *App) LastCommand() (command.Event, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.lastCommand == nil {
		return command.Event{}, false
	}
	return *a.lastCommand, true
}

// StopSpeech halts narration audio and drops queued clips.
func (a *App) StopSpeech() {
	a.queue.Stop()
}

// Speaking reports whether a clip is playing.
func (a *App) Speaking() bool {
	return a.queue.Playing()
}

// Frame returns the camera's current frame while a session is active.
func (a *App) Frame() (*vision.Frame, error) {
	if !a.Active() {
		return nil, ErrNotActive
	}
	return a.camera.CurrentFrame()
}

// Dispatcher returns the command dispatcher.
func (a *App) Dispatcher() *command.Dispatcher {
	return a.dispatcher
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Queue returns the narration audio queue.
func (a *App) Queue() *audio.Queue {
	return a.queue
}

// isCurrent reports whether gen is the running session's generation.
func (a *App) isCurrent(gen uint64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session != nil && a.session.Generation == gen
}

// setStatus updates the status line. A non-zero gen is dropped unless it is current.
func (a *App) setStatus(gen uint64, msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != 0 && (a.session == nil || a.session.Generation != gen) {
		return
	}
	a.status = Status{Message: msg, UpdatedAt: a.config.Now()}
}
