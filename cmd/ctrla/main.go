package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ctrla/ctrla/internal/app"
	"github.com/ctrla/ctrla/internal/audio"
	"github.com/ctrla/ctrla/internal/capture"
	"github.com/ctrla/ctrla/internal/config"
	"github.com/ctrla/ctrla/internal/detector"
	"github.com/ctrla/ctrla/internal/gesture"
	"github.com/ctrla/ctrla/internal/narration"
	"github.com/ctrla/ctrla/internal/server"
	"github.com/ctrla/ctrla/internal/store"
	"github.com/ctrla/ctrla/internal/tray"
	"github.com/ctrla/ctrla/internal/vision"
)

const shutdownTimeout = 5 * time.Second

func main() {
	withTray := flag.Bool("tray", false, "show the system tray menu")
	autoStart := flag.Bool("start", false, "start detection immediately")
	flag.Parse()

	fmt.Println("Ctrl-A - Visual Command Pipeline")

	cfg := config.Load()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	application := app.New(appConfig(cfg, st))
	if err := application.DiscoverPlugins(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}

	// Find web directory
	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       application,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *autoStart {
		if err := application.Start(ctx); err != nil {
			log.Printf("Failed to start detection: %v", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Printf("Starting server on %s\n", cfg.Addr)
		return srv.ListenAndServe(cfg.Addr)
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		application.Close()
		return err
	})

	if *withTray {
		t := newTray(ctx, application, cfg.Addr, stop)
		go func() {
			<-gctx.Done()
			t.Quit()
		}()
		// systray must own the main goroutine.
		t.Run()
		stop()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Server failed: %v", err)
	}
	fmt.Println("Stopped")
}

// appConfig maps the environment settings onto the application collaborators.
func appConfig(cfg *config.Config, st *store.Store) app.Config {
	camera := capture.NewCamera(cfg.CameraDevice)
	camera.SetFPS(cfg.CameraFPS)

	ac := app.Config{
		Store:     st,
		PluginDir: cfg.PluginDir,
		Camera:    camera,
		Region: vision.RegionDetectorConfig{
			Stride:    cfg.RegionStride,
			Tolerance: cfg.RegionTolerance,
			MinArea:   cfg.RegionMinArea,
		},
		Player: &audio.MultiPlayer{
			Audio:  audio.NewCommandPlayer(cfg.PlayerCommand),
			Speech: audio.NewSpeaker(cfg.SpeakCommand),
		},
		MinConfidence:     cfg.MinConfidence,
		ClassThresholds:   cfg.ClassThresholds,
		LocalInterval:     cfg.LocalInterval,
		LocalCooldown:     cfg.LocalCooldown,
		RemoteCooldown:    cfg.RemoteCooldown,
		NarrationInterval: cfg.NarrationInterval,
		AudioGap:          cfg.AudioGap,
		PluginTimeout:     cfg.PluginTimeout,
	}

	if cfg.RemoteEnabled {
		bc := detector.DefaultBridgeConfig()
		bc.BaseURL = cfg.RemoteURL
		bc.Debounce = cfg.RemoteDebounce
		bc.Timeout = cfg.RemoteTimeout
		bc.Gate = gesture.ConfidenceGate{Min: cfg.MinConfidence, PerClass: cfg.ClassThresholds}
		ac.Remote = detector.NewRemoteBridge(bc)
	}
	if cfg.NarrationEnabled {
		ac.Narrator = narration.NewClient(cfg.NarrationURL, cfg.NarrationTimeout)
	}
	return ac
}

// newTray wires the tray menu to the application.
func newTray(ctx context.Context, application *app.App, addr string, quit func()) *tray.Tray {
	t := tray.New()
	t.SetActive(application.Active())

	t.OnToggle(func(active bool) error {
		if active {
			return application.Start(ctx)
		}
		application.Stop()
		return nil
	})
	t.OnStopSpeech(application.StopSpeech)
	t.OnSettings(func() {
		log.Printf("Settings available at http://localhost%s", addr)
	})
	t.OnQuit(quit)

	application.OnActiveChange(t.SetActive)
	application.Dispatcher().Subscribe(t)
	return t
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
