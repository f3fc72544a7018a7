// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ctrla/ctrla/internal/gesture"
)

type Config struct {
	Addr      string
	DataDir   string
	WebDir    string
	PluginDir string

	CameraDevice int
	CameraFPS    int

	RegionStride    int
	RegionTolerance int
	RegionMinArea   int

	LocalInterval  time.Duration
	LocalCooldown  time.Duration
	RemoteCooldown time.Duration

	RemoteEnabled  bool
	RemoteURL      string
	RemoteDebounce time.Duration
	RemoteTimeout  time.Duration
	MinConfidence  float64

	// ClassThresholds overrides MinConfidence per symbol for remote events.
	ClassThresholds map[gesture.Symbol]float64

	NarrationEnabled  bool
	NarrationURL      string
	NarrationInterval time.Duration
	NarrationTimeout  time.Duration

	AudioGap      time.Duration
	PlayerCommand string
	SpeakCommand  string

	PluginTimeout time.Duration
}

// Load reads an optional .env file from the working directory and then the environment.
func Load() *Config {
	return LoadFrom(".env")
}

// LoadFrom reads the given dotenv files (missing files are skipped) and then the environment.
// Variables already set in the environment win over file values.
func LoadFrom(files ...string) *Config {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("config: ignoring %s: %v", f, err)
		}
	}

	dataDir := getEnv("CTRLA_DATA_DIR", defaultDataDir())

	return &Config{
		Addr:      getEnv("CTRLA_ADDR", ":8080"),
		DataDir:   dataDir,
		WebDir:    getEnv("CTRLA_WEB_DIR", ""),
		PluginDir: getEnv("CTRLA_PLUGIN_DIR", filepath.Join(dataDir, "plugins")),

		CameraDevice: getEnvAsInt("CTRLA_CAMERA", 0),
		CameraFPS:    getEnvAsInt("CTRLA_CAMERA_FPS", 10),

		RegionStride:    getEnvAsInt("CTRLA_REGION_STRIDE", 5),
		RegionTolerance: getEnvAsInt("CTRLA_REGION_TOLERANCE", 30),
		RegionMinArea:   getEnvAsInt("CTRLA_REGION_MIN_AREA", 1000),

		LocalInterval:  getEnvAsDuration("CTRLA_LOCAL_INTERVAL", 100*time.Millisecond),
		LocalCooldown:  getEnvAsDuration("CTRLA_LOCAL_COOLDOWN", time.Second),
		RemoteCooldown: getEnvAsDuration("CTRLA_REMOTE_COOLDOWN", 1500*time.Millisecond),

		RemoteEnabled:  getEnvAsBool("CTRLA_REMOTE_ENABLED", true),
		RemoteURL:      getEnv("CTRLA_REMOTE_URL", "http://127.0.0.1:5001"),
		RemoteDebounce: getEnvAsDuration("CTRLA_REMOTE_DEBOUNCE", 1500*time.Millisecond),
		RemoteTimeout:  getEnvAsDuration("CTRLA_REMOTE_TIMEOUT", 3*time.Second),
		MinConfidence:  getEnvAsFloat("CTRLA_MIN_CONFIDENCE", 0),

		ClassThresholds: getEnvAsThresholds("CTRLA_CLASS_THRESHOLDS", gesture.DefaultClassThresholds()),

		NarrationEnabled:  getEnvAsBool("CTRLA_NARRATION_ENABLED", false),
		NarrationURL:      getEnv("CTRLA_NARRATION_URL", "http://127.0.0.1:8000/api/narrate"),
		NarrationInterval: getEnvAsDuration("CTRLA_NARRATION_INTERVAL", 3*time.Second),
		NarrationTimeout:  getEnvAsDuration("CTRLA_NARRATION_TIMEOUT", 15*time.Second),

		AudioGap:      getEnvAsDuration("CTRLA_AUDIO_GAP", 100*time.Millisecond),
		PlayerCommand: getEnv("CTRLA_PLAYER", "ffplay -nodisp -autoexit -loglevel quiet"),
		SpeakCommand:  getEnv("CTRLA_SPEAK", "espeak --stdin"),

		PluginTimeout: getEnvAsDuration("CTRLA_PLUGIN_TIMEOUT", 5*time.Second),
	}
}

// DBPath returns the SQLite database location inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "ctrla.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ctrla"
	}
	return filepath.Join(home, ".ctrla")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("1.5s") or plain milliseconds ("1500").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

// getEnvAsThresholds parses "C=0.22,D=0.45". "none" disables every per-class
// threshold; malformed entries are skipped.
func getEnvAsThresholds(key string, defaultValue map[gesture.Symbol]float64) map[gesture.Symbol]float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	thresholds := make(map[gesture.Symbol]float64)
	if strings.EqualFold(value, "none") {
		return thresholds
	}
	for _, entry := range strings.Split(value, ",") {
		symbol, raw, ok := strings.Cut(strings.TrimSpace(entry), "=")
		symbol = strings.TrimSpace(symbol)
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if !ok || symbol == "" || err != nil || f < 0 || f > 1 {
			log.Printf("config: ignoring %s entry %q", key, entry)
			continue
		}
		thresholds[gesture.Symbol(symbol)] = f
	}
	return thresholds
}
