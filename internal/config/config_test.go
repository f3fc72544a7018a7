package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrla/ctrla/internal/gesture"
)

func TestLoadFrom_Defaults(t *testing.T) {
	t.Setenv("CTRLA_DATA_DIR", "/tmp/ctrla-test")

	cfg := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "/tmp/ctrla-test", cfg.DataDir)
	assert.Equal(t, "/tmp/ctrla-test/plugins", cfg.PluginDir)
	assert.Equal(t, "/tmp/ctrla-test/ctrla.db", cfg.DBPath())
	assert.Equal(t, 5, cfg.RegionStride)
	assert.Equal(t, 30, cfg.RegionTolerance)
	assert.Equal(t, 1000, cfg.RegionMinArea)
	assert.Equal(t, 100*time.Millisecond, cfg.LocalInterval)
	assert.Equal(t, time.Second, cfg.LocalCooldown)
	assert.Equal(t, 1500*time.Millisecond, cfg.RemoteCooldown)
	assert.Equal(t, 1500*time.Millisecond, cfg.RemoteDebounce)
	assert.Equal(t, 3*time.Second, cfg.NarrationInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.AudioGap)
	assert.True(t, cfg.RemoteEnabled)
	assert.False(t, cfg.NarrationEnabled)
	assert.Equal(t, gesture.DefaultClassThresholds(), cfg.ClassThresholds)
}

func TestLoadFrom_ClassThresholds(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  map[gesture.Symbol]float64
	}{
		{"override", "C=0.3, N=0.25", map[gesture.Symbol]float64{"C": 0.3, "N": 0.25}},
		{"bad entries skipped", "C=0.3,D,E=high,F=1.5,=0.2", map[gesture.Symbol]float64{"C": 0.3}},
		{"none", "none", map[gesture.Symbol]float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CTRLA_CLASS_THRESHOLDS", tt.value)
			assert.Equal(t, tt.want, LoadFrom().ClassThresholds)
		})
	}
}

func TestLoadFrom_Environment(t *testing.T) {
	t.Setenv("CTRLA_ADDR", ":9090")
	t.Setenv("CTRLA_CAMERA", "2")
	t.Setenv("CTRLA_LOCAL_COOLDOWN", "750ms")
	t.Setenv("CTRLA_NARRATION_INTERVAL", "5000")
	t.Setenv("CTRLA_REMOTE_ENABLED", "false")
	t.Setenv("CTRLA_MIN_CONFIDENCE", "0.65")
	t.Setenv("CTRLA_REGION_STRIDE", "not-a-number")

	cfg := LoadFrom()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 2, cfg.CameraDevice)
	assert.Equal(t, 750*time.Millisecond, cfg.LocalCooldown)
	assert.Equal(t, 5*time.Second, cfg.NarrationInterval)
	assert.False(t, cfg.RemoteEnabled)
	assert.InDelta(t, 0.65, cfg.MinConfidence, 1e-9)
	assert.Equal(t, 5, cfg.RegionStride, "invalid values fall back to the default")
}

func TestLoadFrom_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CTRLA_REMOTE_URL=http://signs.local:5001\nCTRLA_ADDR=:7070\n"), 0o644))

	// Environment wins over the file.
	t.Setenv("CTRLA_ADDR", ":6060")
	// Make sure the file-provided key is cleaned up after the test.
	t.Setenv("CTRLA_REMOTE_URL", "")
	os.Unsetenv("CTRLA_REMOTE_URL")

	cfg := LoadFrom(path)

	assert.Equal(t, "http://signs.local:5001", cfg.RemoteURL)
	assert.Equal(t, ":6060", cfg.Addr)
}
