package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
)

var (
	// ErrPluginNotFound is returned when a requested plugin cannot be found.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrUnknownAction is returned when a plugin does not declare the requested action.
	ErrUnknownAction = errors.New("plugin does not support action")
	// ErrInvalidManifest is returned for a plugin.json that cannot be loaded.
	ErrInvalidManifest = errors.New("invalid plugin manifest")
)

const manifestFile = "plugin.json"

// Manager discovers plugins and resolves the actions bound to commands.
type Manager struct {
	pluginDir string
	commands  []string // known vocabulary commands; empty accepts any

	mu      sync.RWMutex
	plugins map[string]*Plugin
	skipped map[string]error // plugin directory -> reason
}

// NewManager creates a Manager for pluginDir. Manifests that suggest actions
// for commands outside commands are rejected; with no commands every name is accepted.
func NewManager(pluginDir string, commands ...string) *Manager {
	return &Manager{
		pluginDir: pluginDir,
		commands:  commands,
		plugins:   make(map[string]*Plugin),
		skipped:   make(map[string]error),
	}
}

// Discover replaces the known plugins with those found in <dir>/*/plugin.json.
// Invalid manifests are skipped and reported by Skipped. A missing directory
// yields no plugins.
func (m *Manager) Discover() error {
	entries, err := os.ReadDir(m.pluginDir)
	if errors.Is(err, os.ErrNotExist) {
		m.replace(map[string]*Plugin{}, map[string]error{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("read plugin dir: %w", err)
	}

	plugins := make(map[string]*Plugin)
	skipped := make(map[string]error)

	// ReadDir sorts by name, so the first directory claiming a plugin name wins.
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		plugin, err := m.load(filepath.Join(m.pluginDir, entry.Name()))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err == nil {
			if prev, dup := plugins[plugin.Manifest.Name]; dup {
				err = fmt.Errorf("%w: name %q already provided by %s", ErrInvalidManifest, plugin.Manifest.Name, filepath.Base(prev.Path))
			}
		}
		if err != nil {
			log.Printf("skipping plugin %s: %v", entry.Name(), err)
			skipped[entry.Name()] = err
			continue
		}

		plugins[plugin.Manifest.Name] = plugin
	}

	m.replace(plugins, skipped)
	log.Printf("discovered %d plugin(s) in %s", len(plugins), m.pluginDir)
	return nil
}

func (m *Manager) replace(plugins map[string]*Plugin, skipped map[string]error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plugins = plugins
	m.skipped = skipped
}

// load reads and validates the manifest in dir.
func (m *Manager) load(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.validate(manifest); err != nil {
		return nil, err
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

func (m *Manager) validate(manifest Manifest) error {
	if manifest.Name == "" || manifest.Executable == "" {
		return fmt.Errorf("%w: name and executable are required", ErrInvalidManifest)
	}
	if filepath.Base(manifest.Executable) != manifest.Executable {
		return fmt.Errorf("%w: executable %q must be a file name", ErrInvalidManifest, manifest.Executable)
	}
	if len(manifest.Actions) == 0 {
		return fmt.Errorf("%w: no actions declared", ErrInvalidManifest)
	}
	for i, action := range manifest.Actions {
		if action == "" || slices.Contains(manifest.Actions[:i], action) {
			return fmt.Errorf("%w: empty or repeated action %q", ErrInvalidManifest, action)
		}
	}
	for command, action := range manifest.Commands {
		if len(m.commands) > 0 && !slices.Contains(m.commands, command) {
			return fmt.Errorf("%w: unknown command %q", ErrInvalidManifest, command)
		}
		if !slices.Contains(manifest.Actions, action) {
			return fmt.Errorf("%w: command %q suggests undeclared action %q", ErrInvalidManifest, command, action)
		}
	}
	return nil
}

// Get returns a plugin by name.
// Returns ErrPluginNotFound if the plugin does not exist.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugin, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}
	return plugin, nil
}

// Resolve returns the named plugin after checking that it declares action.
func (m *Manager) Resolve(name, action string) (*Plugin, error) {
	plugin, err := m.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, name)
	}
	if !plugin.Supports(action) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownAction, name, action)
	}
	return plugin, nil
}

// Suggest returns the first plugin, by name, whose manifest suggests an action
// for command.
func (m *Manager) Suggest(command string) (*Plugin, string, bool) {
	for _, plugin := range m.List() {
		if action, ok := plugin.ActionFor(command); ok {
			return plugin, action, true
		}
	}
	return nil, "", false
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, plugin := range m.plugins {
		plugins = append(plugins, plugin)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Manifest.Name < plugins[j].Manifest.Name
	})
	return plugins
}

// Skipped returns the reason each rejected plugin directory was skipped.
func (m *Manager) Skipped() map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]error, len(m.skipped))
	for dir, err := range m.skipped {
		out[dir] = err
	}
	return out
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
