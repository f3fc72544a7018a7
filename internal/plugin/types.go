// Package plugin discovers and runs the executables bound to commands.
package plugin

import (
	"encoding/json"
	"slices"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
	// Commands suggests an action for vocabulary commands the plugin is meant for.
	Commands map[string]string `json:"commands,omitempty"`
}

// Request is written to the plugin's stdin.
type Request struct {
	Action    string          `json:"action"`
	Command   string          `json:"command"`
	Symbols   []string        `json:"symbols,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Config    json.RawMessage `json:"config"`
	Params    json.RawMessage `json:"params"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Supports reports whether the manifest lists action.
func (p *Plugin) Supports(action string) bool {
	return slices.Contains(p.Manifest.Actions, action)
}

// ActionFor returns the action the manifest suggests for command.
func (p *Plugin) ActionFor(command string) (string, bool) {
	action, ok := p.Manifest.Commands[command]
	return action, ok
}
