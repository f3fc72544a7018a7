// Package main provides a media control plugin.
// It drives playback and volume with playerctl/pactl on Linux and AppleScript on macOS.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Command string          `json:"command"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// invocation is one external program call.
type invocation []string

// linuxActions maps action names to playerctl/pactl calls.
var linuxActions = map[string]invocation{
	"play-pause":  {"playerctl", "play-pause"},
	"stop":        {"playerctl", "stop"},
	"next-track":  {"playerctl", "next"},
	"prev-track":  {"playerctl", "previous"},
	"volume-up":   {"pactl", "set-sink-volume", "@DEFAULT_SINK@", "+10%"},
	"volume-down": {"pactl", "set-sink-volume", "@DEFAULT_SINK@", "-10%"},
	"volume-mute": {"pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle"},
}

// darwinActions maps action names to AppleScript snippets.
var darwinActions = map[string]string{
	"play-pause":  `tell application "System Events" to key code 100`,
	"stop":        `tell application "System Events" to key code 100`,
	"next-track":  `tell application "System Events" to key code 101`,
	"prev-track":  `tell application "System Events" to key code 98`,
	"volume-up":   `set volume output volume ((output volume of (get volume settings)) + 10)`,
	"volume-down": `set volume output volume ((output volume of (get volume settings)) - 10)`,
	"volume-mute": `set volume output muted (not (output muted of (get volume settings)))`,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	if err := run(runtime.GOOS, req.Action); err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}

	data, _ := json.Marshal(map[string]string{"action": req.Action, "command": req.Command})
	writeResponse(Response{Success: true, Data: data})
}

func run(goos, action string) error {
	switch goos {
	case "darwin":
		script, ok := darwinActions[action]
		if !ok {
			return fmt.Errorf("unknown action: %s", action)
		}
		return execute("osascript", "-e", script)
	default:
		inv, ok := linuxActions[action]
		if !ok {
			return fmt.Errorf("unknown action: %s", action)
		}
		return execute(inv[0], inv[1:]...)
	}
}

func execute(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, string(output))
	}
	return nil
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
