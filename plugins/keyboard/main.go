// Package main provides a keyboard plugin.
// It types keys for commands such as "space" with xdotool on Linux and AppleScript on macOS.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
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

// KeyConfig names the key to press. Binding config wins over request params.
type KeyConfig struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// commandKeys gives a default key for commands that map naturally to one.
var commandKeys = map[string]string{
	"space": "space",
	"clear": "BackSpace",
	"ok":    "Return",
	"up":    "Up",
	"down":  "Down",
	"next":  "Tab",
	"exit":  "Escape",
}

var darwinModifiers = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

var xdotoolModifiers = map[string]string{
	"command": "super",
	"cmd":     "super",
	"option":  "alt",
	"alt":     "alt",
	"control": "ctrl",
	"ctrl":    "ctrl",
	"shift":   "shift",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	if req.Action != "press" {
		writeResponse(Response{Error: fmt.Sprintf("unknown action: %s", req.Action)})
		return
	}

	kc, err := resolveKey(req)
	if err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}

	if err := press(runtime.GOOS, kc); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("press %s failed: %v", kc.Key, err)})
		return
	}

	writeResponse(Response{Success: true})
}

func resolveKey(req Request) (KeyConfig, error) {
	var kc KeyConfig
	for _, raw := range []json.RawMessage{req.Params, req.Config} {
		if len(raw) == 0 {
			continue
		}
		var candidate KeyConfig
		if err := json.Unmarshal(raw, &candidate); err != nil {
			return kc, fmt.Errorf("failed to parse key config: %w", err)
		}
		if candidate.Key != "" {
			kc = candidate
		}
	}
	if kc.Key == "" {
		kc.Key = commandKeys[req.Command]
	}
	if kc.Key == "" {
		return kc, fmt.Errorf("key is required")
	}
	return kc, nil
}

func press(goos string, kc KeyConfig) error {
	if goos == "darwin" {
		return execute("osascript", "-e", appleScript(kc))
	}

	combo := kc.Key
	var mods []string
	for _, m := range kc.Modifiers {
		if x, ok := xdotoolModifiers[strings.ToLower(m)]; ok {
			mods = append(mods, x)
		}
	}
	if len(mods) > 0 {
		combo = strings.Join(append(mods, kc.Key), "+")
	}
	return execute("xdotool", "key", combo)
}

func appleScript(kc KeyConfig) string {
	key := strings.ToLower(kc.Key)
	if key == "space" {
		key = " "
	}

	var mods []string
	for _, m := range kc.Modifiers {
		if a, ok := darwinModifiers[strings.ToLower(m)]; ok {
			mods = append(mods, a)
		}
	}
	if len(mods) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`, key, strings.Join(mods, ", "))
}

func execute(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
