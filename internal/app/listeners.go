package app

import (
	"context"
	"log"

	"github.com/ctrla/ctrla/internal/command"
	"github.com/ctrla/ctrla/internal/plugin"
	"github.com/ctrla/ctrla/internal/store"
)

// recordHistory appends each dispatched command to the command log.
func (a *App) recordHistory(e command.Event) {
	err := a.config.Store.History().Record(&store.HistoryEntry{
		ID:        e.ID,
		SessionID: e.SessionID,
		Command:   e.Name,
		Kind:      string(e.Kind),
		Symbols:   symbolStrings(e),
		Mode:      e.Mode,
		CreatedAt: e.At,
	})
	if err != nil {
		log.Printf("Error recording command %s: %v", e.Name, err)
	}
}

// runBinding executes the plugin action bound to the command, if any.
// Plugins run in the background so a slow plugin never holds up dispatch.
func (a *App) runBinding(e command.Event) {
	binding, err := a.config.Store.Bindings().GetByCommand(e.Name)
	if err != nil {
		log.Printf("Error looking up binding for %s: %v", e.Name, err)
		return
	}
	if binding == nil || !binding.Enabled {
		return
	}

	plug, err := a.pluginMgr.Resolve(binding.PluginName, binding.ActionName)
	if err != nil {
		log.Printf("Binding for %s: %v", e.Name, err)
		return
	}

	req := &plugin.Request{
		Action:    binding.ActionName,
		Command:   e.Name,
		Symbols:   symbolStrings(e),
		SessionID: e.SessionID,
		Config:    binding.Config,
	}

	a.pluginsWG.Add(1)
	go func() {
		defer a.pluginsWG.Done()

		resp, err := a.pluginExec.Execute(context.Background(), plug, req)
		if err != nil {
			log.Printf("Plugin %s/%s failed for %s: %v", plug.Manifest.Name, req.Action, e.Name, err)
			return
		}
		if !resp.Success {
			log.Printf("Plugin %s/%s reported error for %s: %s", plug.Manifest.Name, req.Action, e.Name, resp.Error)
			return
		}
		log.Printf("Plugin %s/%s ran for %s", plug.Manifest.Name, req.Action, e.Name)
	}()
}

func symbolStrings(e command.Event) []string {
	out := make([]string, len(e.Symbols))
	for i, s := range e.Symbols {
		out[i] = string(s)
	}
	return out
}
