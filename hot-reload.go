// hot-reload.go: dynamic runtime tuning with Argus integration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// RuntimeConfig is the subset of corerun's tunables that can be changed
// while the process is running, without invalidating any already-held
// lock or atom reference: lock polling intervals and the seed list of
// statically-registered atom names.
type RuntimeConfig struct {
	LockPollTick       time.Duration
	WaitUniquePollTick time.Duration
	StaticAtoms        []string
}

// HotConfig watches a configuration file using Argus and re-applies
// RuntimeConfig changes to a running AtomManager as they're detected.
// This is the INI-file-parser collaborator the original design calls
// out as external: corerun only consumes argus's generic key/value
// watch callback, it does not define the file's format.
type HotConfig struct {
	mgr     *AtomManager
	watcher *argus.Watcher
	mu      sync.RWMutex
	config  RuntimeConfig

	// OnReload is called after configuration is successfully reloaded.
	// This callback is optional and must be fast and non-blocking.
	OnReload func(oldConfig, newConfig RuntimeConfig)
}

// HotConfigOptions configures hot reload behavior.
type HotConfigOptions struct {
	// ConfigPath is the path to the configuration file to watch.
	// Supports JSON, YAML, TOML, HCL, INI, Properties formats (argus
	// detects the format from the file extension).
	ConfigPath string

	// PollInterval is how often to check for configuration changes.
	// Default: 1 second. Minimum: 100ms.
	PollInterval time.Duration

	// OnReload is called after configuration is successfully reloaded.
	OnReload func(oldConfig, newConfig RuntimeConfig)

	// Logger for hot reload operations. If nil, uses NoOpLogger.
	Logger Logger
}

// NewHotConfig creates a new hot-reloadable runtime configuration for
// mgr. It starts watching the configuration file immediately.
//
// Example configuration file (YAML):
//
//	corerun:
//	  lock_poll_tick: "1ms"
//	  wait_unique_poll_tick: "1ms"
//	  static_atoms: ["Alpha", "Beta"]
//
// Only lock_poll_tick, wait_unique_poll_tick, and static_atoms are
// applied dynamically. lock_poll_tick and wait_unique_poll_tick are
// pushed straight into mgr's own Config and take effect on mgr's next
// lock attempt; other AtomManager fields (notably anything that would
// change StaticAtoms semantics retroactively) would require
// reconstruction and are out of scope here.
func NewHotConfig(mgr *AtomManager, opts HotConfigOptions) (*HotConfig, error) {
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("config_path is required")
	}
	if mgr == nil {
		return nil, fmt.Errorf("atom manager is required")
	}

	if opts.PollInterval == 0 {
		opts.PollInterval = 1 * time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}

	if opts.Logger == nil {
		opts.Logger = NoOpLogger{}
	}

	hc := &HotConfig{
		mgr:      mgr,
		OnReload: opts.OnReload,
		config: RuntimeConfig{
			LockPollTick:       DefaultLockPollTick,
			WaitUniquePollTick: DefaultLockPollTick,
		},
	}

	argusConfig := argus.Config{
		PollInterval: opts.PollInterval,
	}

	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, hc.handleConfigChange, argusConfig)
	if err != nil {
		return nil, err
	}
	hc.watcher = watcher

	return hc, nil
}

// Start begins watching the configuration file for changes.
func (hc *HotConfig) Start() error {
	if hc.watcher.IsRunning() {
		return nil
	}
	return hc.watcher.Start()
}

// Stop stops watching the configuration file.
func (hc *HotConfig) Stop() error {
	return hc.watcher.Stop()
}

// GetConfig returns the current runtime configuration (thread-safe).
func (hc *HotConfig) GetConfig() RuntimeConfig {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.config
}

// handleConfigChange is called by Argus when the watched file changes.
func (hc *HotConfig) handleConfigChange(configData map[string]interface{}) {
	hc.mu.Lock()
	oldConfig := hc.config
	newConfig := hc.parseConfig(configData)
	hc.config = newConfig
	hc.mu.Unlock()

	hc.applyChanges(oldConfig, newConfig)

	if hc.OnReload != nil {
		hc.OnReload(oldConfig, newConfig)
	}
}

// parseDuration extracts a time.Duration from a string value.
func parseDuration(value interface{}) (time.Duration, bool) {
	if str, ok := value.(string); ok {
		if d, err := time.ParseDuration(str); err == nil && d > 0 {
			return d, true
		}
	}
	return 0, false
}

// parseStringList extracts a []string from a value that may be a
// []interface{} of strings (the common shape after JSON/YAML decoding).
func parseStringList(value interface{}) ([]string, bool) {
	raw, ok := value.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// parseConfig extracts a RuntimeConfig from Argus config data.
func (hc *HotConfig) parseConfig(data map[string]interface{}) RuntimeConfig {
	config := hc.config

	section, ok := data["corerun"].(map[string]interface{})
	if !ok {
		if _, hasTick := data["lock_poll_tick"]; hasTick {
			section = data
		} else {
			return config
		}
	}

	if tick, ok := parseDuration(section["lock_poll_tick"]); ok {
		config.LockPollTick = tick
	}
	if tick, ok := parseDuration(section["wait_unique_poll_tick"]); ok {
		config.WaitUniquePollTick = tick
	}
	if atoms, ok := parseStringList(section["static_atoms"]); ok {
		config.StaticAtoms = atoms
	}

	return config
}

// applyChanges re-registers any newly-added static atom names against
// the running AtomManager, and pushes LockPollTick/WaitUniquePollTick
// changes into the manager's own Config. The manager's internal lock
// reads its poll tick from that same Config on every Lock/TryLock call
// (ThreadLockable.SetConfig wires it live at construction), so these
// two fields take effect on the very next lock attempt rather than
// requiring the manager to be reconstructed.
func (hc *HotConfig) applyChanges(old, new RuntimeConfig) {
	if new.LockPollTick != old.LockPollTick {
		hc.mgr.SetLockPollTick(new.LockPollTick)
	}
	if new.WaitUniquePollTick != old.WaitUniquePollTick {
		hc.mgr.SetWaitUniquePollTick(new.WaitUniquePollTick)
	}

	existing := make(map[string]struct{}, len(old.StaticAtoms))
	for _, name := range old.StaticAtoms {
		existing[name] = struct{}{}
	}
	for _, name := range new.StaticAtoms {
		if _, already := existing[name]; already {
			continue
		}
		a := hc.mgr.FindOrCreate(name)
		hc.mgr.MarkStatic(a)
		a.Release()
	}
}
