// hot-reload_test.go: tests for corerun's runtime-config hot reload.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestNewHotConfig(t *testing.T) {
	mgr := NewAtomManager(DefaultConfig())
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test-config.yaml")

	initialConfig := `corerun:
  lock_poll_tick: "2ms"
  static_atoms: ["Alpha"]
`
	if err := os.WriteFile(configPath, []byte(initialConfig), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	hc, err := NewHotConfig(mgr, HotConfigOptions{
		ConfigPath:   configPath,
		PollInterval: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewHotConfig failed: %v", err)
	}
	defer func() { _ = hc.Stop() }()

	if hc == nil {
		t.Fatal("expected non-nil HotConfig")
	}
	if hc.mgr != mgr {
		t.Error("HotConfig atom manager reference mismatch")
	}
	if hc.watcher == nil {
		t.Error("expected non-nil watcher")
	}
}

func TestNewHotConfig_EmptyPath(t *testing.T) {
	mgr := NewAtomManager(DefaultConfig())

	_, err := NewHotConfig(mgr, HotConfigOptions{ConfigPath: ""})
	if err == nil {
		t.Error("expected error for empty config path")
	}
}

func TestNewHotConfig_NilManager(t *testing.T) {
	_, err := NewHotConfig(nil, HotConfigOptions{ConfigPath: "whatever.yaml"})
	if err == nil {
		t.Error("expected error for nil atom manager")
	}
}

func TestHotConfig_StartStop(t *testing.T) {
	mgr := NewAtomManager(DefaultConfig())
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test-config.yaml")

	config := `corerun:
  lock_poll_tick: "1ms"
`
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	hc, err := NewHotConfig(mgr, HotConfigOptions{
		ConfigPath:   configPath,
		PollInterval: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewHotConfig failed: %v", err)
	}

	if err := hc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if err := hc.Stop(); err != nil {
		t.Errorf("Failed to stop: %v", err)
	}
}

func TestHotConfig_ConfigReload(t *testing.T) {
	mgr := NewAtomManager(DefaultConfig())
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test-config.yaml")

	initialConfig := `corerun:
  lock_poll_tick: "2ms"
  static_atoms: ["Alpha"]
`
	if err := os.WriteFile(configPath, []byte(initialConfig), 0644); err != nil {
		t.Fatalf("Failed to write initial config: %v", err)
	}

	var mu sync.Mutex
	reloadCount := 0
	reloadCh := make(chan RuntimeConfig, 2)

	hc, err := NewHotConfig(mgr, HotConfigOptions{
		ConfigPath:   configPath,
		PollInterval: 50 * time.Millisecond,
		OnReload: func(oldConfig, newConfig RuntimeConfig) {
			mu.Lock()
			reloadCount++
			mu.Unlock()
			select {
			case reloadCh <- newConfig:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("NewHotConfig failed: %v", err)
	}
	defer func() { _ = hc.Stop() }()

	if err := hc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case initialCfg := <-reloadCh:
		if initialCfg.LockPollTick != 2*time.Millisecond {
			t.Fatalf("initial config wrong: LockPollTick=%v, expected 2ms", initialCfg.LockPollTick)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for initial config load")
	}

	time.Sleep(1500 * time.Millisecond)

	updatedConfig := `corerun:
  lock_poll_tick: "5ms"
  static_atoms: ["Alpha", "Beta"]
`
	tempPath := configPath + ".tmp"
	if err := os.WriteFile(tempPath, []byte(updatedConfig), 0644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	if err := os.Rename(tempPath, configPath); err != nil {
		t.Fatalf("Failed to rename config: %v", err)
	}

	select {
	case newConfig := <-reloadCh:
		if newConfig.LockPollTick != 5*time.Millisecond {
			t.Errorf("expected LockPollTick=5ms, got %v", newConfig.LockPollTick)
		}
		if len(newConfig.StaticAtoms) != 2 {
			t.Errorf("expected 2 static atoms, got %v", newConfig.StaticAtoms)
		}
	case <-time.After(3 * time.Second):
		mu.Lock()
		count := reloadCount
		mu.Unlock()
		t.Fatalf("timeout waiting for config reload, reloadCount=%d (expected at least 2)", count)
	}

	b := mgr.Find("Beta")
	defer b.Release()
	if b.Name() != "Beta" {
		t.Errorf("expected Beta to have been interned as a static atom by the reload, got %q", b.Name())
	}
}

func TestHotConfig_GetConfig(t *testing.T) {
	mgr := NewAtomManager(DefaultConfig())
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test-config.yaml")

	config := `corerun:
  lock_poll_tick: "7ms"
`
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	hc, err := NewHotConfig(mgr, HotConfigOptions{
		ConfigPath:   configPath,
		PollInterval: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewHotConfig failed: %v", err)
	}
	defer func() { _ = hc.Stop() }()

	cfg := hc.GetConfig()
	if cfg.LockPollTick != DefaultLockPollTick {
		t.Errorf("expected default LockPollTick before start, got %v", cfg.LockPollTick)
	}

	if err := hc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	cfg = hc.GetConfig()
	if cfg.LockPollTick != 7*time.Millisecond {
		t.Errorf("expected LockPollTick=7ms, got %v", cfg.LockPollTick)
	}
}

func TestHotConfig_ParseConfig(t *testing.T) {
	mgr := NewAtomManager(DefaultConfig())
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "dummy.yaml")

	if err := os.WriteFile(configPath, []byte("corerun: {}"), 0644); err != nil {
		t.Fatalf("Failed to write dummy config: %v", err)
	}

	hc, err := NewHotConfig(mgr, HotConfigOptions{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("NewHotConfig failed: %v", err)
	}
	defer func() { _ = hc.Stop() }()

	tests := []struct {
		name   string
		data   map[string]interface{}
		expect func(*testing.T, RuntimeConfig)
	}{
		{
			name: "valid config with all fields",
			data: map[string]interface{}{
				"corerun": map[string]interface{}{
					"lock_poll_tick":        "3ms",
					"wait_unique_poll_tick": "4ms",
					"static_atoms":          []interface{}{"Gamma"},
				},
			},
			expect: func(t *testing.T, c RuntimeConfig) {
				if c.LockPollTick != 3*time.Millisecond {
					t.Errorf("expected LockPollTick=3ms, got %v", c.LockPollTick)
				}
				if c.WaitUniquePollTick != 4*time.Millisecond {
					t.Errorf("expected WaitUniquePollTick=4ms, got %v", c.WaitUniquePollTick)
				}
				if len(c.StaticAtoms) != 1 || c.StaticAtoms[0] != "Gamma" {
					t.Errorf("expected StaticAtoms=[Gamma], got %v", c.StaticAtoms)
				}
			},
		},
		{
			name: "flat section without corerun key and no lock_poll_tick falls back to current config",
			data: map[string]interface{}{"unrelated": "value"},
			expect: func(t *testing.T, c RuntimeConfig) {
				if c.LockPollTick != DefaultLockPollTick {
					t.Errorf("expected unchanged default LockPollTick, got %v", c.LockPollTick)
				}
			},
		},
		{
			name: "invalid duration string is ignored",
			data: map[string]interface{}{
				"corerun": map[string]interface{}{"lock_poll_tick": "not-a-duration"},
			},
			expect: func(t *testing.T, c RuntimeConfig) {
				if c.LockPollTick != DefaultLockPollTick {
					t.Errorf("expected default LockPollTick preserved, got %v", c.LockPollTick)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc.mu.Lock()
			hc.config = RuntimeConfig{LockPollTick: DefaultLockPollTick, WaitUniquePollTick: DefaultLockPollTick}
			hc.mu.Unlock()
			got := hc.parseConfig(tt.data)
			tt.expect(t, got)
		})
	}
}
