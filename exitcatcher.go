// exitcatcher.go: AppStateMain sentinel, crash-marker persistence, and
// the exit catcher supplemented from original_source/src/CAppConsole.cpp.
//
// The source's cAppExitCatcher hooks the C runtime's atexit() to log
// when something calls exit() before the normal phase transition to
// Exit. Go has no atexit equivalent a library can hook into (os.Exit
// bypasses deferred calls and finalizers by design), so this is
// reinterpreted as a best-effort signal.Notify watcher: if SIGINT/SIGTERM
// arrives while the phase is still before Exit, it is logged as a
// probable abnormal termination before os.Exit finishes unwinding.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/natefinch/atomic"
)

// AppStateMain is a stack sentinel: define an instance of this at the
// top of main() to indicate the process is in the main body of the
// application. Constructing it transitions the
// singleton to Run; closing it transitions to Exit and removes the
// crash marker, mirroring the source's cAppStateMain constructor and
// destructor.
type AppStateMain struct {
	app *AppState
}

// NewAppStateMain installs argv (argv[0] is the executable path) as the
// app state's command line and transitions the phase to Run. Typical
// usage:
//
//	app, _ := corerun.NewAppState(cfg)
//	main := corerun.NewAppStateMain(app, os.Args)
//	defer main.Close()
func NewAppStateMain(app *AppState, argv []string) *AppStateMain {
	app.SetCommandLine(NewCommandLineFromArgv(argv))
	app.setPhase(PhaseRun)
	return &AppStateMain{app: app}
}

// NewAppStateMainFromString is the Windows-shaped constructor: cmdline
// excludes the executable name, which is synthesized from the app
// state's own cached ExecutablePath.
func NewAppStateMainFromString(app *AppState, cmdline string) *AppStateMain {
	app.SetCommandLine(NewCommandLineFromString(cmdline, app.ExecutablePath()))
	app.setPhase(PhaseRun)
	return &AppStateMain{app: app}
}

// Close transitions the app state to Exit and removes any crash marker
// left by a prior abnormal termination, matching the source's
// ~cAppStateMain.
func (m *AppStateMain) Close() {
	m.app.setPhase(PhaseExit)
	removeCrashMarker(m.app.crashMarkerPath())
}

// crashMarker is the small structured payload written to the crash
// marker file: enough to report which phase the previous run was in
// when it disappeared.
type crashMarker struct {
	Phase string
}

// writeCrashMarker atomically persists a crash marker recording phase,
// via natefinch/atomic so a concurrent reader never observes a
// truncated file.
func writeCrashMarker(path string, phase AppPhase) error {
	body := fmt.Sprintf("phase=%s\n", phase)
	return atomic.WriteFile(path, bytes.NewReader([]byte(body)))
}

// removeCrashMarker deletes the crash marker file; a missing file is
// not an error, since the common case is "no prior crash."
func removeCrashMarker(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		// best-effort cleanup; nothing actionable for the caller here.
		_ = err
	}
}

// DetectPriorCrash reports whether this process's crash-marker file
// exists, meaning the previous run of this executable did not reach
// AppStateMain's normal Close/Exit transition. Callers typically check
// this once at startup, right after NewAppState, before the marker for
// this run is (implicitly) considered "armed" by AbortApp/Close.
func (a *AppState) DetectPriorCrash() bool {
	_, err := os.Stat(a.crashMarkerPath())
	return err == nil
}

// exitCatcherOnce guards installing the signal-based exit catcher at
// most once per process, matching the source's cAppExitCatcher being a
// process-wide singleton.
var exitCatcherOnce sync.Once

// InstallExitCatcher starts watching SIGINT/SIGTERM; if one arrives
// while app's phase has not yet reached Exit, it logs a warning noting
// the app is terminating outside its normal AppStateMain teardown
// before re-raising a process exit. Safe to call multiple times — only
// the first call installs the watcher.
func InstallExitCatcher(app *AppState) {
	exitCatcherOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-ch
			if app.Phase() != PhaseExit {
				app.cfg.Logger.Warn("appstate: process terminating before normal Exit phase",
					"signal", sig.String(), "phase", app.Phase().String())
				_ = writeCrashMarker(app.crashMarkerPath(), app.Phase())
			}
			signal.Stop(ch)
			os.Exit(128)
		}()
	})
}
