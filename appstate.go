// appstate.go: process-wide application-state singleton (C7).
//
// Grounded on original_source/include/CAppState.h's cAppState /
// cAppStateMain / cAppStateModuleLoad: a singleton lifecycle tracker
// (PreInit -> RunInit -> Run -> RunExit -> Exit), a per-goroutine
// "currently loading a dynamic library" flag, cached expensive OS
// queries, and the environment-variable ABI probe that detects two
// copies of this library linked into one process.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

import (
	"fmt"
	"os"
	"os/user"
	"sync"
	"sync/atomic"
	"unsafe"
)

// AppPhase is one of the five stages of a process's lifecycle.
type AppPhase int32

const (
	PhasePreInit AppPhase = iota
	PhaseRunInit
	PhaseRun
	PhaseRunExit
	PhaseExit
)

// String implements fmt.Stringer for log-friendly phase names.
func (p AppPhase) String() string {
	switch p {
	case PhasePreInit:
		return "PreInit"
	case PhaseRunInit:
		return "RunInit"
	case PhaseRun:
		return "Run"
	case PhaseRunExit:
		return "RunExit"
	case PhaseExit:
		return "Exit"
	default:
		return "Unknown"
	}
}

// AppState is the process-wide application lifecycle singleton.
// Exactly one is constructed per process via NewAppState; subsequent
// calls fail with NewErrAlreadyConstructed.
type AppState struct {
	phase        int32 // AppPhase, accessed atomically
	mainThreadID uint64
	abiAddr      string // this instance's own hex address, written to envVarName

	loaderFlags sync.Map // goroutine id -> bool: "this goroutine is loading a dynamic library"

	cmdlineMu sync.RWMutex
	cmdline   *CommandLine

	cacheOnce    sync.Once
	tempDir      string
	userName     string
	userHomeDir  string
	execPath     string

	crashMarkerCache string
	cfg              Config
}

var (
	appStateMu   sync.Mutex
	appStateInst *AppState
)

// NewAppState constructs the process-wide AppState singleton. It fails
// with NewErrAlreadyConstructed if called twice, and with
// NewErrDuplicateLibraryLoad if the ABI probe environment variable is
// already populated by another copy of this library in the same
// process (DLL-hell detection).
func NewAppState(cfg Config) (*AppState, error) {
	_ = cfg.Validate()

	appStateMu.Lock()
	defer appStateMu.Unlock()

	if appStateInst != nil {
		return nil, NewErrAlreadyConstructed()
	}

	app := &AppState{
		phase:        int32(PhasePreInit),
		mainThreadID: goroutineID(),
		cfg:          cfg,
	}

	if existing := os.Getenv(envVarName); existing != "" {
		return nil, NewErrDuplicateLibraryLoad(existing)
	}

	app.abiAddr = hexAddr(app)
	if err := os.Setenv(envVarName, app.abiAddr); err != nil {
		cfg.Logger.Warn("appstate: failed to set ABI probe env var", "error", err)
	}

	appStateInst = app
	return app, nil
}

// Instance returns the process-wide AppState singleton, or ok == false
// if NewAppState has not yet been called (or the singleton has already
// been torn down past Exit).
func Instance() (app *AppState, ok bool) {
	appStateMu.Lock()
	defer appStateMu.Unlock()
	if appStateInst == nil {
		return nil, false
	}
	return appStateInst, true
}

// resetAppStateForTest clears the process-wide singleton and its ABI
// probe environment variable. Exported only to _test.go files in this
// package via lowercase visibility; production code never calls this.
func resetAppStateForTest() {
	appStateMu.Lock()
	defer appStateMu.Unlock()
	if appStateInst != nil {
		os.Unsetenv(envVarName)
	}
	appStateInst = nil
}

// hexAddr renders a pointer's address as hex without a "0x" prefix, the
// encoding used for the ABI probe environment variable.
func hexAddr(p *AppState) string {
	return fmt.Sprintf("%x", uintptr(unsafe.Pointer(p)))
}

// VerifyABI re-reads the ABI probe environment variable and compares it
// against this instance's own address, catching the case where some
// other code path overwrote the variable after construction (e.g. a
// second copy of this library loaded later via a plugin/DLL). Returns
// NewErrABIMismatch on disagreement.
func (a *AppState) VerifyABI() error {
	observed := os.Getenv(envVarName)
	if observed != a.abiAddr {
		return NewErrABIMismatch(a.abiAddr, observed)
	}
	return nil
}

// Signature returns the library version integer and this build's
// compile-time size of AppState, for cross-module compatibility checks
// analogous to the source's CheckValidSignatureX.
func (a *AppState) Signature() (libVersion int32, sizeofAppState uintptr) {
	return abiSignature, unsafe.Sizeof(AppState{})
}

// Phase returns the current lifecycle phase.
func (a *AppState) Phase() AppPhase {
	return AppPhase(atomic.LoadInt32(&a.phase))
}

// setPhase transitions to p. Lifecycle transitions are monotonic by
// convention (callers never move backward); this is not enforced here
// since AppStateMain and AbortApp are the only callers and both only
// move forward.
func (a *AppState) setPhase(p AppPhase) {
	atomic.StoreInt32(&a.phase, int32(p))
}

// IsInCInit reports whether the process is in early static-init (phase
// == PreInit) or the calling goroutine currently has a dynamic-library
// load in progress.
func (a *AppState) IsInCInit() bool {
	if a.Phase() == PhasePreInit {
		return true
	}
	loading, _ := a.loaderFlags.Load(goroutineID())
	flag, _ := loading.(bool)
	return flag
}

// IsAppRunning reports whether the phase is one of RunInit, Run, or
// RunExit.
func (a *AppState) IsAppRunning() bool {
	switch a.Phase() {
	case PhaseRunInit, PhaseRun, PhaseRunExit:
		return true
	default:
		return false
	}
}

// IsInCExit reports whether the phase is Exit, or the singleton has
// been torn down entirely.
func (a *AppState) IsInCExit() bool {
	if a.Phase() == PhaseExit {
		return true
	}
	_, ok := Instance()
	return !ok
}

// ModuleLoadGuard is returned by BeginModuleLoad; Close clears the
// calling goroutine's loader flag. Mirrors the source's
// cAppStateModuleLoad RAII guard.
type ModuleLoadGuard struct {
	app *AppState
	gid uint64
}

// BeginModuleLoad marks the calling goroutine as currently loading a
// dynamic library, for the duration of the returned guard. Nesting on
// the same goroutine is not supported, matching the source's assertion
// that the flag is never already set.
func (a *AppState) BeginModuleLoad() *ModuleLoadGuard {
	gid := goroutineID()
	a.loaderFlags.Store(gid, true)
	return &ModuleLoadGuard{app: a, gid: gid}
}

// Close clears the loader flag set by BeginModuleLoad.
func (g *ModuleLoadGuard) Close() {
	g.app.loaderFlags.Store(g.gid, false)
}

// MainThreadID returns the goroutine id recorded at construction time,
// analogous to the source's main-thread id cache.
func (a *AppState) MainThreadID() uint64 {
	return a.mainThreadID
}

// cacheExpensiveQueries populates the temp-dir/user-name/home-dir/exec-path
// cache exactly once.
func (a *AppState) cacheExpensiveQueries() {
	a.cacheOnce.Do(func() {
		a.tempDir = os.TempDir()
		if exe, err := os.Executable(); err == nil {
			a.execPath = exe
		}
		if u, err := user.Current(); err == nil {
			a.userName = u.Username
			a.userHomeDir = u.HomeDir
		}
	})
}

// TempDir returns the process's temporary-files directory, cached after
// the first call.
func (a *AppState) TempDir() string {
	a.cacheExpensiveQueries()
	return a.tempDir
}

// UserName returns the current user's login name, cached after the
// first call. Empty if it could not be determined.
func (a *AppState) UserName() string {
	a.cacheExpensiveQueries()
	return a.userName
}

// UserHomeDir returns the current user's home directory, cached after
// the first call. Empty if it could not be determined.
func (a *AppState) UserHomeDir() string {
	a.cacheExpensiveQueries()
	return a.userHomeDir
}

// ExecutablePath returns the full path of the running executable,
// cached after the first call. Empty if it could not be determined.
func (a *AppState) ExecutablePath() string {
	a.cacheExpensiveQueries()
	return a.execPath
}

// Getenv is a pass-through to os.Getenv, so callers seeding app state
// don't need to reach past corerun into os directly.
func (a *AppState) Getenv(name string) string {
	return os.Getenv(name)
}

// Setenv is a pass-through to os.Setenv, added for the same reason as
// Getenv.
func (a *AppState) Setenv(name, value string) error {
	return os.Setenv(name, value)
}

// SetCommandLine installs the parsed command line this app state
// exposes via CommandLine/FindArg/EnumArg. AppStateMain calls this.
func (a *AppState) SetCommandLine(cl *CommandLine) {
	a.cmdlineMu.Lock()
	defer a.cmdlineMu.Unlock()
	a.cmdline = cl
}

// CommandLine returns the command line installed by SetCommandLine, or
// nil if none has been installed yet.
func (a *AppState) CommandLine() *CommandLine {
	a.cmdlineMu.RLock()
	defer a.cmdlineMu.RUnlock()
	return a.cmdline
}

// FindArg delegates to the installed CommandLine's FindArg, or reports
// not-found if no command line has been installed.
func (a *AppState) FindArg(name string, useRegex, caseSensitive bool) (int, bool) {
	cl := a.CommandLine()
	if cl == nil {
		return 0, false
	}
	return cl.FindArg(name, useRegex, caseSensitive)
}

// EnumArg delegates to the installed CommandLine's EnumArg.
func (a *AppState) EnumArg(i int) (string, bool) {
	cl := a.CommandLine()
	if cl == nil {
		return "", false
	}
	return cl.EnumArg(i)
}

// AbortApp transitions to Exit, best-effort persists a crash marker (so
// the next process start can tell this run did not reach Exit through
// the normal AppStateMain teardown), and terminates the process with
// exitCode. This never returns.
func (a *AppState) AbortApp(exitCode int) {
	a.setPhase(PhaseExit)
	if err := writeCrashMarker(a.crashMarkerPath(), a.Phase()); err != nil {
		a.cfg.Logger.Warn("appstate: failed to write crash marker", "error", err)
	}
	os.Exit(exitCode)
}

// crashMarkerPath returns the path of this process's crash-marker file,
// inside the cached temp directory.
func (a *AppState) crashMarkerPath() string {
	if a.crashMarkerCache != "" {
		return a.crashMarkerCache
	}
	a.crashMarkerCache = a.TempDir() + string(os.PathSeparator) + "corerun-appstate.marker"
	return a.crashMarkerCache
}
