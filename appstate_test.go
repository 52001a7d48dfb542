// appstate_test.go: unit tests for the AppState lifecycle singleton.
//
// AppState is a process-wide singleton, so every test here resets it via
// resetAppStateForTest before and after running; none of them use
// t.Parallel() since they'd otherwise race on the same singleton and ABI
// probe environment variable.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

import (
	"os"
	"testing"
)

func withCleanAppState(t *testing.T) {
	t.Helper()
	resetAppStateForTest()
	t.Cleanup(resetAppStateForTest)
}

func TestNewAppState_Singleton(t *testing.T) {
	withCleanAppState(t)

	app, err := NewAppState(DefaultConfig())
	if err != nil {
		t.Fatalf("NewAppState failed: %v", err)
	}
	if app.Phase() != PhasePreInit {
		t.Errorf("Phase() = %v, want PhasePreInit", app.Phase())
	}

	if _, err := NewAppState(DefaultConfig()); err == nil {
		t.Error("expected a second NewAppState call to fail with NewErrAlreadyConstructed")
	}
}

func TestNewAppState_DuplicateLibraryLoad(t *testing.T) {
	withCleanAppState(t)

	if err := setenvForTest(t, envVarName, "deadbeef"); err != nil {
		t.Fatalf("failed to seed env var: %v", err)
	}

	if _, err := NewAppState(DefaultConfig()); err == nil {
		t.Error("expected NewAppState to fail when the ABI probe env var is already set")
	}
}

func TestInstance(t *testing.T) {
	withCleanAppState(t)

	if _, ok := Instance(); ok {
		t.Error("expected Instance() to report ok=false before NewAppState")
	}

	app, err := NewAppState(DefaultConfig())
	if err != nil {
		t.Fatalf("NewAppState failed: %v", err)
	}

	got, ok := Instance()
	if !ok || got != app {
		t.Errorf("Instance() = %v, %v; want the constructed AppState, true", got, ok)
	}
}

func TestAppState_VerifyABI(t *testing.T) {
	withCleanAppState(t)

	app, err := NewAppState(DefaultConfig())
	if err != nil {
		t.Fatalf("NewAppState failed: %v", err)
	}
	if err := app.VerifyABI(); err != nil {
		t.Errorf("VerifyABI() immediately after construction returned error: %v", err)
	}

	if err := setenvForTest(t, envVarName, "somebody-else-overwrote-it"); err != nil {
		t.Fatalf("failed to mutate env var: %v", err)
	}
	if err := app.VerifyABI(); err == nil {
		t.Error("expected VerifyABI to fail once the ABI probe env var is overwritten")
	}
}

func TestAppState_Signature(t *testing.T) {
	withCleanAppState(t)
	app, err := NewAppState(DefaultConfig())
	if err != nil {
		t.Fatalf("NewAppState failed: %v", err)
	}
	ver, size := app.Signature()
	if ver != abiSignature {
		t.Errorf("Signature() version = %d, want %d", ver, abiSignature)
	}
	if size == 0 {
		t.Error("Signature() sizeofAppState must not be zero")
	}
}

func TestAppState_PhaseQueries(t *testing.T) {
	withCleanAppState(t)
	app, err := NewAppState(DefaultConfig())
	if err != nil {
		t.Fatalf("NewAppState failed: %v", err)
	}

	if !app.IsInCInit() {
		t.Error("expected IsInCInit() == true in PhasePreInit")
	}
	if app.IsAppRunning() {
		t.Error("expected IsAppRunning() == false in PhasePreInit")
	}

	app.setPhase(PhaseRun)
	if app.IsInCInit() {
		t.Error("expected IsInCInit() == false once running, with no module load in progress")
	}
	if !app.IsAppRunning() {
		t.Error("expected IsAppRunning() == true in PhaseRun")
	}

	app.setPhase(PhaseExit)
	if !app.IsInCExit() {
		t.Error("expected IsInCExit() == true in PhaseExit")
	}
}

func TestAppState_ModuleLoadGuard(t *testing.T) {
	withCleanAppState(t)
	app, err := NewAppState(DefaultConfig())
	if err != nil {
		t.Fatalf("NewAppState failed: %v", err)
	}
	app.setPhase(PhaseRun)

	if app.IsInCInit() {
		t.Fatal("expected IsInCInit() == false before BeginModuleLoad")
	}

	guard := app.BeginModuleLoad()
	if !app.IsInCInit() {
		t.Error("expected IsInCInit() == true while a module load is in progress on this goroutine")
	}
	guard.Close()
	if app.IsInCInit() {
		t.Error("expected IsInCInit() == false after the module load guard is closed")
	}
}

func TestAppState_MainThreadID(t *testing.T) {
	withCleanAppState(t)
	app, err := NewAppState(DefaultConfig())
	if err != nil {
		t.Fatalf("NewAppState failed: %v", err)
	}
	if app.MainThreadID() != goroutineID() {
		t.Error("expected MainThreadID() to match the constructing goroutine, since the test runs on it")
	}
}

func TestAppState_CachedQueries(t *testing.T) {
	withCleanAppState(t)
	app, err := NewAppState(DefaultConfig())
	if err != nil {
		t.Fatalf("NewAppState failed: %v", err)
	}

	if app.TempDir() == "" {
		t.Error("expected a non-empty TempDir()")
	}
	if app.TempDir() != app.TempDir() {
		t.Error("expected TempDir() to be stable across calls (cached)")
	}
}

func TestAppState_GetenvSetenv(t *testing.T) {
	withCleanAppState(t)
	app, err := NewAppState(DefaultConfig())
	if err != nil {
		t.Fatalf("NewAppState failed: %v", err)
	}
	if err := app.Setenv("CORERUN_TEST_VAR", "hello"); err != nil {
		t.Fatalf("Setenv failed: %v", err)
	}
	t.Cleanup(func() { _ = app.Setenv("CORERUN_TEST_VAR", "") })
	if got := app.Getenv("CORERUN_TEST_VAR"); got != "hello" {
		t.Errorf("Getenv() = %q, want %q", got, "hello")
	}
}

func TestAppState_CommandLineDelegation(t *testing.T) {
	withCleanAppState(t)
	app, err := NewAppState(DefaultConfig())
	if err != nil {
		t.Fatalf("NewAppState failed: %v", err)
	}

	if _, ok := app.FindArg("--x", false, true); ok {
		t.Error("expected FindArg to report a miss before any command line is installed")
	}
	if _, ok := app.EnumArg(0); ok {
		t.Error("expected EnumArg to report a miss before any command line is installed")
	}

	app.SetCommandLine(NewCommandLineFromArgv([]string{"/bin/app", "--flag"}))
	if idx, ok := app.FindArg("--flag", false, true); !ok || idx != 1 {
		t.Errorf("FindArg after SetCommandLine = %d, %v; want 1, true", idx, ok)
	}
	if arg, ok := app.EnumArg(0); !ok || arg != "/bin/app" {
		t.Errorf("EnumArg(0) after SetCommandLine = %q, %v; want %q, true", arg, ok, "/bin/app")
	}
}

func TestAppState_DetectPriorCrashFalseInitially(t *testing.T) {
	withCleanAppState(t)
	app, err := NewAppState(DefaultConfig())
	if err != nil {
		t.Fatalf("NewAppState failed: %v", err)
	}
	if app.DetectPriorCrash() {
		t.Error("expected no prior crash marker for a freshly constructed AppState")
	}
}

// setenvForTest sets an environment variable and schedules its removal.
func setenvForTest(t *testing.T, key, value string) error {
	t.Helper()
	t.Cleanup(func() { _ = os.Unsetenv(key) })
	return os.Setenv(key, value)
}
