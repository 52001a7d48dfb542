// doc.go: package documentation for corerun.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Package corerun is a cross-platform systems runtime core for Windows
// and Linux: object lifetime and locking primitives, an interned-string
// atom table, a code-patching hook engine with a cooperating
// page-protection manager, and a process-wide application-state
// singleton.
//
// # Overview
//
// corerun is a from-scratch port of a subset of a C++ systems-support
// library: lifetime and synchronization primitives that higher-level
// application code builds on, not an application framework itself.
// It focuses on:
//
//   - Correctness under concurrency: re-entrant locks, atomic refcounts,
//     and CAS-based ownership tracking, ported faithfully from the
//     original's algorithms.
//   - Minimal footprint: every primitive is usable standalone; nothing
//     requires the full package to be wired up.
//   - Observability: a submission-only Logger/MetricsCollector interface
//     pair, with an OpenTelemetry-backed implementation in the corerun/rtotel
//     submodule.
//
// # Features
//
//   - Lockable/ScopedGuard: atomic refcounted base lock with RAII-style guards (C1)
//   - ThreadLockable: re-entrant, same-goroutine mutex with owner tracking (C2)
//   - RWLock: reader/writer lock built on ThreadLockable, with write-to-read downgrade (C3)
//   - RefCounted/SmartPtr: intrusive atomic refcounting with debug/static/destructing flags (C4)
//   - AtomManager: case-insensitive interned-string table with dual sorted indexes (C5)
//   - HookEntry: x86/x64 JMP-injection function hooking (C6, amd64/386 only)
//   - PageManager: OS memory-page protection with overlapping-refcount discipline (C6.1)
//   - AppState/AppStateMain: process-wide lifecycle singleton with an ABI-mismatch probe (C7)
//   - CommandLine: quoted-string-aware argument parsing with findArg/enumArg semantics
//
// # Quick Start
//
// Basic re-entrant locking:
//
//	import "github.com/agilira/corerun"
//
//	var l corerun.ThreadLockable
//	guard := l.Lock()
//	defer guard.Unlock()
//
// Interning and querying atoms:
//
//	mgr := corerun.NewAtomManager(corerun.DefaultConfig())
//	a := mgr.FindOrCreate("Alpha")
//	defer a.Release()
//
//	fmt.Println(a.Name(), a.Hash())
//
// Constructing the application-state singleton and its command line at
// the top of main:
//
//	app, err := corerun.NewAppState(corerun.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	main := corerun.NewAppStateMain(app, os.Args)
//	defer main.Close()
//
//	corerun.InstallExitCatcher(app)
//
// # Hot Reload
//
// corerun's lock-tick defaults and static-atom seed list can be watched
// and re-applied at runtime via HotConfig, which wraps
// github.com/agilira/argus the same way the rest of this library's
// configuration surfaces accept defaults and override them from a
// watched file:
//
//	hc, err := corerun.NewHotConfig(mgr, corerun.HotConfigOptions{
//	    ConfigPath: "corerun.yaml",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer hc.Stop()
//
// # Platform Support
//
// The hook engine (C6) is only available on amd64/386 builds; on other
// architectures HookEntry's InstallHook and RemoveHook return
// NewErrUnsupportedArch and its query methods report an uninstalled entry. The
// page-protection manager (C6.1) has real implementations for unix-like
// systems (golang.org/x/sys/unix) and Windows (golang.org/x/sys/windows);
// other GOOS values get a stub that always fails SetProtection.
//
// # Error Handling
//
// Every fallible operation returns a structured error built on
// github.com/agilira/go-errors, with a stable ErrorCode per failure kind
// (see errors.go). IsTimeout, IsABIMismatch, IsRetryable, GetErrorCode,
// and GetErrorContext are the intended way to branch on error identity
// rather than string matching.
package corerun
