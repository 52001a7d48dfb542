// interfaces.go: public collaborator interfaces for corerun.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

import "github.com/agilira/go-timecache"

// Logger defines a minimal logging interface with zero overhead. corerun
// does not implement a logging framework itself (the logging nexus is an
// external collaborator) — it only defines this submission interface and
// consumes it.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keyvals ...interface{})

	// Info logs an info message with optional key-value pairs.
	Info(msg string, keyvals ...interface{})

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, keyvals ...interface{})

	// Error logs an error message with optional key-value pairs.
	Error(msg string, keyvals ...interface{})
}

// NoOpLogger is a logger that does nothing. Used as default to avoid nil checks.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, keyvals ...interface{}) {}
func (NoOpLogger) Info(msg string, keyvals ...interface{})  {}
func (NoOpLogger) Warn(msg string, keyvals ...interface{})  {}
func (NoOpLogger) Error(msg string, keyvals ...interface{}) {}

// TimeProvider provides current time with caching for performance.
// WaitUnique's timeout reads the clock through this interface so tests can
// inject a fake one without sleeping; TryLock counts its timeout down in
// poll ticks and reads no clock.
type TimeProvider interface {
	// Now returns the current time in nanoseconds since epoch.
	Now() int64
}

// systemTimeProvider is the default time provider, backed by go-timecache's
// cached clock so the polling path of waitUnique doesn't pay
// for a time.Now() syscall on every iteration.
type systemTimeProvider struct{}

func (systemTimeProvider) Now() int64 {
	return timecache.CachedTimeNano()
}

// defaultTimeProvider is shared by every primitive that doesn't have one
// injected explicitly.
var defaultTimeProvider TimeProvider = systemTimeProvider{}

// MetricsCollector receives operation counters from corerun's primitives.
// Implementations must be safe for concurrent use and fast — they are
// called from hot paths (lock acquisition, atom lookup). The rtotel
// submodule provides an OpenTelemetry-backed implementation.
type MetricsCollector interface {
	// LockWait records that a thread polled n times before acquiring (or
	// timing out on) a ThreadLockable/RWLock.
	LockWait(name string, polls int, acquired bool)

	// AtomTableSize records the current size of the atom manager's
	// name index, after an insertion or removal.
	AtomTableSize(n int)

	// HookInstalled records a successful hook install/remove.
	HookInstalled(target uintptr, installed bool)
}

// NoOpMetricsCollector discards every metric. Used as the default so
// callers that don't care about observability pay nothing for it.
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) LockWait(name string, polls int, acquired bool) {}
func (NoOpMetricsCollector) AtomTableSize(n int)                            {}
func (NoOpMetricsCollector) HookInstalled(target uintptr, installed bool)   {}
