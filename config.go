// config.go: runtime-wide configuration for corerun.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

import "time"

// Config holds the tunable parameters shared by corerun's primitives: the
// thread locks (C2/C3), the atom manager (C5), and the application-state
// singleton (C7). Individual constructors (NewAtomManager, NewAppState,
// ...) embed whichever subset applies to them.
type Config struct {
	// LockPollTick is the sleep duration used between polling attempts in
	// lock() / try_lock() after the first (non-sleeping) attempt: the
	// first retry is immediate, every one after that sleeps for this
	// duration. Must be > 0. Default: DefaultLockPollTick.
	LockPollTick time.Duration

	// WaitUniquePollTick is the sleep used by Lockable.WaitUnique after
	// its first immediate check. Default: DefaultLockPollTick.
	WaitUniquePollTick time.Duration

	// Logger is used for debugging and monitoring. If nil, NoOpLogger is used.
	Logger Logger

	// TimeProvider supplies the clock used for deadline arithmetic. If
	// nil, a go-timecache-backed default is used.
	TimeProvider TimeProvider

	// MetricsCollector receives operation counters (lock contention,
	// atom table size, hook installs). If nil, NoOpMetricsCollector is used.
	MetricsCollector MetricsCollector

	// StaticAtoms is a seed list of names to intern and mark static at
	// manager construction time, so frequently used identifiers survive
	// for the life of the process regardless of external refcount.
	StaticAtoms []string
}

// DefaultLockPollTick is the steady-state polling interval used once the
// immediate first attempt at a contested lock has failed.
const DefaultLockPollTick = time.Millisecond

// Validate normalizes a Config in place, filling in defaults for zero
// values. It does not return validation errors — every field has a safe
// default, treating configuration problems as normalization rather
// than hard failure.
func (c *Config) Validate() error {
	if c.LockPollTick <= 0 {
		c.LockPollTick = DefaultLockPollTick
	}

	if c.WaitUniquePollTick <= 0 {
		c.WaitUniquePollTick = DefaultLockPollTick
	}

	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}

	if c.TimeProvider == nil {
		c.TimeProvider = defaultTimeProvider
	}

	if c.MetricsCollector == nil {
		c.MetricsCollector = NoOpMetricsCollector{}
	}

	return nil
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() Config {
	c := Config{}
	_ = c.Validate()
	return c
}
