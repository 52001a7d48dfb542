// threadlock.go: re-entrant thread lock with cooperative spin-wait (C2).
//
// Grounded on original_source/src/cThreadLock.cpp's LockThread: a CAS
// loop on the owner field, re-entrant increment when the caller already
// owns it, and a polling wait whose first tick does not sleep.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

import (
	"runtime"
	"sync/atomic"
	"time"
)

// nullThread is the sentinel owner value meaning "unlocked".
const nullThread uint64 = 0

// goroutineID returns an identifier for the calling goroutine. Go has no
// native OS-thread-id equivalent to the source's GetCurrentThreadId — a
// goroutine, not an OS thread, is the unit corerun's re-entrant lock needs
// to identify, since that's the schedulable unit that can legitimately
// re-enter a lock it already holds. It is implemented by parsing the
// "goroutine N [...]" header runtime.Stack always produces; this is the
// same technique every goroutine-identity helper in the Go ecosystem uses
// in the absence of a runtime-exposed accessor.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// Expected prefix: "goroutine 123 [running]:\n"
	const prefix = "goroutine "
	b := buf[:n]
	if len(b) <= len(prefix) || string(b[:len(prefix)]) != prefix {
		return nullThread + 1 // never equals the sentinel
	}
	b = b[len(prefix):]
	var id uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	if id == 0 {
		return nullThread + 1
	}
	return id
}

// ThreadLockable is a Lockable with an owner-goroutine field: a
// re-entrant mutex where only the owning goroutine may increment the
// count or release it to zero. Invariant: if count==0 then
// owner==nullThread; if count>0 then owner is a valid id; only the
// owner may acquire or release.
//
// cfg and name are optional: the zero value (a bare `var tl
// ThreadLockable`) keeps working, reading DefaultLockPollTick and
// discarding metrics through NoOpMetricsCollector. Call SetConfig to
// opt into cfg's poll tick, clock, and MetricsCollector.
type ThreadLockable struct {
	Lockable
	owner uint64
	cfg   *Config
	name  string
}

// SetConfig attaches cfg (cfg.LockPollTick and cfg.MetricsCollector are
// read live on every Lock/TryLock call, so a later hot-reload of
// cfg.LockPollTick takes effect on the very next call; cfg.TimeProvider
// and cfg.WaitUniquePollTick are copied into the embedded Lockable here,
// so WaitUnique sees later changes only after another SetConfig or
// configureWait call) and name, the label attached to
// every MetricsCollector.LockWait call this lock reports. A nil cfg is
// a no-op.
func (t *ThreadLockable) SetConfig(cfg *Config, name string) {
	if cfg == nil {
		return
	}
	t.cfg = cfg
	t.name = name
	t.Lockable.configureWait(cfg.TimeProvider, cfg.WaitUniquePollTick)
}

// pollTick returns cfg.LockPollTick if a Config was attached via
// SetConfig, or DefaultLockPollTick otherwise.
func (t *ThreadLockable) pollTick() time.Duration {
	if t.cfg != nil && t.cfg.LockPollTick > 0 {
		return t.cfg.LockPollTick
	}
	return DefaultLockPollTick
}

// metrics returns cfg.MetricsCollector if a Config was attached via
// SetConfig, or NoOpMetricsCollector otherwise.
func (t *ThreadLockable) metrics() MetricsCollector {
	if t.cfg != nil && t.cfg.MetricsCollector != nil {
		return t.cfg.MetricsCollector
	}
	return NoOpMetricsCollector{}
}

// Lock blocks until the calling goroutine owns the lock (acquiring it
// immediately if already owned, incrementing the re-entry depth) and
// returns a scoped guard responsible for releasing it.
func (t *ThreadLockable) Lock() ScopedGuard {
	t.lockThread(goroutineID(), -1)
	return newScopedGuard(t.unlockFunc(), true)
}

// TryLock attempts to acquire within timeout (zero means "one attempt, no
// sleep"; a negative timeout means "wait forever"). Returns an inert
// guard on failure.
func (t *ThreadLockable) TryLock(timeout time.Duration) ScopedGuard {
	if t.lockThread(goroutineID(), timeout) {
		return newScopedGuard(t.unlockFunc(), true)
	}
	return inertGuard()
}

// lockThread implements a CAS-loop acquisition algorithm, polling at
// cfg's LockPollTick (DefaultLockPollTick if no Config was attached),
// and reports the number of polls and the outcome to MetricsCollector.
// timeout < 0 means wait forever; timeout == 0 means try once.
func (t *ThreadLockable) lockThread(tid uint64, timeout time.Duration) bool {
	tick := t.pollTick()
	waitTick := time.Duration(0) // first iteration: no sleep (immediate yield)
	remaining := timeout
	polls := 0
	for {
		prev := atomic.CompareAndSwapUint64(&t.owner, nullThread, tid)
		if prev || atomic.LoadUint64(&t.owner) == tid {
			t.IncRef()
			t.metrics().LockWait(t.name, polls, true)
			return true
		}
		if timeout == 0 {
			t.metrics().LockWait(t.name, polls, false)
			return false
		}
		polls++
		if waitTick == 0 {
			runtime.Gosched()
		} else {
			time.Sleep(waitTick)
		}
		waitTick = tick
		if timeout > 0 {
			remaining -= tick
			if remaining <= 0 {
				// one last check in case the owner cleared between our
				// last CAS attempt and the deadline.
				if atomic.CompareAndSwapUint64(&t.owner, nullThread, tid) || atomic.LoadUint64(&t.owner) == tid {
					t.IncRef()
					t.metrics().LockWait(t.name, polls, true)
					return true
				}
				t.metrics().LockWait(t.name, polls, false)
				return false
			}
		}
	}
}

// unlockFunc builds the release closure handed to the ScopedGuard.
func (t *ThreadLockable) unlockFunc() func() {
	return func() { t.Unlock() }
}

// Unlock releases one level of re-entry. Must be called from the owning
// goroutine; a call from any other goroutine is a programming error
// and, with debug checks enabled, panics rather than corrupting the
// owner field.
func (t *ThreadLockable) Unlock() {
	caller := goroutineID()
	owner := atomic.LoadUint64(&t.owner)
	if owner != caller {
		if debugChecks {
			panic(NewErrWrongThreadUnlock(owner, caller))
		}
		return
	}
	if t.DecRef() == 0 {
		atomic.StoreUint64(&t.owner, nullThread)
	}
}

// Owner returns the goroutine id currently recorded as holding the lock,
// or nullThread if unlocked.
func (t *ThreadLockable) Owner() uint64 {
	return atomic.LoadUint64(&t.owner)
}

// IsLockedByCurrent reports whether the calling goroutine holds the lock.
func (t *ThreadLockable) IsLockedByCurrent() bool {
	return atomic.LoadUint64(&t.owner) == goroutineID()
}

// ClearOwner is an emergency recovery primitive: it atomically clears the
// owner field only if it still matches expected, for use after confirming
// a goroutine that held the lock is permanently gone (e.g. its parent
// process is tearing down). It does not touch the count; callers that
// use this are expected to discard the Lockable afterward.
func (t *ThreadLockable) ClearOwner(expected uint64) bool {
	return atomic.CompareAndSwapUint64(&t.owner, expected, nullThread)
}
