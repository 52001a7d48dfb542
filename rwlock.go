// rwlock.go: shared-read / exclusive-write lock (C3).
//
// Built atop ThreadLockable (C2) plus an auxiliary C2 lock that
// serializes reader-count adjustments.
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

// readerSentinel is the reserved pseudo-owner value denoting "one or
// more readers hold a shared lock".
const readerSentinel uint64 = 1

// RWLock is a ThreadLockable whose owner field doubles as a reader
// sentinel: writers install their own goroutine id as owner (the base
// C2 behavior), readers collectively install readerSentinel and use the
// count as the reader count. A reader on the same goroutine that already
// holds the write lock is treated as an additional write-lock count
// (downgrade case) rather than switching to the sentinel.
type RWLock struct {
	ThreadLockable
	aux ThreadLockable // serializes reader-count adjustments only
}

// SetConfig attaches cfg to both this lock's writer-side ThreadLockable
// and its auxiliary reader-count lock, labeling their LockWait metrics
// name and name+".aux" respectively. A nil cfg is a no-op.
func (r *RWLock) SetConfig(cfg *Config, name string) {
	r.ThreadLockable.SetConfig(cfg, name)
	r.aux.SetConfig(cfg, name+".aux")
}

// Lock acquires the lock for exclusive write access. Same-goroutine
// re-entry increments the write depth, exactly like ThreadLockable.Lock.
func (r *RWLock) Lock() ScopedGuard {
	return r.ThreadLockable.Lock()
}

// TryLock attempts to acquire exclusive write access within timeout.
func (r *RWLock) TryLock(timeout time.Duration) ScopedGuard {
	return r.ThreadLockable.TryLock(timeout)
}

// RLock acquires shared read access. If the calling goroutine already
// holds the write lock, this is a downgrade case: it simply increments
// the write count, and the matching RUnlock decrements it. Otherwise it
// acquires the auxiliary lock just long enough to install (or join)
// readerSentinel as owner — competing with any waiting writer on the
// same owner CAS — then releases the auxiliary lock before returning.
// The auxiliary lock is never held across caller code.
func (r *RWLock) RLock() ScopedGuard {
	if r.IsLockedByCurrent() {
		r.IncRef()
		return newScopedGuard(func() { r.ThreadLockable.DecRef() }, true)
	}

	auxGuard := r.aux.Lock()
	for {
		if atomic.CompareAndSwapUint64(&r.ThreadLockable.owner, nullThread, readerSentinel) {
			break
		}
		if atomic.LoadUint64(&r.ThreadLockable.owner) == readerSentinel {
			break
		}
		// A writer holds it (owner is a real goroutine id, not the
		// sentinel and not null): release the aux lock, yield, retry.
		// We never hold aux across a wait for the writer.
		auxGuard.Unlock()
		runtime.Gosched()
		auxGuard = r.aux.Lock()
	}
	r.ThreadLockable.IncRef()
	auxGuard.Unlock()

	return newScopedGuard(func() { r.runlock() }, true)
}

// runlock decrements the shared reader count; when it reaches zero the
// owner is cleared back to nullThread, all under the auxiliary lock.
func (r *RWLock) runlock() {
	auxGuard := r.aux.Lock()
	defer auxGuard.Unlock()
	if r.ThreadLockable.DecRef() == 0 {
		atomic.StoreUint64(&r.ThreadLockable.owner, nullThread)
	}
}

// Unlock releases one level of write ownership (or, for a
// downgrade-acquired read while already a writer, one level of that
// combined count). Matches ThreadLockable.Unlock.
func (r *RWLock) Unlock() {
	r.ThreadLockable.Unlock()
}
