// atommanager.go: process-wide interned-string table (C5).
//
// Grounded on original_source/include/cAtomManager.h /
// src/CAtom.cpp's cAtomManager: a name-sorted index and a hash-sorted
// index kept consistent under one re-entrant lock, insertion-sort on
// create, and removal when an atom's external refcount drops to zero.
//
// corerun simplifies one C++-specific mechanic: the original holds an
// extra cRefPtr per index entry (kRefsBase == 3, "we only have 3 refs =
// we can be deleted") because C++ refcounting owns memory lifetime
// directly — letting the count reach zero while indexed would free the
// object out from under the tables. In Go, RefCounted models only
// logical ownership; the Go garbage collector owns memory regardless of
// the count. So the indexes hold plain, unreferenced *Atom pointers, and
// removal triggers exactly when the external refcount reaches literal
// zero (via Atom.OnFinalRelease), with no magic base constant to track.
// See DESIGN.md for this Open Question resolution.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// AtomManager is the process-wide interning table. The zero value is
// not usable; construct with NewAtomManager. A single AtomManager is
// typically shared process-wide,
// but nothing here requires a singleton — tests construct their own.
type AtomManager struct {
	lock   ThreadLockable
	byName []*Atom // sorted case-insensitively by name, no duplicates
	byHash []*Atom // sorted by hash, duplicates tolerated
	static map[*Atom]struct{}
	empty  *Atom
	cfg    Config
}

// NewAtomManager constructs an atom manager and interns cfg.StaticAtoms
// (if any) as static atoms immediately, via MarkStatic and config.go's
// StaticAtoms seed list.
func NewAtomManager(cfg Config) *AtomManager {
	_ = cfg.Validate()
	m := &AtomManager{cfg: cfg, static: make(map[*Atom]struct{})}
	m.lock.SetConfig(&m.cfg, "atommanager")

	m.empty = &Atom{hash: hashStringCI(""), mgr: m}
	m.empty.Init(m.empty)
	_ = m.empty.MarkStatic()
	_, _ = m.empty.Acquire()

	for _, name := range cfg.StaticAtoms {
		if name == "" {
			continue
		}
		a := m.FindOrCreate(name)
		m.MarkStatic(a)
		a.Release()
	}
	return m
}

// findNameIndex returns the insertion point for name in byName (the
// index of the first entry whose name is >= name, case-insensitively)
// and whether an exact (case-insensitive) match already exists there.
// Callers must hold m.lock.
func (m *AtomManager) findNameIndex(name string) (int, bool) {
	lower := strings.ToLower(name)
	i := sort.Search(len(m.byName), func(i int) bool {
		return strings.ToLower(m.byName[i].name) >= lower
	})
	if i < len(m.byName) && strings.EqualFold(m.byName[i].name, name) {
		return i, true
	}
	return i, false
}

// findHashIndex returns the insertion point for hash in byHash (the
// index of the first entry whose hash is >= hash). Callers must hold
// m.lock.
func (m *AtomManager) findHashIndex(hash uint32) int {
	return sort.Search(len(m.byHash), func(i int) bool {
		return m.byHash[i].hash >= hash
	})
}

// insertLocked inserts a into both indexes at their sorted positions.
// Callers must hold m.lock. nameIdx must be the position returned by a
// prior findNameIndex call for a.name (not stale — no mutation of
// byName may happen between that call and this one).
func (m *AtomManager) insertLocked(nameIdx int, a *Atom) {
	m.byName = append(m.byName, nil)
	copy(m.byName[nameIdx+1:], m.byName[nameIdx:])
	m.byName[nameIdx] = a

	hashIdx := m.findHashIndex(a.hash)
	m.byHash = append(m.byHash, nil)
	copy(m.byHash[hashIdx+1:], m.byHash[hashIdx:])
	m.byHash[hashIdx] = a

	m.cfg.MetricsCollector.AtomTableSize(len(m.byName))
}

// removeLocked removes a from both indexes if present, by identity.
// Callers must hold m.lock. A no-op if a isn't indexed: a concurrent
// remover may have already won the race.
func (m *AtomManager) removeLocked(a *Atom) {
	if nameIdx, ok := m.findNameIndex(a.name); ok && m.byName[nameIdx] == a {
		m.byName = append(m.byName[:nameIdx], m.byName[nameIdx+1:]...)
	}
	hashIdx := m.findHashIndex(a.hash)
	for hashIdx < len(m.byHash) && m.byHash[hashIdx].hash == a.hash {
		if m.byHash[hashIdx] == a {
			m.byHash = append(m.byHash[:hashIdx], m.byHash[hashIdx+1:]...)
			break
		}
		hashIdx++
	}
	m.cfg.MetricsCollector.AtomTableSize(len(m.byName))
}

// removeAtom is Atom.OnFinalRelease's entry point back into the
// manager: it takes the manager lock itself (the atom's own refcount
// has already reached zero by the time this runs, so there is no
// re-entrancy into the same atom — only into the manager, which is
// reentrant).
func (m *AtomManager) removeAtom(a *Atom) {
	if a == m.empty {
		return
	}
	guard := m.lock.Lock()
	defer guard.Unlock()
	m.removeLocked(a)
}

// FindOrCreate returns a reference to the atom named name, creating and
// interning it if no case-insensitive match exists yet. The empty
// string maps to a canonical shared sentinel and never allocates. The
// returned Atom carries one acquired reference; callers
// must call Release when done with it.
func (m *AtomManager) FindOrCreate(name string) *Atom {
	if name == "" {
		_, _ = m.empty.Acquire()
		return m.empty
	}

	guard := m.lock.Lock()
	defer guard.Unlock()

	nameIdx, found := m.findNameIndex(name)
	if found {
		existing := m.byName[nameIdx]
		if _, err := existing.Acquire(); err == nil {
			return existing
		}
		// existing is mid-destruction (its OnFinalRelease is queued
		// behind this very lock): clear the stale slot now so the
		// queued removal is a harmless no-op, and fall through to
		// create a fresh atom in its place.
		m.removeLocked(existing)
		nameIdx, _ = m.findNameIndex(name)
	}

	a := &Atom{name: name, hash: hashStringCI(name), mgr: m}
	a.Init(a)
	_, _ = a.Acquire()
	m.insertLocked(nameIdx, a)
	return a
}

// Find returns a reference to the atom named name if one is currently
// interned, or the canonical empty atom (never nil) as the
// not-found sentinel. Never allocates.
func (m *AtomManager) Find(name string) *Atom {
	if name == "" {
		_, _ = m.empty.Acquire()
		return m.empty
	}
	guard := m.lock.Lock()
	defer guard.Unlock()
	if nameIdx, ok := m.findNameIndex(name); ok {
		if _, err := m.byName[nameIdx].Acquire(); err == nil {
			return m.byName[nameIdx]
		}
	}
	_, _ = m.empty.Acquire()
	return m.empty
}

// FindByHash returns a reference to an atom with the given hash, or the
// canonical empty atom if none is interned. If duplicate hashes exist
// (tolerated) the first in hash order is returned.
func (m *AtomManager) FindByHash(hash uint32) *Atom {
	guard := m.lock.Lock()
	defer guard.Unlock()
	hashIdx := m.findHashIndex(hash)
	if hashIdx < len(m.byHash) && m.byHash[hashIdx].hash == hash {
		if _, err := m.byHash[hashIdx].Acquire(); err == nil {
			return m.byHash[hashIdx]
		}
	}
	_, _ = m.empty.Acquire()
	return m.empty
}

// MarkStatic moves a into the manager's static-keep set, acquiring one
// permanent reference so it survives even once every external caller
// has released its own reference. Idempotent.
func (m *AtomManager) MarkStatic(a *Atom) {
	if a == nil || a == m.empty {
		return
	}
	guard := m.lock.Lock()
	defer guard.Unlock()
	if _, already := m.static[a]; already {
		return
	}
	if _, err := a.Acquire(); err != nil {
		return
	}
	m.static[a] = struct{}{}
}

// Size returns the current number of interned atoms (excluding the
// canonical empty atom, which is never indexed).
func (m *AtomManager) Size() int {
	guard := m.lock.Lock()
	defer guard.Unlock()
	return len(m.byName)
}

// SetLockPollTick updates the poll tick this manager's internal lock
// uses on its next Lock/TryLock call; HotConfig calls this so a
// lock_poll_tick change in the watched file takes effect on a running
// manager without reconstruction. A non-positive tick is ignored.
func (m *AtomManager) SetLockPollTick(tick time.Duration) {
	if tick <= 0 {
		return
	}
	m.cfg.LockPollTick = tick
}

// SetWaitUniquePollTick updates the default tick WaitUnique falls back
// to when called with tick <= 0 against this manager's internal lock.
// A non-positive tick is ignored.
func (m *AtomManager) SetWaitUniquePollTick(tick time.Duration) {
	if tick <= 0 {
		return
	}
	m.cfg.WaitUniquePollTick = tick
	m.lock.Lockable.configureWait(nil, tick)
}

// DebugDump writes every interned atom to w, first ordered by name then
// ordered by hash.
func (m *AtomManager) DebugDump(w io.Writer) error {
	guard := m.lock.Lock()
	defer guard.Unlock()
	for _, a := range m.byName {
		if _, err := fmt.Fprintf(w, "%s\n", a.name); err != nil {
			return err
		}
	}
	for _, a := range m.byHash {
		if _, err := fmt.Fprintf(w, "%08x = '%s'\n", a.hash, a.name); err != nil {
			return err
		}
	}
	return nil
}

// isCSymFirst reports whether ch may be the first character of a
// C-style identifier: alphabetic or underscore.
func isCSymFirst(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// isCSymChar reports whether ch may appear after the first character of
// a C-style identifier: alphanumeric or underscore.
func isCSymChar(ch byte) bool {
	return isCSymFirst(ch) || (ch >= '0' && ch <= '9')
}

// MakeSymName produces an identifier-safe transformation of input: the
// first character must be alphabetic or underscore
// (unless allowDots, which also permits a leading digit or dot, matching
// original_source/src/CAtom.cpp's MakeSymName used for JSON-ish tags),
// and the rest must be alphanumeric, underscore, or (if allowDots) a
// literal dot. The result is truncated at the first disallowed
// character; MakeSymName("", _) and an input whose first character
// cannot be fixed both return "".
func MakeSymName(input string, allowDots bool) string {
	if input == "" {
		return ""
	}
	var b strings.Builder
	i := 0
	if !allowDots {
		if !isCSymFirst(input[0]) {
			return ""
		}
		b.WriteByte(input[0])
		i = 1
	}
	for ; i < len(input); i++ {
		ch := input[i]
		if allowDots && ch == '.' {
			b.WriteByte(ch)
			continue
		}
		if !isCSymChar(ch) {
			break
		}
		b.WriteByte(ch)
	}
	return b.String()
}
