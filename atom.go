// atom.go: interned, reference-counted, case-insensitive string (C5).
//
// Grounded on original_source/include/cAtom.h's cAtomRef / the backing
// cStringHeadT<ATOMCHAR_t> payload: a heap string with a precomputed
// case-insensitive hash, owned by the atom manager and reference
// counted via RefCounted (C4).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

import "strings"

// Atom is an interned string: equality and lookup are case-insensitive,
// but the original case used at creation is preserved in Name(). Atoms
// are never constructed directly — obtain one from an AtomManager.
type Atom struct {
	RefCounted
	name string
	hash uint32
	mgr  *AtomManager
}

var _ Finalizer = (*Atom)(nil)

// Name returns the atom's text, in the case it was created with.
func (a *Atom) Name() string {
	if a == nil {
		return ""
	}
	return a.name
}

// Hash returns the atom's precomputed case-insensitive 32-bit hash.
func (a *Atom) Hash() uint32 {
	if a == nil {
		return 0
	}
	return a.hash
}

// String implements fmt.Stringer.
func (a *Atom) String() string {
	return a.Name()
}

// Equal reports whether two atoms denote the same interned string.
// Atoms from the same manager compare by pointer identity; this also
// tolerates atoms from different managers by falling back to a
// case-insensitive name comparison.
func (a *Atom) Equal(b *Atom) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.hash == b.hash && strings.EqualFold(a.name, b.name)
}

// OnFinalRelease implements Finalizer: an atom whose refcount has dropped
// to zero removes itself from both indexes. This is invoked by
// RefCounted.Release once the count has reached zero; the manager's
// removeAtom does the actual bookkeeping, since only it holds the lock
// protecting the indexes.
func (a *Atom) OnFinalRelease() {
	if a.mgr != nil {
		a.mgr.removeAtom(a)
	}
}

// hashStringCI is the deterministic case-insensitive 32-bit string hash
// used consistently across the name and hash indexes. FNV-1a over the
// lower-cased bytes, matching the "simple,
// process-local, not security sensitive" character of
// original_source's StrT::GetHashCode32.
func hashStringCI(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		h ^= uint32(c)
		h *= prime32
	}
	return h
}
