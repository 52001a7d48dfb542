// hookentry.go: x86/x64 JMP-injection hook engine (C6).
//
// Grounded on original_source/include/CHookJump.h and
// src/CHookJump.cpp's cHookJump: save a sixteen-byte prologue, patch in
// a five-byte relative JMP, and cooperate with the page manager (C6.1)
// to make the target writable only for the duration of the patch.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build amd64 || 386

package corerun

import (
	"encoding/binary"
	"math"
	"reflect"
)

const (
	jmpOpcode        byte = 0xE9
	jmpLen                = 5  // opcode + 4-byte little-endian displacement
	savedPrologueLen      = 16 // enough to recognize chainable patterns on 32- and 64-bit x86
)

// FuncAddr resolves a Go function value to the address of its entry
// point, for use as installHook's original/replacement arguments. fn
// must be a non-nil function value; methods and closures resolve to
// their underlying code pointer, which is usually, but not always, what
// callers want — this is a "caller guarantees calling-convention
// compatibility" boundary.
func FuncAddr(fn interface{}) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// HookEntry stores one installed (or installable) hook: the original
// function's address, its saved prologue bytes, the patched JMP bytes,
// and a lock serializing install/remove/swap on this entry. Each entry
// patches a distinct function, so no cross-entry serialization is
// required.
type HookEntry struct {
	lock ThreadLockable

	target      uintptr
	replacement uintptr
	savedCode   [savedPrologueLen]byte
	patch       [jmpLen]byte
	installed   bool
	pages       *PageManager
}

// NewHookEntry constructs an uninstalled hook entry. pages may be nil
// to use DefaultPageManager.
func NewHookEntry(pages *PageManager) *HookEntry {
	if pages == nil {
		pages = DefaultPageManager()
	}
	h := &HookEntry{pages: pages}
	h.lock.SetConfig(&pages.cfg, "hookentry")
	return h
}

// metrics returns this entry's page manager's MetricsCollector, or
// NoOpMetricsCollector if none was configured.
func (h *HookEntry) metrics() MetricsCollector {
	if h.pages != nil && h.pages.cfg.MetricsCollector != nil {
		return h.pages.cfg.MetricsCollector
	}
	return NoOpMetricsCollector{}
}

// IsInstalled reports whether this entry currently has a patch in
// place.
func (h *HookEntry) IsInstalled() bool {
	guard := h.lock.Lock()
	defer guard.Unlock()
	return h.installed
}

// Target returns the original function address this entry patches (or
// the ultimate chained-through destination, if installHook followed a
// chain). Zero if never installed.
func (h *HookEntry) Target() uintptr {
	guard := h.lock.Lock()
	defer guard.Unlock()
	return h.target
}

// chainTarget inspects saved (a function's prologue bytes as captured
// at addr) for one of three chainable JMP patterns, and returns the
// address the chain ultimately calls.
func chainTarget(addr uintptr, saved []byte) (uintptr, bool) {
	if len(saved) >= 5 && saved[0] == jmpOpcode {
		disp := int32(binary.LittleEndian.Uint32(saved[1:5]))
		return addr + 5 + uintptr(disp), true
	}
	if len(saved) >= 6 && saved[0] == 0xFF && saved[1] == 0x25 {
		disp := int32(binary.LittleEndian.Uint32(saved[2:6]))
		ptrAddr := addr + 6 + uintptr(disp)
		return *(*uintptr)(ptrAt(ptrAddr)), true
	}
	if len(saved) >= 7 && saved[0] == 0x48 && saved[1] == 0xFF && saved[2] == 0x25 {
		disp := int32(binary.LittleEndian.Uint32(saved[3:7]))
		ptrAddr := addr + 7 + uintptr(disp)
		return *(*uintptr)(ptrAt(ptrAddr)), true
	}
	return 0, false
}

// InstallHook reads the prologue, optionally follows a chainable thunk,
// computes and validates the relative displacement, and patches the
// five-byte JMP under page protection. skipChain controls whether a
// chainable prologue at original causes installation to recurse onto
// the chain's ultimate destination instead of patching the thunk
// itself; this never applies to replacement's own prologue — only
// original's.
func (h *HookEntry) InstallHook(original, replacement uintptr, skipChain bool) error {
	guard := h.lock.Lock()
	defer guard.Unlock()

	if h.installed {
		return NewErrHookAlreadyInstalled(original)
	}
	if original == 0 || replacement == 0 {
		return NewErrInternal("InstallHook: nil function pointer", nil)
	}

	for {
		saved := readMemory(original, savedPrologueLen)

		if skipChain {
			if target, ok := chainTarget(original, saved); ok {
				original = target
				continue
			}
		}

		disp64 := int64(replacement) - int64(original) - int64(jmpLen)
		if disp64 < math.MinInt32 || disp64 > math.MaxInt32 {
			return NewErrDisplacementTooLarge(disp64)
		}

		var patch [jmpLen]byte
		patch[0] = jmpOpcode
		binary.LittleEndian.PutUint32(patch[1:], uint32(int32(disp64)))

		if bytesEqualN(patch[:], saved, jmpLen) {
			return NewErrHookDuplicatePatch(original)
		}

		if err := h.pages.SetProtection(original, savedPrologueLen, false); err != nil {
			return err
		}
		writeMemory(original, patch[:])
		if err := h.pages.SetProtection(original, savedPrologueLen, true); err != nil {
			return err
		}

		var savedArr [savedPrologueLen]byte
		copy(savedArr[:], saved)

		h.target = original
		h.replacement = replacement
		h.savedCode = savedArr
		h.patch = patch
		h.installed = true
		h.metrics().HookInstalled(original, true)
		return nil
	}
}

// RemoveHook restores the saved prologue bytes over the patch, under
// page protection, and clears the installed flag.
func (h *HookEntry) RemoveHook() error {
	guard := h.lock.Lock()
	defer guard.Unlock()
	if !h.installed {
		return NewErrHookNotInstalled(h.target)
	}
	if err := h.pages.SetProtection(h.target, savedPrologueLen, false); err != nil {
		return err
	}
	writeMemory(h.target, h.savedCode[:jmpLen])
	if err := h.pages.SetProtection(h.target, savedPrologueLen, true); err != nil {
		return err
	}
	h.installed = false
	h.metrics().HookInstalled(h.target, false)
	return nil
}

// chainableLocked reports the chain target recorded in this entry's
// saved prologue, if any. Callers must hold h.lock.
func (h *HookEntry) chainableLocked() (uintptr, bool) {
	return chainTarget(h.target, h.savedCode[:])
}

// GetChainFunc returns a callable pointer to the original code: the
// chain target directly if the saved prologue was itself chainable, or
// the original function's address otherwise — in the latter case,
// callers must wrap the call in a HookSwapLock to temporarily restore
// the original bytes first.
func (h *HookEntry) GetChainFunc() uintptr {
	guard := h.lock.Lock()
	defer guard.Unlock()
	if target, ok := h.chainableLocked(); ok {
		return target
	}
	return h.target
}

// HookSwapLock is a scoped guard that temporarily restores an installed
// hook's original bytes so the original code can be invoked
// re-entrantly from inside the replacement. Chained hooks (where
// GetChainFunc returns a directly callable address) skip the swap
// entirely — there is nothing to restore.
type HookSwapLock struct {
	guard   ScopedGuard
	entry   *HookEntry
	swapped bool
}

// NewHookSwapLock acquires entry's lock and, unless entry's original
// prologue was chainable, overwrites the patch bytes with the saved
// originals for the duration of the lock.
func NewHookSwapLock(entry *HookEntry) *HookSwapLock {
	guard := entry.lock.Lock()
	s := &HookSwapLock{guard: guard, entry: entry}
	if _, chainable := entry.chainableLocked(); !chainable && entry.installed {
		writeMemory(entry.target, entry.savedCode[:jmpLen])
		s.swapped = true
	}
	return s
}

// Close restores the patch bytes (if this lock swapped them out) and
// releases entry's lock.
func (s *HookSwapLock) Close() {
	if s.swapped {
		writeMemory(s.entry.target, s.entry.patch[:])
	}
	s.guard.Unlock()
}

// bytesEqualN reports whether a and b's first n bytes are equal,
// treating a slice shorter than n as unequal.
func bytesEqualN(a, b []byte, n int) bool {
	if len(a) < n || len(b) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
