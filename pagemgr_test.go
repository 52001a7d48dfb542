// pagemgr_test.go: unit tests for the page-protection manager.
//
// These tests drive PageManager through a fake pageProtector rather than
// real mprotect/VirtualProtect calls, so they exercise the overlapping-
// refcount bookkeeping in isolation from any particular OS's page
// semantics (those are covered by the OS-specific protector files
// directly calling into the kernel, which unit tests can't safely fake).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

import (
	"errors"
	"testing"
)

// fakeProtector is an in-memory pageProtector stand-in: it records which
// pages were made writable and what was "saved", without touching real
// memory protection.
type fakeProtector struct {
	sz          uintptr
	writable    map[uintptr]bool
	setErr      error
	restoreErr  error
	setCalls    int
	restoreCall int
}

func newFakeProtector(pageSize uintptr) *fakeProtector {
	return &fakeProtector{sz: pageSize, writable: make(map[uintptr]bool)}
}

func (p *fakeProtector) pageSize() uintptr { return p.sz }

func (p *fakeProtector) setWritable(addr, _ uintptr) (uint32, error) {
	p.setCalls++
	if p.setErr != nil {
		return 0, p.setErr
	}
	p.writable[addr] = true
	return 0xAB, nil
}

func (p *fakeProtector) restore(addr, _ uintptr, _ uint32) error {
	p.restoreCall++
	if p.restoreErr != nil {
		return p.restoreErr
	}
	delete(p.writable, addr)
	return nil
}

func newTestPageManager(prot *fakeProtector) *PageManager {
	return &PageManager{
		pages: make(map[uintptr]*MemoryPage),
		prot:  prot,
		cfg:   DefaultConfig(),
	}
}

func TestPageManager_SetProtectionBasicCycle(t *testing.T) {
	fp := newFakeProtector(4096)
	pm := newTestPageManager(fp)

	addr := uintptr(4096 * 10)
	if err := pm.SetProtection(addr, 5, false); err != nil {
		t.Fatalf("SetProtection(unprotect) failed: %v", err)
	}
	if !fp.writable[addr] {
		t.Error("expected the page to be marked writable")
	}
	if pm.TrackedPages(addr) != 1 {
		t.Errorf("TrackedPages() = %d, want 1", pm.TrackedPages(addr))
	}

	if err := pm.SetProtection(addr, 5, true); err != nil {
		t.Fatalf("SetProtection(protect) failed: %v", err)
	}
	if fp.writable[addr] {
		t.Error("expected the page to be restored after matching protect")
	}
	if pm.TrackedPages(addr) != 0 {
		t.Errorf("TrackedPages() = %d after full restore, want 0", pm.TrackedPages(addr))
	}
}

func TestPageManager_OverlappingRefcount(t *testing.T) {
	fp := newFakeProtector(4096)
	pm := newTestPageManager(fp)

	addr := uintptr(4096 * 20)

	if err := pm.SetProtection(addr, 5, false); err != nil {
		t.Fatalf("first unprotect failed: %v", err)
	}
	if err := pm.SetProtection(addr, 5, false); err != nil {
		t.Fatalf("second overlapping unprotect failed: %v", err)
	}
	if pm.TrackedPages(addr) != 2 {
		t.Fatalf("TrackedPages() = %d, want 2 after two overlapping unprotects", pm.TrackedPages(addr))
	}
	if fp.setCalls != 1 {
		t.Errorf("setWritable called %d times, want exactly 1 (second should reuse the tracked entry)", fp.setCalls)
	}

	if err := pm.SetProtection(addr, 5, true); err != nil {
		t.Fatalf("first protect failed: %v", err)
	}
	if !fp.writable[addr] {
		t.Error("the page must remain writable while one overlapping request is still outstanding")
	}
	if pm.TrackedPages(addr) != 1 {
		t.Fatalf("TrackedPages() = %d, want 1", pm.TrackedPages(addr))
	}

	if err := pm.SetProtection(addr, 5, true); err != nil {
		t.Fatalf("second protect failed: %v", err)
	}
	if fp.writable[addr] {
		t.Error("the page should be restored once the last overlapping request completes")
	}
	if fp.restoreCall != 1 {
		t.Errorf("restore called %d times, want exactly 1", fp.restoreCall)
	}
}

func TestPageManager_ProtectWithoutTrackedEntryIsDefensiveNoOp(t *testing.T) {
	fp := newFakeProtector(4096)
	pm := newTestPageManager(fp)

	if err := pm.SetProtection(4096*30, 5, true); err != nil {
		t.Errorf("expected protect-without-unprotect to be a no-op, got error: %v", err)
	}
}

func TestPageManager_SetWritableError(t *testing.T) {
	fp := newFakeProtector(4096)
	fp.setErr = errors.New("mprotect denied")
	pm := newTestPageManager(fp)

	err := pm.SetProtection(4096*40, 5, false)
	if err == nil {
		t.Fatal("expected SetProtection to propagate the protector's error")
	}
	if pm.TrackedPages(4096 * 40) != 0 {
		t.Error("a failed setWritable must not leave a tracked entry behind")
	}
}

func TestPageManager_RestoreError(t *testing.T) {
	fp := newFakeProtector(4096)
	fp.restoreErr = errors.New("VirtualProtect denied")
	pm := newTestPageManager(fp)

	addr := uintptr(4096 * 50)
	if err := pm.SetProtection(addr, 5, false); err != nil {
		t.Fatalf("unprotect failed: %v", err)
	}
	if err := pm.SetProtection(addr, 5, true); err == nil {
		t.Fatal("expected SetProtection to propagate the protector's restore error")
	}
}

func TestPageManager_SpanningMultiplePages(t *testing.T) {
	fp := newFakeProtector(4096)
	pm := newTestPageManager(fp)

	base := uintptr(4096 * 60)
	// size spans from a few bytes before the end of one page into the
	// next, so two distinct pages should be tracked.
	if err := pm.SetProtection(base+4090, 10, false); err != nil {
		t.Fatalf("SetProtection failed: %v", err)
	}
	if pm.TrackedPages(base) != 1 {
		t.Errorf("TrackedPages(first page) = %d, want 1", pm.TrackedPages(base))
	}
	if pm.TrackedPages(base+4096) != 1 {
		t.Errorf("TrackedPages(second page) = %d, want 1", pm.TrackedPages(base+4096))
	}
}

func TestDefaultPageManager_Singleton(t *testing.T) {
	a := DefaultPageManager()
	b := DefaultPageManager()
	if a != b {
		t.Error("DefaultPageManager must return the same instance across calls")
	}
}

func TestPageManager_PageSize(t *testing.T) {
	fp := newFakeProtector(8192)
	pm := newTestPageManager(fp)
	if pm.PageSize() != 8192 {
		t.Errorf("PageSize() = %d, want 8192", pm.PageSize())
	}
}
