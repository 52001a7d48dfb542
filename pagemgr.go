// pagemgr.go: memory-page protection manager (C6.1).
//
// Grounded on original_source/include/cMemPage.h's cMemPageMgr: a
// process-wide table of tracked pages keyed by page-aligned start
// address, with a secondary refcount so overlapping "unprotect" requests
// from independent hook installations don't undo each other early.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

import "sync"

// pageProtector is the thin OS abstraction for querying the page size
// and changing memory protection on a page. Exactly one implementation
// is compiled in per target OS.
type pageProtector interface {
	pageSize() uintptr
	// setWritable changes the page at addr (size bytes, page-aligned)
	// to read/write/execute and returns whatever the OS needs to
	// restore the original protection later.
	setWritable(addr, size uintptr) (saved uint32, err error)
	// restore re-applies the protection saved by setWritable.
	restore(addr, size uintptr, saved uint32) error
}

// MemoryPage tracks one OS page's protection override: a page-aligned
// range, its saved original protection, and a secondary refcount of
// outstanding unprotect requests.
type MemoryPage struct {
	start    uintptr
	size     uintptr
	oldProt  uint32
	refCount int32
}

// Start returns the page-aligned start address.
func (p *MemoryPage) Start() uintptr { return p.start }

// Size returns the OS page size this entry covers.
func (p *MemoryPage) Size() uintptr { return p.size }

// RefCount returns the number of outstanding unprotect requests
// currently holding this page writable.
func (p *MemoryPage) RefCount() int32 { return p.refCount }

// PageManager is the process-wide page-protection singleton. Construct
// one with NewPageManager, or use DefaultPageManager for the
// process-wide instance the hook engine uses when none is supplied
// explicitly.
type PageManager struct {
	lock  ThreadLockable
	pages map[uintptr]*MemoryPage
	prot  pageProtector
	cfg   Config
}

// NewPageManager constructs a page manager with its own table. Most
// callers want DefaultPageManager instead; a dedicated instance is
// useful in tests that want isolation from other hook installations.
func NewPageManager(cfg Config) *PageManager {
	_ = cfg.Validate()
	m := &PageManager{
		pages: make(map[uintptr]*MemoryPage),
		prot:  newOSProtector(),
		cfg:   cfg,
	}
	m.lock.SetConfig(&m.cfg, "pagemgr")
	return m
}

var (
	defaultPageManagerOnce sync.Once
	defaultPageManager     *PageManager
)

// DefaultPageManager returns the process-wide PageManager that
// HookEntry uses unless given one explicitly.
func DefaultPageManager() *PageManager {
	defaultPageManagerOnce.Do(func() {
		defaultPageManager = NewPageManager(DefaultConfig())
	})
	return defaultPageManager
}

// PageSize returns the OS page size this manager's pages are aligned
// to.
func (m *PageManager) PageSize() uintptr {
	return m.prot.pageSize()
}

// TrackedPages returns the refcount of the page tracking addr, or 0 if
// addr's page isn't currently tracked. Exposed for tests asserting the
// overlapping-refcount discipline.
func (m *PageManager) TrackedPages(addr uintptr) int32 {
	guard := m.lock.Lock()
	defer guard.Unlock()
	pageSize := m.prot.pageSize()
	start := addr - addr%pageSize
	if p, ok := m.pages[start]; ok {
		return p.RefCount()
	}
	return 0
}

// SetProtection adjusts protection for every OS page overlapping
// [addr, addr+size): either increments/allocates a writable tracking
// entry (protect == false) or decrements/restores one (protect == true).
func (m *PageManager) SetProtection(addr, size uintptr, protect bool) error {
	guard := m.lock.Lock()
	defer guard.Unlock()

	pageSize := m.prot.pageSize()
	start := addr - addr%pageSize
	end := addr + size

	for p := start; p < end; p += pageSize {
		page, tracked := m.pages[p]
		if protect {
			if !tracked {
				// A hook may have been torn down out of order; this is
				// defensive, not an error.
				m.cfg.Logger.Warn("pagemgr: protect=true with no tracked entry", "addr", p)
				continue
			}
			page.refCount--
			if page.refCount <= 0 {
				if err := m.prot.restore(p, pageSize, page.oldProt); err != nil {
					page.refCount++
					return NewErrProtectFailed(p, err)
				}
				delete(m.pages, p)
			}
		} else {
			if tracked {
				page.refCount++
				continue
			}
			oldProt, err := m.prot.setWritable(p, pageSize)
			if err != nil {
				return NewErrProtectFailed(p, err)
			}
			m.pages[p] = &MemoryPage{start: p, size: pageSize, oldProt: oldProt, refCount: 1}
		}
	}
	return nil
}
