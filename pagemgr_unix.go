// pagemgr_unix.go: Linux/BSD page protection via golang.org/x/sys/unix.
//
// Grounded on original_source/src/CMemPage.cpp's __linux__ branch
// (::mprotect with PROT_READ|PROT_WRITE|PROT_EXEC), wired through
// golang.org/x/sys/unix the way calvinalkan-agent-task and
// joeycumines-go-utilpkg reach for unix syscalls in this corpus.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build unix

package corerun

import "golang.org/x/sys/unix"

type unixPageProtector struct {
	sz uintptr
}

func newOSProtector() pageProtector {
	return &unixPageProtector{sz: uintptr(unix.Getpagesize())}
}

func (p *unixPageProtector) pageSize() uintptr {
	return p.sz
}

// setWritable makes the page read/write/execute. mprotect has no query
// mode on Linux, so there's no cheap way to recover the exact previous
// flags; restore always re-applies read+execute, matching the one
// protection level corerun's hook engine ever needs a patched page to
// have. The saved value is unused on this platform (kept as a sentinel
// 0 to satisfy the pageProtector interface shared with Windows, where
// VirtualProtect does return the previous flags).
func (p *unixPageProtector) setWritable(addr, size uintptr) (uint32, error) {
	if err := unix.Mprotect(memSlice(addr, int(size)), unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		return 0, err
	}
	return 0, nil
}

func (p *unixPageProtector) restore(addr, size uintptr, _ uint32) error {
	return unix.Mprotect(memSlice(addr, int(size)), unix.PROT_READ|unix.PROT_EXEC)
}
