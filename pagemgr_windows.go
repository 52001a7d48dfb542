// pagemgr_windows.go: Windows page protection via
// golang.org/x/sys/windows.
//
// Grounded on original_source/src/CMemPage.cpp's _WIN32 branch
// (::VirtualProtect, saving and restoring the exact previous protection
// flags), wired through golang.org/x/sys/windows the way
// calvinalkan-agent-task splits POSIX/Windows behavior behind GOOS-
// tagged files.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build windows

package corerun

import "golang.org/x/sys/windows"

type windowsPageProtector struct {
	sz uintptr
}

func newOSProtector() pageProtector {
	var info windows.SystemInfo
	windows.GetSystemInfo(&info)
	return &windowsPageProtector{sz: uintptr(info.PageSize)}
}

func (p *windowsPageProtector) pageSize() uintptr {
	return p.sz
}

func (p *windowsPageProtector) setWritable(addr, size uintptr) (uint32, error) {
	var old uint32
	if err := windows.VirtualProtect(addr, size, windows.PAGE_EXECUTE_READWRITE, &old); err != nil {
		return 0, err
	}
	return old, nil
}

func (p *windowsPageProtector) restore(addr, size uintptr, saved uint32) error {
	var old uint32
	return windows.VirtualProtect(addr, size, saved, &old)
}
