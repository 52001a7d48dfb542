// pagemgr_other.go: fallback page protector for targets that are
// neither unix-like nor Windows. This primarily targets Windows/Linux;
// this file keeps other GOOS values compiling rather than failing the
// build, at the cost of SetProtection always failing.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build !unix && !windows

package corerun

import "runtime"

type unsupportedPageProtector struct{}

func newOSProtector() pageProtector {
	return unsupportedPageProtector{}
}

func (unsupportedPageProtector) pageSize() uintptr {
	return 4096
}

func (unsupportedPageProtector) setWritable(addr, _ uintptr) (uint32, error) {
	return 0, NewErrUnsupportedArch(runtime.GOOS)
}

func (unsupportedPageProtector) restore(addr, _ uintptr, _ uint32) error {
	return NewErrUnsupportedArch(runtime.GOOS)
}
