// unsafemem.go: raw memory access shared by the hook engine and the
// page-protection manager (C6). Isolated in its own file because every
// line here is a clearly-unsafe boundary: callers must guarantee the
// addressed memory is valid and not concurrently executing.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

import "unsafe"

// memSlice views n bytes starting at addr as a byte slice, without
// copying. The caller is responsible for addr+n being valid, mapped
// memory for the duration of any access through the returned slice.
func memSlice(addr uintptr, n int) []byte {
	if n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n) //nolint:govet // intentional raw memory access, see file doc
}

// readMemory copies n bytes starting at addr into a freshly allocated
// slice.
func readMemory(addr uintptr, n int) []byte {
	buf := make([]byte, n)
	copy(buf, memSlice(addr, n))
	return buf
}

// writeMemory copies data into memory starting at addr. The caller must
// have already made that range writable.
func writeMemory(addr uintptr, data []byte) {
	copy(memSlice(addr, len(data)), data)
}

// ptrAt views the uintptr-sized slot starting at addr as a pointer, for
// resolving the absolute-addressing chainable JMP forms (FF 25, 48 FF
// 25) chainTarget recognizes.
func ptrAt(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr) //nolint:govet // intentional raw memory access, see file doc
}
