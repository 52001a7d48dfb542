// corerun.go: package identity and build-wide constants for corerun.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun

const (
	// Version of the corerun runtime library.
	Version = "v0.1.0-dev"

	// abiSignature is the build-time signature embedded in AppState's
	// DLL-hell probe. It changes whenever the on-disk layout of AppState
	// changes in a way that would make two copies of this library
	// disagree about its size.
	abiSignature = int32(1)

	// envVarName is the fixed ASCII environment variable name used for
	// the cross-module ABI probe. This name, and the hex encoding of the
	// value stored in it, are an observable ABI and must remain stable
	// across versions that interoperate.
	envVarName = "CORERUN_APPSTATE_CORE"
)
