// example_test.go: godoc examples for corerun.
//
// These examples appear in the generated documentation on pkg.go.dev
// and are executed as part of the test suite to ensure they remain valid.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package corerun_test

import (
	"fmt"

	"github.com/agilira/corerun"
)

// ExampleThreadLockable demonstrates basic re-entrant locking.
func ExampleThreadLockable() {
	var lock corerun.ThreadLockable

	guard := lock.Lock()
	fmt.Println("locked:", lock.IsLockedByCurrent())
	guard.Unlock()

	fmt.Println("locked:", lock.IsLockedByCurrent())
	// Output:
	// locked: true
	// locked: false
}

// ExampleAtomManager_FindOrCreate demonstrates interning a string and
// looking it up again by name.
func ExampleAtomManager_FindOrCreate() {
	mgr := corerun.NewAtomManager(corerun.DefaultConfig())

	a := mgr.FindOrCreate("Alpha")
	defer a.Release()

	b := mgr.Find("alpha") // case-insensitive
	defer b.Release()

	fmt.Println(a.Equal(b))
	fmt.Println(a.Name())
	// Output:
	// true
	// Alpha
}

// ExampleCommandLine_FindArg demonstrates the findArg/enumArg query
// surface over a POSIX-style argv.
func ExampleCommandLine_FindArg() {
	cl := corerun.NewCommandLineFromArgv([]string{"/bin/foo", "--bar"})

	idx, ok := cl.FindArg("--bar", false, true)
	fmt.Println(idx, ok)

	arg, ok := cl.EnumArg(0)
	fmt.Println(arg, ok)
	// Output:
	// 1 true
	// /bin/foo true
}

// ExampleMakeSymName demonstrates producing an identifier-safe name
// from arbitrary input, with and without allowing a leading dot.
func ExampleMakeSymName() {
	fmt.Printf("%q\n", corerun.MakeSymName(".user.name", false))
	fmt.Printf("%q\n", corerun.MakeSymName(".user.name", true))
	// Output:
	// ""
	// ".user.name"
}
