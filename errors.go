// errors.go: structured error taxonomy for corerun.
//
// This file provides structured error types using the go-errors library,
// matching the five error kinds of the design: programming errors (debug
// assertions, best-effort in release), resource errors (returned fail
// codes, no partial state left), lookup misses (not errors — callers get
// a distinguished not-found value instead), lifecycle errors, and
// timeouts.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package corerun

import (
	goerrors "errors"
	"fmt"

	"github.com/agilira/go-errors"
)

// Error codes for corerun runtime operations.
const (
	// Programming errors — debug-assert in development, best-effort
	// continue in release builds.
	ErrCodeNegativeLockCount errors.ErrorCode = "CORERUN_NEGATIVE_LOCK_COUNT"
	ErrCodeWrongThreadUnlock errors.ErrorCode = "CORERUN_WRONG_THREAD_UNLOCK"
	ErrCodeAcquireDestructing errors.ErrorCode = "CORERUN_ACQUIRE_DESTRUCTING"
	ErrCodeDuplicateLibraryLoad errors.ErrorCode = "CORERUN_DUPLICATE_LIBRARY_LOAD"
	ErrCodeCapabilityNotSupported errors.ErrorCode = "CORERUN_CAPABILITY_NOT_SUPPORTED"

	// Resource errors — returned to caller as a fail code, no
	// partial state is left behind.
	ErrCodeProtectFailed      errors.ErrorCode = "CORERUN_PROTECT_FAILED"
	ErrCodeHookAlreadyInstalled errors.ErrorCode = "CORERUN_HOOK_ALREADY_INSTALLED"
	ErrCodeHookDuplicatePatch errors.ErrorCode = "CORERUN_HOOK_DUPLICATE_PATCH"
	ErrCodeDisplacementTooLarge errors.ErrorCode = "CORERUN_DISPLACEMENT_TOO_LARGE"
	ErrCodeUnsupportedArch    errors.ErrorCode = "CORERUN_UNSUPPORTED_ARCH"
	ErrCodeHookNotInstalled   errors.ErrorCode = "CORERUN_HOOK_NOT_INSTALLED"

	// Lifecycle errors — caller typically aborts.
	ErrCodeSingletonAfterExit errors.ErrorCode = "CORERUN_SINGLETON_AFTER_EXIT"
	ErrCodeABIMismatch        errors.ErrorCode = "CORERUN_ABI_MISMATCH"
	ErrCodeAlreadyConstructed errors.ErrorCode = "CORERUN_ALREADY_CONSTRUCTED"

	// Timeout — the only case that returns a distinguished inert
	// value (an unowned scoped guard) rather than an error; the code
	// below exists for callers that want to test explicitly for it.
	ErrCodeLockTimeout errors.ErrorCode = "CORERUN_LOCK_TIMEOUT"

	// Internal
	ErrCodeInternalError errors.ErrorCode = "CORERUN_INTERNAL_ERROR"
)

// Common error messages.
const (
	msgNegativeLockCount     = "lock count decremented below zero"
	msgWrongThreadUnlock     = "unlock called from a thread that does not own the lock"
	msgAcquireDestructing    = "acquire called on an object that is destructing"
	msgDuplicateLibraryLoad  = "a second copy of this library is already loaded in this process"
	msgCapabilityNotSupported = "requested capability is not supported by this object"
	msgProtectFailed         = "OS memory-protection call failed"
	msgHookAlreadyInstalled  = "hook is already installed on this function"
	msgHookDuplicatePatch    = "the requested patch is byte-identical to an already-installed patch"
	msgDisplacementTooLarge  = "relative displacement does not fit in a signed 32-bit integer"
	msgUnsupportedArch       = "code-hook engine is only available on x86/x64"
	msgHookNotInstalled      = "hook is not currently installed"
	msgSingletonAfterExit    = "application state accessed after the Exit phase"
	msgABIMismatch           = "ABI probe environment variable does not match this library instance"
	msgAlreadyConstructed    = "application state singleton already constructed"
	msgLockTimeout           = "timed out waiting to acquire lock"
	msgInternalError         = "internal corerun error"
)

// =============================================================================
// PROGRAMMING ERRORS
// =============================================================================

// NewErrNegativeLockCount reports an attempted decrement of a Lockable's
// count below zero. In a release build callers may choose to log and
// clamp rather than propagate this.
func NewErrNegativeLockCount(current int32) error {
	return errors.NewWithContext(ErrCodeNegativeLockCount, msgNegativeLockCount, map[string]interface{}{
		"current_count": current,
	})
}

// NewErrWrongThreadUnlock reports unlock() called by a thread other than
// the recorded owner.
func NewErrWrongThreadUnlock(owner, caller uint64) error {
	return errors.NewWithContext(ErrCodeWrongThreadUnlock, msgWrongThreadUnlock, map[string]interface{}{
		"owner_thread":  owner,
		"caller_thread": caller,
	})
}

// NewErrAcquireDestructing reports acquire() called on an object whose
// refcount already reached the destructing state.
func NewErrAcquireDestructing(kind string) error {
	return errors.NewWithField(ErrCodeAcquireDestructing, msgAcquireDestructing, "kind", kind)
}

// NewErrDuplicateLibraryLoad reports the DLL-hell condition: the ABI
// probe environment variable was already populated when this copy of
// the library constructed its singleton.
func NewErrDuplicateLibraryLoad(existing string) error {
	return errors.NewWithField(ErrCodeDuplicateLibraryLoad, msgDuplicateLibraryLoad, "existing_address", existing).
		WithSeverity("critical")
}

// NewErrCapabilityNotSupported reports that QueryCapability found no
// matching capability on the target object.
func NewErrCapabilityNotSupported(id string) error {
	return errors.NewWithField(ErrCodeCapabilityNotSupported, msgCapabilityNotSupported, "capability", id)
}

// =============================================================================
// RESOURCE ERRORS
// =============================================================================

// NewErrProtectFailed wraps an OS protection-change failure (kernel
// memory, guard pages, etc). The page table entry is left untouched.
func NewErrProtectFailed(addr uintptr, cause error) error {
	return errors.Wrap(cause, ErrCodeProtectFailed, msgProtectFailed).
		WithContext("address", fmt.Sprintf("0x%x", addr))
}

// NewErrHookAlreadyInstalled reports installHook called twice on the same entry.
func NewErrHookAlreadyInstalled(target uintptr) error {
	return errors.NewWithField(ErrCodeHookAlreadyInstalled, msgHookAlreadyInstalled, "target", fmt.Sprintf("0x%x", target))
}

// NewErrHookDuplicatePatch reports that the computed patch bytes already
// match the target's prologue bytes (someone else installed the same hook).
func NewErrHookDuplicatePatch(target uintptr) error {
	return errors.NewWithField(ErrCodeHookDuplicatePatch, msgHookDuplicatePatch, "target", fmt.Sprintf("0x%x", target))
}

// NewErrDisplacementTooLarge reports a relative JMP displacement that
// overflows int32 on 64-bit targets.
func NewErrDisplacementTooLarge(disp int64) error {
	return errors.NewWithField(ErrCodeDisplacementTooLarge, msgDisplacementTooLarge, "displacement", disp)
}

// NewErrUnsupportedArch reports that the hook engine was invoked on a
// non-x86/x64 build.
func NewErrUnsupportedArch(arch string) error {
	return errors.NewWithField(ErrCodeUnsupportedArch, msgUnsupportedArch, "arch", arch)
}

// NewErrHookNotInstalled reports RemoveHook called on an entry that is
// not currently installed.
func NewErrHookNotInstalled(target uintptr) error {
	return errors.NewWithField(ErrCodeHookNotInstalled, msgHookNotInstalled, "target", fmt.Sprintf("0x%x", target))
}

// =============================================================================
// LIFECYCLE ERRORS
// =============================================================================

// NewErrSingletonAfterExit reports AppState access after the Exit phase.
func NewErrSingletonAfterExit(query string) error {
	return errors.NewWithField(ErrCodeSingletonAfterExit, msgSingletonAfterExit, "query", query)
}

// NewErrABIMismatch reports the ABI probe mismatch: two copies of the
// library linked into one process disagree about the singleton address.
func NewErrABIMismatch(want, got string) error {
	return errors.NewWithContext(ErrCodeABIMismatch, msgABIMismatch, map[string]interface{}{
		"expected": want,
		"observed": got,
	}).WithSeverity("critical")
}

// NewErrAlreadyConstructed reports a second attempt to construct the
// process-wide AppState singleton.
func NewErrAlreadyConstructed() error {
	return errors.New(ErrCodeAlreadyConstructed, msgAlreadyConstructed)
}

// =============================================================================
// TIMEOUT
// =============================================================================

// NewErrLockTimeout reports a try_lock deadline exceeded.
func NewErrLockTimeout(timeoutMs int64) error {
	return errors.NewWithField(ErrCodeLockTimeout, msgLockTimeout, "timeout_ms", timeoutMs).AsRetryable()
}

// =============================================================================
// INTERNAL
// =============================================================================

// NewErrInternal creates a generic internal error.
func NewErrInternal(operation string, cause error) error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeInternalError, msgInternalError).
			WithContext("operation", operation).
			WithSeverity("warning")
	}
	return errors.NewWithField(ErrCodeInternalError, msgInternalError, "operation", operation).
		WithSeverity("warning")
}

// =============================================================================
// ERROR CHECKING HELPERS
// =============================================================================

// IsTimeout reports whether err is a lock-timeout error.
func IsTimeout(err error) bool {
	return errors.HasCode(err, ErrCodeLockTimeout)
}

// IsABIMismatch reports whether err is an ABI-probe mismatch error.
func IsABIMismatch(err error) bool {
	return errors.HasCode(err, ErrCodeABIMismatch)
}

// IsRetryable reports whether the error can be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// GetErrorContext extracts context from an error.
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var coreErr *errors.Error
	if goerrors.As(err, &coreErr) {
		return coreErr.Context
	}
	return nil
}
