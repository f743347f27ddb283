// Package errs defines the typed error taxonomy shared by every core
// package, each member carrying a stable process exit code.
package errs

import (
	"errors"
	"fmt"
)

// Exit codes, stable across releases.
const (
	ExitOK                 = 0
	ExitUsage              = 2
	ExitGeneric            = 10
	ExitUnsupportedVersion = 11
	ExitMissingResource    = 12
	ExitHashMismatch       = 13
)

// Error is the base of the taxonomy: a message plus the exit code a CLI
// should use when this error escapes to the top.
type Error struct {
	ExitCode int
	Msg      string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

// UsageError reports a bad argument, a malformed spec, or an operation
// refused because the input doesn't satisfy a mode's precondition (e.g.
// non-UTF-8 input in text-only single-container mode).
type UsageError struct{ Base *Error }

func NewUsageError(msg string, cause error) *UsageError {
	return &UsageError{&Error{ExitCode: ExitUsage, Msg: msg, Cause: cause}}
}

func (e *UsageError) Error() string { return e.Base.Error() }
func (e *UsageError) Unwrap() error { return e.Base.Cause }

// CorruptPayload reports a structural violation: bad magic, a truncated
// varint, an out-of-bounds length, an unknown codec code, a post-decode
// length mismatch, or a JSONL parse failure.
type CorruptPayload struct{ Base *Error }

func NewCorruptPayload(msg string, cause error) *CorruptPayload {
	return &CorruptPayload{&Error{ExitCode: ExitGeneric, Msg: msg, Cause: cause}}
}

func (e *CorruptPayload) Error() string { return e.Base.Error() }
func (e *CorruptPayload) Unwrap() error { return e.Base.Cause }

// BadMagic is a CorruptPayload specialization for the common "wrong
// magic bytes" case, kept distinct so callers can match on it without
// string-matching the message.
type BadMagic struct{ Base *CorruptPayload }

func NewBadMagic(msg string) *BadMagic {
	return &BadMagic{NewCorruptPayload(msg, nil)}
}

func (e *BadMagic) Error() string { return e.Base.Error() }
func (e *BadMagic) Unwrap() error { return e.Base.Base.Cause }

// UnsupportedVersion reports a container version outside 1..6, or a v6
// flags byte with reserved bits set.
type UnsupportedVersion struct{ Base *Error }

func NewUnsupportedVersion(msg string, cause error) *UnsupportedVersion {
	return &UnsupportedVersion{&Error{ExitCode: ExitUnsupportedVersion, Msg: msg, Cause: cause}}
}

func (e *UnsupportedVersion) Error() string { return e.Base.Error() }
func (e *UnsupportedVersion) Unwrap() error { return e.Base.Cause }

// MissingResource reports a bucket-level resource referenced by a
// pipeline or plan but absent from the archive.
type MissingResource struct{ Base *Error }

func NewMissingResource(msg string, cause error) *MissingResource {
	return &MissingResource{&Error{ExitCode: ExitMissingResource, Msg: msg, Cause: cause}}
}

func (e *MissingResource) Error() string { return e.Base.Error() }
func (e *MissingResource) Unwrap() error { return e.Base.Cause }

// HashMismatch reports an integrity failure: index CRC, index body
// SHA-256, blob SHA-256/CRC32, or a decode failure surfaced as tamper
// evidence during full-mode verify.
type HashMismatch struct{ Base *Error }

func NewHashMismatch(msg string, cause error) *HashMismatch {
	return &HashMismatch{&Error{ExitCode: ExitHashMismatch, Msg: msg, Cause: cause}}
}

func (e *HashMismatch) Error() string { return e.Base.Error() }
func (e *HashMismatch) Unwrap() error { return e.Base.Cause }

// ExitCodeOf extracts the stable exit code from any error produced by
// this package or wrapping one (the Unwrap chain is followed to the
// first taxonomy member), defaulting to ExitGeneric for anything else
// and ExitOK for nil.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	if e, ok := err.(*Error); ok {
		return e.ExitCode
	}
	switch e := err.(type) {
	case *UsageError:
		return e.Base.ExitCode
	case *CorruptPayload:
		return e.Base.ExitCode
	case *BadMagic:
		return e.Base.Base.ExitCode
	case *UnsupportedVersion:
		return e.Base.ExitCode
	case *MissingResource:
		return e.Base.ExitCode
	case *HashMismatch:
		return e.Base.ExitCode
	}
	if next := errors.Unwrap(err); next != nil {
		return ExitCodeOf(next)
	}
	return ExitGeneric
}

// Severity orders the taxonomy members from most to least severe, used
// by verify when aggregating multiple failures found on one artifact.
func Severity(err error) int {
	switch err.(type) {
	case *UsageError:
		return 5
	case *CorruptPayload, *BadMagic:
		return 4
	case *UnsupportedVersion:
		return 3
	case *MissingResource:
		return 2
	case *HashMismatch:
		return 1
	default:
		return 0
	}
}

// MostSevere returns the most severe of a batch of verify failures, nil
// if the batch is empty. Ties keep the first occurrence.
func MostSevere(errs []error) error {
	var winner error
	best := -1
	for _, e := range errs {
		if e == nil {
			continue
		}
		if s := Severity(e); s > best {
			best, winner = s, e
		}
	}
	return winner
}
