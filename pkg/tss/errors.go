package tss

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every error this module can return, matching the
// taxonomy the session engine and external ABI surface commit to never
// exceeding (see spec §7).
type ErrorKind int

const (
	// ErrKindGeneral is the catch-all for failures that do not fit any
	// other kind.
	ErrKindGeneral ErrorKind = iota
	// ErrKindInvalidArgument covers malformed input, wrong length, an
	// unknown enum value, n < t, an empty sign message, or a key blob
	// with a bad magic/version.
	ErrKindInvalidArgument
	// ErrKindUnsupported covers a curve or scheme not yet implemented
	// (ed25519, ecdsa-tn, schnorr-2p).
	ErrKindUnsupported
	// ErrKindProtocolState covers finalize-before-done, setting the sign
	// message twice, and sign_finalize on a non-device party. A repeated
	// finalize is not reported under this kind: a Driver returns its
	// result again, and a second abi.DkgFinalize reports InvalidArgument
	// because the first one freed the handle.
	ErrKindProtocolState
	// ErrKindCrypto covers AEAD tag mismatch, ZK proof failure, an
	// invalid point, or a signature self-test failure.
	ErrKindCrypto
	// ErrKindRng covers an injected RNG callback returning non-zero.
	ErrKindRng
	// ErrKindIo covers the underlying transport/network error category.
	ErrKindIo
	// ErrKindPolicy is reserved.
	ErrKindPolicy
	// ErrKindMemory covers allocation failure.
	ErrKindMemory
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindGeneral:
		return "General"
	case ErrKindInvalidArgument:
		return "InvalidArgument"
	case ErrKindUnsupported:
		return "Unsupported"
	case ErrKindProtocolState:
		return "ProtocolState"
	case ErrKindCrypto:
		return "Crypto"
	case ErrKindRng:
		return "Rng"
	case ErrKindIo:
		return "Io"
	case ErrKindPolicy:
		return "Policy"
	case ErrKindMemory:
		return "Memory"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned across every package boundary
// in this module. Host applications are free to translate it into their
// own taxonomy; errors.As/errors.Is both work against it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs an *Error tagging op with kind, wrapping err.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// ErrorString returns a human-readable name for an ErrorKind, matching the
// external ABI's error_string entry point.
func ErrorString(kind ErrorKind) string { return kind.String() }

// KindOf extracts the ErrorKind from err, defaulting to ErrKindGeneral for
// any error not produced by this module.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindGeneral
}
