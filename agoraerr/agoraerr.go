// Package agoraerr is the shared error taxonomy named in the error
// handling design: a closed set of typed sentinel kinds so callers can
// errors.Is/errors.As on a stable identity instead of matching strings.
package agoraerr

import "errors"

// Kind is one of the closed set of error categories produced across the
// relay, relay client, and reputation ledger.
type Kind string

const (
	MalformedFrame       Kind = "malformed_frame"
	InvalidEnvelope      Kind = "invalid_envelope"
	SenderMismatch       Kind = "sender_mismatch"
	RecipientUnreachable Kind = "recipient_unreachable"
	NotRegistered        Kind = "not_registered"
	StorageFailure       Kind = "storage_failure"
	RelayUnavailable     Kind = "relay_unavailable"
	ConnectionLost       Kind = "connection_lost"
	InvalidRecord        Kind = "invalid_record"
	RevealMismatch       Kind = "reveal_mismatch"
)

// Error wraps an underlying cause with a stable Kind.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, agoraerr.New(kind, nil)) comparisons by Kind
// alone, ignoring Cause.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// New wraps cause (which may be nil) under kind.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// Sentinel returns an *Error of kind with no cause, suitable as an
// errors.Is comparison target.
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}

// As reports whether err (or something it wraps) is an *Error, and returns
// it.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
