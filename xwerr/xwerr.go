// Package xwerr defines the error kinds the rest of the module wraps
// its failures in, so callers (mainly the UI status channel and the
// rig's restart logic) can dispatch on what happened without parsing
// strings.
package xwerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the recovery policy it implies.
type Kind int

const (
	// Device covers a recoverable audio back-end failure (xrun,
	// stream death): the caller should restart the stream.
	Device Kind = iota
	// Import covers a non-fatal track import failure: the track stays
	// playable with whatever was imported so far.
	Import
	// Config covers a fatal startup configuration problem.
	Config
	// Controller covers a misbehaving input controller: disable it,
	// notify, keep every other deck running.
	Controller
	// Invariant covers a programmer error / broken invariant: abort.
	Invariant
)

func (k Kind) String() string {
	switch k {
	case Device:
		return "device"
	case Import:
		return "import"
	case Config:
		return "config"
	case Controller:
		return "controller"
	case Invariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Error is a Kind-tagged error, wrapping an optional underlying cause.
type Error struct {
	Kind   Kind
	Op     string // operation that failed, e.g. "device.Start"
	Source string // the named resource involved, e.g. a deck or path
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Source, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error of kind for op against source, wrapping err.
func New(kind Kind, op, source string, err error) *Error {
	return &Error{Kind: kind, Op: op, Source: source, Err: err}
}

// Is reports whether err (or anything it wraps) is an *Error of kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
