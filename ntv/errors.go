package ntv

import (
	"errors"
	"fmt"
)

// Every mutating operation fails closed: on any of these, state is left
// untouched. Read queries never return errors; they degrade to
// zero/none/default values instead.
var (
	// ErrNotAuthorized means the caller lacks the role the operation requires.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInvalidState means the operation was attempted outside its
	// required lifecycle phase.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidArgument means a malformed input: bad timestamp, empty or
	// oversized text, non-positive amount.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCapacityExceeded means the registry is at its slot limit.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	ErrAlreadyStarted = errors.New("already started")
	ErrAlreadyEnded   = errors.New("auction already ended")
	ErrAlreadySet     = errors.New("already set")
)

// Refinements callers can match directly; both also satisfy errors.Is
// against their parent kind.
var (
	// ErrBidTooLow rejects a bid that does not strictly exceed the current
	// maximum (or the opening value for the first bid).
	ErrBidTooLow = fmt.Errorf("insufficient bid: %w", ErrInvalidArgument)

	// ErrWindowClosed rejects an operation issued outside its time window.
	ErrWindowClosed = fmt.Errorf("window closed: %w", ErrInvalidState)
)
