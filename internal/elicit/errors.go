package elicit

import (
	"errors"
	"fmt"
)

// Edit errors. These leave the state unchanged.
var (
	ErrNotANumber      = errors.New("input is not a number")
	ErrUnknownCategory = errors.New("unknown category")
	ErrRevealDisabled  = errors.New("reveal toggling is disabled for this widget")
	ErrClosed          = errors.New("widget is closed")
)

// Submission errors, matched with errors.Is against a *ValidationError
var (
	ErrIncomplete      = errors.New("incomplete")
	ErrOutOfRange      = errors.New("out of range")
	ErrSumMismatch     = errors.New("sum mismatch")
	ErrTooManyRevealed = errors.New("too many revealed")
	ErrBelowFloor      = errors.New("below reveal limit")
)

// Kind classifies a submission failure
type Kind int

const (
	KindIncomplete Kind = iota + 1
	KindRange
	KindSumMismatch
	KindTooManyRevealed
	KindBelowFloor
)

func (k Kind) String() string {
	switch k {
	case KindIncomplete:
		return "incomplete"
	case KindRange:
		return "range"
	case KindSumMismatch:
		return "sum_mismatch"
	case KindTooManyRevealed:
		return "too_many_revealed"
	case KindBelowFloor:
		return "below_floor"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindIncomplete:
		return ErrIncomplete
	case KindRange:
		return ErrOutOfRange
	case KindSumMismatch:
		return ErrSumMismatch
	case KindTooManyRevealed:
		return ErrTooManyRevealed
	case KindBelowFloor:
		return ErrBelowFloor
	default:
		return nil
	}
}

// ValidationError is a participant-correctable submission failure.
// Message is the inline text shown in the widget.
type ValidationError struct {
	Kind    Kind
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches the sentinel for the error's kind
func (e *ValidationError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// Warning reports whether the failure is the one-time, non-blocking reveal warning
func (e *ValidationError) Warning() bool {
	return e.Kind == KindBelowFloor
}

func validationError(kind Kind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
