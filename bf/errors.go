package bf

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"
)

// List of failure kinds for ErrorKind
const (
	UnmatchedLoopStart = ErrorKind(iota)
	UnmatchedLoopEnd
	OutOfBounds
	Timeout
)

var strError = []string{
	"unmatched loop start",
	"unmatched loop end",
	"tape access out of bounds",
	"execution budget exceeded",
}

// ErrorKind describes the reason an execution failed. The kinds are
// themselves errors, so errors.Is(err, bf.Timeout) works on any *Error.
type ErrorKind int

func (k ErrorKind) Error() string {
	if int(k) < 0 || int(k) >= len(strError) {
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
	return strError[k]
}

// category maps a kind onto the errdefs class callers dispatch on. errdefs
// recognises deadlines through context.DeadlineExceeded.
func (k ErrorKind) category() error {
	switch k {
	case UnmatchedLoopStart, UnmatchedLoopEnd:
		return errdefs.ErrInvalidArgument
	case OutOfBounds:
		return errdefs.ErrOutOfRange
	case Timeout:
		return context.DeadlineExceeded
	default:
		return errdefs.ErrUnknown
	}
}

// Error describes the cause and the context of a failed execution.
type Error struct {
	Kind   ErrorKind // nature of the failure
	PC     int       // program index of the offending command
	Cursor int       // tape cursor, for OutOfBounds
	Steps  uint64    // steps executed before the failure, for Timeout
	Err    error     // underlying cause, e.g. the context error
}

func (e *Error) Error() string {
	msg := "bf: " + e.Kind.Error()
	switch e.Kind {
	case OutOfBounds:
		msg += fmt.Sprintf(" (cursor %d)", e.Cursor)
	case Timeout:
		msg += fmt.Sprintf(" after %d steps", e.Steps)
	}
	msg += fmt.Sprintf(" at %d", e.PC)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.category(), e.Err}
	}
	return []error{e.Kind.category()}
}
