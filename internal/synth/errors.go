package synth

import (
	"errors"
	"fmt"
)

// ErrStale is returned when a position no longer exists in the current scene. Callers treat
// it as a no-op: the next snapshot is the truth.
var ErrStale = errors.New("position no longer exists")

// ValidationError rejects a request locally, before anything is sent.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %s: %s", e.Field, e.Value, e.Reason)
}

// SequenceError reports a failed step of a multi-command sequence. Steps before it were
// applied and are left in place; nothing is rolled back.
type SequenceError struct {
	Op        string
	Step      string
	Completed int
	Err       error
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("%s failed at %s after %d step(s): %v", e.Op, e.Step, e.Completed, e.Err)
}

func (e *SequenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a local validation rejection.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}
