package monitor

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no entry exists for the requested id.
var ErrNotFound = errors.New("entry not found")

// ValidationError reports a rejected entry spec. The message is surfaced
// verbatim to the API caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
