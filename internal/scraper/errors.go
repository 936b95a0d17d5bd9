package scraper

import (
	"errors"
	"fmt"
)

var (
	ErrPollTimeout = errors.New("search job poll timeout")
	ErrBadStatus   = errors.New("unexpected status code")
)

// ValidationError marks a candidate as unparsable rather than transiently
// failed; it is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid candidate: field=%s reason=%s", e.Field, e.Reason)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RetryError wraps the last error after exhausting retry attempts,
// annotated with the operation and target for log correlation.
type RetryError struct {
	Operation string
	Target    string
	Attempts  int
	Last      error
}

func (e *RetryError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s failed after %d attempts (target=%s): %v", e.Operation, e.Attempts, e.Target, e.Last)
}

func (e *RetryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Last
}
