package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyCompleted = errors.New("trade already completed")
	ErrSchedulerStopped = errors.New("scheduler stopped")
)

// ValidationError reports a malformed trade request. Handlers surface it as a
// client error rather than a server failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
