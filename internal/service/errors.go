package service

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyCompleted     = errors.New("service: task already completed")
	ErrReminderInPast       = errors.New("service: reminder time must be in the future")
	ErrReminderNeedsDueDate = errors.New("service: relative reminder requires the task to have a due date")
)

// ValidationError reports a rejected input field. The HTTP and tool layers
// map it to their respective client-error shapes.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("service: invalid %s: %s", e.Field, e.Msg)
}

func invalidf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
