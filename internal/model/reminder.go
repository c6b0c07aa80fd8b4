package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidReminderStatus = errors.New("model: invalid reminder status")

type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderTriggered ReminderStatus = "triggered"
	ReminderCancelled ReminderStatus = "cancelled"
)

func (s ReminderStatus) IsValid() bool {
	switch s {
	case ReminderPending, ReminderTriggered, ReminderCancelled:
		return true
	default:
		return false
	}
}

// Reminder is a scheduled notification attached to a task.
// Lifecycle: pending -> triggered | cancelled.
type Reminder struct {
	ID        string
	TaskID    string
	UserID    string
	TriggerAt time.Time
	Status    ReminderStatus
	CreatedAt time.Time
}

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("model: reminder id is required")
	}
	if strings.TrimSpace(r.TaskID) == "" {
		return errors.New("model: reminder task_id is required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("model: reminder user_id is required")
	}
	if r.TriggerAt.IsZero() {
		return errors.New("model: reminder trigger_at is required")
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidReminderStatus, r.Status)
	}
	return nil
}
