package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidPriority = errors.New("model: invalid task priority")
	ErrTitleRequired   = errors.New("model: task title is required")
	ErrTitleTooLong    = errors.New("model: task title exceeds 500 characters")
	ErrDescTooLong     = errors.New("model: task description exceeds 5000 characters")
	ErrRuleTooLong     = errors.New("model: recurrence rule exceeds 200 characters")
)

const (
	TitleMaxLen       = 500
	DescriptionMaxLen = 5000
	RuleMaxLen        = 200
)

type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Rank gives the sort ordinal used for priority ordering: urgent first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Priorities lists all valid values, for validation messages.
func Priorities() []Priority {
	return []Priority{PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

// Task is one occurrence of a to-do item, scoped to its owning user.
// Recurring occurrences descending from the same original task share a
// RecurrenceGroupID. DueDate carries no time component; it is stored as
// midnight UTC.
type Task struct {
	ID                string
	UserID            string
	Title             string
	Description       string
	Completed         bool
	Priority          Priority
	Tags              []string
	DueDate           *time.Time
	RecurrenceRule    string
	RecurrenceGroupID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.UserID) == "" {
		return errors.New("model: task user_id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrTitleRequired
	}
	if len(t.Title) > TitleMaxLen {
		return ErrTitleTooLong
	}
	if len(t.Description) > DescriptionMaxLen {
		return ErrDescTooLong
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if len(t.RecurrenceRule) > RuleMaxLen {
		return ErrRuleTooLong
	}
	if t.CreatedAt.IsZero() {
		return errors.New("model: task created_at is required")
	}
	if t.UpdatedAt.IsZero() {
		return errors.New("model: task updated_at is required")
	}
	return nil
}

// Overdue reports whether the task's due date has passed as of today,
// ignoring completed tasks. today is compared on date only.
func (t Task) Overdue(today time.Time) bool {
	if t.DueDate == nil || t.Completed {
		return false
	}
	y, m, d := today.UTC().Date()
	return t.DueDate.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
