package storage

import "time"

type Task struct {
	ID                string
	UserID            string
	Title             string
	Description       string
	Completed         bool
	Priority          string
	Tags              []string
	DueDate           *time.Time
	RecurrenceRule    string
	RecurrenceGroupID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Reminder struct {
	ID        string
	TaskID    string
	UserID    string
	TriggerAt time.Time
	Status    string
	CreatedAt time.Time
}

// ToolCall is an audit row for one assistant tool invocation.
type ToolCall struct {
	ID           string
	UserID       string
	ToolName     string
	Params       string // JSON
	Result       string // JSON, empty on failure
	Success      bool
	ErrorMessage string
	CreatedAt    time.Time
}

type TaskListFilter struct {
	UserID     string
	Query      string // substring match on title and description
	Completed  *bool
	Priorities []string
	Tags       []string // AND containment
	Overdue    bool
	Today      time.Time // reference date for Overdue
	DueBefore  *time.Time
	DueAfter   *time.Time
	SortBy     string // created_at | updated_at | title | due_date | priority
	SortOrder  string // asc | desc
	Limit      int
	Offset     int
}

type ReminderListFilter struct {
	UserID    string
	TaskID    string
	Status    string
	DueBefore *time.Time // trigger_at at or before this instant
	Limit     int
	Offset    int
}

type ToolCallListFilter struct {
	UserID string
	Limit  int
	Offset int
}
