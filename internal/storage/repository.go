package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: not found")

// Repository is the persistence surface. Task and reminder reads and writes
// are scoped to a user id so isolation is enforced at the lowest layer.
type Repository interface {
	CreateTask(ctx context.Context, in Task) error
	GetTask(ctx context.Context, userID, id string) (Task, error)
	UpdateTask(ctx context.Context, in Task) error
	DeleteTask(ctx context.Context, userID, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error)
	CountTasks(ctx context.Context, filter TaskListFilter) (int, error)
	ListDistinctTags(ctx context.Context, userID string) ([]string, error)

	CreateReminder(ctx context.Context, in Reminder) error
	GetReminder(ctx context.Context, userID, id string) (Reminder, error)
	UpdateReminder(ctx context.Context, in Reminder) error
	DeleteReminder(ctx context.Context, userID, id string) error
	ListReminders(ctx context.Context, filter ReminderListFilter) ([]Reminder, error)

	RecordToolCall(ctx context.Context, in ToolCall) error
	ListToolCalls(ctx context.Context, filter ToolCallListFilter) ([]ToolCall, error)
}

// Store adds transaction support. The repository passed to fn sees
// uncommitted writes; returning an error rolls everything back.
type Store interface {
	Repository
	InTx(ctx context.Context, fn func(Repository) error) error
}
