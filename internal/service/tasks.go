package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskhive/internal/model"
	"taskhive/internal/recurrence"
	"taskhive/internal/storage"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Clock supplies the current time. Injected so task and reminder logic
// stays deterministic under test.
type Clock func() time.Time

// Tasks implements the task operations on top of a Store. Completion of a
// recurring task runs in a single transaction: the update, the cancellation
// of its pending reminders, and the creation of the next occurrence all
// commit or roll back together.
type Tasks struct {
	store storage.Store
	now   Clock
	gen   recurrence.Generator
}

func NewTasks(store storage.Store, now Clock) *Tasks {
	if now == nil {
		now = time.Now
	}
	return &Tasks{
		store: store,
		now:   now,
		gen:   recurrence.NewGenerator(recurrence.NowFunc(now)),
	}
}

type TaskInput struct {
	Title          string
	Description    string
	Priority       string
	Tags           []string
	DueDate        *time.Time
	RecurrenceRule string
	Completed      bool // ignored by Create
}

// TaskPatch is a partial update. Nil fields are left untouched; DueDateSet
// distinguishes "clear the due date" from "leave it alone".
type TaskPatch struct {
	Title          *string
	Description    *string
	Priority       *string
	Tags           *[]string
	DueDate        *time.Time
	DueDateSet     bool
	RecurrenceRule *string
	Completed      *bool
}

type ListOptions struct {
	Query     string
	Completed *bool
	Priority  []string
	Tags      []string
	Overdue   bool
	DueBefore *time.Time
	DueAfter  *time.Time
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

type TaskPage struct {
	Tasks  []model.Task
	Total  int
	Limit  int
	Offset int
}

func (s *Tasks) Create(ctx context.Context, userID string, in TaskInput) (model.Task, error) {
	now := s.now().UTC()
	task := model.Task{
		ID:             uuid.NewString(),
		UserID:         userID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Priority:       priorityOrDefault(in.Priority),
		Tags:           model.NormalizeTags(in.Tags),
		DueDate:        normalizeDue(in.DueDate),
		RecurrenceRule: strings.TrimSpace(in.RecurrenceRule),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if task.RecurrenceRule != "" {
		if _, err := recurrence.Parse(task.RecurrenceRule); err != nil {
			return model.Task{}, err
		}
		task.RecurrenceGroupID = uuid.NewString()
	}
	if err := task.Validate(); err != nil {
		return model.Task{}, err
	}
	if err := s.store.CreateTask(ctx, toStorageTask(task)); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func (s *Tasks) Get(ctx context.Context, userID, id string) (model.Task, error) {
	row, err := s.store.GetTask(ctx, userID, id)
	if err != nil {
		return model.Task{}, err
	}
	return fromStorageTask(row), nil
}

func (s *Tasks) List(ctx context.Context, userID string, opts ListOptions) (TaskPage, error) {
	filter, err := s.listFilter(userID, opts)
	if err != nil {
		return TaskPage{}, err
	}

	rows, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return TaskPage{}, err
	}
	total, err := s.store.CountTasks(ctx, filter)
	if err != nil {
		return TaskPage{}, err
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, fromStorageTask(row))
	}
	return TaskPage{Tasks: tasks, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *Tasks) listFilter(userID string, opts ListOptions) (storage.TaskListFilter, error) {
	switch opts.SortBy {
	case "", "created_at", "updated_at", "title", "due_date", "priority":
	default:
		return storage.TaskListFilter{}, invalidf("sort_by", "unsupported value %q", opts.SortBy)
	}
	switch opts.SortOrder {
	case "", "asc", "desc":
	default:
		return storage.TaskListFilter{}, invalidf("sort_order", "must be asc or desc")
	}
	for _, p := range opts.Priority {
		if !model.Priority(p).IsValid() {
			return storage.TaskListFilter{}, invalidf("priority", "unknown value %q", p)
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	filter := storage.TaskListFilter{
		UserID:     userID,
		Query:      strings.TrimSpace(opts.Query),
		Completed:  opts.Completed,
		Priorities: opts.Priority,
		Tags:       model.NormalizeTags(opts.Tags),
		Overdue:    opts.Overdue,
		DueBefore:  normalizeDue(opts.DueBefore),
		DueAfter:   normalizeDue(opts.DueAfter),
		SortBy:     opts.SortBy,
		SortOrder:  opts.SortOrder,
		Limit:      limit,
		Offset:     offset,
	}
	if opts.Overdue {
		filter.Today = recurrence.DateOnly(s.now())
	}
	return filter, nil
}

// Update is a full replacement. Unlike Patch it never cancels reminders or
// generates a next occurrence, even when it flips Completed.
func (s *Tasks) Update(ctx context.Context, userID, id string, in TaskInput) (model.Task, error) {
	row, err := s.store.GetTask(ctx, userID, id)
	if err != nil {
		return model.Task{}, err
	}
	current := fromStorageTask(row)

	task := model.Task{
		ID:                current.ID,
		UserID:            current.UserID,
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		Completed:         in.Completed,
		Priority:          priorityOrDefault(in.Priority),
		Tags:              model.NormalizeTags(in.Tags),
		DueDate:           normalizeDue(in.DueDate),
		RecurrenceRule:    strings.TrimSpace(in.RecurrenceRule),
		RecurrenceGroupID: current.RecurrenceGroupID,
		CreatedAt:         current.CreatedAt,
		UpdatedAt:         s.now().UTC(),
	}
	if task.RecurrenceRule != "" {
		if _, err := recurrence.Parse(task.RecurrenceRule); err != nil {
			return model.Task{}, err
		}
		if task.RecurrenceGroupID == "" {
			task.RecurrenceGroupID = uuid.NewString()
		}
	}
	if err := task.Validate(); err != nil {
		return model.Task{}, err
	}
	if err := s.store.UpdateTask(ctx, toStorageTask(task)); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// Patch applies a partial update. Transitioning Completed from false to true
// additionally cancels the task's pending reminders and, for recurring
// tasks, creates the next occurrence; the returned second task is that next
// occurrence, nil otherwise.
func (s *Tasks) Patch(ctx context.Context, userID, id string, patch TaskPatch) (model.Task, *model.Task, error) {
	row, err := s.store.GetTask(ctx, userID, id)
	if err != nil {
		return model.Task{}, nil, err
	}
	task := fromStorageTask(row)
	wasCompleted := task.Completed

	if patch.Title != nil {
		task.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Priority != nil {
		task.Priority = priorityOrDefault(*patch.Priority)
	}
	if patch.Tags != nil {
		task.Tags = model.NormalizeTags(*patch.Tags)
	}
	if patch.DueDateSet {
		task.DueDate = normalizeDue(patch.DueDate)
	}
	if patch.RecurrenceRule != nil {
		task.RecurrenceRule = strings.TrimSpace(*patch.RecurrenceRule)
		if task.RecurrenceRule != "" && task.RecurrenceGroupID == "" {
			task.RecurrenceGroupID = uuid.NewString()
		}
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	if task.RecurrenceRule != "" {
		if _, err := recurrence.Parse(task.RecurrenceRule); err != nil {
			return model.Task{}, nil, err
		}
	}
	task.UpdatedAt = s.now().UTC()
	if err := task.Validate(); err != nil {
		return model.Task{}, nil, err
	}

	completing := !wasCompleted && task.Completed
	if !completing {
		if err := s.store.UpdateTask(ctx, toStorageTask(task)); err != nil {
			return model.Task{}, nil, err
		}
		return task, nil, nil
	}

	var next *model.Task
	err = s.store.InTx(ctx, func(tx storage.Repository) error {
		if err := tx.UpdateTask(ctx, toStorageTask(task)); err != nil {
			return err
		}

		rows, err := tx.ListReminders(ctx, storage.ReminderListFilter{UserID: userID, TaskID: id})
		if err != nil {
			return err
		}
		reminders := make([]model.Reminder, 0, len(rows))
		for _, row := range rows {
			rem := fromStorageReminder(row)
			reminders = append(reminders, rem)
			if rem.Status == model.ReminderPending {
				rem.Status = model.ReminderCancelled
				if err := tx.UpdateReminder(ctx, toStorageReminder(rem)); err != nil {
					return err
				}
			}
		}

		n, carried, err := s.gen.NextInstance(task, reminders)
		if err != nil {
			return err
		}
		if n == nil {
			return nil
		}
		if err := tx.CreateTask(ctx, toStorageTask(*n)); err != nil {
			return err
		}
		for _, rem := range carried {
			if err := tx.CreateReminder(ctx, toStorageReminder(rem)); err != nil {
				return err
			}
		}
		next = n
		return nil
	})
	if err != nil {
		return model.Task{}, nil, err
	}
	return task, next, nil
}

// Complete marks the task done, with an explicit error when it already is.
// The assistant tools use this instead of Patch so they can tell the caller
// that nothing changed.
func (s *Tasks) Complete(ctx context.Context, userID, id string) (model.Task, *model.Task, error) {
	row, err := s.store.GetTask(ctx, userID, id)
	if err != nil {
		return model.Task{}, nil, err
	}
	if row.Completed {
		return model.Task{}, nil, ErrAlreadyCompleted
	}
	completed := true
	return s.Patch(ctx, userID, id, TaskPatch{Completed: &completed})
}

func (s *Tasks) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteTask(ctx, userID, id)
}

// Counts reports the user's pending and completed task totals.
func (s *Tasks) Counts(ctx context.Context, userID string) (pending, completed int, err error) {
	f := false
	pending, err = s.store.CountTasks(ctx, storage.TaskListFilter{UserID: userID, Completed: &f})
	if err != nil {
		return 0, 0, err
	}
	done := true
	completed, err = s.store.CountTasks(ctx, storage.TaskListFilter{UserID: userID, Completed: &done})
	if err != nil {
		return 0, 0, err
	}
	return pending, completed, nil
}

func (s *Tasks) Tags(ctx context.Context, userID string) ([]string, error) {
	return s.store.ListDistinctTags(ctx, userID)
}

func priorityOrDefault(p string) model.Priority {
	if p == "" {
		return model.PriorityNone
	}
	return model.Priority(strings.ToLower(p))
}

func normalizeDue(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := recurrence.DateOnly(*t)
	return &d
}
