package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhive/internal/model"
	"taskhive/internal/recurrence"
	"taskhive/internal/storage"
)

func newStore(t *testing.T) storage.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "service-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.MigrateUp(db))
	repo, err := storage.NewSQLiteRepository(db)
	require.NoError(t, err)
	return repo
}

func fixedClock(value string) Clock {
	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return at }
}

func dueOn(t *testing.T, value string) *time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	d = d.UTC()
	return &d
}

func TestCreateNormalizesInput(t *testing.T) {
	svc := NewTasks(newStore(t), fixedClock("2025-06-01T12:00:00Z"))
	ctx := context.Background()

	noon := time.Date(2025, time.June, 10, 15, 30, 0, 0, time.UTC)
	task, err := svc.Create(ctx, "user-1", TaskInput{
		Title:    "  Water plants  ",
		Priority: "",
		Tags:     []string{"Home", "home", "GARDEN!!"},
		DueDate:  &noon,
	})
	require.NoError(t, err)

	assert.Equal(t, "Water plants", task.Title)
	assert.Equal(t, model.PriorityNone, task.Priority)
	assert.Equal(t, []string{"home", "home", "garden"}, task.Tags)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC), *task.DueDate)
	assert.Empty(t, task.RecurrenceGroupID)
	assert.False(t, task.Completed)
}

func TestCreateRecurringAssignsGroup(t *testing.T) {
	svc := NewTasks(newStore(t), fixedClock("2025-06-01T12:00:00Z"))

	task, err := svc.Create(context.Background(), "user-1", TaskInput{
		Title:          "Weekly review",
		DueDate:        dueOn(t, "2025-06-06"),
		RecurrenceRule: "FREQ=WEEKLY;BYDAY=FR",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, task.RecurrenceGroupID)
}

func TestCreateRejectsBadRule(t *testing.T) {
	svc := NewTasks(newStore(t), fixedClock("2025-06-01T12:00:00Z"))

	_, err := svc.Create(context.Background(), "user-1", TaskInput{
		Title:          "Broken",
		RecurrenceRule: "FREQ=MONTHLY;BYMONTHDAY=40",
	})
	var verr *recurrence.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "BYMONTHDAY", verr.Field)
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	svc := NewTasks(newStore(t), fixedClock("2025-06-01T12:00:00Z"))

	_, err := svc.Create(context.Background(), "user-1", TaskInput{Title: "   "})
	assert.ErrorIs(t, err, model.ErrTitleRequired)
}

func TestListDefaultsAndValidation(t *testing.T) {
	svc := NewTasks(newStore(t), fixedClock("2025-06-01T12:00:00Z"))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, "user-1", TaskInput{Title: "Task"})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, "user-1", ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, DefaultListLimit, page.Limit)
	assert.Equal(t, 0, page.Offset)

	page, err = svc.List(ctx, "user-1", ListOptions{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, MaxListLimit, page.Limit)

	_, err = svc.List(ctx, "user-1", ListOptions{SortBy: "color"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sort_by", verr.Field)

	_, err = svc.List(ctx, "user-1", ListOptions{Priority: []string{"extreme"}})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "priority", verr.Field)
}

func TestPatchCompletionGeneratesNextOccurrence(t *testing.T) {
	store := newStore(t)
	clock := fixedClock("2025-06-01T12:00:00Z")
	tasks := NewTasks(store, clock)
	reminders := NewReminders(store, clock)
	ctx := context.Background()

	task, err := tasks.Create(ctx, "user-1", TaskInput{
		Title:          "Daily standup notes",
		DueDate:        dueOn(t, "2025-06-10"),
		RecurrenceRule: "FREQ=DAILY",
	})
	require.NoError(t, err)

	trigger := time.Date(2025, time.June, 9, 9, 0, 0, 0, time.UTC)
	rem, err := reminders.Create(ctx, "user-1", task.ID, ReminderInput{TriggerAt: &trigger})
	require.NoError(t, err)

	completed := true
	updated, next, err := tasks.Patch(ctx, "user-1", task.ID, TaskPatch{Completed: &completed})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	require.NotNil(t, next)

	assert.Equal(t, task.Title, next.Title)
	assert.Equal(t, task.RecurrenceGroupID, next.RecurrenceGroupID)
	assert.False(t, next.Completed)
	require.NotNil(t, next.DueDate)
	assert.Equal(t, time.Date(2025, time.June, 11, 0, 0, 0, 0, time.UTC), *next.DueDate)

	// The parent's reminder is cancelled and a copy rides along one day later.
	parentRems, err := reminders.List(ctx, "user-1", task.ID)
	require.NoError(t, err)
	require.Len(t, parentRems, 1)
	assert.Equal(t, model.ReminderCancelled, parentRems[0].Status)
	assert.Equal(t, rem.ID, parentRems[0].ID)

	nextRems, err := reminders.List(ctx, "user-1", next.ID)
	require.NoError(t, err)
	require.Len(t, nextRems, 1)
	assert.Equal(t, model.ReminderPending, nextRems[0].Status)
	assert.Equal(t, time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC), nextRems[0].TriggerAt)
}

func TestPatchCompletionNonRecurring(t *testing.T) {
	store := newStore(t)
	clock := fixedClock("2025-06-01T12:00:00Z")
	tasks := NewTasks(store, clock)
	ctx := context.Background()

	task, err := tasks.Create(ctx, "user-1", TaskInput{Title: "One-off errand"})
	require.NoError(t, err)

	completed := true
	updated, next, err := tasks.Patch(ctx, "user-1", task.ID, TaskPatch{Completed: &completed})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Nil(t, next)

	page, err := tasks.List(ctx, "user-1", ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestUpdateNeverGeneratesNextOccurrence(t *testing.T) {
	store := newStore(t)
	clock := fixedClock("2025-06-01T12:00:00Z")
	tasks := NewTasks(store, clock)
	ctx := context.Background()

	task, err := tasks.Create(ctx, "user-1", TaskInput{
		Title:          "Monthly invoice",
		DueDate:        dueOn(t, "2025-06-15"),
		RecurrenceRule: "FREQ=MONTHLY",
	})
	require.NoError(t, err)

	updated, err := tasks.Update(ctx, "user-1", task.ID, TaskInput{
		Title:          "Monthly invoice",
		DueDate:        dueOn(t, "2025-06-15"),
		RecurrenceRule: "FREQ=MONTHLY",
		Completed:      true,
	})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, task.RecurrenceGroupID, updated.RecurrenceGroupID)

	page, err := tasks.List(ctx, "user-1", ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestCompleteAlreadyCompleted(t *testing.T) {
	store := newStore(t)
	tasks := NewTasks(store, fixedClock("2025-06-01T12:00:00Z"))
	ctx := context.Background()

	task, err := tasks.Create(ctx, "user-1", TaskInput{Title: "Done twice"})
	require.NoError(t, err)

	_, next, err := tasks.Complete(ctx, "user-1", task.ID)
	require.NoError(t, err)
	assert.Nil(t, next)

	_, _, err = tasks.Complete(ctx, "user-1", task.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestPatchClearsDueDate(t *testing.T) {
	tasks := NewTasks(newStore(t), fixedClock("2025-06-01T12:00:00Z"))
	ctx := context.Background()

	task, err := tasks.Create(ctx, "user-1", TaskInput{Title: "Flexible", DueDate: dueOn(t, "2025-06-20")})
	require.NoError(t, err)

	updated, next, err := tasks.Patch(ctx, "user-1", task.ID, TaskPatch{DueDateSet: true})
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Nil(t, updated.DueDate)

	// An untouched patch leaves the rest alone.
	got, err := tasks.Get(ctx, "user-1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flexible", got.Title)
}

func TestUserIsolation(t *testing.T) {
	tasks := NewTasks(newStore(t), fixedClock("2025-06-01T12:00:00Z"))
	ctx := context.Background()

	task, err := tasks.Create(ctx, "user-1", TaskInput{Title: "Private"})
	require.NoError(t, err)

	_, err = tasks.Get(ctx, "user-2", task.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	err = tasks.Delete(ctx, "user-2", task.ID)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestTagsAcrossTasks(t *testing.T) {
	tasks := NewTasks(newStore(t), fixedClock("2025-06-01T12:00:00Z"))
	ctx := context.Background()

	_, err := tasks.Create(ctx, "user-1", TaskInput{Title: "A", Tags: []string{"work", "deep"}})
	require.NoError(t, err)
	_, err = tasks.Create(ctx, "user-1", TaskInput{Title: "B", Tags: []string{"work"}})
	require.NoError(t, err)

	tags, err := tasks.Tags(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"deep", "work"}, tags)
}
