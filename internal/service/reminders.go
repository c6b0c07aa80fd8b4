package service

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"taskhive/internal/model"
	"taskhive/internal/recurrence"
	"taskhive/internal/storage"
)

// Reminders anchored to a due date without an explicit time of day fire at
// 09:00 UTC.
const defaultReminderHourUTC = 9

var reminderOffsetPattern = regexp.MustCompile(`^-(\d+)([dh])$`)

type Reminders struct {
	store storage.Store
	now   Clock
}

func NewReminders(store storage.Store, now Clock) *Reminders {
	if now == nil {
		now = time.Now
	}
	return &Reminders{store: store, now: now}
}

// ReminderInput sets the trigger either absolutely or as an offset such as
// "-3d" or "-2h" counted back from the task's due date at 09:00 UTC.
type ReminderInput struct {
	TriggerAt *time.Time
	Offset    string
}

func (s *Reminders) Create(ctx context.Context, userID, taskID string, in ReminderInput) (model.Reminder, error) {
	task, err := s.store.GetTask(ctx, userID, taskID)
	if err != nil {
		return model.Reminder{}, err
	}

	if in.TriggerAt != nil && in.Offset != "" {
		return model.Reminder{}, invalidf("relative_to_due", "provide only one of trigger_at or relative_to_due")
	}

	now := s.now().UTC()
	var trigger time.Time
	switch {
	case in.TriggerAt != nil:
		trigger = in.TriggerAt.UTC()
	case in.Offset != "":
		if task.DueDate == nil {
			return model.Reminder{}, ErrReminderNeedsDueDate
		}
		offset, err := parseReminderOffset(in.Offset)
		if err != nil {
			return model.Reminder{}, err
		}
		base := recurrence.DateOnly(*task.DueDate).Add(defaultReminderHourUTC * time.Hour)
		trigger = base.Add(-offset)
	default:
		return model.Reminder{}, invalidf("trigger_at", "either trigger_at or offset is required")
	}
	if !trigger.After(now) {
		return model.Reminder{}, ErrReminderInPast
	}

	rem := model.Reminder{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		UserID:    userID,
		TriggerAt: trigger,
		Status:    model.ReminderPending,
		CreatedAt: now,
	}
	if err := rem.Validate(); err != nil {
		return model.Reminder{}, err
	}
	if err := s.store.CreateReminder(ctx, toStorageReminder(rem)); err != nil {
		return model.Reminder{}, err
	}
	return rem, nil
}

func (s *Reminders) List(ctx context.Context, userID, taskID string) ([]model.Reminder, error) {
	if _, err := s.store.GetTask(ctx, userID, taskID); err != nil {
		return nil, err
	}
	rows, err := s.store.ListReminders(ctx, storage.ReminderListFilter{UserID: userID, TaskID: taskID})
	if err != nil {
		return nil, err
	}
	out := make([]model.Reminder, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromStorageReminder(row))
	}
	return out, nil
}

func (s *Reminders) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteReminder(ctx, userID, id)
}

// DuePending lists pending reminders across all users that trigger at or
// before the given instant. The delivery pump uses it to refill the
// scheduler queue.
func (s *Reminders) DuePending(ctx context.Context, before time.Time, limit int) ([]model.Reminder, error) {
	rows, err := s.store.ListReminders(ctx, storage.ReminderListFilter{
		Status:    string(model.ReminderPending),
		DueBefore: &before,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Reminder, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromStorageReminder(row))
	}
	return out, nil
}

// MarkTriggered flips a reminder from pending to triggered. It reports false
// without error when the reminder was already triggered or cancelled in the
// meantime, so a stale scheduler event is a no-op.
func (s *Reminders) MarkTriggered(ctx context.Context, userID, id string) (bool, error) {
	var fired bool
	err := s.store.InTx(ctx, func(tx storage.Repository) error {
		row, err := tx.GetReminder(ctx, userID, id)
		if err != nil {
			return err
		}
		if row.Status != string(model.ReminderPending) {
			return nil
		}
		row.Status = string(model.ReminderTriggered)
		if err := tx.UpdateReminder(ctx, row); err != nil {
			return err
		}
		fired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return fired, nil
}

func parseReminderOffset(s string) (time.Duration, error) {
	m := reminderOffsetPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, invalidf("offset", "must look like -3d or -2h")
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, invalidf("offset", "must look like -3d or -2h")
	}
	if m[2] == "d" {
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.Duration(n) * time.Hour, nil
}
