package recurrence

import (
	"time"

	"github.com/google/uuid"

	"taskhive/internal/model"
)

// Generator materializes the successor of a completed recurring task. It is
// the only piece of the recurrence core that constructs new records; it never
// mutates its inputs and performs no I/O. Persisting (or discarding) the
// returned records is the caller's job, inside whatever transaction wraps the
// completion.
type Generator struct {
	Now NowFunc
}

func NewGenerator(now NowFunc) Generator {
	if now == nil {
		now = time.Now
	}
	return Generator{Now: now}
}

// NextInstance returns the next occurrence of task plus the reminders carried
// forward from it, or (nil, nil, nil) when the task is not recurring or the
// recurrence has ended. Rule parse failures propagate unchanged.
//
// Reminder carry-forward re-derives the offset from every parent reminder
// with a trigger time regardless of status, matching the behavior this
// replaces. A carried reminder is kept only when its recomputed trigger is
// still strictly in the future.
func (g Generator) NextInstance(task model.Task, reminders []model.Reminder) (*model.Task, []model.Reminder, error) {
	if task.RecurrenceRule == "" {
		return nil, nil, nil
	}

	nextDue, err := NextDueDate(task.DueDate, task.RecurrenceRule, g.Now)
	if err != nil {
		return nil, nil, err
	}
	if nextDue == nil {
		return nil, nil, nil
	}

	now := g.Now().UTC()
	groupID := task.RecurrenceGroupID
	if groupID == "" {
		groupID = uuid.NewString()
	}

	next := model.Task{
		ID:                uuid.NewString(),
		UserID:            task.UserID,
		Title:             task.Title,
		Description:       task.Description,
		Completed:         false,
		Priority:          task.Priority,
		Tags:              append([]string(nil), task.Tags...),
		DueDate:           nextDue,
		RecurrenceRule:    task.RecurrenceRule,
		RecurrenceGroupID: groupID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var carried []model.Reminder
	if task.DueDate != nil {
		parentMidnight := DateOnly(*task.DueDate)
		nextMidnight := DateOnly(*nextDue)
		for _, r := range reminders {
			if r.TriggerAt.IsZero() {
				continue
			}
			offset := parentMidnight.Sub(r.TriggerAt.UTC())
			trigger := nextMidnight.Add(-offset)
			if !trigger.After(now) {
				continue
			}
			carried = append(carried, model.Reminder{
				ID:        uuid.NewString(),
				TaskID:    next.ID,
				UserID:    task.UserID,
				TriggerAt: trigger,
				Status:    model.ReminderPending,
				CreatedAt: now,
			})
		}
	}

	return &next, carried, nil
}
