package service

import (
	"taskhive/internal/model"
	"taskhive/internal/storage"
)

func toStorageTask(t model.Task) storage.Task {
	return storage.Task{
		ID:                t.ID,
		UserID:            t.UserID,
		Title:             t.Title,
		Description:       t.Description,
		Completed:         t.Completed,
		Priority:          string(t.Priority),
		Tags:              t.Tags,
		DueDate:           t.DueDate,
		RecurrenceRule:    t.RecurrenceRule,
		RecurrenceGroupID: t.RecurrenceGroupID,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func fromStorageTask(t storage.Task) model.Task {
	return model.Task{
		ID:                t.ID,
		UserID:            t.UserID,
		Title:             t.Title,
		Description:       t.Description,
		Completed:         t.Completed,
		Priority:          model.Priority(t.Priority),
		Tags:              t.Tags,
		DueDate:           t.DueDate,
		RecurrenceRule:    t.RecurrenceRule,
		RecurrenceGroupID: t.RecurrenceGroupID,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func toStorageReminder(r model.Reminder) storage.Reminder {
	return storage.Reminder{
		ID:        r.ID,
		TaskID:    r.TaskID,
		UserID:    r.UserID,
		TriggerAt: r.TriggerAt,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

func fromStorageReminder(r storage.Reminder) model.Reminder {
	return model.Reminder{
		ID:        r.ID,
		TaskID:    r.TaskID,
		UserID:    r.UserID,
		TriggerAt: r.TriggerAt,
		Status:    model.ReminderStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
}
