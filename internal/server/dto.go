package server

import (
	"time"

	"taskhive/internal/model"
)

const dueDateLayout = "2006-01-02"

type taskResponse struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Completed         bool      `json:"completed"`
	Priority          string    `json:"priority"`
	Tags              []string  `json:"tags"`
	DueDate           *string   `json:"due_date"`
	IsOverdue         bool      `json:"is_overdue"`
	RecurrenceRule    *string   `json:"recurrence_rule"`
	RecurrenceGroupID *string   `json:"recurrence_group_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type paginatedTaskResponse struct {
	Tasks  []taskResponse `json:"tasks"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type reminderResponse struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	TriggerAt time.Time `json:"trigger_at"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type reminderListResponse struct {
	Reminders []reminderResponse `json:"reminders"`
}

type tagListResponse struct {
	Tags []string `json:"tags"`
}

func toTaskResponse(t model.Task, now time.Time) taskResponse {
	resp := taskResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    string(t.Priority),
		Tags:        t.Tags,
		IsOverdue:   t.Overdue(now),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if t.DueDate != nil {
		due := t.DueDate.UTC().Format(dueDateLayout)
		resp.DueDate = &due
	}
	if t.RecurrenceRule != "" {
		rule := t.RecurrenceRule
		resp.RecurrenceRule = &rule
	}
	if t.RecurrenceGroupID != "" {
		group := t.RecurrenceGroupID
		resp.RecurrenceGroupID = &group
	}
	return resp
}

func toReminderResponse(r model.Reminder) reminderResponse {
	return reminderResponse{
		ID:        r.ID,
		TaskID:    r.TaskID,
		UserID:    r.UserID,
		TriggerAt: r.TriggerAt,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}
