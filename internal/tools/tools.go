package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskhive/internal/model"
	"taskhive/internal/recurrence"
	"taskhive/internal/service"
	"taskhive/internal/storage"
)

// Error codes returned inside tool results. Tool failures are data, not
// transport errors: the assistant reads them and talks the user through a
// correction.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeDatabaseError   = "DATABASE_ERROR"
)

const dueDateLayout = "2006-01-02"

// Registry executes the assistant tools against the task and reminder
// services and records every invocation in the tool_calls audit table.
type Registry struct {
	tasks     *service.Tasks
	reminders *service.Reminders
	store     storage.Store
	now       service.Clock
}

func NewRegistry(store storage.Store, now service.Clock) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		tasks:     service.NewTasks(store, now),
		reminders: service.NewReminders(store, now),
		store:     store,
		now:       now,
	}
}

// Execute runs the named tool for the user and returns its result map. The
// result is always usable JSON; failures carry error/code/message fields.
func (r *Registry) Execute(ctx context.Context, userID, name string, params map[string]any) map[string]any {
	var result map[string]any
	switch name {
	case "add_task":
		result = r.addTask(ctx, userID, params)
	case "list_tasks":
		result = r.listTasks(ctx, userID, params)
	case "update_task":
		result = r.updateTask(ctx, userID, params)
	case "complete_task":
		result = r.completeTask(ctx, userID, params)
	case "delete_task":
		result = r.deleteTask(ctx, userID, params)
	case "set_reminder":
		result = r.setReminder(ctx, userID, params)
	default:
		result = errResult(CodeValidationError, "Unknown tool: "+name, "")
	}

	r.audit(ctx, userID, name, params, result)
	return result
}

func (r *Registry) audit(ctx context.Context, userID, name string, params map[string]any, result map[string]any) {
	paramsJSON, _ := json.Marshal(params)
	resultJSON, _ := json.Marshal(result)

	failed, _ := result["error"].(bool)
	call := storage.ToolCall{
		ID:        uuid.NewString(),
		UserID:    userID,
		ToolName:  name,
		Params:    string(paramsJSON),
		Success:   !failed,
		CreatedAt: r.now().UTC(),
	}
	if failed {
		call.ErrorMessage, _ = result["message"].(string)
	} else {
		call.Result = string(resultJSON)
	}
	if err := r.store.RecordToolCall(ctx, call); err != nil {
		log.Printf("[TOOLS] audit write failed for %s: %v", name, err)
	}
}

func (r *Registry) addTask(ctx context.Context, userID string, params map[string]any) map[string]any {
	input := service.TaskInput{
		Title:          stringParam(params, "title"),
		Description:    stringParam(params, "description"),
		Priority:       stringParam(params, "priority"),
		Tags:           stringSliceParam(params, "tags"),
		RecurrenceRule: stringParam(params, "recurrence_rule"),
	}
	if raw := stringParam(params, "due_date"); raw != "" {
		due, err := time.Parse(dueDateLayout, raw)
		if err != nil {
			return errResult(CodeValidationError, "Invalid date format. Use YYYY-MM-DD.", "")
		}
		due = due.UTC()
		input.DueDate = &due
	}

	task, err := r.tasks.Create(ctx, userID, input)
	if err != nil {
		return taskErrResult(err)
	}

	return map[string]any{
		"id":              task.ID,
		"title":           task.Title,
		"description":     task.Description,
		"completed":       task.Completed,
		"priority":        string(task.Priority),
		"tags":            task.Tags,
		"due_date":        dueDateValue(task.DueDate),
		"recurrence_rule": task.RecurrenceRule,
		"created_at":      task.CreatedAt.Format(time.RFC3339),
	}
}

func (r *Registry) listTasks(ctx context.Context, userID string, params map[string]any) map[string]any {
	opts := service.ListOptions{
		Query: stringParam(params, "q"),
		Limit: intParam(params, "limit", service.DefaultListLimit),
	}

	switch stringParam(params, "status") {
	case "pending":
		pending := false
		opts.Completed = &pending
	case "completed":
		done := true
		opts.Completed = &done
	}
	if raw := stringParam(params, "priority"); raw != "" {
		opts.Priority = splitCSV(raw)
	}
	if raw := stringParam(params, "tag"); raw != "" {
		opts.Tags = splitCSV(raw)
	}
	if v, ok := params["overdue"].(bool); ok {
		opts.Overdue = v
	}
	switch stringParam(params, "sort_by") {
	case "priority":
		opts.SortBy = "priority"
		opts.SortOrder = "desc"
	case "due_date":
		opts.SortBy = "due_date"
		opts.SortOrder = "asc"
	default:
		opts.SortBy = "created_at"
		opts.SortOrder = "desc"
	}

	page, err := r.tasks.List(ctx, userID, opts)
	if err != nil {
		return taskErrResult(err)
	}
	pendingCount, completedCount, err := r.tasks.Counts(ctx, userID)
	if err != nil {
		return errResult(CodeDatabaseError, "Failed to retrieve tasks. Please try again.", "")
	}

	now := r.now()
	items := make([]map[string]any, 0, len(page.Tasks))
	for _, t := range page.Tasks {
		items = append(items, map[string]any{
			"id":         t.ID,
			"title":      t.Title,
			"completed":  t.Completed,
			"priority":   string(t.Priority),
			"tags":       t.Tags,
			"due_date":   dueDateValue(t.DueDate),
			"is_overdue": t.Overdue(now),
			"created_at": t.CreatedAt.Format(time.RFC3339),
		})
	}
	return map[string]any{
		"tasks":           items,
		"count":           len(items),
		"pending_count":   pendingCount,
		"completed_count": completedCount,
	}
}

func (r *Registry) updateTask(ctx context.Context, userID string, params map[string]any) map[string]any {
	taskID, res := requireTaskID(params)
	if res != nil {
		return res
	}

	patch := service.TaskPatch{}
	touched := false
	if v, ok := params["title"].(string); ok {
		patch.Title = &v
		touched = true
	}
	if v, ok := params["description"].(string); ok {
		patch.Description = &v
		touched = true
	}
	if v, ok := params["priority"].(string); ok {
		patch.Priority = &v
		touched = true
	}
	if _, ok := params["tags"]; ok {
		tags := stringSliceParam(params, "tags")
		patch.Tags = &tags
		touched = true
	}
	if v, ok := params["due_date"].(string); ok {
		touched = true
		patch.DueDateSet = true
		if v != "" {
			due, err := time.Parse(dueDateLayout, v)
			if err != nil {
				return errResult(CodeValidationError, "Invalid date format. Use YYYY-MM-DD.", "")
			}
			due = due.UTC()
			patch.DueDate = &due
		}
	}
	if !touched {
		return errResult(CodeValidationError,
			"Please specify what to update (title, description, priority, tags, or due_date)", "")
	}

	task, _, err := r.tasks.Patch(ctx, userID, taskID, patch)
	if err != nil {
		return taskErrResult(err)
	}

	return map[string]any{
		"id":          task.ID,
		"title":       task.Title,
		"description": task.Description,
		"completed":   task.Completed,
		"priority":    string(task.Priority),
		"tags":        task.Tags,
		"due_date":    dueDateValue(task.DueDate),
		"updated_at":  task.UpdatedAt.Format(time.RFC3339),
	}
}

func (r *Registry) completeTask(ctx context.Context, userID string, params map[string]any) map[string]any {
	taskID, res := requireTaskID(params)
	if res != nil {
		return res
	}

	completed := true
	if v, ok := params["completed"].(bool); ok {
		completed = v
	}

	current, err := r.tasks.Get(ctx, userID, taskID)
	if err != nil {
		return taskErrResult(err)
	}
	if current.Completed == completed {
		state := "complete"
		if !completed {
			state = "incomplete"
		}
		return errResult(CodeValidationError, "This task is already marked as "+state+".", "")
	}

	task, next, err := r.tasks.Patch(ctx, userID, taskID, service.TaskPatch{Completed: &completed})
	if err != nil {
		return taskErrResult(err)
	}

	result := map[string]any{
		"id":         task.ID,
		"title":      task.Title,
		"completed":  task.Completed,
		"updated_at": task.UpdatedAt.Format(time.RFC3339),
	}
	if next != nil {
		result["next_instance"] = map[string]any{
			"id":       next.ID,
			"title":    next.Title,
			"due_date": dueDateValue(next.DueDate),
		}
	}
	return result
}

func (r *Registry) deleteTask(ctx context.Context, userID string, params map[string]any) map[string]any {
	taskID, res := requireTaskID(params)
	if res != nil {
		return res
	}

	task, err := r.tasks.Get(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errResult(CodeNotFound, "Task not found. It may have already been deleted.", "")
		}
		return taskErrResult(err)
	}
	if err := r.tasks.Delete(ctx, userID, taskID); err != nil {
		return taskErrResult(err)
	}

	return map[string]any{
		"deleted": true,
		"task_id": taskID,
		"title":   task.Title,
	}
}

func (r *Registry) setReminder(ctx context.Context, userID string, params map[string]any) map[string]any {
	taskID, res := requireTaskID(params)
	if res != nil {
		return res
	}

	input := service.ReminderInput{Offset: stringParam(params, "relative_to_due")}
	if raw := stringParam(params, "trigger_at"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return errResult(CodeValidationError,
				"Invalid trigger_at format. Use ISO 8601 (e.g., '2026-03-14T09:00:00Z')", "")
		}
		input.TriggerAt = &at
	}
	if input.TriggerAt == nil && input.Offset == "" {
		return errResult(CodeValidationError,
			"Provide either trigger_at (datetime) or relative_to_due (e.g., '-1d')", "")
	}

	rem, err := r.reminders.Create(ctx, userID, taskID, input)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return errResult(CodeNotFound, "Task not found.", "")
		case errors.Is(err, service.ErrReminderNeedsDueDate):
			return errResult(CodeValidationError, "Task has no due date. Use absolute trigger_at instead.", "")
		case errors.Is(err, service.ErrReminderInPast):
			return errResult(CodeValidationError, "Reminder time must be in the future", "")
		default:
			var verr *service.ValidationError
			if errors.As(err, &verr) {
				return errResult(CodeValidationError, verr.Msg, "")
			}
			return errResult(CodeDatabaseError, "Failed to create reminder.", "")
		}
	}

	return map[string]any{
		"id":         rem.ID,
		"task_id":    rem.TaskID,
		"trigger_at": rem.TriggerAt.Format(time.RFC3339),
		"status":     string(rem.Status),
	}
}

func errResult(code, message, suggestion string) map[string]any {
	result := map[string]any{
		"error":   true,
		"code":    code,
		"message": message,
	}
	if suggestion != "" {
		result["suggestion"] = suggestion
	}
	return result
}

// taskErrResult maps service and model errors to the shared error shape.
func taskErrResult(err error) map[string]any {
	var verr *service.ValidationError
	var rerr *recurrence.ValidationError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return errResult(CodeNotFound, "Task not found. Would you like to see your current tasks?", "list_tasks")
	case errors.As(err, &verr):
		return errResult(CodeValidationError, verr.Msg, "")
	case errors.As(err, &rerr):
		return errResult(CodeValidationError, rerr.Error(), "")
	case errors.Is(err, model.ErrTitleRequired):
		return errResult(CodeValidationError, "Task title is required", "")
	case errors.Is(err, model.ErrTitleTooLong):
		return errResult(CodeValidationError, "Task title must be 500 characters or less", "")
	case errors.Is(err, model.ErrDescTooLong):
		return errResult(CodeValidationError, "Task description must be 5000 characters or less", "")
	case errors.Is(err, model.ErrInvalidPriority):
		return errResult(CodeValidationError, "Invalid priority. Must be one of: high, low, medium, none, urgent", "")
	case errors.Is(err, model.ErrRuleTooLong):
		return errResult(CodeValidationError, "Recurrence rule must be 200 characters or less", "")
	default:
		return errResult(CodeDatabaseError, "Failed to update task. Please try again.", "")
	}
}

func requireTaskID(params map[string]any) (string, map[string]any) {
	taskID := stringParam(params, "task_id")
	if taskID == "" {
		return "", errResult(CodeValidationError, "Task ID is required", "")
	}
	if _, err := uuid.Parse(taskID); err != nil {
		return "", errResult(CodeValidationError, "Invalid task ID format", "")
	}
	return taskID, nil
}

func stringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func stringSliceParam(params map[string]any, key string) []string {
	raw, ok := params[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dueDateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(dueDateLayout)
}
