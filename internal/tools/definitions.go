package tools

// Definition describes one tool in MCP form: a name, a human description for
// the model, and a JSON Schema for the arguments.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func Definitions() []Definition {
	return []Definition{
		{
			Name:        "add_task",
			Description: "Creates a new task for the user's todo list. Supports priority, tags, due dates, and recurrence.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{
						"type":        "string",
						"description": "Task title (required, 1-500 characters)",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "Task description (optional, max 5000 characters)",
					},
					"priority": map[string]any{
						"type":        "string",
						"enum":        []string{"none", "low", "medium", "high", "urgent"},
						"description": "Task priority level",
					},
					"tags": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Task tags/labels (e.g., ['work', 'meeting'])",
					},
					"due_date": map[string]any{
						"type":        "string",
						"description": "Due date in YYYY-MM-DD format",
					},
					"recurrence_rule": map[string]any{
						"type":        "string",
						"description": "Recurrence rule (e.g., 'FREQ=DAILY', 'FREQ=WEEKLY;BYDAY=MO')",
					},
				},
				"required": []string{"title"},
			},
		},
		{
			Name:        "list_tasks",
			Description: "Lists user's tasks with optional filtering, searching, and sorting",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"status": map[string]any{
						"type":        "string",
						"enum":        []string{"all", "pending", "completed"},
						"description": "Filter by completion status",
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of tasks to return (default 50, max 100)",
					},
					"q": map[string]any{
						"type":        "string",
						"description": "Keyword search across title and description",
					},
					"priority": map[string]any{
						"type":        "string",
						"description": "Filter by priority (comma-separated, e.g., 'high,urgent')",
					},
					"tag": map[string]any{
						"type":        "string",
						"description": "Filter by tag (comma-separated, e.g., 'work,meeting')",
					},
					"sort_by": map[string]any{
						"type":        "string",
						"enum":        []string{"created_at", "priority", "due_date"},
						"description": "Sort field",
					},
					"overdue": map[string]any{
						"type":        "boolean",
						"description": "Show only overdue tasks (incomplete + past due date)",
					},
				},
			},
		},
		{
			Name:        "update_task",
			Description: "Updates a task's title, description, priority, tags, or due date",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task_id": map[string]any{
						"type":        "string",
						"description": "ID of the task to update",
					},
					"title": map[string]any{
						"type":        "string",
						"description": "New task title (optional)",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "New task description (optional)",
					},
					"priority": map[string]any{
						"type":        "string",
						"enum":        []string{"none", "low", "medium", "high", "urgent"},
						"description": "New priority level",
					},
					"tags": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "New tags (replaces existing)",
					},
					"due_date": map[string]any{
						"type":        "string",
						"description": "New due date in YYYY-MM-DD format (or empty to remove)",
					},
				},
				"required": []string{"task_id"},
			},
		},
		{
			Name:        "complete_task",
			Description: "Marks a task as completed. For recurring tasks, also generates the next instance.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task_id": map[string]any{
						"type":        "string",
						"description": "ID of the task to complete",
					},
					"completed": map[string]any{
						"type":        "boolean",
						"description": "Completion status (true to complete, false to uncomplete)",
					},
				},
				"required": []string{"task_id"},
			},
		},
		{
			Name:        "delete_task",
			Description: "Permanently deletes a task from the user's list",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task_id": map[string]any{
						"type":        "string",
						"description": "ID of the task to delete",
					},
				},
				"required": []string{"task_id"},
			},
		},
		{
			Name:        "set_reminder",
			Description: "Creates a reminder for a task. Provide either an absolute time or relative offset from due date.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task_id": map[string]any{
						"type":        "string",
						"description": "ID of the task to set reminder for",
					},
					"trigger_at": map[string]any{
						"type":        "string",
						"description": "Absolute trigger time in ISO format (e.g., '2026-03-14T09:00:00Z')",
					},
					"relative_to_due": map[string]any{
						"type":        "string",
						"description": "Relative offset from due date (e.g., '-1d' for 1 day before, '-2h' for 2 hours before)",
					},
				},
				"required": []string{"task_id"},
			},
		},
	}
}
