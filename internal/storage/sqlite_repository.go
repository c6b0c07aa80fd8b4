package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteTimeLayout = time.RFC3339Nano
	sqliteDateLayout = "2006-01-02"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB
	q  dbtx
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db, q: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// InTx runs fn against a transaction-backed repository. Nested calls reuse
// the enclosing transaction.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	if _, nested := r.q.(*sql.Tx); nested {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&SQLiteRepository{db: r.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in Task) error {
	tags, err := marshalTags(in.Tags)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, description, completed, priority, tags, due_date, recurrence_rule, recurrence_group_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.Title, in.Description, boolInt(in.Completed), in.Priority, tags,
		nullDate(in.DueDate), in.RecurrenceRule, in.RecurrenceGroupID, mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetTask(ctx context.Context, userID, id string) (Task, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, completed, priority, tags, due_date, recurrence_rule, recurrence_group_id, created_at, updated_at
		FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in Task) error {
	tags, err := marshalTags(in.Tags)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, completed = ?, priority = ?, tags = ?, due_date = ?, recurrence_rule = ?, recurrence_group_id = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		in.Title, in.Description, boolInt(in.Completed), in.Priority, tags,
		nullDate(in.DueDate), in.RecurrenceRule, in.RecurrenceGroupID, mustTime(in.UpdatedAt),
		in.ID, in.UserID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, userID, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func taskFilterClauses(filter TaskListFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{filter.UserID}

	if filter.Query != "" {
		clauses = append(clauses, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + filter.Query + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Completed != nil {
		clauses = append(clauses, "completed = ?")
		args = append(args, boolInt(*filter.Completed))
	}
	if len(filter.Priorities) > 0 {
		placeholders := strings.Repeat("?,", len(filter.Priorities))
		clauses = append(clauses, "priority IN ("+placeholders[:len(placeholders)-1]+")")
		for _, p := range filter.Priorities {
			args = append(args, p)
		}
	}
	for _, tag := range filter.Tags {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM json_each(tasks.tags) WHERE json_each.value = ?)")
		args = append(args, tag)
	}
	if filter.Overdue {
		clauses = append(clauses, "completed = 0", "due_date IS NOT NULL", "due_date < ?")
		args = append(args, filter.Today.UTC().Format(sqliteDateLayout))
	}
	if filter.DueBefore != nil {
		clauses = append(clauses, "due_date IS NOT NULL", "due_date <= ?")
		args = append(args, filter.DueBefore.UTC().Format(sqliteDateLayout))
	}
	if filter.DueAfter != nil {
		clauses = append(clauses, "due_date IS NOT NULL", "due_date >= ?")
		args = append(args, filter.DueAfter.UTC().Format(sqliteDateLayout))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

const priorityRankSQL = `CASE priority
	WHEN 'urgent' THEN 4
	WHEN 'high' THEN 3
	WHEN 'medium' THEN 2
	WHEN 'low' THEN 1
	ELSE 0 END`

func taskOrderClause(sortBy, sortOrder string) string {
	dir := "DESC"
	if sortOrder == "asc" {
		dir = "ASC"
	}
	switch sortBy {
	case "priority":
		return " ORDER BY " + priorityRankSQL + " " + dir + ", created_at DESC"
	case "due_date":
		// Ascending puts undated tasks last, descending puts them first.
		if dir == "ASC" {
			return " ORDER BY due_date IS NULL ASC, due_date ASC"
		}
		return " ORDER BY due_date IS NULL DESC, due_date DESC"
	case "title":
		return " ORDER BY title " + dir
	case "updated_at":
		return " ORDER BY updated_at " + dir
	default:
		return " ORDER BY created_at " + dir
	}
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error) {
	where, args := taskFilterClauses(filter)
	query := `SELECT id, user_id, title, description, completed, priority, tags, due_date, recurrence_rule, recurrence_group_id, created_at, updated_at FROM tasks` +
		where + taskOrderClause(filter.SortBy, filter.SortOrder) + applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountTasks(ctx context.Context, filter TaskListFilter) (int, error) {
	where, args := taskFilterClauses(filter)
	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *SQLiteRepository) ListDistinctTags(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT DISTINCT value FROM tasks, json_each(tasks.tags)
		WHERE user_id = ? ORDER BY value`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateReminder(ctx context.Context, in Reminder) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO reminders (id, task_id, user_id, trigger_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.TaskID, in.UserID, mustTime(in.TriggerAt), in.Status, mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetReminder(ctx context.Context, userID, id string) (Reminder, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, task_id, user_id, trigger_at, status, created_at
		FROM reminders WHERE id = ? AND user_id = ?`, id, userID)
	item, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reminder{}, ErrNotFound
		}
		return Reminder{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpdateReminder(ctx context.Context, in Reminder) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE reminders SET trigger_at = ?, status = ? WHERE id = ? AND user_id = ?`,
		mustTime(in.TriggerAt), in.Status, in.ID, in.UserID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteReminder(ctx context.Context, userID, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM reminders WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListReminders(ctx context.Context, filter ReminderListFilter) ([]Reminder, error) {
	query := `SELECT id, task_id, user_id, trigger_at, status, created_at FROM reminders`
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 6)
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.TaskID != "" {
		clauses = append(clauses, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.DueBefore != nil {
		clauses = append(clauses, "trigger_at <= ?")
		args = append(args, mustTime(*filter.DueBefore))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY trigger_at ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Reminder, 0)
	for rows.Next() {
		item, scanErr := scanReminder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RecordToolCall(ctx context.Context, in ToolCall) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO tool_calls (id, user_id, tool_name, params, result, success, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.ToolName, in.Params, in.Result, boolInt(in.Success), in.ErrorMessage, mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) ListToolCalls(ctx context.Context, filter ToolCallListFilter) ([]ToolCall, error) {
	args := []any{filter.UserID}
	query := `SELECT id, user_id, tool_name, params, result, success, error_message, created_at
		FROM tool_calls WHERE user_id = ? ORDER BY created_at DESC` + applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ToolCall, 0)
	for rows.Next() {
		var item ToolCall
		var success int
		var created string
		if err := rows.Scan(&item.ID, &item.UserID, &item.ToolName, &item.Params, &item.Result, &success, &item.ErrorMessage, &created); err != nil {
			return nil, err
		}
		createdAt, err := parseRequiredTime(created)
		if err != nil {
			return nil, err
		}
		item.Success = success == 1
		item.CreatedAt = createdAt
		out = append(out, item)
	}
	return out, rows.Err()
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(raw), nil
}

func unmarshalTags(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return tags, nil
}

func nullDate(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteDateLayout)
}

func parseNullableDate(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteDateLayout, v.String)
	if err != nil {
		return nil, err
	}
	tm = tm.UTC()
	return &tm, nil
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (Task, error) {
	var out Task
	var completed int
	var tagsRaw string
	var due sql.NullString
	var created, updated string
	if err := s.Scan(&out.ID, &out.UserID, &out.Title, &out.Description, &completed, &out.Priority,
		&tagsRaw, &due, &out.RecurrenceRule, &out.RecurrenceGroupID, &created, &updated); err != nil {
		return Task{}, err
	}
	tags, err := unmarshalTags(tagsRaw)
	if err != nil {
		return Task{}, err
	}
	dueDate, err := parseNullableDate(due)
	if err != nil {
		return Task{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Task{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return Task{}, err
	}
	out.Completed = completed == 1
	out.Tags = tags
	out.DueDate = dueDate
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}

func scanReminder(s scanner) (Reminder, error) {
	var out Reminder
	var trigger, created string
	if err := s.Scan(&out.ID, &out.TaskID, &out.UserID, &trigger, &out.Status, &created); err != nil {
		return Reminder{}, err
	}
	triggerAt, err := parseRequiredTime(trigger)
	if err != nil {
		return Reminder{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Reminder{}, err
	}
	out.TriggerAt = triggerAt
	out.CreatedAt = createdAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
