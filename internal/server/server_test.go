package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhive/internal/config"
	"taskhive/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "server-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.MigrateUp(db))
	repo, err := storage.NewSQLiteRepository(db)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.AuthTokens = map[string]string{
		"tok-alice": "alice",
		"tok-bob":   "bob",
	}
	return New(cfg, repo)
}

func doRequest(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestHealthRequiresNoAuth(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/alice/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/alice/tasks", "tok-unknown", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token for bob cannot read alice's tasks.
	rec = doRequest(t, s, http.MethodGet, "/api/alice/tasks", "tok-bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/alice/tasks", "tok-alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/alice/tasks", "tok-alice", map[string]any{
		"title":    "Write weekly summary",
		"priority": "high",
		"tags":     []string{"Work", "WRITING"},
		"due_date": "2030-03-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created taskResponse
	decodeBody(t, rec, &created)
	assert.Equal(t, "Write weekly summary", created.Title)
	assert.Equal(t, "high", created.Priority)
	assert.Equal(t, []string{"work", "writing"}, created.Tags)
	require.NotNil(t, created.DueDate)
	assert.Equal(t, "2030-03-15", *created.DueDate)
	assert.False(t, created.IsOverdue)
	assert.False(t, created.Completed)

	rec = doRequest(t, s, http.MethodGet, "/api/alice/tasks/"+created.ID, "tok-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Full replacement via PUT.
	rec = doRequest(t, s, http.MethodPut, "/api/alice/tasks/"+created.ID, "tok-alice", map[string]any{
		"title":     "Write weekly summary v2",
		"completed": false,
		"priority":  "medium",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated taskResponse
	decodeBody(t, rec, &updated)
	assert.Equal(t, "Write weekly summary v2", updated.Title)
	assert.Equal(t, "medium", updated.Priority)
	assert.Nil(t, updated.DueDate)
	assert.Empty(t, updated.Tags)

	rec = doRequest(t, s, http.MethodDelete, "/api/alice/tasks/"+created.ID, "tok-alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/alice/tasks/"+created.ID, "tok-alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskValidationErrors(t *testing.T) {
	s := newTestServer(t)

	cases := []map[string]any{
		{"title": ""},
		{"title": "ok", "priority": "extreme"},
		{"title": "ok", "recurrence_rule": "FREQ=MONTHLY;BYMONTHDAY=40"},
		{"title": "ok", "due_date": "15-03-2030"},
	}
	for i, body := range cases {
		rec := doRequest(t, s, http.MethodPost, "/api/alice/tasks", "tok-alice", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "case %d: %s", i, rec.Body.String())
	}
}

func TestListTasksFilterAndPagination(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 5; i++ {
		body := map[string]any{"title": fmt.Sprintf("Task %d", i)}
		if i%2 == 0 {
			body["tags"] = []string{"even"}
		}
		rec := doRequest(t, s, http.MethodPost, "/api/alice/tasks", "tok-alice", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	var page paginatedTaskResponse
	rec := doRequest(t, s, http.MethodGet, "/api/alice/tasks?limit=2&offset=0", "tok-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &page)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Tasks, 2)
	assert.Equal(t, 2, page.Limit)

	rec = doRequest(t, s, http.MethodGet, "/api/alice/tasks?tag=even", "tok-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &page)
	assert.Equal(t, 3, page.Total)

	rec = doRequest(t, s, http.MethodGet, "/api/alice/tasks?sort_by=color", "tok-alice", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPatchCompletionCreatesNextOccurrence(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/alice/tasks", "tok-alice", map[string]any{
		"title":           "Water the plants",
		"due_date":        "2030-03-15",
		"recurrence_rule": "FREQ=DAILY",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created taskResponse
	decodeBody(t, rec, &created)

	rec = doRequest(t, s, http.MethodPatch, "/api/alice/tasks/"+created.ID, "tok-alice", map[string]any{
		"completed": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var patched taskResponse
	decodeBody(t, rec, &patched)
	assert.True(t, patched.Completed)

	var page paginatedTaskResponse
	rec = doRequest(t, s, http.MethodGet, "/api/alice/tasks?completed=false", "tok-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &page)
	require.Equal(t, 1, page.Total)
	next := page.Tasks[0]
	assert.Equal(t, "Water the plants", next.Title)
	require.NotNil(t, next.DueDate)
	assert.Equal(t, "2030-03-16", *next.DueDate)
	require.NotNil(t, next.RecurrenceGroupID)
	assert.Equal(t, created.RecurrenceGroupID, next.RecurrenceGroupID)
}

func TestPatchClearsDueDateWithNull(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/alice/tasks", "tok-alice", map[string]any{
		"title":    "Flexible deadline",
		"due_date": "2030-03-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created taskResponse
	decodeBody(t, rec, &created)

	rec = doRequest(t, s, http.MethodPatch, "/api/alice/tasks/"+created.ID, "tok-alice", map[string]any{
		"due_date": nil,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var patched taskResponse
	decodeBody(t, rec, &patched)
	assert.Nil(t, patched.DueDate)

	// A patch that doesn't mention due_date leaves it untouched.
	rec = doRequest(t, s, http.MethodPatch, "/api/alice/tasks/"+created.ID, "tok-alice", map[string]any{
		"title": "Still flexible",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &patched)
	assert.Equal(t, "Still flexible", patched.Title)
	assert.Nil(t, patched.DueDate)
}

func TestTagsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/alice/tasks", "tok-alice", map[string]any{
		"title": "Tagged",
		"tags":  []string{"work", "focus"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/alice/tags", "tok-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tags tagListResponse
	decodeBody(t, rec, &tags)
	assert.Equal(t, []string{"focus", "work"}, tags.Tags)
}

func TestReminderEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/alice/tasks", "tok-alice", map[string]any{
		"title":    "With reminder",
		"due_date": "2030-03-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var task taskResponse
	decodeBody(t, rec, &task)

	base := "/api/alice/tasks/" + task.ID + "/reminders"

	trigger := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)
	rec = doRequest(t, s, http.MethodPost, base, "tok-alice", map[string]any{"trigger_at": trigger})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created reminderResponse
	decodeBody(t, rec, &created)
	assert.Equal(t, "pending", created.Status)

	rec = doRequest(t, s, http.MethodPost, base, "tok-alice", map[string]any{"relative_to_due": "-1d"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Malformed offset is a validation error; past trigger is a bad request.
	rec = doRequest(t, s, http.MethodPost, base, "tok-alice", map[string]any{"relative_to_due": "-2w"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	past := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	rec = doRequest(t, s, http.MethodPost, base, "tok-alice", map[string]any{"trigger_at": past})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, base, "tok-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed reminderListResponse
	decodeBody(t, rec, &listed)
	assert.Len(t, listed.Reminders, 2)

	rec = doRequest(t, s, http.MethodDelete, base+"/"+created.ID, "tok-alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, s, http.MethodGet, base, "tok-alice", nil)
	decodeBody(t, rec, &listed)
	assert.Len(t, listed.Reminders, 1)
}

func TestReminderOnUndatedTask(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/alice/tasks", "tok-alice", map[string]any{
		"title": "No due date",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var task taskResponse
	decodeBody(t, rec, &task)

	rec = doRequest(t, s, http.MethodPost, "/api/alice/tasks/"+task.ID+"/reminders", "tok-alice", map[string]any{
		"relative_to_due": "-1d",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
