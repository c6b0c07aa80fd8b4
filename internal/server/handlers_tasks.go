package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"taskhive/internal/model"
	"taskhive/internal/recurrence"
	"taskhive/internal/service"
	"taskhive/internal/storage"
)

type taskWriteRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Completed      bool     `json:"completed"`
	Priority       string   `json:"priority"`
	Tags           []string `json:"tags"`
	DueDate        *string  `json:"due_date"`
	RecurrenceRule string   `json:"recurrence_rule"`
}

// taskPatchRequest keeps due_date as raw JSON so "absent" and "null" can be
// told apart: absent leaves the due date alone, null clears it.
type taskPatchRequest struct {
	Title          *string         `json:"title"`
	Description    *string         `json:"description"`
	Completed      *bool           `json:"completed"`
	Priority       *string         `json:"priority"`
	Tags           *[]string       `json:"tags"`
	DueDate        json.RawMessage `json:"due_date"`
	RecurrenceRule *string         `json:"recurrence_rule"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req taskWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	input, ok := s.taskInputFromRequest(w, req)
	if !ok {
		return
	}

	task, err := s.tasks.Create(r.Context(), requestUserID(r), input)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(task, time.Now()))
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Get(r.Context(), requestUserID(r), mux.Vars(r)["task_id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task, time.Now()))
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	opts, ok := s.listOptionsFromQuery(w, r)
	if !ok {
		return
	}

	page, err := s.tasks.List(r.Context(), requestUserID(r), opts)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	now := time.Now()
	resp := paginatedTaskResponse{
		Tasks:  make([]taskResponse, 0, len(page.Tasks)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for _, task := range page.Tasks {
		resp.Tasks = append(resp.Tasks, toTaskResponse(task, now))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var req taskWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	input, ok := s.taskInputFromRequest(w, req)
	if !ok {
		return
	}
	input.Completed = req.Completed

	task, err := s.tasks.Update(r.Context(), requestUserID(r), mux.Vars(r)["task_id"], input)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task, time.Now()))
}

func (s *Server) patchTask(w http.ResponseWriter, r *http.Request) {
	var req taskPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	patch := service.TaskPatch{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		Tags:           req.Tags,
		RecurrenceRule: req.RecurrenceRule,
		Completed:      req.Completed,
	}
	if len(req.DueDate) > 0 {
		patch.DueDateSet = true
		if !bytes.Equal(bytes.TrimSpace(req.DueDate), []byte("null")) {
			var raw string
			if err := json.Unmarshal(req.DueDate, &raw); err != nil {
				writeError(w, http.StatusUnprocessableEntity, "Invalid due_date")
				return
			}
			due, err := time.Parse(dueDateLayout, raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "Invalid due_date, expected YYYY-MM-DD")
				return
			}
			due = due.UTC()
			patch.DueDate = &due
		}
	}

	task, _, err := s.tasks.Patch(r.Context(), requestUserID(r), mux.Vars(r)["task_id"], patch)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task, time.Now()))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.Delete(r.Context(), requestUserID(r), mux.Vars(r)["task_id"]); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tasks.Tags(r.Context(), requestUserID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, tagListResponse{Tags: tags})
}

func (s *Server) taskInputFromRequest(w http.ResponseWriter, req taskWriteRequest) (service.TaskInput, bool) {
	input := service.TaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		Tags:           req.Tags,
		RecurrenceRule: req.RecurrenceRule,
	}
	if req.DueDate != nil {
		due, err := time.Parse(dueDateLayout, *req.DueDate)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "Invalid due_date, expected YYYY-MM-DD")
			return service.TaskInput{}, false
		}
		due = due.UTC()
		input.DueDate = &due
	}
	return input, true
}

func (s *Server) listOptionsFromQuery(w http.ResponseWriter, r *http.Request) (service.ListOptions, bool) {
	query := r.URL.Query()
	opts := service.ListOptions{
		Query:     query.Get("q"),
		SortBy:    query.Get("sort_by"),
		SortOrder: query.Get("sort_order"),
	}

	if raw := query.Get("completed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "Invalid completed, expected true or false")
			return service.ListOptions{}, false
		}
		opts.Completed = &v
	}
	if raw := query.Get("overdue"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "Invalid overdue, expected true or false")
			return service.ListOptions{}, false
		}
		opts.Overdue = v
	}
	if raw := query.Get("priority"); raw != "" {
		opts.Priority = splitCSV(raw)
	}
	if raw := query.Get("tag"); raw != "" {
		opts.Tags = splitCSV(raw)
	}
	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{
		{"due_before", &opts.DueBefore},
		{"due_after", &opts.DueAfter},
	} {
		if raw := query.Get(bound.name); raw != "" {
			d, err := time.Parse(dueDateLayout, raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "Invalid "+bound.name+", expected YYYY-MM-DD")
				return service.ListOptions{}, false
			}
			d = d.UTC()
			*bound.dst = &d
		}
	}
	for _, num := range []struct {
		name string
		dst  *int
	}{
		{"limit", &opts.Limit},
		{"offset", &opts.Offset},
	} {
		if raw := query.Get(num.name); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				writeError(w, http.StatusUnprocessableEntity, "Invalid "+num.name)
				return service.ListOptions{}, false
			}
			*num.dst = v
		}
	}
	return opts, true
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

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	var rerr *recurrence.ValidationError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrReminderInPast):
		writeError(w, http.StatusBadRequest, "Reminder time must be in the future")
	case errors.Is(err, service.ErrReminderNeedsDueDate):
		writeError(w, http.StatusBadRequest, "Relative reminder requires task to have a due_date")
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.Error())
	case errors.As(err, &rerr):
		writeError(w, http.StatusUnprocessableEntity, rerr.Error())
	case errors.Is(err, model.ErrTitleRequired),
		errors.Is(err, model.ErrTitleTooLong),
		errors.Is(err, model.ErrDescTooLong),
		errors.Is(err, model.ErrRuleTooLong),
		errors.Is(err, model.ErrInvalidPriority):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
