package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"taskhive/internal/scheduler"
	"taskhive/internal/service"
)

type reminderCreateRequest struct {
	TriggerAt     *time.Time `json:"trigger_at"`
	RelativeToDue string     `json:"relative_to_due"`
}

func (s *Server) listReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.reminders.List(r.Context(), requestUserID(r), mux.Vars(r)["task_id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	resp := reminderListResponse{Reminders: make([]reminderResponse, 0, len(reminders))}
	for _, rem := range reminders {
		resp.Reminders = append(resp.Reminders, toReminderResponse(rem))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	rem, err := s.reminders.Create(r.Context(), requestUserID(r), mux.Vars(r)["task_id"], service.ReminderInput{
		TriggerAt: req.TriggerAt,
		Offset:    req.RelativeToDue,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	// Queue immediately when the trigger lands inside the current poll window.
	window := time.Duration(s.cfg.ReminderPollSeconds) * time.Second
	if rem.TriggerAt.Before(time.Now().UTC().Add(window)) {
		s.scheduledMu.Lock()
		_, seen := s.scheduled[rem.ID]
		if !seen {
			s.scheduled[rem.ID] = struct{}{}
		}
		s.scheduledMu.Unlock()
		if !seen {
			_ = s.engine.Schedule(scheduler.ReminderEvent{
				ID:        rem.ID,
				TaskID:    rem.TaskID,
				UserID:    rem.UserID,
				TriggerAt: rem.TriggerAt,
			})
		}
	}

	writeJSON(w, http.StatusCreated, toReminderResponse(rem))
}

func (s *Server) deleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := s.reminders.Delete(r.Context(), requestUserID(r), mux.Vars(r)["reminder_id"]); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
