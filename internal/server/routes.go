package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type contextKey string

const userIDKey contextKey = "taskhive.user_id"

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/{user_id}").Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/tasks", s.listTasks).Methods("GET")
	api.HandleFunc("/tasks", s.createTask).Methods("POST")
	api.HandleFunc("/tasks/{task_id}", s.getTask).Methods("GET")
	api.HandleFunc("/tasks/{task_id}", s.updateTask).Methods("PUT")
	api.HandleFunc("/tasks/{task_id}", s.patchTask).Methods("PATCH")
	api.HandleFunc("/tasks/{task_id}", s.deleteTask).Methods("DELETE")
	api.HandleFunc("/tags", s.listTags).Methods("GET")

	api.HandleFunc("/tasks/{task_id}/reminders", s.listReminders).Methods("GET")
	api.HandleFunc("/tasks/{task_id}/reminders", s.createReminder).Methods("POST")
	api.HandleFunc("/tasks/{task_id}/reminders/{reminder_id}", s.deleteReminder).Methods("DELETE")
}

// authMiddleware resolves the bearer token to a user id and requires it to
// match the user id in the path. Tokens come from the static config map.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		userID, ok := s.cfg.AuthTokens[strings.TrimSpace(token)]
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid authentication token")
			return
		}
		if pathUser := mux.Vars(r)["user_id"]; pathUser != userID {
			writeError(w, http.StatusForbidden, "Not authorized to access this user's data")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestUserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
