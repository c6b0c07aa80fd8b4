package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"taskhive/internal/config"
	"taskhive/internal/scheduler"
	"taskhive/internal/service"
	"taskhive/internal/storage"
)

// Server wires the HTTP API, the services, and the reminder scheduler
// together. The scheduler engine holds upcoming reminder triggers in memory;
// a polling pump refills it from storage so reminders survive restarts.
type Server struct {
	cfg        config.Config
	tasks      *service.Tasks
	reminders  *service.Reminders
	engine     *scheduler.Engine
	router     *mux.Router
	httpServer *http.Server

	scheduledMu sync.Mutex
	scheduled   map[string]struct{}

	stopCh chan struct{}
	doneWg sync.WaitGroup
}

func New(cfg config.Config, store storage.Store) *Server {
	now := time.Now
	s := &Server{
		cfg:       cfg,
		tasks:     service.NewTasks(store, now),
		reminders: service.NewReminders(store, now),
		engine:    scheduler.NewEngine(cfg.SchedulerBuffer),
		router:    mux.NewRouter(),
		scheduled: make(map[string]struct{}),
		stopCh:    make(chan struct{}),
	}
	s.setupRoutes()
	return s
}

// OpenStore opens the configured sqlite database, applies migrations, and
// returns the ready repository. The caller owns Close.
func OpenStore(cfg config.Config) (*storage.SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := storage.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	repo, err := storage.NewSQLiteRepository(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// Handler exposes the routed mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.engine.Start()
	s.doneWg.Add(2)
	go s.pumpReminders()
	go s.consumeReminderEvents()

	s.httpServer = &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[SERVER] taskhive listening on %s", s.cfg.Addr())
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		s.stopBackground()
		return err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.stopBackground()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) stopBackground() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.engine.Stop()
	s.doneWg.Wait()
}

// pumpReminders periodically loads pending reminders that trigger inside the
// next poll window and hands them to the scheduler engine. The scheduled set
// keeps a reminder from being queued twice across polls.
func (s *Server) pumpReminders() {
	defer s.doneWg.Done()

	poll := time.Duration(s.cfg.ReminderPollSeconds) * time.Second
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	s.refillQueue(poll)
	for {
		select {
		case <-ticker.C:
			s.refillQueue(poll)
		case <-s.stopCh:
			return
		}
	}
}

func (s *Server) refillQueue(window time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	horizon := time.Now().UTC().Add(window)
	due, err := s.reminders.DuePending(ctx, horizon, 0)
	if err != nil {
		log.Printf("[SERVER] reminder poll failed: %v", err)
		return
	}

	for _, rem := range due {
		s.scheduledMu.Lock()
		_, seen := s.scheduled[rem.ID]
		if !seen {
			s.scheduled[rem.ID] = struct{}{}
		}
		s.scheduledMu.Unlock()
		if seen {
			continue
		}
		ev := scheduler.ReminderEvent{
			ID:        rem.ID,
			TaskID:    rem.TaskID,
			UserID:    rem.UserID,
			TriggerAt: rem.TriggerAt,
		}
		if err := s.engine.Schedule(ev); err != nil {
			log.Printf("[SERVER] schedule reminder %s failed: %v", rem.ID, err)
		}
	}
}

// consumeReminderEvents drains fired events and flips the stored reminders
// to triggered. Reminders cancelled after being queued are skipped.
func (s *Server) consumeReminderEvents() {
	defer s.doneWg.Done()

	for ev := range s.engine.C() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		fired, err := s.reminders.MarkTriggered(ctx, ev.UserID, ev.ID)
		cancel()

		s.scheduledMu.Lock()
		delete(s.scheduled, ev.ID)
		s.scheduledMu.Unlock()

		switch {
		case err != nil:
			log.Printf("[SERVER] trigger reminder %s failed: %v", ev.ID, err)
		case fired:
			log.Printf("[SERVER] reminder %s fired for task %s (user %s)", ev.ID, ev.TaskID, ev.UserID)
		}
	}
}
