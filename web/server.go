// Package web exposes the read-only status API. The agent itself runs from
// cron; the server is an optional sidecar for dashboards and health checks.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dockhand-cd/dockhand/config"
	"github.com/dockhand-cd/dockhand/domain"
	"github.com/dockhand-cd/dockhand/journal"
)

// OutcomeLister reads deployment history
type OutcomeLister interface {
	List(limit int) ([]*domain.Outcome, error)
	Latest() (*domain.Outcome, error)
}

// Server serves deployment status over HTTP
type Server struct {
	config  *config.Config
	store   OutcomeLister
	journal *journal.Journal
	version string
}

func NewServer(cfg *config.Config, store OutcomeLister, version string) *Server {
	return &Server{
		config:  cfg,
		store:   store,
		journal: journal.New(cfg.JournalPath, cfg.MarkerPath),
		version: version,
	}
}

// outcomeView is the wire shape of a deployment outcome
type outcomeView struct {
	ID               string `json:"id"`
	Outcome          string `json:"outcome"`
	Attempted        bool   `json:"attempted"`
	Succeeded        bool   `json:"succeeded"`
	Reason           string `json:"reason,omitempty"`
	PreviousRevision string `json:"previous_revision,omitempty"`
	NewRevision      string `json:"new_revision,omitempty"`
	StartedAt        string `json:"started_at"`
	FinishedAt       string `json:"finished_at"`
}

type statusView struct {
	Version    string                `json:"version"`
	Repository string                `json:"repository"`
	Branch     string                `json:"branch"`
	Last       *outcomeView          `json:"last_deployment,omitempty"`
	Marker     *journal.ChangeMarker `json:"change_marker,omitempty"`
}

func convertOutcome(o *domain.Outcome) *outcomeView {
	return &outcomeView{
		ID:               o.ID.String(),
		Outcome:          o.Kind.String(),
		Attempted:        o.Attempted,
		Succeeded:        o.Succeeded,
		Reason:           o.Reason,
		PreviousRevision: o.PreviousRevision,
		NewRevision:      o.NewRevision,
		StartedAt:        o.StartedAt.Format(time.RFC3339),
		FinishedAt:       o.FinishedAt.Format(time.RFC3339),
	}
}

// Router builds the HTTP routing table
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/outcomes", s.handleOutcomes)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	view := &statusView{
		Version:    s.version,
		Repository: s.config.RepoURL,
		Branch:     s.config.Branch,
	}

	last, err := s.store.Latest()
	if err != nil {
		slog.Error("Failed to load latest outcome", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if last != nil {
		view.Last = convertOutcome(last)
	}

	marker, err := s.journal.ReadChangeMarker()
	if err != nil {
		slog.Warn("Failed to read change marker", "error", err)
	} else {
		view.Marker = marker
	}

	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleOutcomes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	outcomes, err := s.store.List(limit)
	if err != nil {
		slog.Error("Failed to list outcomes", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	views := make([]*outcomeView, len(outcomes))
	for i, o := range outcomes {
		views[i] = convertOutcome(o)
	}
	writeJSON(w, http.StatusOK, views)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.HTTPHost, s.config.HTTPPort)
	server := &http.Server{
		Addr:    address,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Status server starting", "address", address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("status server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down status server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown failed: %w", err)
	}
	return nil
}
