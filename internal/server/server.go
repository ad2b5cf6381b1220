// Package server exposes the trigger and status HTTP surface.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cghimire/eod-reporter/internal/activity"
	"github.com/cghimire/eod-reporter/internal/journal"
)

// Pipeline is the subset of the report pipeline the server drives.
type Pipeline interface {
	Run(ctx context.Context, trigger string) journal.Run
	LastSnapshot() *activity.Snapshot
}

// NextFunc reports the next scheduled firing; nil when no scheduler
// is running.
type NextFunc func() time.Time

// Server handles trigger and status requests.
type Server struct {
	pipeline Pipeline
	journal  *journal.Journal
	nextRun  NextFunc
	timezone string
}

// New creates a server.
func New(p Pipeline, j *journal.Journal, nextRun NextFunc, timezone string) *Server {
	return &Server{pipeline: p, journal: j, nextRun: nextRun, timezone: timezone}
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /trigger-eod", s.handleTrigger)
	mux.HandleFunc("GET /api/activity", s.handleActivity)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/scheduler", s.handleScheduler)
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleTrigger starts a run in the background and returns
// immediately. Single-flight discipline belongs to the pipeline; a
// concurrent trigger just produces a skipped_busy run.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		run := s.pipeline.Run(ctx, "manual")
		slog.Info("manual run finished", "status", run.Status, "id", run.ID)
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "accepted",
		"message": "report run started",
	})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	snap := s.pipeline.LastSnapshot()
	if snap == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": "no activity collected yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"total_runs": 0,
	}
	if s.journal != nil {
		stats["total_runs"] = s.journal.Len()
		if last := s.journal.Last(); last != nil {
			stats["last_run"] = last
		}
		stats["recent"] = s.journal.Recent(10)
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleScheduler(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"running":  s.nextRun != nil,
		"timezone": s.timezone,
	}
	if s.nextRun != nil {
		out["next_run"] = s.nextRun().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}
