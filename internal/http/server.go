// Package http exposes the rebuild pipeline over a small JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tally/internal/services"
	"tally/internal/storage"
)

// RebuildPublisher queues a rebuild for the worker. *amqp.Client satisfies it.
type RebuildPublisher interface {
	PublishRebuildRequest(ctx context.Context, reason, requestedBy string) error
}

// RunStore reads the recorded run history. *storage.SQLiteRepository
// satisfies it.
type RunStore interface {
	LatestRun(ctx context.Context) (storage.RunRecord, error)
	RecentRuns(ctx context.Context, limit int) ([]storage.RunRecord, error)
}

type Server struct {
	http.Server

	service   *services.RebuildService
	publisher RebuildPublisher // optional
	runs      RunStore         // optional
}

// NewServer configures routes, returning a ready-to-run http.Server.
// publisher and runs may be nil; the corresponding behaviors degrade
// gracefully (synchronous-only rebuilds, 404 on run history).
func NewServer(addr string, service *services.RebuildService, publisher RebuildPublisher, runs RunStore) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      2 * time.Minute, // a synchronous rebuild talks to a remote sheet
			IdleTimeout:       time.Minute,
		},
		service:   service,
		publisher: publisher,
		runs:      runs,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/api/rebuild", s.handleRebuild)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/latest", s.handleLatestRun)

	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleRebuild triggers a rebuild. By default it runs synchronously and
// returns the run result; with ?async=true it enqueues a request for the
// worker instead, when a publisher is configured.
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reason := strings.TrimSpace(r.URL.Query().Get("reason"))
	if reason == "" {
		reason = "manual"
	}

	if r.URL.Query().Get("async") == "true" {
		if s.publisher == nil {
			writeError(w, http.StatusServiceUnavailable, "async rebuilds are not configured")
			return
		}
		if err := s.publisher.PublishRebuildRequest(r.Context(), reason, "api"); err != nil {
			slog.ErrorContext(r.Context(), "Failed to publish rebuild request", "error", err)
			writeError(w, http.StatusBadGateway, "failed to queue rebuild")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "reason": reason})
		return
	}

	result, err := s.service.Rebuild(r.Context(), "manual")
	if err != nil {
		slog.ErrorContext(r.Context(), "Rebuild failed", "error", err, "reason", reason)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"window_start": result.Window.Start.Key(),
		"window_end":   result.Window.End.Key(),
		"rows_written": result.RowsWritten,
		"start_row":    result.StartRow,
		"stats":        result.Stats,
		"grand_net":    result.GrandNet.Format(),
		"duration_ms":  result.Duration.Milliseconds(),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "run history is not configured")
		return
	}

	limit := 20
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	recs, err := s.runs.RecentRuns(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list rebuild runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": recs})
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "run history is not configured")
		return
	}

	rec, err := s.runs.LatestRun(r.Context())
	if errors.Is(err, storage.ErrNoRuns) {
		writeError(w, http.StatusNotFound, "no runs recorded yet")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load latest run", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load latest run")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
