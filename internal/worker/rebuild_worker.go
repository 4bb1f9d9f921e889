// Package worker drives scheduled and message-triggered rebuilds.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tally/internal/amqp"
	"tally/internal/services"
)

// RebuildWorker rebuilds the daily summary on a fixed interval and on demand
// via AMQP messages. Concurrent triggers collapse into sequential runs.
type RebuildWorker struct {
	service  *services.RebuildService
	interval time.Duration

	mu sync.Mutex // serializes rebuilds across triggers
}

func NewRebuildWorker(service *services.RebuildService, interval time.Duration) *RebuildWorker {
	return &RebuildWorker{
		service:  service,
		interval: interval,
	}
}

// HandleRebuildRequest processes a single rebuild request from AMQP.
func (w *RebuildWorker) HandleRebuildRequest(ctx context.Context, msg *amqp.RebuildRequest) error {
	slog.InfoContext(ctx, "Processing rebuild request",
		"reason", msg.Reason,
		"requested_by", msg.RequestedBy)

	if err := w.rebuild(ctx, "amqp"); err != nil {
		return fmt.Errorf("rebuild for request %q: %w", msg.Reason, err)
	}
	return nil
}

// StartupRebuild runs one rebuild at worker startup so a restart never leaves
// the summary stale until the next tick.
func (w *RebuildWorker) StartupRebuild(ctx context.Context) error {
	slog.InfoContext(ctx, "Running startup rebuild")
	if err := w.rebuild(ctx, "schedule"); err != nil {
		return fmt.Errorf("startup rebuild: %w", err)
	}
	return nil
}

// RunSchedule rebuilds on every tick until the context is cancelled. Errors
// are logged and the schedule keeps going; transient sheet failures should
// not kill the worker.
func (w *RebuildWorker) RunSchedule(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Rebuild schedule started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Rebuild schedule stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := w.rebuild(ctx, "schedule"); err != nil {
				slog.ErrorContext(ctx, "Scheduled rebuild failed", "error", err)
			}
		}
	}
}

func (w *RebuildWorker) rebuild(ctx context.Context, trigger string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	result, err := w.service.Rebuild(ctx, trigger)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Rebuild completed",
		"trigger", trigger,
		"rows_written", result.RowsWritten,
		"grand_net", result.GrandNet.Format(),
		"duration", result.Duration)
	return nil
}
