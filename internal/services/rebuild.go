// Package services wires the aggregation pipeline together: load the grid,
// locate the transaction blocks, aggregate, and rewrite the summary region.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/core"
	"tally/internal/grid"
	"tally/internal/report"
	"tally/internal/sheets"
	"tally/internal/storage"
)

// RunRecorder persists finished runs. *storage.SQLiteRepository satisfies it.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec storage.RunRecord) (int64, error)
}

// RebuildConfig carries the pipeline parameters resolved from configuration.
type RebuildConfig struct {
	SheetName   string
	WindowStart core.Day
	Location    *time.Location
	Overrides   core.OverrideTable
	ClearRows   int
	ClearCols   int
	ScanDepth   int
}

// RunResult describes one completed rebuild.
type RunResult struct {
	Window      core.Window
	RowsWritten int
	StartRow    int
	Stats       report.Stats
	GrandNet    core.Money
	Duration    time.Duration
}

type RebuildService struct {
	loader   sheets.GridLoader
	writer   sheets.ReportWriter
	recorder RunRecorder // optional
	config   RebuildConfig
}

// NewRebuildService creates the service. recorder may be nil, in which case
// runs are logged but not persisted.
func NewRebuildService(loader sheets.GridLoader, writer sheets.ReportWriter, recorder RunRecorder, config RebuildConfig) *RebuildService {
	return &RebuildService{
		loader:   loader,
		writer:   writer,
		recorder: recorder,
		config:   config,
	}
}

// Rebuild recomputes the whole daily summary from the transaction blocks and
// rewrites the summary region in place. The write replaces the previous
// summary at the same position when one exists, so repeated runs against an
// unchanged sheet converge to the same grid. trigger records who asked:
// "manual", "schedule" or "amqp".
func (s *RebuildService) Rebuild(ctx context.Context, trigger string) (*RunResult, error) {
	started := time.Now()
	window := core.Window{Start: s.config.WindowStart, End: core.Today(s.config.Location)}

	fail := func(err error) (*RunResult, error) {
		s.record(ctx, started, window, trigger, 0, report.Stats{}, core.Money{}, err)
		return nil, err
	}

	g, err := s.loader.LoadGrid(ctx, s.config.SheetName)
	if err != nil {
		return fail(fmt.Errorf("load sheet %q: %w", s.config.SheetName, err))
	}

	headerRow, ok := grid.FindHeaderRow(g, grid.TransactionFingerprint(), s.config.ScanDepth)
	if !ok {
		return fail(fmt.Errorf("no transaction header found in sheet %q within %d rows", s.config.SheetName, s.config.ScanDepth))
	}

	blockStarts := grid.BlockStarts(g, headerRow)
	if len(blockStarts) == 0 {
		return fail(fmt.Errorf("transaction header at row %d has no blocks", headerRow+1))
	}

	// The old summary, when present, bounds the transaction region and marks
	// where the new one goes. Rows below it belong to a previous run, not to
	// the transaction data.
	txEnd := g.Rows() - 1
	summaryRow, hasSummary := grid.FindSummaryHeaderRow(g, headerRow+1)
	startRow := txEnd + 3 // 1-based sheet row, two rows of breathing room
	if hasSummary {
		txEnd = summaryRow - 1
		startRow = summaryRow + 1
	}

	perDay, stats := report.Aggregate(g, headerRow, txEnd, blockStarts, window)
	series := report.BuildSeries(perDay, window, s.config.Overrides)

	rows := make([][]any, 0, len(series.Rows))
	for _, row := range series.Rows {
		rows = append(rows, row.Cells())
	}

	clear := sheets.ClearRegion{Rows: s.config.ClearRows, Cols: s.config.ClearCols}
	if err := s.writer.ReplaceReport(ctx, s.config.SheetName, startRow, report.Header(), rows, clear); err != nil {
		return fail(fmt.Errorf("write summary to sheet %q: %w", s.config.SheetName, err))
	}

	result := &RunResult{
		Window:      window,
		RowsWritten: len(rows),
		StartRow:    startRow,
		Stats:       stats,
		GrandNet:    series.GrandNet,
		Duration:    time.Since(started),
	}

	s.record(ctx, started, window, trigger, len(rows), stats, series.GrandNet, nil)

	slog.InfoContext(ctx, "Rebuilt daily summary",
		"sheet", s.config.SheetName,
		"trigger", trigger,
		"window_start", window.Start.Key(),
		"window_end", window.End.Key(),
		"rows_written", len(rows),
		"start_row", startRow,
		"blocks", stats.BlocksScanned,
		"grand_net", series.GrandNet.Format(),
		"duration", result.Duration)

	if stats.Degraded() {
		slog.WarnContext(ctx, "Rebuild discarded some input",
			"bad_date_cells", stats.BadDateCells,
			"no_carry_rows", stats.NoCarryRows,
			"out_of_window", stats.OutOfWindow)
	}

	return result, nil
}

func (s *RebuildService) record(ctx context.Context, started time.Time, window core.Window, trigger string, rowsWritten int, stats report.Stats, grandNet core.Money, runErr error) {
	if s.recorder == nil {
		return
	}
	rec := storage.RunRecord{
		StartedAt:       started,
		FinishedAt:      time.Now(),
		SheetName:       s.config.SheetName,
		WindowStart:     window.Start.Key(),
		WindowEnd:       window.End.Key(),
		RowsWritten:     rowsWritten,
		BadDateCells:    stats.BadDateCells,
		OutOfWindowRows: stats.OutOfWindow,
		NoCarryRows:     stats.NoCarryRows,
		GrandNetCents:   grandNet.Cents,
		Trigger:         trigger,
		Status:          "ok",
	}
	if runErr != nil {
		rec.Status = "failed"
		rec.Error = runErr.Error()
	}
	if _, err := s.recorder.RecordRun(ctx, rec); err != nil {
		slog.WarnContext(ctx, "Failed to record rebuild run", "error", err)
	}
}
