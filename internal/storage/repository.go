// Package storage keeps the durable history of rebuild runs, including the
// degradation counters that a run otherwise only logs.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoRuns is returned when no rebuild run has been recorded yet.
var ErrNoRuns = errors.New("no rebuild runs recorded")

// RunRecord is one rebuild run as stored.
type RunRecord struct {
	ID              int64     `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	SheetName       string    `json:"sheet_name"`
	WindowStart     string    `json:"window_start"`
	WindowEnd       string    `json:"window_end"`
	RowsWritten     int       `json:"rows_written"`
	BadDateCells    int       `json:"bad_date_cells"`
	OutOfWindowRows int       `json:"out_of_window_rows"`
	NoCarryRows     int       `json:"no_carry_rows"`
	GrandNetCents   int64     `json:"grand_net_cents"`
	Trigger         string    `json:"trigger"` // manual | schedule | amqp
	Status          string    `json:"status"`  // ok | failed
	Error           string    `json:"error,omitempty"`
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// RecordRun persists one finished rebuild run and returns its id.
func (r *SQLiteRepository) RecordRun(ctx context.Context, rec RunRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO rebuild_runs (
			started_at, finished_at, sheet_name, window_start, window_end,
			rows_written, bad_date_cells, out_of_window_rows, no_carry_rows,
			grand_net_cents, triggered_by, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.StartedAt, rec.FinishedAt, rec.SheetName, rec.WindowStart, rec.WindowEnd,
		rec.RowsWritten, rec.BadDateCells, rec.OutOfWindowRows, rec.NoCarryRows,
		rec.GrandNetCents, rec.Trigger, rec.Status, rec.Error)
	if err != nil {
		return 0, fmt.Errorf("insert rebuild run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("rebuild run id: %w", err)
	}
	return id, nil
}

// LatestRun returns the most recent run, or ErrNoRuns.
func (r *SQLiteRepository) LatestRun(ctx context.Context) (RunRecord, error) {
	rows, err := r.RecentRuns(ctx, 1)
	if err != nil {
		return RunRecord{}, err
	}
	if len(rows) == 0 {
		return RunRecord{}, ErrNoRuns
	}
	return rows[0], nil
}

// RecentRuns lists the newest runs first, at most limit of them.
func (r *SQLiteRepository) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit < 1 {
		limit = 1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, sheet_name, window_start, window_end,
		       rows_written, bad_date_cells, out_of_window_rows, no_carry_rows,
		       grand_net_cents, triggered_by, status, error
		FROM rebuild_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query rebuild runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.ID, &rec.StartedAt, &rec.FinishedAt, &rec.SheetName,
			&rec.WindowStart, &rec.WindowEnd, &rec.RowsWritten, &rec.BadDateCells,
			&rec.OutOfWindowRows, &rec.NoCarryRows, &rec.GrandNetCents,
			&rec.Trigger, &rec.Status, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan rebuild run: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rebuild runs: %w", err)
	}
	return out, nil
}
