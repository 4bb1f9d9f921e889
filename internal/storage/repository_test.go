package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRecordAndReadRuns(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	if _, err := repo.LatestRun(ctx); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns, got %v", err)
	}

	base := time.Date(2025, 10, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := RunRecord{
			StartedAt:     base.Add(time.Duration(i) * time.Hour),
			FinishedAt:    base.Add(time.Duration(i)*time.Hour + time.Minute),
			SheetName:     "10月总进款",
			WindowStart:   "2025/10/01",
			WindowEnd:     "2025/10/10",
			RowsWritten:   10,
			BadDateCells:  i,
			GrandNetCents: int64(1000 * i),
			Trigger:       "schedule",
			Status:        "ok",
		}
		if _, err := repo.RecordRun(ctx, rec); err != nil {
			t.Fatalf("record run %d: %v", i, err)
		}
	}

	latest, err := repo.LatestRun(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.BadDateCells != 2 || latest.GrandNetCents != 2000 {
		t.Fatalf("latest run wrong: %+v", latest)
	}

	recent, err := repo.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || !recent[0].StartedAt.After(recent[1].StartedAt) {
		t.Fatalf("recent ordering wrong: %+v", recent)
	}
}

func TestRecordFailedRun(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	id, err := repo.RecordRun(ctx, RunRecord{
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
		SheetName:  "10月总进款",
		Trigger:    "manual",
		Status:     "failed",
		Error:      "transaction header row not found",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero id")
	}
	latest, err := repo.LatestRun(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Status != "failed" || latest.Error == "" {
		t.Fatalf("failure not recorded: %+v", latest)
	}
}
