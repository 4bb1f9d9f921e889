package memory

import (
	"context"
	"testing"

	"tally/internal/grid"
	"tally/internal/sheets"
)

func TestLoadGridFuzzyName(t *testing.T) {
	s := New()
	s.SetSheet("10月总进款！", grid.Grid{{"a"}})

	g, err := s.LoadGrid(context.Background(), "10月总进款")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if g.CellString(0, 0) != "a" {
		t.Fatalf("unexpected grid %v", g)
	}

	if _, err := s.LoadGrid(context.Background(), "missing"); err == nil {
		t.Fatalf("expected sheet-not-found")
	}
}

func TestReplaceReportClearsStaleRows(t *testing.T) {
	s := New()
	s.SetSheet("report", grid.Grid{
		{"tx", "tx"},
		{"old header", "old"},
		{"old row 1", "old"},
		{"old row 2", "old"},
		{"old row 3", "old"},
	})

	err := s.ReplaceReport(context.Background(), "report", 2,
		[]string{"日期", "净USDT"},
		[][]any{{"2025/10/01", "1.00"}},
		sheets.ClearRegion{Rows: 10, Cols: 10})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	g := s.Grid("report")
	if g.CellString(0, 0) != "tx" {
		t.Fatalf("rows above start must survive")
	}
	if g.CellString(1, 0) != "日期" || g.CellString(2, 0) != "2025/10/01" {
		t.Fatalf("header/data not written: %v", g)
	}
	// Stale rows past the new data must be gone.
	if g.CellString(3, 0) != "" || g.CellString(4, 0) != "" {
		t.Fatalf("stale rows survived the clear: %v", g)
	}
	if s.Writes() != 1 {
		t.Fatalf("writes = %d", s.Writes())
	}
}

func TestLoadGridReturnsCopy(t *testing.T) {
	s := New()
	s.SetSheet("x", grid.Grid{{"a"}})
	g, _ := s.LoadGrid(context.Background(), "x")
	g[0][0] = "mutated"
	g2, _ := s.LoadGrid(context.Background(), "x")
	if g2.CellString(0, 0) != "a" {
		t.Fatalf("store leaked internal slices")
	}
}
