// Package memory is an in-memory sheet backend used by tests and as the
// default backend when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"tally/internal/grid"
	"tally/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	grids  map[string]grid.Grid
	writes int
}

func New() *Store {
	return &Store{grids: make(map[string]grid.Grid)}
}

// SetSheet installs (or replaces) a sheet's values matrix.
func (s *Store) SetSheet(name string, g grid.Grid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grids[name] = clone(g)
}

// LoadGrid implements sheets.GridLoader with the shared fuzzy name matching.
func (s *Store) LoadGrid(_ context.Context, sheetName string) (grid.Grid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := sheets.MatchSheetName(s.names(), sheetName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", sheets.ErrSheetNotFound, sheetName)
	}
	return clone(s.grids[name]), nil
}

// ReplaceReport implements sheets.ReportWriter against the stored matrix, so
// a subsequent LoadGrid sees exactly what a reader of the real sheet would.
func (s *Store) ReplaceReport(_ context.Context, sheetName string, startRow int, header []string, rows [][]any, clear sheets.ClearRegion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := sheets.MatchSheetName(s.names(), sheetName)
	if !ok {
		return fmt.Errorf("%w: %q", sheets.ErrSheetNotFound, sheetName)
	}
	g := s.grids[name]

	// Clear the oversized region first.
	start := startRow - 1
	for r := start; r < start+clear.Rows && r < len(g); r++ {
		for c := 0; c < clear.Cols && c < len(g[r]); c++ {
			g[r][c] = nil
		}
	}

	out := make([][]any, 0, len(rows)+1)
	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	out = append(out, hdr)
	out = append(out, rows...)

	for i, vals := range out {
		r := start + i
		for len(g) <= r {
			g = append(g, nil)
		}
		for len(g[r]) < len(vals) {
			g[r] = append(g[r], nil)
		}
		copy(g[r], vals)
	}
	s.grids[name] = g
	s.writes++
	return nil
}

// Writes reports how many report replacements have happened.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Grid returns a copy of the named sheet for assertions.
func (s *Store) Grid(name string) grid.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.grids[name])
}

func (s *Store) names() []string {
	names := make([]string, 0, len(s.grids))
	for n := range s.grids {
		names = append(names, n)
	}
	return names
}

func clone(g grid.Grid) grid.Grid {
	out := make(grid.Grid, len(g))
	for i, row := range g {
		out[i] = append([]any(nil), row...)
	}
	return out
}
