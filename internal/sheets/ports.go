// Package sheets defines the boundary between the aggregation pipeline and
// the tabular backends that hold the transaction sheet.
package sheets

import (
	"context"
	"errors"
	"strings"

	"tally/internal/grid"
)

// ErrSheetNotFound signals that no sheet matched the requested name. This is
// a fatal configuration error for the pipeline, not a retryable condition.
var ErrSheetNotFound = errors.New("sheet not found")

// ClearRegion is the oversized rectangle wiped before a report write, so a
// shrinking report never leaves stale rows behind.
type ClearRegion struct {
	Rows int
	Cols int
}

// Ports for outbound adapters.
type (
	// GridLoader supplies the full values matrix of a named sheet. Name
	// resolution is fuzzy: exact first, then trailing-"!" and case/whitespace
	// tolerant matching.
	GridLoader interface {
		LoadGrid(ctx context.Context, sheetName string) (grid.Grid, error)
	}

	// ReportWriter replaces the summary region of a sheet: clear the region
	// starting at startRow (1-based, column A), then write the header row
	// there and the data rows below it. Formatting failures degrade (smaller
	// clear, unstyled header) rather than failing the write; only a content
	// write failure is an error.
	ReportWriter interface {
		ReplaceReport(ctx context.Context, sheetName string, startRow int, header []string, rows [][]any, clear ClearRegion) error
	}
)

// NormalizeSheetName strips the decorations sheet titles accumulate: leading
// and trailing whitespace, trailing half/full-width exclamation marks, inner
// spaces, and case.
func NormalizeSheetName(name string) string {
	name = strings.TrimSpace(name)
	for strings.HasSuffix(name, "!") || strings.HasSuffix(name, "！") {
		name = strings.TrimSuffix(name, "!")
		name = strings.TrimSuffix(name, "！")
		name = strings.TrimSpace(name)
	}
	name = strings.ReplaceAll(name, " ", "")
	return strings.ToLower(name)
}

// MatchSheetName picks the sheet title matching want from candidates:
// exact title first, then normalized equality, then normalized substring
// containment in either direction.
func MatchSheetName(candidates []string, want string) (string, bool) {
	for _, c := range candidates {
		if c == want {
			return c, true
		}
	}
	normWant := NormalizeSheetName(want)
	if normWant == "" {
		return "", false
	}
	for _, c := range candidates {
		if NormalizeSheetName(c) == normWant {
			return c, true
		}
	}
	for _, c := range candidates {
		normC := NormalizeSheetName(c)
		if normC == "" {
			continue
		}
		if strings.Contains(normC, normWant) || strings.Contains(normWant, normC) {
			return c, true
		}
	}
	return "", false
}
