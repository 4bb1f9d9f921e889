// Package grid models a spreadsheet values matrix and the structural
// discovery of the repeating transaction blocks inside it.
//
// The sheet schema is discovered, never configured by column index: each
// agent's block is located by a header fingerprint, because agent count and
// order change over time.
package grid

import (
	"fmt"
	"strings"
	"time"

	"tally/internal/core"
)

// Grid is the full 2-D cell matrix of a sheet, values only.
type Grid [][]any

// Cell returns the value at 0-based row r, column c, or nil when the
// coordinate falls outside the ragged matrix.
func (g Grid) Cell(r, c int) any {
	if r < 0 || r >= len(g) {
		return nil
	}
	row := g[r]
	if c < 0 || c >= len(row) {
		return nil
	}
	return row[c]
}

// Rows returns the number of rows in the matrix.
func (g Grid) Rows() int { return len(g) }

// CellString renders a cell as a trimmed string.
func (g Grid) CellString(r, c int) string {
	v := g.Cell(r, c)
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Column offsets inside a transaction block, relative to its date column.
const (
	OffDate    = 0
	OffDeposit = 2
	OffFee     = 4
	OffUSDTIn  = 5
	OffWMYR    = 6
	OffUSDTOut = 7
	OffTotal   = 8
)

// BlockWidth is the number of columns a block spans.
const BlockWidth = OffTotal + 1

// serial numbers in this range are treated as spreadsheet dates
// (epoch 1899-12-30, the Lotus convention both Sheets and Excel use).
const (
	serialMin = 20000 // 1954
	serialMax = 80000 // 2119
)

var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// IsDateLike reports whether a cell can stand as a row date: a native time
// value, a YYYY/MM/DD (or dashed) string, or a plausible date serial number.
func IsDateLike(v any) bool {
	switch x := v.(type) {
	case time.Time:
		return true
	case string:
		_, ok := core.ParseDay(x)
		return ok
	case float64:
		return x >= serialMin && x <= serialMax && x == float64(int64(x))
	default:
		return false
	}
}

// ToDay converts a date-like cell to its calendar day.
func ToDay(v any) (core.Day, bool) {
	switch x := v.(type) {
	case time.Time:
		return core.DayOf(x), true
	case string:
		return core.ParseDay(x)
	case float64:
		if !IsDateLike(x) {
			return core.Day{}, false
		}
		return core.DayOf(serialEpoch.AddDate(0, 0, int(x))), true
	default:
		return core.Day{}, false
	}
}
