// Package report implements the daily settlement aggregation: per-day sums
// over every discovered transaction block, and the gap-free daily series
// derived from them.
package report

import (
	"tally/internal/core"
	"tally/internal/grid"
)

// Stats counts the silent degradations of one aggregation run. The original
// report swallowed these; surfacing them lets an operator see when a day's
// totals may be incomplete.
type Stats struct {
	BadDateCells  int `json:"bad_date_cells"`  // non-blank date cells that did not parse
	OutOfWindow   int `json:"out_of_window"`   // dated rows outside the window
	NoCarryRows   int `json:"no_carry_rows"`   // USDT rows dropped for lack of a carried date
	BlocksScanned int `json:"blocks_scanned"`
	RowsScanned   int `json:"rows_scanned"`
}

// Degraded reports whether any input was silently discarded.
func (s Stats) Degraded() bool {
	return s.BadDateCells > 0 || s.NoCarryRows > 0
}

// Aggregate walks every row of every transaction block between headerRow
// (exclusive) and endRow (inclusive) and sums per-day totals for days inside
// the window. blockStarts are the 1-based date column of each block.
//
// MYR amounts (deposit, fee, refund) come from a per-row pass: a row whose
// date cell is not date-like is skipped for that block only. USDT flows come
// from a second, per-block pass that carries the last valid in-window date
// forward across blank-date continuation rows; rows before any valid date,
// or under a date outside the window, are dropped.
//
// The result is a pure function of the inputs: same grid, same aggregates.
func Aggregate(g grid.Grid, headerRow, endRow int, blockStarts []int, window core.Window) (map[string]core.DailyAggregate, Stats) {
	perDay := make(map[string]core.DailyAggregate)
	stats := Stats{BlocksScanned: len(blockStarts)}

	if endRow >= g.Rows() {
		endRow = g.Rows() - 1
	}
	if endRow > headerRow {
		stats.RowsScanned = endRow - headerRow
	}

	// MYR totals, keyed strictly by the row's own date.
	for r := headerRow + 1; r <= endRow; r++ {
		for _, start := range blockStarts {
			base := start - 1
			raw := g.Cell(r, base+grid.OffDate)
			if !grid.IsDateLike(raw) {
				if g.CellString(r, base+grid.OffDate) != "" {
					stats.BadDateCells++
				}
				continue
			}
			day, ok := grid.ToDay(raw)
			if !ok {
				stats.BadDateCells++
				continue
			}
			if !window.Contains(day) {
				stats.OutOfWindow++
				continue
			}
			agg := perDay[day.Key()]
			agg.Fee = agg.Fee.Add(core.CellMoney(g.Cell(r, base+grid.OffFee)))
			agg.RefundMYR = agg.RefundMYR.Add(core.CellMoney(g.Cell(r, base+grid.OffWMYR)))
			agg.Deposit = agg.Deposit.Add(core.CellMoney(g.Cell(r, base+grid.OffDeposit)))
			perDay[day.Key()] = agg
		}
	}

	// USDT flows, with blank-date carry-forward per block. Multi-row records
	// only carry a date on their first row.
	for _, start := range blockStarts {
		base := start - 1
		var carry core.Day
		haveCarry := false
		for r := headerRow + 1; r <= endRow; r++ {
			raw := g.Cell(r, base+grid.OffDate)
			if grid.IsDateLike(raw) {
				if day, ok := grid.ToDay(raw); ok {
					if window.Contains(day) {
						carry = day
						haveCarry = true
					} else {
						haveCarry = false
					}
				}
			}
			usdtIn := core.CellMoney(g.Cell(r, base+grid.OffUSDTIn))
			usdtOut := core.CellMoney(g.Cell(r, base+grid.OffUSDTOut))
			if !haveCarry {
				if !usdtIn.IsZero() || !usdtOut.IsZero() {
					stats.NoCarryRows++
				}
				continue
			}
			if usdtIn.IsZero() && usdtOut.IsZero() {
				continue
			}
			agg := perDay[carry.Key()]
			agg.USDTIn = agg.USDTIn.Add(usdtIn)
			agg.USDTOut = agg.USDTOut.Add(usdtOut)
			perDay[carry.Key()] = agg
		}
	}

	return perDay, stats
}
