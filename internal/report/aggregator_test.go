package report

import (
	"reflect"
	"testing"

	"tally/internal/core"
	"tally/internal/grid"
)

func txHeader() []any {
	return []any{"日期", "客户", "进款", "", "费率", "换u", "出款（MYR）", "出款（USDT）", "总数"}
}

func window(start, end string) core.Window {
	s, _ := core.ParseDay(start)
	e, _ := core.ParseDay(end)
	return core.Window{Start: s, End: e}
}

func TestAggregateEndToEnd(t *testing.T) {
	// Header on sheet row 5, one block, two days of data with a blank-date
	// continuation row.
	g := grid.Grid{
		{"十月总账"},
		{},
		{},
		{},
		txHeader(),
		{"2025/10/01", "A", "100", "", "10", "5", "50", "3", "160"},
		{"", "A", "", "", "", "5", "", "2", ""},
		{"2025/10/02", "B", "200", "", "20", "", "", "", ""},
	}
	w := window("2025/10/01", "2025/10/02")
	perDay, stats := Aggregate(g, 4, 7, []int{1}, w)

	day1 := perDay["2025/10/01"]
	if day1.Deposit.Cents != 10000 || day1.Fee.Cents != 1000 || day1.RefundMYR.Cents != 5000 {
		t.Fatalf("10/01 MYR totals = %+v", day1)
	}
	if day1.USDTIn.Cents != 1000 || day1.USDTOut.Cents != 500 {
		t.Fatalf("10/01 USDT totals = in %d out %d, want 1000/500", day1.USDTIn.Cents, day1.USDTOut.Cents)
	}
	day2 := perDay["2025/10/02"]
	if day2.Deposit.Cents != 20000 || day2.Fee.Cents != 2000 {
		t.Fatalf("10/02 totals = %+v", day2)
	}
	if day2.USDTIn.Cents != 0 || day2.USDTOut.Cents != 0 {
		t.Fatalf("10/02 should have zero USDT flow, got %+v", day2)
	}
	if stats.BadDateCells != 0 || stats.NoCarryRows != 0 {
		t.Fatalf("unexpected degradations: %+v", stats)
	}
}

func TestAggregateCarryForward(t *testing.T) {
	g := grid.Grid{
		txHeader(),
		{"2025/10/05", "A", "", "", "", "100", "", "", ""},
		{"", "A", "", "", "", "50", "", "", ""},
	}
	perDay, _ := Aggregate(g, 0, 2, []int{1}, window("2025/10/01", "2025/10/31"))
	if got := perDay["2025/10/05"].USDTIn.Cents; got != 15000 {
		t.Fatalf("carry-forward usdtIn = %d, want 15000", got)
	}
}

func TestAggregateCarryResetOnOutOfWindowDate(t *testing.T) {
	g := grid.Grid{
		txHeader(),
		{"2025/09/30", "A", "", "", "", "100", "", "", ""},
		{"", "A", "", "", "", "50", "", "", ""},
		{"2025/10/02", "A", "", "", "", "7", "", "", ""},
	}
	perDay, stats := Aggregate(g, 0, 3, []int{1}, window("2025/10/01", "2025/10/31"))
	if len(perDay) != 1 {
		t.Fatalf("expected only 10/02, got %v", perDay)
	}
	if got := perDay["2025/10/02"].USDTIn.Cents; got != 700 {
		t.Fatalf("10/02 usdtIn = %d, want 700", got)
	}
	// Two rows carried USDT values under an out-of-window date.
	if stats.NoCarryRows != 2 {
		t.Fatalf("NoCarryRows = %d, want 2", stats.NoCarryRows)
	}
}

func TestAggregateOutOfWindowExcluded(t *testing.T) {
	g := grid.Grid{
		txHeader(),
		{"2025/09/30", "A", "999", "", "999", "", "", "", ""},
		{"2025/12/31", "A", "999", "", "999", "", "", "", ""},
	}
	perDay, stats := Aggregate(g, 0, 2, []int{1}, window("2025/10/01", "2025/10/31"))
	if len(perDay) != 0 {
		t.Fatalf("out-of-window rows must contribute nothing, got %v", perDay)
	}
	if stats.OutOfWindow != 2 {
		t.Fatalf("OutOfWindow = %d, want 2", stats.OutOfWindow)
	}
}

func TestAggregateMalformedCellsDegradeToZero(t *testing.T) {
	g := grid.Grid{
		txHeader(),
		{"2025/10/01", "A", "abc", "", "-", "", "", "", ""},
		{"总计", "A", "500", "", "500", "", "", "", ""}, // junk date cell, row skipped
	}
	perDay, stats := Aggregate(g, 0, 2, []int{1}, window("2025/10/01", "2025/10/31"))
	agg := perDay["2025/10/01"]
	if agg.Deposit.Cents != 0 || agg.Fee.Cents != 0 {
		t.Fatalf("malformed cells must coerce to zero, got %+v", agg)
	}
	if stats.BadDateCells != 1 {
		t.Fatalf("BadDateCells = %d, want 1", stats.BadDateCells)
	}
}

func TestAggregateMultipleBlocksSameDay(t *testing.T) {
	row := []any{"2025/10/01", "A", "100", "", "10", "1", "", "", "", ""}
	row = append(row, "2025/10/01", "B", "200", "", "20", "2", "", "", "")
	hdr := append(append([]any{}, txHeader()...), "")
	hdr = append(hdr, txHeader()...)
	g := grid.Grid{hdr, row}
	perDay, stats := Aggregate(g, 0, 1, []int{1, 11}, window("2025/10/01", "2025/10/31"))
	agg := perDay["2025/10/01"]
	if agg.Deposit.Cents != 30000 || agg.Fee.Cents != 3000 || agg.USDTIn.Cents != 300 {
		t.Fatalf("cross-block sums wrong: %+v", agg)
	}
	if stats.BlocksScanned != 2 {
		t.Fatalf("BlocksScanned = %d", stats.BlocksScanned)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	g := grid.Grid{
		txHeader(),
		{"2025/10/01", "A", "100", "", "10", "5", "50", "3", "160"},
		{"", "A", "", "", "", "5", "", "2", ""},
	}
	w := window("2025/10/01", "2025/10/31")
	first, _ := Aggregate(g, 0, 2, []int{1}, w)
	second, _ := Aggregate(g, 0, 2, []int{1}, w)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same grid must yield identical aggregates")
	}
}
