package report

import (
	"tally/internal/core"
)

// Row is one day of the rebuilt summary.
type Row struct {
	Day        core.Day
	Deposit    core.Money // 总进款（MYR）
	Fee        core.Money // 扣除车队后总进款（费率）
	RefundMYR  core.Money // 总返款（MYR）
	Inflow     core.Money // 总进款（USDT）
	Outflow    core.Money // 出款（USDT）
	Net        core.Money // 净USDT
	Overridden bool
}

// Header returns the seven column labels of the summary table.
func Header() []string {
	return []string{
		"日期",
		"总进款（MYR）",
		"扣除车队后总进款（费率）",
		"总返款（MYR）",
		"总进款（USDT）",
		"出款（USDT）",
		"净USDT",
	}
}

// Cells renders the row for the sheet: the date as a yyyy/MM/dd string and
// every amount as a fixed-2-decimal, comma-grouped string. Writing strings
// sidesteps typed-column drift in the host sheet.
func (r Row) Cells() []any {
	return []any{
		r.Day.Key(),
		r.Deposit.Format(),
		r.Fee.Format(),
		r.RefundMYR.Format(),
		r.Inflow.Format(),
		r.Outflow.Format(),
		r.Net.Format(),
	}
}

// Series is the gap-free daily output plus its reconciliation totals.
type Series struct {
	Rows []Row
	// GrandNet is the sum of every day's net USDT. It is logged and stored
	// with the run for reconciliation but never written to the sheet.
	GrandNet core.Money
}

// BuildSeries emits exactly one row per calendar day of the window, ascending
// and gap-free: a day with no transactions gets a zero-valued aggregate. Days
// present in the override table take their inflow from the fee total and
// their outflow from the MYR refund total at the rule's rates; every other
// day reports the aggregated USDT flows as-is. Net is always inflow minus
// outflow, exact in cents.
func BuildSeries(perDay map[string]core.DailyAggregate, window core.Window, overrides core.OverrideTable) Series {
	var s Series
	for _, day := range window.Days() {
		agg := perDay[day.Key()] // zero value fills the gap

		inflow := agg.USDTIn
		outflow := agg.USDTOut
		overridden := false
		if rule, ok := overrides.Lookup(day); ok {
			inflow, outflow = rule.Apply(agg)
			overridden = true
		}
		net := inflow.Sub(outflow)

		s.Rows = append(s.Rows, Row{
			Day:        day,
			Deposit:    agg.Deposit,
			Fee:        agg.Fee,
			RefundMYR:  agg.RefundMYR,
			Inflow:     inflow,
			Outflow:    outflow,
			Net:        net,
			Overridden: overridden,
		})
		s.GrandNet = s.GrandNet.Add(net)
	}
	return s
}
