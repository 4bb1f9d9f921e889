package core

import (
	"encoding/json"
	"fmt"
)

// OverrideRule substitutes a day's derived USDT metrics when the source data
// for that day is known-bad. Inflow is recomputed from the fee-adjusted MYR
// total and outflow from the MYR refund total, each at its own rate.
type OverrideRule struct {
	Day         Day
	InflowRate  Rate
	OutflowRate Rate
}

// Apply derives the overridden inflow/outflow pair from the day's aggregate.
func (r OverrideRule) Apply(a DailyAggregate) (inflow, outflow Money) {
	return a.Fee.DivideBy(r.InflowRate), a.RefundMYR.DivideBy(r.OutflowRate)
}

// OverrideTable maps day keys to their correction rules. Keeping the rules in
// a table loaded from configuration keeps the aggregation pure and the
// exceptions auditable.
type OverrideTable map[string]OverrideRule

// Lookup returns the rule for a day, if any.
func (t OverrideTable) Lookup(d Day) (OverrideRule, bool) {
	r, ok := t[d.Key()]
	return r, ok
}

type overrideJSON struct {
	Date        string `json:"date"`
	InflowRate  string `json:"inflow_rate"`
	OutflowRate string `json:"outflow_rate"`
}

// ParseOverrides decodes a JSON array of override rules, e.g.
//
//	[{"date":"2025/10/08","inflow_rate":"4.5","outflow_rate":"4.07"}]
func ParseOverrides(data []byte) (OverrideTable, error) {
	var raw []overrideJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode overrides: %w", err)
	}
	table := make(OverrideTable, len(raw))
	for _, r := range raw {
		day, ok := ParseDay(r.Date)
		if !ok {
			return nil, fmt.Errorf("override date %q: want YYYY/MM/DD", r.Date)
		}
		in, ok := ParseRate(r.InflowRate)
		if !ok {
			return nil, fmt.Errorf("override inflow rate %q for %s", r.InflowRate, r.Date)
		}
		out, ok := ParseRate(r.OutflowRate)
		if !ok {
			return nil, fmt.Errorf("override outflow rate %q for %s", r.OutflowRate, r.Date)
		}
		table[day.Key()] = OverrideRule{Day: day, InflowRate: in, OutflowRate: out}
	}
	return table, nil
}

// DefaultOverrides reproduces the two historical correction days shipped with
// the original report.
func DefaultOverrides() OverrideTable {
	table := OverrideTable{}
	for _, key := range []string{"2025/10/08", "2025/10/09"} {
		day, _ := ParseDay(key)
		table[key] = OverrideRule{
			Day:         day,
			InflowRate:  Rate{Hundredths: 450},
			OutflowRate: Rate{Hundredths: 407},
		}
	}
	return table
}
