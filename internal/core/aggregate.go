package core

// DailyAggregate accumulates one calendar day's totals across every
// transaction block. Sums are associative and commutative in row order, so
// block and row iteration order never changes the result.
type DailyAggregate struct {
	Deposit   Money // gross MYR deposits
	Fee       Money // fee-adjusted MYR deposits
	RefundMYR Money // MYR refunds paid out
	USDTIn    Money // signed USDT inflow
	USDTOut   Money // signed USDT outflow
}

// Merge adds another aggregate into a.
func (a DailyAggregate) Merge(o DailyAggregate) DailyAggregate {
	return DailyAggregate{
		Deposit:   a.Deposit.Add(o.Deposit),
		Fee:       a.Fee.Add(o.Fee),
		RefundMYR: a.RefundMYR.Add(o.RefundMYR),
		USDTIn:    a.USDTIn.Add(o.USDTIn),
		USDTOut:   a.USDTOut.Add(o.USDTOut),
	}
}

// Net is the day's net USDT position: inflow minus outflow, exact in cents.
func (a DailyAggregate) Net() Money {
	return a.USDTIn.Sub(a.USDTOut)
}

// USDTRefund converts the MYR refund total to USDT at the given rate.
func (a DailyAggregate) USDTRefund(rate Rate) Money {
	return a.RefundMYR.DivideBy(rate)
}
