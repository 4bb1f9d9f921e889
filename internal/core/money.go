// Package core holds the money, calendar and aggregation types shared by the
// daily summary pipeline.
//
// All currency amounts are carried as signed int64 cents. Floating point only
// appears at the display boundary; accumulation and rate conversion stay in
// integer arithmetic.
package core

import (
	"math"
	"strconv"
	"strings"
)

// Money is a signed fixed-point amount in cents.
type Money struct {
	Cents int64
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.Cents == 0 }

// Float returns the amount as a float64 for display purposes only.
func (m Money) Float() float64 { return float64(m.Cents) / 100.0 }

// Rate is a conversion rate in hundredths (407 means 4.07 MYR per USDT).
type Rate struct {
	Hundredths int64
}

// ParseRate parses a decimal rate string such as "4.07" into hundredths.
func ParseRate(s string) (Rate, bool) {
	cents, ok := parseDecimalCents(s)
	if !ok || cents <= 0 {
		return Rate{}, false
	}
	return Rate{Hundredths: cents}, true
}

// DivideBy converts an amount by the rate (amount / rate) with half-up
// rounding away from zero. A zero rate yields zero rather than panicking.
func (m Money) DivideBy(r Rate) Money {
	if r.Hundredths == 0 {
		return Money{}
	}
	num := m.Cents * 100
	q := num / r.Hundredths
	rem := num % r.Hundredths
	if rem < 0 {
		rem = -rem
	}
	if rem*2 >= r.Hundredths {
		if num < 0 {
			q--
		} else {
			q++
		}
	}
	return Money{Cents: q}
}

// CellMoney coerces a raw grid cell into Money.
//
// Blank cells, nil, the literal "-" placeholder and non-numeric text all
// coerce to zero; thousands separators and whitespace are stripped. The sign
// is preserved, corrections and reversals are valid data. This never fails:
// a malformed cell degrades to zero instead of aborting the batch.
func CellMoney(v any) Money {
	switch x := v.(type) {
	case nil:
		return Money{}
	case float64:
		return Money{Cents: roundCents(x)}
	case float32:
		return Money{Cents: roundCents(float64(x))}
	case int:
		return Money{Cents: int64(x) * 100}
	case int64:
		return Money{Cents: x * 100}
	case string:
		cents, ok := parseDecimalCents(x)
		if !ok {
			return Money{}
		}
		return Money{Cents: cents}
	default:
		return Money{}
	}
}

func roundCents(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v * 100))
}

// parseDecimalCents parses a signed decimal string into cents with half-up
// rounding on the third decimal place. Thousands separators (commas) and
// inner spaces are removed first.
func parseDecimalCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || s == "-" {
		return 0, false
	}
	neg := false
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		neg = true
		s = s[1:]
	}
	if s == "" {
		return 0, false
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, false
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, false
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, false
	}
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	cents := iv*100 + frac
	if neg {
		cents = -cents
	}
	return cents, true
}
