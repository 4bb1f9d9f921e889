package core

import (
	"regexp"
	"time"
)

// DayKeyFormat is the canonical key for a calendar day.
const DayKeyFormat = "2006/01/02"

// Day is a single calendar day, stored as UTC midnight. Time-of-day and
// timezone information never survive construction.
type Day struct {
	t time.Time
}

// NewDay builds a Day from year, month, day.
func NewDay(year, month, day int) Day {
	return Day{t: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates an arbitrary time to its calendar day.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return NewDay(y, int(m), d)
}

// Today returns the current calendar day in the given location.
func Today(loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	return DayOf(time.Now().In(loc))
}

func (d Day) IsZero() bool      { return d.t.IsZero() }
func (d Day) Key() string       { return d.t.Format(DayKeyFormat) }
func (d Day) Next() Day         { return Day{t: d.t.AddDate(0, 0, 1)} }
func (d Day) Before(o Day) bool { return d.t.Before(o.t) }
func (d Day) After(o Day) bool  { return d.t.After(o.t) }
func (d Day) Equal(o Day) bool  { return d.t.Equal(o.t) }
func (d Day) Time() time.Time   { return d.t }

var ymdPattern = regexp.MustCompile(`^\s*(\d{4})[-/](\d{1,2})[-/](\d{1,2})\s*$`)

// ParseDay parses "YYYY/MM/DD" or "YYYY-MM-DD".
func ParseDay(s string) (Day, bool) {
	m := ymdPattern.FindStringSubmatch(s)
	if m == nil {
		return Day{}, false
	}
	year := atoi(m[1])
	month := atoi(m[2])
	day := atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Day{}, false
	}
	return NewDay(year, month, day), true
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// Window is an inclusive calendar-day range.
type Window struct {
	Start Day
	End   Day
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d Day) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days lists every calendar day from Start through End, ascending. An
// inverted window yields nil.
func (w Window) Days() []Day {
	if w.End.Before(w.Start) {
		return nil
	}
	var out []Day
	for d := w.Start; !d.After(w.End); d = d.Next() {
		out = append(out, d)
	}
	return out
}
