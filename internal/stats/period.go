// Package stats turns a ledger snapshot into periodic reports.
//
// A report is a list of core.Statistic rows, one per bucket date. Buckets
// are period anchors (Monday, first of month, first of year) generated
// from the earliest transaction up to one period past today. Transactions
// are merged against the buckets in a single pass, and the per-account
// running values are optionally reduced into coarse categories.
//
// Everything in this package is a pure function of its inputs: no I/O,
// no shared state, and the output does not depend on map iteration order.
package stats

import (
	"errors"
	"fmt"
	"strings"

	"ledger/internal/core"
)

// Period is the granularity of report buckets.
type Period int

const (
	Weekly Period = iota + 1
	Monthly
	Yearly
)

var ErrUnknownPeriod = errors.New("unknown period")

var periodNames = map[Period]string{
	Weekly:  "weekly",
	Monthly: "monthly",
	Yearly:  "yearly",
}

// Periods returns all periods from finest to coarsest.
func Periods() []Period {
	return []Period{Weekly, Monthly, Yearly}
}

// ParsePeriod parses a period name case-insensitively.
func ParsePeriod(s string) (Period, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	for p, name := range periodNames {
		if name == raw {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownPeriod, s)
}

func (p Period) IsValid() bool {
	_, ok := periodNames[p]
	return ok
}

func (p Period) String() string {
	if name, ok := periodNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Period(%d)", int(p))
}

func (p Period) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPeriod, int(p))
	}
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Start returns the anchor of the period containing d.
func (p Period) Start(d core.Date) core.Date {
	switch p {
	case Weekly:
		// Weekday is 0 on Sunday; weeks start on Monday.
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDays(-offset)
	case Monthly:
		return core.NewDate(d.Year(), d.Month(), 1)
	case Yearly:
		return core.NewDate(d.Year(), 1, 1)
	}
	return d
}

// Shift returns the anchor n periods after the one containing d. n may be
// negative. Month and year steps always land on day 1.
func (p Period) Shift(d core.Date, n int) core.Date {
	start := p.Start(d)
	switch p {
	case Weekly:
		return start.AddDays(7 * n)
	case Monthly:
		return core.NewDate(start.Year(), start.Month()+n, 1)
	case Yearly:
		return core.NewDate(start.Year()+n, 1, 1)
	}
	return start
}
