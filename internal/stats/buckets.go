package stats

import (
	"context"
	"log/slog"
	"strings"

	"ledger/internal/core"
)

// TrailingPeriods is the number of periods before the origin covered when
// no earliest date bounds the report.
const TrailingPeriods = 11

// Buckets generates the ascending anchor dates of a report.
//
// The last bucket (the origin) is one period past the period containing
// end. The first bucket is the anchor of earliest, or TrailingPeriods
// periods before the origin when earliest is the zero date. An earliest
// date past the origin yields no buckets.
func Buckets(p Period, end, earliest core.Date) []core.Date {
	origin := p.Shift(end, 1)
	floor := p.Shift(origin, -TrailingPeriods)
	if !earliest.IsZero() {
		floor = p.Start(earliest)
	}

	var dates []core.Date
	for d := floor; !d.After(origin); d = p.Shift(d, 1) {
		dates = append(dates, d)
	}

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug("Generated buckets",
			"period", p.String(),
			"end", end.String(),
			"earliest", earliest.String(),
			"buckets", joinDates(dates),
		)
	}
	return dates
}

func joinDates(dates []core.Date) string {
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
