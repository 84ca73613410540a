package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/core"
	"ledger/internal/issues"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/settings"
	"ledger/internal/stats"
)

// ErrSnapshotUnavailable marks failures to read the ledger, as opposed to
// failures caused by the request or the data.
var ErrSnapshotUnavailable = errors.New("ledger snapshot unavailable")

// Report is the statistics of one category.
type Report struct {
	Category   stats.Category   `json:"category"`
	Statistics []core.Statistic `json:"statistics"`
}

// ReportService captures ledger snapshots and runs the statistics and
// issue engines over them.
type ReportService struct {
	source      ledger.Snapshotter
	parser      *settings.Parser
	location    *time.Location
	external    stats.ExternalPolicy
	concurrency int
	now         func() time.Time
	logger      *log.Logger
}

type Option func(*ReportService)

// WithLocation sets the time zone today's date is taken in.
func WithLocation(loc *time.Location) Option {
	return func(s *ReportService) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithExternalPolicy(p stats.ExternalPolicy) Option {
	return func(s *ReportService) { s.external = p }
}

// WithConcurrency bounds the categories ComputeAll runs in parallel.
func WithConcurrency(n int) Option {
	return func(s *ReportService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithParser(p *settings.Parser) Option {
	return func(s *ReportService) { s.parser = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *ReportService) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *ReportService) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentReport)
		}
	}
}

func NewReportService(source ledger.Snapshotter, opts ...Option) *ReportService {
	s := &ReportService{
		source:      source,
		location:    time.UTC,
		concurrency: 4,
		now:         time.Now,
		logger:      log.Default(log.ComponentReport),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the reference date of the computations.
func (s *ReportService) Today() core.Date {
	y, m, d := s.now().In(s.location).Date()
	return core.NewDate(y, int(m), d)
}

// Snapshot captures the ledger once. Records breaking the ledger
// invariants are logged and kept.
func (s *ReportService) Snapshot(ctx context.Context) (*ledger.Snapshot, error) {
	snap, err := ledger.Capture(ctx, s.source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}
	if problems := snap.Check(); len(problems) > 0 {
		for _, p := range problems {
			s.logger.WarnContext(ctx, "Ledger record breaks invariant",
				log.FieldOperation, log.OpSnapshot,
				log.FieldError, p)
		}
		s.logger.WarnContext(ctx, "Ledger snapshot has inconsistent records",
			log.FieldOperation, log.OpSnapshot,
			log.FieldWarnings, len(problems))
	}
	return snap, nil
}

// Statistics computes the report of one category.
func (s *ReportService) Statistics(ctx context.Context, period stats.Period, category stats.Category) ([]core.Statistic, error) {
	start := time.Now()
	fields := log.NewFields().WithOperation(log.OpStatistics).WithReport(period.String(), category.String())

	snap, err := s.Snapshot(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to capture snapshot", fields.WithError(err).ToSlice()...)
		return nil, err
	}

	rows, err := s.StatisticsOf(snap, period, category)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to compute statistics", fields.WithError(err).ToSlice()...)
		return nil, err
	}

	fields[log.FieldRows] = len(rows)
	s.logger.InfoContext(ctx, "Statistics computed", fields.WithDuration(start).ToSlice()...)
	return rows, nil
}

// StatisticsOf computes one category over an already captured snapshot.
func (s *ReportService) StatisticsOf(snap *ledger.Snapshot, period stats.Period, category stats.Category) ([]core.Statistic, error) {
	return s.statisticsAt(snap, period, category, s.Today())
}

func (s *ReportService) statisticsAt(snap *ledger.Snapshot, period stats.Period, category stats.Category, today core.Date) ([]core.Statistic, error) {
	return stats.ComputeStatistics(period, category, snap, stats.Options{
		Today:    today,
		External: s.external,
	})
}

// Issues runs the issue detector.
func (s *ReportService) Issues(ctx context.Context) ([]core.Issue, error) {
	start := time.Now()
	fields := log.NewFields().WithOperation(log.OpIssues)

	snap, err := s.Snapshot(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to capture snapshot", fields.WithError(err).ToSlice()...)
		return nil, err
	}

	found, err := issues.ComputeIssues(snap, issues.Options{Today: s.Today(), Parser: s.parser})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to compute issues", fields.WithError(err).ToSlice()...)
		return nil, err
	}

	fields[log.FieldIssues] = len(found)
	s.logger.InfoContext(ctx, "Issues computed", fields.WithDuration(start).ToSlice()...)
	return found, nil
}

// ComputeAll computes every category over a single snapshot. Reports come
// back in category order.
func (s *ReportService) ComputeAll(ctx context.Context, period stats.Period) ([]Report, error) {
	start := time.Now()
	fields := log.NewFields().WithOperation(log.OpComputeAll).WithReport(period.String(), "")

	snap, err := s.Snapshot(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to capture snapshot", fields.WithError(err).ToSlice()...)
		return nil, err
	}

	// one reference date for the whole batch
	today := s.Today()
	categories := stats.Categories()
	reports := make([]Report, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, category := range categories {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := s.statisticsAt(snap, period, category, today)
			if err != nil {
				return err
			}
			reports[i] = Report{Category: category, Statistics: rows}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to compute reports", fields.WithError(err).ToSlice()...)
		return nil, err
	}

	fields[log.FieldRows] = len(reports)
	s.logger.InfoContext(ctx, "Reports computed", fields.WithDuration(start).ToSlice()...)
	return reports, nil
}

// Buckets returns the bucket dates a statistics request for period would
// use against the current ledger.
func (s *ReportService) Buckets(ctx context.Context, period stats.Period) ([]core.Date, error) {
	if !period.IsValid() {
		return nil, fmt.Errorf("%w: %d", stats.ErrUnknownPeriod, int(period))
	}
	fields := log.NewFields().WithOperation(log.OpBuckets).WithReport(period.String(), "")
	snap, err := s.Snapshot(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to capture snapshot", fields.WithError(err).ToSlice()...)
		return nil, err
	}

	var earliest core.Date
	for _, tx := range snap.Transactions {
		if earliest.IsZero() || tx.Date.Before(earliest) {
			earliest = tx.Date
		}
	}
	buckets := stats.Buckets(period, s.Today(), earliest)

	fields[log.FieldRows] = len(buckets)
	s.logger.DebugContext(ctx, "Buckets generated", fields.ToSlice()...)
	return buckets, nil
}
