package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/stats"
)

// Reporter is the part of services.ReportService the worker drives.
type Reporter interface {
	Statistics(ctx context.Context, period stats.Period, category stats.Category) ([]core.Statistic, error)
	Issues(ctx context.Context) ([]core.Issue, error)
	ComputeAll(ctx context.Context, period stats.Period) ([]services.Report, error)
}

type ResultPublisher interface {
	PublishResult(ctx context.Context, res *amqp.ReportResult) error
}

type RequestConsumer interface {
	ConsumeRequests(ctx context.Context, handler func(context.Context, *amqp.ReportRequest) error) error
}

// ReportWorker answers report requests with result messages.
type ReportWorker struct {
	reporter  Reporter
	publisher ResultPublisher
	logger    *log.Logger
}

func NewReportWorker(reporter Reporter, publisher ResultPublisher, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	} else {
		logger = logger.WithComponent(log.ComponentWorker)
	}
	return &ReportWorker{
		reporter:  reporter,
		publisher: publisher,
		logger:    logger,
	}
}

// Run consumes requests until ctx is cancelled.
func (w *ReportWorker) Run(ctx context.Context, consumer RequestConsumer) error {
	w.logger.InfoContext(ctx, "Report worker started")
	err := consumer.ConsumeRequests(ctx, w.HandleRequest)
	if errors.Is(err, context.Canceled) {
		w.logger.InfoContext(ctx, "Report worker stopped")
		return nil
	}
	return err
}

// HandleRequest computes the request and publishes the result.
//
// Requests that cannot be computed, such as an unknown period or a ledger
// referencing unknown accounts, get a result carrying the error. An error
// is returned only when the request should be retried: the ledger could
// not be read or the result could not be published.
func (w *ReportWorker) HandleRequest(ctx context.Context, req *amqp.ReportRequest) error {
	start := time.Now()
	fields := log.NewFields().WithRequestID(req.RequestID).WithReport(req.Period, req.Category)
	fields[log.FieldKind] = string(req.Kind)

	res := amqp.NewResult(req)
	if err := w.compute(ctx, req, res); err != nil {
		if retryable(ctx, err) {
			w.logger.ErrorContext(ctx, "Report request will be retried", fields.WithError(err).ToSlice()...)
			return err
		}
		w.logger.WarnContext(ctx, "Report request failed", fields.WithError(err).ToSlice()...)
		res.Failed(err)
	}

	if err := w.publisher.PublishResult(ctx, res); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish report result", fields.WithError(err).ToSlice()...)
		return fmt.Errorf("publish result %s: %w", req.RequestID, err)
	}

	fields[log.FieldSuccess] = res.Error == ""
	w.logger.InfoContext(ctx, "Report request handled", fields.WithDuration(start).ToSlice()...)
	return nil
}

func (w *ReportWorker) compute(ctx context.Context, req *amqp.ReportRequest, res *amqp.ReportResult) error {
	switch req.Kind {
	case amqp.KindStatistics:
		period, category, err := parseReport(req.Period, req.Category)
		if err != nil {
			return err
		}
		rows, err := w.reporter.Statistics(ctx, period, category)
		if err != nil {
			return err
		}
		res.Statistics = rows

	case amqp.KindIssues:
		found, err := w.reporter.Issues(ctx)
		if err != nil {
			return err
		}
		res.Issues = found

	case amqp.KindAll:
		period, err := stats.ParsePeriod(req.Period)
		if err != nil {
			return err
		}
		reports, err := w.reporter.ComputeAll(ctx, period)
		if err != nil {
			return err
		}
		res.Reports = make([]amqp.CategoryReport, len(reports))
		for i, r := range reports {
			res.Reports[i] = amqp.CategoryReport{Category: r.Category.String(), Statistics: r.Statistics}
		}

	default:
		return fmt.Errorf("%w: unknown kind %q", amqp.ErrMalformedRequest, req.Kind)
	}
	return nil
}

func parseReport(rawPeriod, rawCategory string) (stats.Period, stats.Category, error) {
	period, err := stats.ParsePeriod(rawPeriod)
	if err != nil {
		return 0, 0, err
	}
	category, err := stats.ParseCategory(rawCategory)
	if err != nil {
		return 0, 0, err
	}
	return period, category, nil
}

func retryable(ctx context.Context, err error) bool {
	return errors.Is(err, services.ErrSnapshotUnavailable) || ctx.Err() != nil
}
