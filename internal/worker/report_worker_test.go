package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/services"
	"ledger/internal/stats"
)

type fakeReporter struct {
	err error

	gotPeriod   stats.Period
	gotCategory stats.Category
}

func (f *fakeReporter) Statistics(_ context.Context, period stats.Period, category stats.Category) ([]core.Statistic, error) {
	f.gotPeriod, f.gotCategory = period, category
	if f.err != nil {
		return nil, f.err
	}
	return []core.Statistic{{
		Date:   core.NewDate(2024, 3, 1),
		Values: []core.Value{{Name: "NET", Value: decimal.NewFromInt(10), ValueDifference: decimal.Zero}},
	}}, nil
}

func (f *fakeReporter) Issues(context.Context) ([]core.Issue, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []core.Issue{core.NewIssue(core.IssueNoBalance, core.NewDate(2024, 3, 1), "sav", "")}, nil
}

func (f *fakeReporter) ComputeAll(_ context.Context, period stats.Period) ([]services.Report, error) {
	f.gotPeriod = period
	if f.err != nil {
		return nil, f.err
	}
	reports := make([]services.Report, 0, len(stats.Categories()))
	for _, c := range stats.Categories() {
		reports = append(reports, services.Report{Category: c, Statistics: []core.Statistic{}})
	}
	return reports, nil
}

type fakePublisher struct {
	err       error
	published []*amqp.ReportResult
}

func (f *fakePublisher) PublishResult(_ context.Context, res *amqp.ReportResult) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, res)
	return nil
}

func TestReportWorker_HandleRequest(t *testing.T) {
	tests := []struct {
		name  string
		req   *amqp.ReportRequest
		check func(t *testing.T, res *amqp.ReportResult, rep *fakeReporter)
	}{
		{
			name: "statistics",
			req:  &amqp.ReportRequest{RequestID: "r1", Kind: amqp.KindStatistics, Period: "Monthly", Category: "TotalBalances"},
			check: func(t *testing.T, res *amqp.ReportResult, rep *fakeReporter) {
				if rep.gotPeriod != stats.Monthly || rep.gotCategory != stats.TotalBalances {
					t.Errorf("reporter got %v %v, want monthly total_balance", rep.gotPeriod, rep.gotCategory)
				}
				if len(res.Statistics) != 1 || res.Error != "" {
					t.Errorf("result = %+v, want one statistic", res)
				}
			},
		},
		{
			name: "issues",
			req:  &amqp.ReportRequest{RequestID: "r2", Kind: amqp.KindIssues},
			check: func(t *testing.T, res *amqp.ReportResult, _ *fakeReporter) {
				if len(res.Issues) != 1 || res.Issues[0].AccountID != "sav" {
					t.Errorf("result issues = %+v", res.Issues)
				}
			},
		},
		{
			name: "all categories",
			req:  &amqp.ReportRequest{RequestID: "r3", Kind: amqp.KindAll, Period: "weekly"},
			check: func(t *testing.T, res *amqp.ReportResult, rep *fakeReporter) {
				if rep.gotPeriod != stats.Weekly {
					t.Errorf("reporter got period %v, want weekly", rep.gotPeriod)
				}
				if len(res.Reports) != len(stats.Categories()) || res.Reports[0].Category != "account_balance" {
					t.Errorf("result reports = %+v", res.Reports)
				}
			},
		},
		{
			name: "unknown period is answered with an error",
			req:  &amqp.ReportRequest{RequestID: "r4", Kind: amqp.KindStatistics, Period: "daily", Category: "flow"},
			check: func(t *testing.T, res *amqp.ReportResult, _ *fakeReporter) {
				if !strings.Contains(res.Error, "unknown period") || res.Statistics != nil {
					t.Errorf("result = %+v, want unknown period error", res)
				}
			},
		},
		{
			name: "unknown category is answered with an error",
			req:  &amqp.ReportRequest{RequestID: "r5", Kind: amqp.KindStatistics, Period: "yearly", Category: "cashflow"},
			check: func(t *testing.T, res *amqp.ReportResult, _ *fakeReporter) {
				if !strings.Contains(res.Error, "unknown category") {
					t.Errorf("result error = %q, want unknown category", res.Error)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := &fakeReporter{}
			pub := &fakePublisher{}
			w := NewReportWorker(rep, pub, nil)

			if err := w.HandleRequest(context.Background(), tt.req); err != nil {
				t.Fatalf("HandleRequest() error = %v", err)
			}
			if len(pub.published) != 1 {
				t.Fatalf("published %d results, want 1", len(pub.published))
			}
			res := pub.published[0]
			if res.RequestID != tt.req.RequestID || res.Kind != tt.req.Kind {
				t.Errorf("result id/kind = %s/%s, want %s/%s", res.RequestID, res.Kind, tt.req.RequestID, tt.req.Kind)
			}
			tt.check(t, res, rep)
		})
	}
}

func TestReportWorker_EngineErrorIsPublished(t *testing.T) {
	rep := &fakeReporter{err: fmt.Errorf("compute monthly flow statistics: %w", core.ErrUnknownAccount)}
	pub := &fakePublisher{}
	w := NewReportWorker(rep, pub, nil)

	req := &amqp.ReportRequest{RequestID: "r1", Kind: amqp.KindStatistics, Period: "monthly", Category: "flow"}
	if err := w.HandleRequest(context.Background(), req); err != nil {
		t.Fatalf("HandleRequest() error = %v, want nil", err)
	}
	if len(pub.published) != 1 || !strings.Contains(pub.published[0].Error, "unknown account") {
		t.Errorf("published = %+v, want one result carrying the error", pub.published)
	}
}

func TestReportWorker_RetryableErrors(t *testing.T) {
	t.Run("snapshot unavailable", func(t *testing.T) {
		rep := &fakeReporter{err: fmt.Errorf("%w: database is locked", services.ErrSnapshotUnavailable)}
		pub := &fakePublisher{}
		w := NewReportWorker(rep, pub, nil)

		err := w.HandleRequest(context.Background(), &amqp.ReportRequest{RequestID: "r1", Kind: amqp.KindIssues})
		if !errors.Is(err, services.ErrSnapshotUnavailable) {
			t.Errorf("HandleRequest() error = %v, want %v", err, services.ErrSnapshotUnavailable)
		}
		if len(pub.published) != 0 {
			t.Errorf("published %d results for a retryable failure", len(pub.published))
		}
	})

	t.Run("publish failure", func(t *testing.T) {
		pub := &fakePublisher{err: amqp.ErrCircuitOpen}
		w := NewReportWorker(&fakeReporter{}, pub, nil)

		err := w.HandleRequest(context.Background(), &amqp.ReportRequest{RequestID: "r1", Kind: amqp.KindIssues})
		if !errors.Is(err, amqp.ErrCircuitOpen) {
			t.Errorf("HandleRequest() error = %v, want %v", err, amqp.ErrCircuitOpen)
		}
	})
}

type fakeConsumer struct {
	requests []*amqp.ReportRequest
	errs     []error
}

func (f *fakeConsumer) ConsumeRequests(ctx context.Context, handler func(context.Context, *amqp.ReportRequest) error) error {
	for _, req := range f.requests {
		f.errs = append(f.errs, handler(ctx, req))
	}
	return context.Canceled
}

func TestReportWorker_Run(t *testing.T) {
	pub := &fakePublisher{}
	w := NewReportWorker(&fakeReporter{}, pub, nil)
	consumer := &fakeConsumer{requests: []*amqp.ReportRequest{
		amqp.NewIssuesRequest(),
		amqp.NewStatisticsRequest("monthly", "flow"),
	}}

	if err := w.Run(context.Background(), consumer); err != nil {
		t.Fatalf("Run() error = %v, want nil on cancellation", err)
	}
	if len(pub.published) != 2 {
		t.Errorf("published %d results, want 2", len(pub.published))
	}
	for i, err := range consumer.errs {
		if err != nil {
			t.Errorf("request %d handler error = %v", i, err)
		}
	}
}
