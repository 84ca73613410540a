package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
)

// ErrMalformedRequest marks request bodies that can never be processed.
var ErrMalformedRequest = errors.New("malformed report request")

// RequestKind selects what a report request computes.
type RequestKind string

const (
	KindStatistics RequestKind = "statistics"
	KindIssues     RequestKind = "issues"
	KindAll        RequestKind = "all"
)

func (k RequestKind) IsValid() bool {
	switch k {
	case KindStatistics, KindIssues, KindAll:
		return true
	}
	return false
}

// ReportRequest asks the worker for a statistics report, the issue list or
// every statistics category of a period. Period and category are carried
// as text and parsed by the worker.
type ReportRequest struct {
	RequestID string      `json:"request_id"`
	Kind      RequestKind `json:"kind"`
	Period    string      `json:"period,omitempty"`
	Category  string      `json:"category,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func newRequest(kind RequestKind, period, category string) *ReportRequest {
	return &ReportRequest{
		RequestID: uuid.NewString(),
		Kind:      kind,
		Period:    period,
		Category:  category,
		Timestamp: time.Now(),
	}
}

func NewStatisticsRequest(period, category string) *ReportRequest {
	return newRequest(KindStatistics, period, category)
}

func NewIssuesRequest() *ReportRequest {
	return newRequest(KindIssues, "", "")
}

func NewComputeAllRequest(period string) *ReportRequest {
	return newRequest(KindAll, period, "")
}

// Validate checks the shape of the request. Whether period and category
// name real values is left to the worker.
func (r *ReportRequest) Validate() error {
	if r.RequestID == "" {
		return fmt.Errorf("%w: missing request_id", ErrMalformedRequest)
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedRequest, r.Kind)
	}
	if r.Kind != KindIssues && r.Period == "" {
		return fmt.Errorf("%w: %s request without period", ErrMalformedRequest, r.Kind)
	}
	if r.Kind == KindStatistics && r.Category == "" {
		return fmt.Errorf("%w: statistics request without category", ErrMalformedRequest)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (r *ReportRequest) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// ReportRequestFromJSON decodes and validates a request body.
func ReportRequestFromJSON(data []byte) (*ReportRequest, error) {
	var req ReportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// CategoryReport is one category of a KindAll result.
type CategoryReport struct {
	Category   string           `json:"category"`
	Statistics []core.Statistic `json:"statistics"`
}

// ReportResult answers a ReportRequest. Error is set when the request could
// not be computed; the payload fields are then empty.
type ReportResult struct {
	RequestID  string           `json:"request_id"`
	Kind       RequestKind      `json:"kind"`
	Period     string           `json:"period,omitempty"`
	Category   string           `json:"category,omitempty"`
	Statistics []core.Statistic `json:"statistics,omitempty"`
	Issues     []core.Issue     `json:"issues,omitempty"`
	Reports    []CategoryReport `json:"reports,omitempty"`
	Error      string           `json:"error,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// NewResult starts the result of req.
func NewResult(req *ReportRequest) *ReportResult {
	return &ReportResult{
		RequestID: req.RequestID,
		Kind:      req.Kind,
		Period:    req.Period,
		Category:  req.Category,
		Timestamp: time.Now(),
	}
}

// Failed records err as the outcome of the request.
func (r *ReportResult) Failed(err error) *ReportResult {
	r.Error = err.Error()
	r.Statistics, r.Issues, r.Reports = nil, nil, nil
	return r
}

func (r *ReportResult) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

func ReportResultFromJSON(data []byte) (*ReportResult, error) {
	var res ReportResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
