package log

import (
	"maps"
	"slices"
	"time"
)

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldKind      = "kind"
	FieldPeriod    = "period"
	FieldCategory  = "category"
	FieldDuration  = "duration_ms"
	FieldRows      = "rows"
	FieldIssues    = "issues"
	FieldWarnings  = "warnings"
	FieldSuccess   = "success"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldQueue     = "queue"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentReport  = "report"
	ComponentStorage = "storage"
	ComponentBackend = "backend"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentCache   = "cache"
)

// Operations defines standard operation names
const (
	OpStatistics = "statistics"
	OpIssues     = "issues"
	OpComputeAll = "compute_all"
	OpBuckets    = "buckets"
	OpSnapshot   = "snapshot"
	OpConsume    = "consume"
	OpPublish    = "publish"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithReport adds the period and category of a statistics request. Empty
// values are omitted.
func (f LogFields) WithReport(period, category string) LogFields {
	if period != "" {
		f[FieldPeriod] = period
	}
	if category != "" {
		f[FieldCategory] = category
	}
	return f
}

// WithDuration records the time elapsed since start in milliseconds.
func (f LogFields) WithDuration(start time.Time) LogFields {
	f[FieldDuration] = time.Since(start).Milliseconds()
	return f
}

// ToSlice converts LogFields to a slice for slog, ordered by key.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for _, k := range slices.Sorted(maps.Keys(f)) {
		slice = append(slice, k, f[k])
	}
	return slice
}
