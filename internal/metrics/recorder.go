package metrics

import "time"

// ResultLabel enumerates operation result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// RunOutcomeLabel is the final status of one invocation.
type RunOutcomeLabel string

const (
	RunOutcomeSuccess  RunOutcomeLabel = "success"
	RunOutcomeFailed   RunOutcomeLabel = "failed"
	RunOutcomeCanceled RunOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for run, operation and repository merge metrics.
// Implementations may forward to Prometheus or any other backend.
type Recorder interface {
	ObserveOperationDuration(operation string, d time.Duration)
	IncOperationResult(operation string, result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome RunOutcomeLabel)
	ObserveMerge(merged, skipped, files int, bytes int64)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveOperationDuration(string, time.Duration) {}
func (NoopRecorder) IncOperationResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveRunDuration(time.Duration)               {}
func (NoopRecorder) IncRunOutcome(RunOutcomeLabel)                  {}
func (NoopRecorder) ObserveMerge(int, int, int, int64)              {}
