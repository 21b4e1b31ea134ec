package metrics

import (
	"time"

	"github.com/kilianp07/housepredict/core/model"
)

// ResultSucceeded is the Result of a cycle that produced an outcome. Failed
// cycles carry their failure kind instead.
const ResultSucceeded = "succeeded"

// SubmissionEvent describes one resolved submission cycle.
type SubmissionEvent struct {
	RequestID string
	Result    string
	// NetworkCall is false when the cycle stopped at validation.
	NetworkCall bool
	Latency     time.Duration
	Outcome     model.PredictionOutcome
	Time        time.Time
}

// Succeeded reports whether the cycle produced an outcome.
func (e SubmissionEvent) Succeeded() bool { return e.Result == ResultSucceeded }

// MetricsSink records submission cycles for observability purposes.
type MetricsSink interface {
	RecordSubmission(ev SubmissionEvent) error
}

// ValidationFailureEvent records which field blocked a submission.
type ValidationFailureEvent struct {
	Field string
	Time  time.Time
}

// ValidationRecorder is implemented by sinks able to record validation failures.
type ValidationRecorder interface {
	RecordValidationFailure(ev ValidationFailureEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSubmission(SubmissionEvent) error                { return nil }
func (NopSink) RecordValidationFailure(ValidationFailureEvent) error { return nil }
