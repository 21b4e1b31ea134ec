package metrics

import (
	"errors"
	"io"

	coremetrics "github.com/kilianp07/housepredict/core/metrics"
)

// MultiSink fanouts submission events to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSubmission forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordSubmission(ev coremetrics.SubmissionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSubmission(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordValidationFailure forwards the event to sinks that support it.
func (m *MultiSink) RecordValidationFailure(ev coremetrics.ValidationFailureEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.ValidationRecorder); ok {
			if err := rec.RecordValidationFailure(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Combine returns a NopSink for no sinks, the sink itself for one, and a MultiSink otherwise.
func Combine(sinks ...coremetrics.MetricsSink) coremetrics.MetricsSink {
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}
	case 1:
		return sinks[0]
	default:
		return NewMultiSink(sinks...)
	}
}
