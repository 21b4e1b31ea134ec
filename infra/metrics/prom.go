package metrics

import (
	coremetrics "github.com/kilianp07/housepredict/core/metrics"
	"github.com/kilianp07/housepredict/core/model"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records submission cycles in Prometheus metrics.
type PromSink struct {
	submissions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	fallbacks   prometheus.Counter
	invalid     *prometheus.CounterVec
	lastPrice   prometheus.Gauge
}

// NewPromSink registers prediction metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	submissions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_submissions_total",
		Help: "Total number of resolved prediction submission cycles",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}
	latency, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prediction_request_duration_seconds",
		Help:    "Time spent waiting for the prediction service",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}
	fallbacks, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "prediction_interval_fallback_total",
		Help: "Predictions whose interval was derived locally",
	}))
	if err != nil {
		return nil, err
	}
	invalid, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "prediction_validation_failures_total",
		Help: "Submissions rejected before reaching the service",
	}, []string{"field"}))
	if err != nil {
		return nil, err
	}
	lastPrice, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "prediction_last_price",
		Help: "Most recent predicted price",
	}))
	if err != nil {
		return nil, err
	}
	return &PromSink{
		submissions: submissions,
		latency:     latency,
		fallbacks:   fallbacks,
		invalid:     invalid,
		lastPrice:   lastPrice,
	}, nil
}

// register adds c to reg, reusing an identical collector registered earlier.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSubmission counts the cycle and observes the request latency.
func (s *PromSink) RecordSubmission(ev coremetrics.SubmissionEvent) error {
	s.submissions.WithLabelValues(ev.Result).Inc()
	if ev.NetworkCall {
		s.latency.WithLabelValues(ev.Result).Observe(ev.Latency.Seconds())
	}
	if ev.Succeeded() {
		s.lastPrice.Set(ev.Outcome.PredictedPrice)
		if ev.Outcome.IntervalSource == model.IntervalFallback {
			s.fallbacks.Inc()
		}
	}
	return nil
}

// RecordValidationFailure counts rejected submissions per field.
func (s *PromSink) RecordValidationFailure(ev coremetrics.ValidationFailureEvent) error {
	field := ev.Field
	if field == "" {
		field = "incomplete"
	}
	s.invalid.WithLabelValues(field).Inc()
	return nil
}
