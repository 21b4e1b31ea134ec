// Package controller owns the prediction form state and runs submission
// cycles: validate, call the service, derive the interval and publish the
// result to observers.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/kilianp07/housepredict/core/logger"
	"github.com/kilianp07/housepredict/core/metrics"
	"github.com/kilianp07/housepredict/core/model"
	"github.com/kilianp07/housepredict/core/prediction"
	"github.com/kilianp07/housepredict/core/validation"
	"github.com/kilianp07/housepredict/internal/eventbus"
)

// ErrSubmissionInFlight is returned by Submit when a cycle is already running.
// The call has no other effect.
var ErrSubmissionInFlight = errors.New("controller: submission already in flight")

// Validator checks raw fields. *validation.Validator implements it.
type Validator interface {
	Validate(fields model.FieldSet) (model.ValidatedFields, error)
}

// Snapshot is the read-only view published to the presentation layer.
type Snapshot struct {
	Fields   model.FieldSet
	State    model.RequestState
	Outcome  *model.PredictionOutcome
	Error    string
	Progress int
}

// Controller is the single owner of the form state.
type Controller struct {
	validator  Validator
	client     prediction.Client
	deriver    prediction.Deriver
	classifier prediction.Classifier
	metrics    metrics.MetricsSink
	log        logger.Logger
	bus        *eventbus.TypedBus[Snapshot]
	guard      *semaphore.Weighted

	mu      sync.Mutex
	fields  model.FieldSet
	state   model.RequestState
	outcome *model.PredictionOutcome
	errMsg  string
}

// Option customizes a Controller.
type Option func(*Controller)

// WithValidator replaces the default validator.
func WithValidator(v Validator) Option {
	return func(c *Controller) { c.validator = v }
}

// WithIntervalPolicy sets the fallback interval policy.
func WithIntervalPolicy(p prediction.IntervalPolicy) Option {
	return func(c *Controller) { c.deriver = prediction.NewDeriver(p) }
}

// WithMetrics sets the sink receiving one event per resolved cycle.
func WithMetrics(sink metrics.MetricsSink) Option {
	return func(c *Controller) { c.metrics = sink }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithBus sets the bus used to publish snapshots.
func WithBus(bus *eventbus.TypedBus[Snapshot]) Option {
	return func(c *Controller) { c.bus = bus }
}

// New creates a Controller in the Idle state with an empty form.
func New(client prediction.Client, opts ...Option) (*Controller, error) {
	if client == nil {
		return nil, fmt.Errorf("controller: nil prediction client")
	}
	c := &Controller{
		validator:  validation.New(),
		client:     client,
		deriver:    prediction.NewDeriver(prediction.DefaultIntervalPolicy),
		classifier: prediction.Classifier{Endpoint: client.Endpoint()},
		metrics:    metrics.NopSink{},
		log:        logger.NopLogger{},
		guard:      semaphore.NewWeighted(1),
		state:      model.StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.bus == nil {
		c.bus = eventbus.NewTyped[Snapshot]()
	}
	if c.validator == nil {
		c.validator = validation.New()
	}
	if c.metrics == nil {
		c.metrics = metrics.NopSink{}
	}
	if c.log == nil {
		c.log = logger.NopLogger{}
	}
	return c, nil
}

// Subscribe registers an observer. Every state change is delivered as a
// Snapshot; slow observers may miss intermediate ones.
func (c *Controller) Subscribe() <-chan Snapshot { return c.bus.Subscribe() }

// Unsubscribe removes an observer registered with Subscribe.
func (c *Controller) Unsubscribe(ch <-chan Snapshot) { c.bus.Unsubscribe(ch) }

// OnChange calls fn for every published Snapshot until cancel is called.
func (c *Controller) OnChange(fn func(Snapshot)) (cancel func()) { return c.bus.SubscribeFunc(fn) }

// Snapshot returns the current view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Fields:   c.fields,
		State:    c.state,
		Error:    c.errMsg,
		Progress: c.fields.Filled(),
	}
	if c.outcome != nil {
		o := *c.outcome
		s.Outcome = &o
	}
	return s
}

// SetField stores text for the named field and clears any error message.
// A resolved cycle returns to Idle; an in-flight one is left untouched.
func (c *Controller) SetField(name model.FieldName, text string) error {
	if !name.Valid() {
		return fmt.Errorf("controller: unknown field %d", name)
	}
	c.mu.Lock()
	c.fields = c.fields.With(name, text)
	c.errMsg = ""
	if c.state == model.StateSucceeded || c.state == model.StateFailed {
		c.state = model.StateIdle
	}
	c.bus.Publish(c.snapshotLocked())
	c.mu.Unlock()
	return nil
}

// Submit runs one submission cycle and blocks until it resolves. The result
// is reflected in the state, not in the returned error, which is only
// ErrSubmissionInFlight when another cycle holds the guard. The cycle ignores
// cancellation of ctx; the transport timeout bounds it instead.
func (c *Controller) Submit(ctx context.Context) error {
	if !c.guard.TryAcquire(1) {
		c.log.Debugf("submit ignored: cycle in flight")
		return ErrSubmissionInFlight
	}
	defer c.guard.Release(1)

	requestID := uuid.NewString()
	started := time.Now()

	c.mu.Lock()
	fields := c.fields
	c.outcome = nil
	c.errMsg = ""
	c.transitionLocked(model.StateValidating)
	c.mu.Unlock()

	values, err := c.validator.Validate(fields)
	if err != nil {
		c.failValidation(requestID, err)
		return nil
	}

	c.mu.Lock()
	c.transitionLocked(model.StateSubmitting)
	c.mu.Unlock()

	c.log.Infow("submitting prediction request", map[string]any{"request_id": requestID, "endpoint": c.client.Endpoint()})
	callStart := time.Now()
	raw, err := c.client.Predict(prediction.WithRequestID(context.WithoutCancel(ctx), requestID), values)
	latency := time.Since(callStart)

	ev := metrics.SubmissionEvent{RequestID: requestID, NetworkCall: true, Latency: latency, Time: time.Now()}
	if err != nil {
		cls := c.classifier.Classify(err)
		c.log.Errorf("prediction request %s failed: %v", requestID, err)
		c.mu.Lock()
		c.errMsg = cls.Message
		c.transitionLocked(model.StateFailed)
		c.mu.Unlock()
		ev.Result = string(cls.Kind)
		c.record(ev)
		return nil
	}

	out := c.deriver.Derive(raw)
	c.mu.Lock()
	c.outcome = &out
	c.transitionLocked(model.StateSucceeded)
	c.mu.Unlock()
	c.log.Infow("prediction received", map[string]any{
		"request_id":      requestID,
		"predicted_price": out.PredictedPrice,
		"lower_bound":     out.LowerBound,
		"upper_bound":     out.UpperBound,
		"interval_source": string(out.IntervalSource),
		"elapsed_ms":      time.Since(started).Milliseconds(),
	})
	ev.Result = metrics.ResultSucceeded
	ev.Outcome = out
	c.record(ev)
	return nil
}

func (c *Controller) failValidation(requestID string, err error) {
	msg := err.Error()
	field := ""
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		msg = verr.Message
		if verr.Kind == validation.OutOfRange {
			field = verr.Field.String()
		}
	}
	c.log.Debugf("validation failed: %s", msg)
	c.mu.Lock()
	c.errMsg = msg
	c.transitionLocked(model.StateFailed)
	c.mu.Unlock()

	now := time.Now()
	c.record(metrics.SubmissionEvent{RequestID: requestID, Result: string(prediction.FailureValidation), Time: now})
	if rec, ok := c.metrics.(metrics.ValidationRecorder); ok {
		if err := rec.RecordValidationFailure(metrics.ValidationFailureEvent{Field: field, Time: now}); err != nil {
			c.log.Warnf("validation metrics error: %v", err)
		}
	}
}

func (c *Controller) record(ev metrics.SubmissionEvent) {
	if err := c.metrics.RecordSubmission(ev); err != nil {
		c.log.Warnf("submission metrics error: %v", err)
	}
}

// transitionLocked must be called with c.mu held. Publishing under the lock
// keeps observers seeing transitions in order; Publish never blocks.
func (c *Controller) transitionLocked(s model.RequestState) {
	c.state = s
	c.bus.Publish(c.snapshotLocked())
}

// Close releases observers.
func (c *Controller) Close() error {
	c.bus.Close()
	return nil
}
