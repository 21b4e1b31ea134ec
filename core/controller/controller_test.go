package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/housepredict/core/metrics"
	"github.com/kilianp07/housepredict/core/model"
	"github.com/kilianp07/housepredict/core/prediction"
	"github.com/kilianp07/housepredict/core/validation"
)

type recordingSink struct {
	mu      sync.Mutex
	events  []metrics.SubmissionEvent
	invalid []metrics.ValidationFailureEvent
}

func (r *recordingSink) RecordSubmission(ev metrics.SubmissionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) RecordValidationFailure(ev metrics.ValidationFailureEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalid = append(r.invalid, ev)
	return nil
}

func fixedValidator() *validation.Validator {
	return validation.NewWithClock(func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) })
}

func newController(t *testing.T, client prediction.Client, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithValidator(fixedValidator())}, opts...)
	c, err := New(client, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func fill(t *testing.T, c *Controller, values map[model.FieldName]string) {
	t.Helper()
	for name, v := range values {
		require.NoError(t, c.SetField(name, v))
	}
}

func validForm() map[model.FieldName]string {
	return map[model.FieldName]string{
		model.OverallQual: "7",
		model.GrLivArea:   "1500",
		model.GarageCars:  "2",
		model.YearBuilt:   "2005",
		model.TotalBsmtSF: "1000",
	}
}

func drainStates(ch <-chan Snapshot) []model.RequestState {
	var states []model.RequestState
	for {
		select {
		case s := <-ch:
			states = append(states, s.State)
		default:
			return states
		}
	}
}

func TestNewRejectsNilClient(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestInitialSnapshot(t *testing.T) {
	c := newController(t, &prediction.MockClient{})
	s := c.Snapshot()
	assert.Equal(t, model.StateIdle, s.State)
	assert.Nil(t, s.Outcome)
	assert.Empty(t, s.Error)
	assert.Equal(t, 0, s.Progress)
}

func TestSubmitSuccessUsesFallbackInterval(t *testing.T) {
	client := &prediction.MockClient{Response: prediction.RawResponse{Price: 250000}}
	sink := &recordingSink{}
	c := newController(t, client, WithMetrics(sink))
	fill(t, c, validForm())

	ch := c.Subscribe()
	require.NoError(t, c.Submit(context.Background()))

	s := c.Snapshot()
	require.Equal(t, model.StateSucceeded, s.State)
	require.NotNil(t, s.Outcome)
	assert.Equal(t, 250000.0, s.Outcome.PredictedPrice)
	assert.InDelta(t, 212500.0, s.Outcome.LowerBound, 1e-6)
	assert.InDelta(t, 287500.0, s.Outcome.UpperBound, 1e-6)
	assert.Equal(t, model.IntervalFallback, s.Outcome.IntervalSource)
	assert.Empty(t, s.Error)
	assert.Equal(t, []model.RequestState{model.StateValidating, model.StateSubmitting, model.StateSucceeded}, drainStates(ch))

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, model.ValidatedFields{OverallQual: 7, GrLivArea: 1500, GarageCars: 2, YearBuilt: 2005, TotalBsmtSF: 1000}, calls[0])

	require.Len(t, sink.events, 1)
	assert.True(t, sink.events[0].Succeeded())
	assert.True(t, sink.events[0].NetworkCall)
	assert.NotEmpty(t, sink.events[0].RequestID)
}

func TestSubmitKeepsServerInterval(t *testing.T) {
	lo, hi := 200000.0, 300000.0
	client := &prediction.MockClient{Response: prediction.RawResponse{Price: 250000, Lower: &lo, Upper: &hi}}
	c := newController(t, client)
	fill(t, c, validForm())

	require.NoError(t, c.Submit(context.Background()))
	s := c.Snapshot()
	require.NotNil(t, s.Outcome)
	assert.Equal(t, 200000.0, s.Outcome.LowerBound)
	assert.Equal(t, 300000.0, s.Outcome.UpperBound)
	assert.Equal(t, model.IntervalFromServer, s.Outcome.IntervalSource)
}

func TestIncompleteFormMakesNoNetworkCall(t *testing.T) {
	client := &prediction.MockClient{Response: prediction.RawResponse{Price: 1}}
	sink := &recordingSink{}
	c := newController(t, client, WithMetrics(sink))
	form := validForm()
	delete(form, model.GarageCars)
	fill(t, c, form)

	require.NoError(t, c.Submit(context.Background()))
	s := c.Snapshot()
	assert.Equal(t, model.StateFailed, s.State)
	assert.Equal(t, validation.IncompleteMessage, s.Error)
	assert.Nil(t, s.Outcome)
	assert.Empty(t, client.Calls())

	require.Len(t, sink.events, 1)
	assert.Equal(t, string(prediction.FailureValidation), sink.events[0].Result)
	assert.False(t, sink.events[0].NetworkCall)
	require.Len(t, sink.invalid, 1)
	assert.Empty(t, sink.invalid[0].Field)
}

func TestOutOfRangeReportsField(t *testing.T) {
	client := &prediction.MockClient{}
	sink := &recordingSink{}
	c := newController(t, client, WithMetrics(sink))
	form := validForm()
	form[model.OverallQual] = "11"
	fill(t, c, form)

	require.NoError(t, c.Submit(context.Background()))
	s := c.Snapshot()
	assert.Equal(t, model.StateFailed, s.State)
	assert.Equal(t, "Overall Quality must be between 1 and 10", s.Error)
	assert.Empty(t, client.Calls())
	require.Len(t, sink.invalid, 1)
	assert.Equal(t, model.OverallQual.String(), sink.invalid[0].Field)
}

func TestBoundaryValuesAreSubmitted(t *testing.T) {
	client := &prediction.MockClient{Response: prediction.RawResponse{Price: 100000}}
	c := newController(t, client)
	fill(t, c, map[model.FieldName]string{
		model.OverallQual: "10",
		model.GrLivArea:   "10000",
		model.GarageCars:  "0",
		model.YearBuilt:   "1800",
		model.TotalBsmtSF: "0",
	})

	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, model.StateSucceeded, c.Snapshot().State)
	require.Len(t, client.Calls(), 1)
}

func TestUnreachableKeepsFields(t *testing.T) {
	client := &prediction.MockClient{
		Err: prediction.NewUnreachable(errors.New("connection refused")),
		URL: "http://localhost:5000",
	}
	sink := &recordingSink{}
	c := newController(t, client, WithMetrics(sink))
	fill(t, c, validForm())
	before := c.Snapshot().Fields

	require.NoError(t, c.Submit(context.Background()))
	s := c.Snapshot()
	assert.Equal(t, model.StateFailed, s.State)
	assert.Equal(t, "Unable to connect to the prediction service. Please ensure your backend is running on http://localhost:5000.", s.Error)
	assert.Equal(t, before, s.Fields)
	assert.Nil(t, s.Outcome)
	require.Len(t, sink.events, 1)
	assert.Equal(t, string(prediction.FailureUnreachable), sink.events[0].Result)
}

func TestServerErrorMessage(t *testing.T) {
	client := &prediction.MockClient{Err: prediction.NewServerError(500, "")}
	c := newController(t, client)
	fill(t, c, validForm())

	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, "Prediction failed: Server error: 500.", c.Snapshot().Error)
}

func TestUnexpectedErrorMessage(t *testing.T) {
	client := &prediction.MockClient{Err: errors.New("boom")}
	c := newController(t, client)
	fill(t, c, validForm())

	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, prediction.UnexpectedMessage, c.Snapshot().Error)
}

func TestSubmitWhileInFlightIsIgnored(t *testing.T) {
	client := &prediction.MockClient{
		Response: prediction.RawResponse{Price: 180000},
		Started:  make(chan struct{}),
		Release:  make(chan struct{}),
	}
	c := newController(t, client)
	fill(t, c, validForm())

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()
	<-client.Started

	assert.Equal(t, model.StateSubmitting, c.Snapshot().State)
	assert.ErrorIs(t, c.Submit(context.Background()), ErrSubmissionInFlight)

	// Editing while in flight changes the form but not the request.
	require.NoError(t, c.SetField(model.OverallQual, "3"))
	assert.Equal(t, model.StateSubmitting, c.Snapshot().State)

	close(client.Release)
	require.NoError(t, <-done)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 7, calls[0].OverallQual)

	s := c.Snapshot()
	assert.Equal(t, model.StateSucceeded, s.State)
	assert.Equal(t, "3", s.Fields.Get(model.OverallQual))
}

func TestSubmitIgnoresCallerCancellation(t *testing.T) {
	client := &prediction.MockClient{
		Response: prediction.RawResponse{Price: 180000},
		Started:  make(chan struct{}),
		Release:  make(chan struct{}),
	}
	c := newController(t, client)
	fill(t, c, validForm())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Submit(ctx) }()
	<-client.Started
	cancel()
	close(client.Release)
	require.NoError(t, <-done)
	assert.Equal(t, model.StateSucceeded, c.Snapshot().State)
}

func TestSetFieldClearsErrorAndReturnsToIdle(t *testing.T) {
	c := newController(t, &prediction.MockClient{})
	require.NoError(t, c.Submit(context.Background()))
	require.Equal(t, model.StateFailed, c.Snapshot().State)

	require.NoError(t, c.SetField(model.GrLivArea, "1200"))
	s := c.Snapshot()
	assert.Equal(t, model.StateIdle, s.State)
	assert.Empty(t, s.Error)
	assert.Equal(t, 1, s.Progress)
}

func TestSetFieldRejectsUnknownField(t *testing.T) {
	c := newController(t, &prediction.MockClient{})
	assert.Error(t, c.SetField(model.FieldName(42), "1"))
}

func TestResubmitAfterSuccessClearsOutcome(t *testing.T) {
	client := &prediction.MockClient{Response: prediction.RawResponse{Price: 100000}}
	c := newController(t, client)
	fill(t, c, validForm())
	require.NoError(t, c.Submit(context.Background()))
	require.NotNil(t, c.Snapshot().Outcome)

	require.NoError(t, c.SetField(model.GarageCars, ""))
	require.NoError(t, c.Submit(context.Background()))
	s := c.Snapshot()
	assert.Equal(t, model.StateFailed, s.State)
	assert.Nil(t, s.Outcome)
}

func TestOnChangeReportsProgress(t *testing.T) {
	c := newController(t, &prediction.MockClient{})
	got := make(chan int, model.FieldCount)
	cancel := c.OnChange(func(s Snapshot) { got <- s.Progress })
	defer cancel()

	require.NoError(t, c.SetField(model.OverallQual, "5"))
	require.NoError(t, c.SetField(model.YearBuilt, "1990"))

	for _, want := range []int{1, 2} {
		select {
		case p := <-got:
			assert.Equal(t, want, p)
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for progress %d", want)
		}
	}
}

func TestCustomIntervalPolicy(t *testing.T) {
	client := &prediction.MockClient{Response: prediction.RawResponse{Price: 100000}}
	c := newController(t, client, WithIntervalPolicy(prediction.IntervalPolicy{LowerFactor: 0.9, UpperFactor: 1.1}))
	fill(t, c, validForm())
	require.NoError(t, c.Submit(context.Background()))
	s := c.Snapshot()
	require.NotNil(t, s.Outcome)
	assert.InDelta(t, 90000.0, s.Outcome.LowerBound, 1e-6)
	assert.InDelta(t, 110000.0, s.Outcome.UpperBound, 1e-6)
}
