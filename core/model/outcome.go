package model

// IntervalSource tells where the confidence interval of an outcome came from.
type IntervalSource string

const (
	// IntervalFromServer means both bounds were supplied by the service.
	IntervalFromServer IntervalSource = "server"
	// IntervalFallback means at least one bound was derived locally.
	IntervalFallback IntervalSource = "fallback"
)

// PredictionOutcome is the result of a successful submission cycle.
// LowerBound <= PredictedPrice <= UpperBound always holds.
type PredictionOutcome struct {
	PredictedPrice float64        `json:"predicted_price"`
	LowerBound     float64        `json:"lower_bound"`
	UpperBound     float64        `json:"upper_bound"`
	IntervalSource IntervalSource `json:"interval_source"`
}

// RequestState is the lifecycle state of the prediction form.
type RequestState int

const (
	StateIdle RequestState = iota
	StateValidating
	StateSubmitting
	StateSucceeded
	StateFailed
)

// String returns a human-readable representation of the state.
func (s RequestState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Busy reports whether a submission cycle is in progress.
func (s RequestState) Busy() bool {
	return s == StateValidating || s == StateSubmitting
}
