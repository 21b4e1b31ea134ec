package prediction

import (
	"math"

	"github.com/kilianp07/housepredict/core/model"
)

// IntervalPolicy derives missing bounds as factors of the predicted price.
type IntervalPolicy struct {
	LowerFactor float64
	UpperFactor float64
}

// DefaultIntervalPolicy applies a ±15% band.
var DefaultIntervalPolicy = IntervalPolicy{LowerFactor: 0.85, UpperFactor: 1.15}

// Deriver turns a canonical response into a PredictionOutcome.
type Deriver struct {
	Policy IntervalPolicy
}

// NewDeriver returns a Deriver using p. A zero policy selects the default.
func NewDeriver(p IntervalPolicy) Deriver {
	if p == (IntervalPolicy{}) {
		p = DefaultIntervalPolicy
	}
	return Deriver{Policy: p}
}

// Derive uses the server bounds when present and the policy otherwise.
func (d Deriver) Derive(raw RawResponse) model.PredictionOutcome {
	p := d.Policy
	if p == (IntervalPolicy{}) {
		p = DefaultIntervalPolicy
	}
	price := raw.Price
	// A negative price flips the factored values.
	lowFallback := math.Min(price*p.LowerFactor, price*p.UpperFactor)
	highFallback := math.Max(price*p.LowerFactor, price*p.UpperFactor)

	out := model.PredictionOutcome{
		PredictedPrice: price,
		LowerBound:     lowFallback,
		UpperBound:     highFallback,
		IntervalSource: model.IntervalFromServer,
	}
	if raw.Lower != nil {
		out.LowerBound = *raw.Lower
	} else {
		out.IntervalSource = model.IntervalFallback
	}
	if raw.Upper != nil {
		out.UpperBound = *raw.Upper
	} else {
		out.IntervalSource = model.IntervalFallback
	}
	return out
}
