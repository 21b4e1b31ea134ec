package backend

import (
	"fmt"

	"github.com/kilianp07/housepredict/core/model"
)

// Estimator produces a price for a set of features.
type Estimator interface {
	Estimate(f model.ValidatedFields) (float64, error)
}

// LinearEstimator is a fixed linear model. It is deterministic and only meant
// to stand in for a trained model during local runs and tests.
type LinearEstimator struct {
	Intercept   float64
	PerQuality  float64
	PerLivSqft  float64
	PerCar      float64
	PerYear     float64
	PerBsmtSqft float64
	// BaseYear is subtracted from YearBuilt before weighting.
	BaseYear int
}

// DefaultEstimator returns coefficients giving plausible prices for
// mid-range homes.
func DefaultEstimator() LinearEstimator {
	return LinearEstimator{
		Intercept:   20000,
		PerQuality:  18000,
		PerLivSqft:  55,
		PerCar:      9000,
		PerYear:     450,
		PerBsmtSqft: 30,
		BaseYear:    1900,
	}
}

func (e LinearEstimator) Estimate(f model.ValidatedFields) (float64, error) {
	if f.OverallQual < 1 {
		return 0, fmt.Errorf("OverallQual must be positive")
	}
	return e.Intercept +
		e.PerQuality*float64(f.OverallQual) +
		e.PerLivSqft*f.GrLivArea +
		e.PerCar*float64(f.GarageCars) +
		e.PerYear*float64(f.YearBuilt-e.BaseYear) +
		e.PerBsmtSqft*f.TotalBsmtSF, nil
}
