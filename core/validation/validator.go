// Package validation checks the raw form values before anything is sent to
// the prediction service.
package validation

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/housepredict/core/model"
)

// ErrorKind distinguishes a missing value from a value outside its range.
type ErrorKind int

const (
	Incomplete ErrorKind = iota
	OutOfRange
)

// IncompleteMessage is shown when at least one field is empty.
const IncompleteMessage = "Please complete all fields to get your prediction."

// ValidationError describes the first rule violated by a FieldSet.
type ValidationError struct {
	Kind    ErrorKind
	Field   model.FieldName
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type rule struct {
	field   model.FieldName
	min     float64
	max     func(now time.Time) float64
	integer bool
	message string
}

func fixed(v float64) func(time.Time) float64 { return func(time.Time) float64 { return v } }

// rules are evaluated in this order and the first violation wins.
var rules = []rule{
	{model.OverallQual, 1, fixed(10), true, "Overall Quality must be between 1 and 10"},
	{model.YearBuilt, 1800, func(now time.Time) float64 { return float64(now.Year()) }, true, "Please enter a valid construction year"},
	{model.GarageCars, 0, fixed(5), true, "Garage capacity must be between 0 and 5 cars"},
	{model.GrLivArea, 0, fixed(10000), false, "Please enter a valid living area"},
	{model.TotalBsmtSF, 0, fixed(10000), false, "Please enter a valid basement area"},
}

// Validator applies the per-field range rules. The clock decides the upper
// bound of YearBuilt.
type Validator struct {
	now func() time.Time
}

// New returns a Validator using the wall clock.
func New() *Validator { return &Validator{now: time.Now} }

// NewWithClock returns a Validator reading the current year from now.
func NewWithClock(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// Validate checks completeness then ranges, returning the numeric values on
// success. Errors are always *ValidationError.
func (v *Validator) Validate(fields model.FieldSet) (model.ValidatedFields, error) {
	if !fields.Complete() {
		return model.ValidatedFields{}, &ValidationError{Kind: Incomplete, Message: IncompleteMessage}
	}
	now := v.now()
	values := make(map[model.FieldName]float64, model.FieldCount)
	for _, r := range rules {
		n, ok := parse(fields.Get(r.field))
		if !ok || n < r.min || n > r.max(now) || (r.integer && n != math.Trunc(n)) {
			return model.ValidatedFields{}, &ValidationError{Kind: OutOfRange, Field: r.field, Message: r.message}
		}
		values[r.field] = n
	}
	return model.ValidatedFields{
		OverallQual: int(values[model.OverallQual]),
		GrLivArea:   values[model.GrLivArea],
		GarageCars:  int(values[model.GarageCars]),
		YearBuilt:   int(values[model.YearBuilt]),
		TotalBsmtSF: values[model.TotalBsmtSF],
	}, nil
}

func parse(text string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
