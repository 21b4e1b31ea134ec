package model

import "fmt"

// FieldName identifies one of the property attributes collected by the form.
type FieldName int

const (
	OverallQual FieldName = iota
	GrLivArea
	GarageCars
	YearBuilt
	TotalBsmtSF
)

// FieldCount is the number of inputs making up a FieldSet.
const FieldCount = 5

// FieldNames lists every field in canonical order.
var FieldNames = [FieldCount]FieldName{OverallQual, GrLivArea, GarageCars, YearBuilt, TotalBsmtSF}

// String returns the wire name of the field.
func (f FieldName) String() string {
	switch f {
	case OverallQual:
		return "OverallQual"
	case GrLivArea:
		return "GrLivArea"
	case GarageCars:
		return "GarageCars"
	case YearBuilt:
		return "YearBuilt"
	case TotalBsmtSF:
		return "TotalBsmtSF"
	default:
		return "unknown"
	}
}

// Valid reports whether f names a known field.
func (f FieldName) Valid() bool {
	return f >= OverallQual && f <= TotalBsmtSF
}

// ParseFieldName maps a wire name back to its FieldName.
func ParseFieldName(s string) (FieldName, error) {
	for _, f := range FieldNames {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", s)
}

// FieldSet holds the raw text entered for each field. The zero value is an
// empty form.
type FieldSet struct {
	values [FieldCount]string
}

// Get returns the raw text of a field.
func (s FieldSet) Get(f FieldName) string {
	if !f.Valid() {
		return ""
	}
	return s.values[f]
}

// With returns a copy of the set with f replaced by text.
func (s FieldSet) With(f FieldName, text string) FieldSet {
	if f.Valid() {
		s.values[f] = text
	}
	return s
}

// Filled returns the number of fields holding non-empty text.
func (s FieldSet) Filled() int {
	n := 0
	for _, v := range s.values {
		if v != "" {
			n++
		}
	}
	return n
}

// Complete reports whether every field holds non-empty text.
func (s FieldSet) Complete() bool { return s.Filled() == FieldCount }

// Map returns the raw values keyed by wire name.
func (s FieldSet) Map() map[string]string {
	m := make(map[string]string, FieldCount)
	for _, f := range FieldNames {
		m[f.String()] = s.values[f]
	}
	return m
}

// ValidatedFields carries the numeric values sent to the prediction service.
type ValidatedFields struct {
	OverallQual int     `json:"OverallQual"`
	GrLivArea   float64 `json:"GrLivArea"`
	GarageCars  int     `json:"GarageCars"`
	YearBuilt   int     `json:"YearBuilt"`
	TotalBsmtSF float64 `json:"TotalBsmtSF"`
}
