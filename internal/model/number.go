package model

import (
	"math"
	"strconv"
	"strings"
)

// TaxMode selects how product tax values feed aggregation. The source
// data is ambiguous about whether tax is a percentage or an absolute
// amount; the mode makes that choice explicit per engine instead of
// silently normalizing it.
type TaxMode string

const (
	// TaxPercentage treats Product.Tax as a 0-100 percentage.
	TaxPercentage TaxMode = "percentage"
	// TaxAbsolute treats Product.Tax as an absolute currency amount.
	TaxAbsolute TaxMode = "absolute"
)

// ParseTaxMode converts a string into a TaxMode.
func ParseTaxMode(s string) (TaxMode, bool) {
	switch TaxMode(s) {
	case TaxPercentage, TaxAbsolute:
		return TaxMode(s), true
	}
	return "", false
}

// Round2 rounds to 2 decimal places, half away from zero. Every derived
// monetary value passes through Round2 before being stored or compared.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NumOrZero treats an absent numeric field as 0 for aggregation while
// leaving the stored field nil.
func NumOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Float returns a pointer to v. Convenience for literals.
func Float(v float64) *float64 {
	return &v
}

// SameAmount reports whether two nullable amounts are equal to 2
// decimals. Two nils are equal; nil never equals a number. This is the
// equality guard the propagation engine relies on for termination.
func SameAmount(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Round2(*a) == Round2(*b)
}

// ParseCell parses a raw cell edit into a nullable number. An empty or
// whitespace-only string clears the field. Unparseable input also
// degrades to nil rather than failing the edit.
func ParseCell(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
