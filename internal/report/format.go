package report

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/aidanvyas/asset-pricing-code/internal/audit"
)

// DefaultPrecision is the number of decimal places in report cells
const DefaultPrecision = 2

// Fixed renders v with a fixed number of decimal places; 결측/무한대는 빈 문자열
func Fixed(v float64, places int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).StringFixed(int32(places))
}

// Percent renders a decimal return as a percentage ("1.23%")
func Percent(v float64, places int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).Shift(2).StringFixed(int32(places)) + "%"
}

// Starred renders a decimal return as a percentage with significance stars
func Starred(v, t float64, places int) string {
	s := Percent(v, places)
	if s == "" {
		return s
	}
	return s + audit.Stars(t)
}

// TStat renders a t-statistic in brackets ("[2.31]")
func TStat(t float64) string {
	s := Fixed(t, 2)
	if s == "" {
		return s
	}
	return "[" + s + "]"
}
