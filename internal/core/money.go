// Package core holds the expense domain: money handling, the category set,
// the Expense entity, and validation/normalization of untrusted input.
package core

import "math"

// MaxAmount is the largest accepted amount in major units.
const MaxAmount = 100_000_000

// Money is an exact amount in minor currency units (cents). All arithmetic
// and persistence happen on cents; float64 appears only at the boundaries.
type Money struct {
	Cents int64
}

// RoundAmount rounds a major-unit amount to two decimal places, half away
// from zero. Applied during normalization, before the cents conversion.
func RoundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}

// ToCents converts a major-unit amount to minor units. The input is expected
// to already be display-rounded; the round here only absorbs binary
// representation error, never a third decimal digit.
func ToCents(amount float64) Money {
	return Money{Cents: int64(math.Round(amount * 100))}
}

// Amount returns the display-unit value. Response shaping only; never feed
// the result back into calculations.
func (m Money) Amount() float64 {
	return float64(m.Cents) / 100
}
