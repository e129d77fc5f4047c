// Package quantize rounds amounts to an exchange lot size.
package quantize

import "github.com/shopspring/decimal"

// Direction selects how a remainder is handled.
type Direction int

const (
	// RoundDown drops the remainder, moving toward zero.
	RoundDown Direction = iota
	// RoundUp moves any non-zero remainder away from zero.
	RoundUp
)

func (d Direction) String() string {
	if d == RoundUp {
		return "round_up"
	}
	return "round_down"
}

// Quantize returns amount as a whole multiple of increment. A non-positive
// increment leaves amount unchanged. The result is exact: QuoRem with zero
// precision yields an integer quotient, so no division scale is involved.
func Quantize(amount, increment decimal.Decimal, dir Direction) decimal.Decimal {
	if !increment.IsPositive() {
		return amount
	}
	q, r := amount.QuoRem(increment, 0)
	out := q.Mul(increment)
	if dir == RoundUp && !r.IsZero() {
		if amount.IsNegative() {
			out = out.Sub(increment)
		} else {
			out = out.Add(increment)
		}
	}
	return out
}

// Down is shorthand for Quantize(amount, increment, RoundDown).
func Down(amount, increment decimal.Decimal) decimal.Decimal {
	return Quantize(amount, increment, RoundDown)
}

// Up is shorthand for Quantize(amount, increment, RoundUp).
func Up(amount, increment decimal.Decimal) decimal.Decimal {
	return Quantize(amount, increment, RoundUp)
}

// Max returns the larger of two increments.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
