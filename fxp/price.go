// Package fxp holds the fixed-point primitives the rest of matchcore builds
// on: scaled prices/quantities/notionals and the identifier types assigned
// at ingress. Conversions to and from floating point happen only at the
// edges of the system (config files, logs); nothing in the hot path ever
// sees a float.
package fxp

// Scale is the fixed-point scale applied to prices and notionals: every
// Price/Notional value is the real decimal value multiplied by Scale.
const Scale int64 = 1e8

// Price is a scaled price, e.g. a real price of 100.25 is Price(100_250_00000).
type Price int64

// Qty is an unsigned resting/order quantity. Quantities are never scaled.
type Qty uint64

// Notional is a scaled currency amount (price * quantity, still at Scale).
type Notional int64

// Position is a signed net quantity; |Position| is compared against
// configured limits.
type Position int64

// Mul computes a scaled notional from a price and quantity without losing
// the Scale factor: notional = price * qty (qty is unscaled), so the result
// is already expressed at Scale.
func (p Price) Mul(q Qty) Notional {
	return Notional(int64(p) * int64(q))
}

// Abs returns the absolute value of a Position.
func (pos Position) Abs() Position {
	if pos < 0 {
		return -pos
	}
	return pos
}

// Sign returns -1, 0, or 1.
func (pos Position) Sign() int {
	switch {
	case pos > 0:
		return 1
	case pos < 0:
		return -1
	default:
		return 0
	}
}

// Deviation returns the absolute difference between two prices.
func Deviation(a, b Price) Price {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}

// Mid returns the midpoint of two prices.
func Mid(bid, ask Price) Price {
	return (bid + ask) / 2
}

// SpreadBps returns the bid/ask spread in basis points: (ask-bid)/mid * 10000.
// Returns 0 if mid is non-positive (shouldn't happen for valid crossed books).
func SpreadBps(bid, ask Price) int64 {
	mid := Mid(bid, ask)
	if mid <= 0 {
		return 0
	}
	return int64(ask-bid) * 10000 / int64(mid)
}
