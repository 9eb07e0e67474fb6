package risk

import "matchcore/fxp"

// Limits holds the configured thresholds §4.3/§6 check against. All fields
// are set once at startup from engine.Config and read concurrently by
// every Check call; Limits itself is never mutated after construction.
type Limits struct {
	MaxPosition        fxp.Position
	MaxNotional         fxp.Notional
	MaxOrderSize        fxp.Qty
	MaxPriceDeviation   fxp.Price
	MaxLossPerDay       fxp.Notional // positive number; crossing -value rejects
	MaxOrdersPerSecond  float64
	TokenBucketCapacity float64
}
