package matching

import "sync/atomic"

// Counters tracks the per-engine statistics §4.2/§9 name, plus the two
// derived stats the C++ prototype this spec was distilled from reports
// (match rate, average fill size) — see SPEC_FULL's "Supplemented
// features". All fields are updated with relaxed atomics; none of them
// gate correctness, only observability.
type Counters struct {
	ordersProcessed atomic.Uint64
	tradesGenerated atomic.Uint64
	volumeMatched   atomic.Uint64
	poolExhausted   atomic.Uint64
}

func (c *Counters) recordOrder() {
	c.ordersProcessed.Add(1)
}

func (c *Counters) recordTrade(qty uint64) {
	c.tradesGenerated.Add(1)
	c.volumeMatched.Add(qty)
}

func (c *Counters) recordPoolExhaustion() {
	c.poolExhausted.Add(1)
}

// OrdersProcessed returns total_orders_processed.
func (c *Counters) OrdersProcessed() uint64 { return c.ordersProcessed.Load() }

// TradesGenerated returns total_trades_generated.
func (c *Counters) TradesGenerated() uint64 { return c.tradesGenerated.Load() }

// VolumeMatched returns total_volume_matched.
func (c *Counters) VolumeMatched() uint64 { return c.volumeMatched.Load() }

// PoolExhausted returns how many times a pool acquisition failed during
// matching (§4.2/§7 "surfaced via a counter for monitoring").
func (c *Counters) PoolExhausted() uint64 { return c.poolExhausted.Load() }

// MatchRate returns trades/orders, or 0 if no orders have been processed.
func (c *Counters) MatchRate() float64 {
	orders := c.OrdersProcessed()
	if orders == 0 {
		return 0
	}
	return float64(c.TradesGenerated()) / float64(orders)
}

// AverageFillSize returns volume/trades, or 0 if no trades have occurred.
func (c *Counters) AverageFillSize() float64 {
	trades := c.TradesGenerated()
	if trades == 0 {
		return 0
	}
	return float64(c.VolumeMatched()) / float64(trades)
}
