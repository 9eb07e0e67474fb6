package telemetry

import "sync/atomic"

// Counters tracks the ambient, cross-cutting failure counters §7 requires:
// pool exhaustion, queue drops, and parse errors. Stage-specific business
// counters (matching.Counters, risk rejections) live next to the stage
// that produces them; these are the ones every stage shares the same
// shape for.
type Counters struct {
	poolExhausted atomic.Uint64
	queueDropped  atomic.Uint64
	parseErrors   atomic.Uint64
}

func (c *Counters) RecordPoolExhausted() { c.poolExhausted.Add(1) }
func (c *Counters) RecordQueueDropped()  { c.queueDropped.Add(1) }
func (c *Counters) RecordParseError()    { c.parseErrors.Add(1) }

func (c *Counters) PoolExhausted() uint64 { return c.poolExhausted.Load() }
func (c *Counters) QueueDropped() uint64  { return c.queueDropped.Load() }
func (c *Counters) ParseErrors() uint64   { return c.parseErrors.Load() }
