package fxp

import "sync/atomic"

// OrderID uniquely identifies a submitted order for its lifetime.
type OrderID uint64

// TradeID uniquely identifies a generated trade.
type TradeID uint64

// SymbolID identifies a tradable instrument.
type SymbolID uint32

// Timestamp is a monotonic integer read at ingress. It is comparable and
// orderable; converting it to wall-clock nanoseconds is a calibration
// concern handled by telemetry, not by anything that compares timestamps.
type Timestamp int64

// Sequencer hands out strictly monotonic, gap-free 64-bit identifiers. It
// backs both OrderID and TradeID allocation.
type Sequencer struct {
	next atomic.Uint64
}

// NewSequencer returns a Sequencer whose first Next() call returns start+1.
func NewSequencer(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next identifier in the sequence.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued identifier without allocating a new one.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// NextOrderID allocates the next OrderID.
func (s *Sequencer) NextOrderID() OrderID {
	return OrderID(s.Next())
}

// NextTradeID allocates the next TradeID.
func (s *Sequencer) NextTradeID() TradeID {
	return TradeID(s.Next())
}
