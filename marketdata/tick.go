package marketdata

import (
	"matchcore/book"
	"matchcore/fxp"
)

// MarketTick is the synthesized event enqueued into a symbol's ingress
// ring for every incremental message (§4.4): a locally stamped timestamp
// plus a monotonic per-symbol sequence, independent of whatever sequence
// number arrived on the wire.
type MarketTick struct {
	Symbol    fxp.SymbolID
	Price     fxp.Price
	Quantity  fxp.Qty
	Side      book.Side
	Sequence  uint64
	Timestamp fxp.Timestamp
}

// SnapshotEvent is emitted after a snapshot message installs new top levels
// for one side of a symbol's quote book (§4.4 "installs the top levels into
// the book and emits a snapshot event").
type SnapshotEvent struct {
	Symbol    fxp.SymbolID
	Side      book.Side
	Levels    []SnapshotLevel
	Timestamp fxp.Timestamp
}
