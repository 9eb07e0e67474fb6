// Package book implements the per-symbol order book: the matching-book
// price ladder (a red-black tree of price levels with FIFO intrusive order
// lists) and the quote-book variant used by market-data consumers (a
// sorted array with a price->index hash map). Both share the same Order
// and PriceLevel types; §4.1 treats them as two legitimate representations
// for different call sites, not competing designs.
package book

import "matchcore/fxp"

// Side is which side of the book an order or level belongs to.
type Side uint8

const (
	Buy Side = iota
	Sell
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Type is the order's execution policy, per §3. Only Limit and Market are
// fully specified by §4.2; Stop/StopLimit activation is outside this
// package's scope (§4.2 "Activation logic is outside this specification's
// scope") — once activated, a Stop behaves as Market and a StopLimit as
// Limit.
type Type uint8

const (
	Limit Type = iota
	Market
	Stop
	StopLimit
)

// TIF is the order's time-in-force, per §3.
type TIF uint8

const (
	Day TIF = iota
	IOC
	FOK
	GTC
)

// Status is the order's lifecycle state, per §3's state machine:
// Incoming -> (PartiallyFilled)* -> (Filled | Cancelled | Rejected).
type Status uint8

const (
	Incoming Status = iota
	PartiallyFilled
	Filled
	Cancelled
	Rejected
)

// Order is a resting or in-flight order. Orders are constructed by value at
// ingress and only occupy a pool node once a non-zero remainder actually
// rests in the book (§3 "Lifecycle").
type Order struct {
	ID       fxp.OrderID
	Symbol   fxp.SymbolID
	Side     Side
	Type     Type
	TIF      TIF
	Price    fxp.Price
	OrigQty  fxp.Qty
	Filled   fxp.Qty
	Status   Status
	Ingress  fxp.Timestamp

	// intrusive FIFO list pointers, valid only while the order rests in a
	// PriceLevel.
	prev *Order
	next *Order
}

// Remaining returns OrigQty - Filled.
func (o *Order) Remaining() fxp.Qty {
	return o.OrigQty - o.Filled
}

// Next returns the next order in FIFO arrival order at the same level, or
// nil at the tail. Read-only traversal helper for snapshot/replay code.
func (o *Order) Next() *Order { return o.next }

// Prev returns the previous order in FIFO arrival order, or nil at the head.
func (o *Order) Prev() *Order { return o.prev }
