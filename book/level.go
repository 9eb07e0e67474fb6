package book

import "matchcore/fxp"

// PriceLevel is the FIFO queue of resting orders at a single price. Per §3:
// total quantity equals the sum of resting quantities, order count equals
// list length, and an empty level is removed from its side.
type PriceLevel struct {
	Price      fxp.Price
	TotalQty   fxp.Qty
	OrderCount int

	head *Order
	tail *Order
}

// Enqueue appends o to the back of the FIFO list (newest arrival).
func (lvl *PriceLevel) Enqueue(o *Order) {
	if lvl.tail == nil {
		lvl.head = o
		lvl.tail = o
	} else {
		lvl.tail.next = o
		o.prev = lvl.tail
		lvl.tail = o
	}
	lvl.TotalQty += o.Remaining()
	lvl.OrderCount++
}

// Head returns the oldest resting order (the next one to match), or nil if
// the level is empty.
func (lvl *PriceLevel) Head() *Order {
	return lvl.head
}

// Empty reports whether the level has no resting orders.
func (lvl *PriceLevel) Empty() bool {
	return lvl.head == nil
}

// Fill reduces the level's total by qty without unlinking o — used when o
// is partially matched but remains resting.
func (lvl *PriceLevel) Fill(o *Order, qty fxp.Qty) {
	o.Filled += qty
	lvl.TotalQty -= qty
}

// PopHead unlinks and returns the head order (fully matched or expiring).
func (lvl *PriceLevel) PopHead() *Order {
	o := lvl.head
	if o == nil {
		return nil
	}
	lvl.Unlink(o)
	return o
}

// Unlink removes o from the FIFO list wherever it sits (used by Cancel,
// which may remove from the middle of the list in theory, though in
// practice only the head is ever ahead-matched).
func (lvl *PriceLevel) Unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		lvl.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		lvl.tail = o.prev
	}
	lvl.TotalQty -= o.Remaining()
	lvl.OrderCount--
	o.next, o.prev = nil, nil
}
