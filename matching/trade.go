// Package matching implements the price-time priority matching algorithm:
// crossing an incoming order against the resting ladder on the opposite
// side of a book.Book, producing trades and resting any remainder per the
// order's type and time-in-force.
package matching

import (
	"matchcore/book"
	"matchcore/fxp"
)

// Trade records one execution. Per §3: aggressor is the side of the order
// that arrived later (ties break toward the incoming order), and execution
// price is always the resting (passive) order's price.
type Trade struct {
	ID         fxp.TradeID
	BuyOrderID fxp.OrderID
	SellOrderID fxp.OrderID
	Symbol     fxp.SymbolID
	Price      fxp.Price
	Qty        fxp.Qty
	Timestamp  fxp.Timestamp
	Aggressor  book.Side
}

// OrderUpdate is emitted once per modified resting order and once for the
// incoming order: its terminal state, or its resting state if a remainder
// rests (§4.2 "Observable side effects").
type OrderUpdate struct {
	OrderID   fxp.OrderID
	Symbol    fxp.SymbolID
	Status    book.Status
	Filled    fxp.Qty
	Remaining fxp.Qty
	Reason    string // populated only for Status == book.Rejected
}
