package engine

import (
	"matchcore/book"
	"matchcore/fxp"
	"matchcore/marketdata"
)

// SubmitFunc places a new order on behalf of a Strategy and returns its
// assigned identifier. Cancel is requested through CancelFunc.
type SubmitFunc func(o book.Order) fxp.OrderID

// CancelFunc requests cancellation of a resting order by id.
type CancelFunc func(id fxp.OrderID) bool

// Strategy is the injected-callback interface external collaborators
// implement to react to market data and trades (§6). The orchestrator
// never holds a back-reference into a Strategy beyond calling these
// methods — no cyclic ownership (§9).
type Strategy interface {
	OnMarketData(tick marketdata.MarketTick)
	OnBookSnapshot(snap book.BookSnapshot)
	OnTrade(trade TradeEvent)
	// ProcessSignals is invoked once per strategy-stage iteration and must
	// not block; a strategy that wants to act on an interval should track
	// its own timer and no-op otherwise.
	ProcessSignals()
	IsEnabled() bool
	SymbolID() fxp.SymbolID
	Shutdown()
}

// TradeEvent is the trade notification handed to a Strategy's OnTrade.
type TradeEvent struct {
	Symbol fxp.SymbolID
	Price  fxp.Price
	Qty    fxp.Qty
	Side   book.Side
}

// strategyBinding pairs a Strategy with the submit/cancel callbacks
// RegisterStrategy bound to the engine; the callbacks stay in the binding
// and are not passed to the Strategy. The orchestrator only ever drives
// ProcessSignals and the On* notifications.
type strategyBinding struct {
	strategy Strategy
	submit   SubmitFunc
	cancel   CancelFunc
}
