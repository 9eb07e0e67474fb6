package risk

import (
	"sync"

	"github.com/cockroachdb/errors"

	"matchcore/book"
	"matchcore/fxp"
)

// RiskResult classifies the outcome of a Check call, including every
// rejection reason named by §4.3/§7. It is a value, not an error: rejection
// is an expected outcome on the hot path, never propagated as a Go error.
type RiskResult string

const (
	Approved             RiskResult = ""
	RejectRateLimit      RiskResult = "rate_limit"
	RejectOrderSize      RiskResult = "order_size"
	RejectPriceLimit     RiskResult = "price_limit"
	RejectPositionLimit  RiskResult = "position_limit"
	RejectNotionalLimit  RiskResult = "notional_limit"
	RejectLossLimit      RiskResult = "loss_limit"
)

// symbolState is the per-symbol state the gate needs: a rate-limit bucket
// and a position tracker. Created lazily on first reference.
type symbolState struct {
	bucket   *TokenBucket
	position *PositionTracker
}

// Gate is the pre-trade authorization gate (§4.3). One Gate instance
// guards every symbol; a shared-exclusive lock over the symbol map guards
// resize, while per-symbol atomics/locks allow concurrent reads (§5).
type Gate struct {
	limits Limits
	nowFn  func() int64 // unix nanoseconds, for constructing token buckets

	global *TokenBucket

	mu      sync.RWMutex
	symbols map[fxp.SymbolID]*symbolState

	newBucket func() *TokenBucket
}

// NewGate constructs a Gate from limits. newBucket builds every token
// bucket the gate uses: the global one, once here, and a fresh one per
// symbol (tests substitute a deterministic clock); pass nil to use time.Now
// via risk.NewTokenBucket.
func NewGate(limits Limits, newBucket func() *TokenBucket) *Gate {
	if newBucket == nil {
		newBucket = func() *TokenBucket {
			return NewTokenBucket(limits.TokenBucketCapacity, limits.MaxOrdersPerSecond, nil)
		}
	}
	return &Gate{
		limits:    limits,
		global:    newBucket(),
		symbols:   make(map[fxp.SymbolID]*symbolState),
		newBucket: newBucket,
	}
}

func (g *Gate) stateFor(symbol fxp.SymbolID) *symbolState {
	g.mu.RLock()
	s, ok := g.symbols[symbol]
	g.mu.RUnlock()
	if ok {
		return s
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok = g.symbols[symbol]; ok {
		return s
	}
	s = &symbolState{bucket: g.newBucket(), position: &PositionTracker{}}
	g.symbols[symbol] = s
	return s
}

// Position returns the tracker for symbol, creating it if absent. Exposed
// so the orchestrator can wire trade-notification into OnTrade and expose
// read-only position queries externally.
func (g *Gate) Position(symbol fxp.SymbolID) *PositionTracker {
	return g.stateFor(symbol).position
}

// Check runs the eight ordered checks of §4.3 against order, returning the
// first failing check's RiskResult or Approved. Order fields are read-only
// here; Check never mutates order.
func (g *Gate) Check(order book.Order) RiskResult {
	if !g.global.Allow() {
		return RejectRateLimit
	}

	state := g.stateFor(order.Symbol)
	if !state.bucket.Allow() {
		return RejectRateLimit
	}

	if order.OrigQty > g.limits.MaxOrderSize {
		return RejectOrderSize
	}

	snap := state.position.Read()
	if snap.RefPriceSet && order.Type != book.Market {
		if fxp.Deviation(order.Price, snap.RefPrice) > g.limits.MaxPriceDeviation {
			return RejectPriceLimit
		}
	}

	signedQty := fxp.Position(order.OrigQty)
	if order.Side == book.Sell {
		signedQty = -signedQty
	}
	prospective := snap.Position + signedQty
	if prospective.Abs() > g.limits.MaxPosition {
		return RejectPositionLimit
	}

	increasesExposure := prospective.Sign() == signedQty.Sign()
	if increasesExposure {
		orderNotional := order.Price.Mul(order.OrigQty)
		if snap.Notional+orderNotional > g.limits.MaxNotional {
			return RejectNotionalLimit
		}
	}

	if snap.RealizedPnL < -g.limits.MaxLossPerDay {
		return RejectLossLimit
	}

	return Approved
}

// OnTrade applies the post-trade position/VWAP/P&L update for a trade on
// symbol, and — since the trade-notification stage drives reference-price
// updates (§4.3) — refreshes the symbol's reference price to the trade's
// own price. aggressorIsSelf isolates the simplified single-engine
// ownership model (see PositionTracker.ApplyTrade).
func (g *Gate) OnTrade(symbol fxp.SymbolID, side book.Side, price fxp.Price, qty fxp.Qty, aggressorIsSelf bool) {
	state := g.stateFor(symbol)
	state.position.ApplyTrade(side, price, qty, aggressorIsSelf)
	state.position.SetRefPrice(price)
}

// ValidateLimits returns an error describing any non-sensical configured
// limit (e.g. a negative capacity), wrapped with context per §6/§7's
// configuration validation concern. This is the one place Check-adjacent
// code returns a Go error, since it runs once at startup, not per order.
func ValidateLimits(l Limits) error {
	if l.MaxOrderSize == 0 {
		return errors.New("risk: max_order_size must be greater than zero")
	}
	if l.MaxOrdersPerSecond <= 0 {
		return errors.Newf("risk: max_orders_per_second must be positive, got %v", l.MaxOrdersPerSecond)
	}
	if l.TokenBucketCapacity <= 0 {
		return errors.Newf("risk: token bucket capacity must be positive, got %v", l.TokenBucketCapacity)
	}
	return nil
}
