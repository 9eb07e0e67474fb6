package risk

import (
	"sync"

	"matchcore/book"
	"matchcore/fxp"
)

// PositionTracker holds one symbol's position/P&L/VWAP state (§4.3 post-
// trade update). Reads (for Check) and the single writer (OnTrade) are
// serialized by mu; §5 calls for a shared-exclusive lock here, not atomics,
// because the update touches several related fields that must be seen
// together.
type PositionTracker struct {
	mu sync.RWMutex

	position       fxp.Position
	notional       fxp.Notional
	realizedPnL    fxp.Notional
	vwap           fxp.Price
	volume         fxp.Qty
	refPrice       fxp.Price
	refPriceIsSet  bool
	orderCount     uint64
}

// Snapshot is a consistent point-in-time read of a tracker's state.
type Snapshot struct {
	Position    fxp.Position
	Notional    fxp.Notional
	RealizedPnL fxp.Notional
	VWAP        fxp.Price
	Volume      fxp.Qty
	RefPrice    fxp.Price
	RefPriceSet bool
}

// Read returns a consistent snapshot under the read lock.
func (t *PositionTracker) Read() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		Position:    t.position,
		Notional:    t.notional,
		RealizedPnL: t.realizedPnL,
		VWAP:        t.vwap,
		Volume:      t.volume,
		RefPrice:    t.refPrice,
		RefPriceSet: t.refPriceIsSet,
	}
}

// SetRefPrice updates the per-symbol reference price the price-deviation
// check compares against, driven by the trade-notification stage with each
// observed trade's price (§4.3 "Price deviation uses a per-symbol
// reference price...").
func (t *PositionTracker) SetRefPrice(p fxp.Price) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refPrice = p
	t.refPriceIsSet = true
}

// ApplyTrade updates position, VWAP, realized P&L, and notional from one
// observed fill (§4.3 "Post-trade update"). side is the side from which
// this tracker observes the fill: Buy increases position, Sell decreases
// it. aggressorIsSelf narrows the "simplified ownership model" the spec
// describes to only apply the position delta when this engine is the
// order's owner, keeping the common case (the engine always treats itself
// as aggressor) isolated from a future fuller ownership model without
// reshaping this method's signature.
func (t *PositionTracker) ApplyTrade(side book.Side, price fxp.Price, qty fxp.Qty, aggressorIsSelf bool) {
	if !aggressorIsSelf {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	signedQty := fxp.Position(qty)
	if side == book.Sell {
		signedQty = -signedQty
	}

	oldPosition := t.position
	oldVWAP := t.vwap
	oldVolume := t.volume

	newVolume := oldVolume + qty
	if newVolume > 0 {
		t.vwap = fxp.Price((int64(oldVWAP)*int64(oldVolume) + int64(price)*int64(qty)) / int64(newVolume))
	}
	t.volume = newVolume

	newPosition := oldPosition + signedQty

	reducing := oldPosition != 0 && newPosition.Abs() < oldPosition.Abs()
	if reducing {
		var delta fxp.Notional
		if oldPosition.Sign() > 0 {
			delta = fxp.Notional(int64(price-oldVWAP) * int64(qty))
		} else {
			delta = fxp.Notional(int64(oldVWAP-price) * int64(qty))
		}
		t.realizedPnL += delta

		reducedQty := qty
		if fxp.Qty(oldPosition.Abs()) < qty {
			reducedQty = fxp.Qty(oldPosition.Abs())
		}
		reduction := price.Mul(reducedQty)
		t.notional -= reduction
		if t.notional < 0 {
			t.notional = 0
		}
	} else {
		t.notional += price.Mul(qty)
	}

	t.position = newPosition
	t.orderCount++
}
