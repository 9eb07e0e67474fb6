package book

import (
	"sync/atomic"

	"matchcore/fxp"
)

// PriceSentinel marks an empty side in a BookSnapshot: best_ask == Sentinel
// means the ask side is empty (there is no valid "infinite" ask price to
// report), symmetrically for bids at 0.
const PriceSentinel fxp.Price = -1

// bestOfBook is the lock-free best-price/quantity publication point for one
// side of the book. Writers publish under a seqlock (odd version while
// writing, even once stable) so Snapshot never has to block the single
// writer and never tears a read across a concurrent update — the "pack
// into a single word, or add a sequence lock" alternative §9 calls out.
type bestOfBook struct {
	version atomic.Uint64
	price   atomic.Int64
	qty     atomic.Uint64
}

func (b *bestOfBook) publish(price fxp.Price, qty fxp.Qty) {
	b.version.Add(1) // now odd: writer in progress
	b.price.Store(int64(price))
	b.qty.Store(uint64(qty))
	b.version.Add(1) // now even: stable
}

func (b *bestOfBook) read() (fxp.Price, fxp.Qty, uint64) {
	for {
		v1 := b.version.Load()
		if v1&1 == 1 {
			continue // writer mid-publish, retry
		}
		price := fxp.Price(b.price.Load())
		qty := fxp.Qty(b.qty.Load())
		v2 := b.version.Load()
		if v1 == v2 {
			return price, qty, v2
		}
	}
}

// BookSnapshot is the O(1) best-of-book read per §4.1.
type BookSnapshot struct {
	BestBid    fxp.Price
	BestAsk    fxp.Price
	BestBidQty fxp.Qty
	BestAskQty fxp.Qty
	Version    uint64
	Timestamp  fxp.Timestamp
}

// Mid returns (BestBid+BestAsk)/2 if both sides are present, else 0.
func (s BookSnapshot) Mid() fxp.Price {
	if s.BestBid == 0 || s.BestAsk == PriceSentinel {
		return 0
	}
	return fxp.Mid(s.BestBid, s.BestAsk)
}

// SpreadBps returns the bid/ask spread in basis points, or 0 if either side
// is empty.
func (s BookSnapshot) SpreadBps() int64 {
	if s.BestBid == 0 || s.BestAsk == PriceSentinel {
		return 0
	}
	return fxp.SpreadBps(s.BestBid, s.BestAsk)
}

// IsCrossed reports whether the book is crossed (best bid >= best ask),
// which can only be observed transiently mid-match.
func (s BookSnapshot) IsCrossed() bool {
	if s.BestBid == 0 || s.BestAsk == PriceSentinel {
		return false
	}
	return s.BestBid >= s.BestAsk
}

// DepthLevel is one row of a top-K depth read.
type DepthLevel struct {
	Price fxp.Price
	Qty   fxp.Qty
}

// Book is the matching-book variant: an ordered price ladder per side,
// backed by a red-black tree, with a best-of-book cache kept current on
// every structural mutation. It is single-writer — only the matching
// engine for this symbol ever mutates it — so no internal lock is needed
// for the tree itself (§5).
type Book struct {
	Symbol fxp.SymbolID

	bids *rbTree
	asks *rbTree

	bestBid bestOfBook
	bestAsk bestOfBook

	clock func() fxp.Timestamp
}

// NewBook constructs an empty book for symbol. clock supplies the
// timestamp stamped onto snapshots; pass telemetry.Now or an equivalent.
func NewBook(symbol fxp.SymbolID, clock func() fxp.Timestamp) *Book {
	b := &Book{Symbol: symbol, clock: clock}
	b.bids = newRBTree()
	b.asks = newRBTree()
	b.bestAsk.publish(PriceSentinel, 0)
	return b
}

func (b *Book) side(s Side) *rbTree {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

// Level returns the existing price level on side s, or nil.
func (b *Book) Level(s Side, price fxp.Price) *PriceLevel {
	return b.side(s).Find(price)
}

// LevelFor returns the level on side s at price, creating it if absent.
func (b *Book) LevelFor(s Side, price fxp.Price) *PriceLevel {
	return b.side(s).GetOrCreate(price)
}

// RemoveLevel removes the (assumed empty) level on side s at price.
func (b *Book) RemoveLevel(s Side, price fxp.Price) {
	b.side(s).Remove(price)
	b.refreshBest(s)
}

// RefreshBest recomputes and republishes the best-of-book cache for side s.
// Called after any structural mutation (level insert/remove, or a fill
// that changes the best level's quantity).
func (b *Book) RefreshBest(s Side) {
	b.refreshBest(s)
}

func (b *Book) refreshBest(s Side) {
	tree := b.side(s)
	var lvl *PriceLevel
	if s == Buy {
		lvl = tree.Max()
	} else {
		lvl = tree.Min()
	}
	target := &b.bestBid
	if s == Sell {
		target = &b.bestAsk
	}
	if lvl == nil {
		sentinel := fxp.Price(0)
		if s == Sell {
			sentinel = PriceSentinel
		}
		target.publish(sentinel, 0)
		return
	}
	target.publish(lvl.Price, lvl.TotalQty)
}

// BestBidLevel returns the highest-priced resting bid level, or nil.
func (b *Book) BestBidLevel() *PriceLevel { return b.bids.Max() }

// BestAskLevel returns the lowest-priced resting ask level, or nil.
func (b *Book) BestAskLevel() *PriceLevel { return b.asks.Min() }

// WalkBids visits bid levels from best (highest) to worst.
func (b *Book) WalkBids(fn func(*PriceLevel) bool) { b.bids.WalkDescending(fn) }

// WalkAsks visits ask levels from best (lowest) to worst.
func (b *Book) WalkAsks(fn func(*PriceLevel) bool) { b.asks.WalkAscending(fn) }

// Snapshot performs the lock-free O(1) best-of-book read.
func (b *Book) Snapshot() BookSnapshot {
	bidPrice, bidQty, bidVer := b.bestBid.read()
	askPrice, askQty, askVer := b.bestAsk.read()
	return BookSnapshot{
		BestBid:    bidPrice,
		BestAsk:    askPrice,
		BestBidQty: bidQty,
		BestAskQty: askQty,
		Version:    bidVer + askVer,
		Timestamp:  b.clock(),
	}
}

// TopK returns up to k levels from best outward on side s, as a stable
// copy safe to hand to a caller outside the matcher's single-writer
// discipline.
func (b *Book) TopK(s Side, k int) []DepthLevel {
	out := make([]DepthLevel, 0, k)
	walk := b.WalkAsks
	if s == Buy {
		walk = b.WalkBids
	}
	walk(func(lvl *PriceLevel) bool {
		out = append(out, DepthLevel{Price: lvl.Price, Qty: lvl.TotalQty})
		return len(out) < k
	})
	return out
}
