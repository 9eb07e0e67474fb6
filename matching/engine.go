package matching

import (
	"math"
	"sync"

	"matchcore/book"
	"matchcore/fxp"
	"matchcore/pool"
)

// infinityBuy / zeroSell are the effective limit prices a Market order
// crosses at, per §4.2: "treat as Limit with price = +∞ (buy) or 0
// (sell); never rests".
const infinityBuy = fxp.Price(math.MaxInt64)
const zeroSell = fxp.Price(0)

// Result is everything Submit produces for one incoming order: the trades
// generated (in generation order) and the order-update events for every
// resting order touched plus one for the incoming order itself — its
// terminal state, or its resting state if a remainder rests.
type Result struct {
	Trades  []Trade
	Updates []OrderUpdate
}

// Engine is the per-process matching engine: one book.Book per symbol,
// sharing one bounded order-node pool. Trades are not pool-allocated; they
// are returned by value in Result.Trades. It is
// single-writer per symbol — callers reach it only through the matcher
// stage's approved-order queue (§5) — so the hot path takes no internal
// lock; only the symbol-registry map (populated at startup, rarely after)
// is guarded.
type Engine struct {
	mu      sync.RWMutex
	books   map[fxp.SymbolID]*book.Book
	resting map[fxp.OrderID]restingRef

	orderPool *pool.Pool[book.Order]
	tradeIDs  *fxp.Sequencer

	Counters Counters

	clock func() fxp.Timestamp
}

type restingRef struct {
	symbol fxp.SymbolID
	side   book.Side
	node   *book.Order
}

// NewEngine constructs an Engine with a preallocated order-node pool sized
// orderPoolCapacity (§5/§6 "pool_capacities"). clock stamps each trade's
// Timestamp and each book snapshot; Submit never stamps an order's Ingress,
// which callers set before Submit.
func NewEngine(orderPoolCapacity int, clock func() fxp.Timestamp) *Engine {
	return &Engine{
		books:     make(map[fxp.SymbolID]*book.Book),
		resting:   make(map[fxp.OrderID]restingRef),
		orderPool: pool.New[book.Order](orderPoolCapacity),
		tradeIDs:  fxp.NewSequencer(0),
		clock:     clock,
	}
}

// BookFor returns (creating if necessary) the book.Book for symbol.
func (e *Engine) BookFor(symbol fxp.SymbolID) *book.Book {
	e.mu.RLock()
	b, ok := e.books[symbol]
	e.mu.RUnlock()
	if ok {
		return b
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok = e.books[symbol]; ok {
		return b
	}
	b = book.NewBook(symbol, e.clock)
	e.books[symbol] = b
	return b
}

// Submit processes one incoming order against its symbol's book and
// returns the trades and status updates it produced. incoming is passed by
// value; Submit only ever allocates a pool node for it if a non-zero
// remainder actually needs to rest (§3 "Lifecycle").
func (e *Engine) Submit(incoming book.Order) Result {
	e.Counters.recordOrder()
	b := e.BookFor(incoming.Symbol)

	effectivePrice := incoming.Price
	if incoming.Type == book.Market || incoming.Type == book.Stop {
		if incoming.Side == book.Buy {
			effectivePrice = infinityBuy
		} else {
			effectivePrice = zeroSell
		}
	}

	if incoming.TIF == book.FOK {
		available := availableDepth(b, incoming.Side.Opposite(), effectivePrice)
		if available < incoming.OrigQty {
			incoming.Status = book.Rejected
			return Result{Updates: []OrderUpdate{terminalUpdate(incoming, "fok_insufficient_depth")}}
		}
	}

	var res Result
	e.cross(b, &incoming, effectivePrice, &res)

	remaining := incoming.Remaining()
	if remaining > 0 {
		switch {
		case incoming.Type == book.Market, incoming.Type == book.Stop, incoming.TIF == book.IOC, incoming.TIF == book.FOK:
			incoming.Status = book.Cancelled
			res.Updates = append(res.Updates, terminalUpdate(incoming, ""))
		default:
			e.rest(b, incoming, &res)
		}
	} else {
		incoming.Status = book.Filled
		res.Updates = append(res.Updates, terminalUpdate(incoming, ""))
	}

	return res
}

// cross walks the opposite side of b from best outward, matching against
// the incoming order until it is exhausted or the ladder no longer crosses
// its limit.
func (e *Engine) cross(b *book.Book, incoming *book.Order, limitPrice fxp.Price, res *Result) {
	opp := incoming.Side.Opposite()

	for incoming.Remaining() > 0 {
		var best *book.PriceLevel
		if opp == book.Sell {
			best = b.BestAskLevel()
		} else {
			best = b.BestBidLevel()
		}
		if best == nil {
			return
		}
		if incoming.Type != book.Market {
			if opp == book.Sell && best.Price > limitPrice {
				return
			}
			if opp == book.Buy && best.Price < limitPrice {
				return
			}
		}

		for incoming.Remaining() > 0 && !best.Empty() {
			passive := best.Head()
			qty := min(incoming.Remaining(), passive.Remaining())

			aggressorSide := aggressorOf(incoming, passive)

			trade := e.newTrade(incoming, passive, best.Price, qty, aggressorSide)
			res.Trades = append(res.Trades, trade)
			e.Counters.recordTrade(uint64(qty))

			incoming.Filled += qty
			best.Fill(passive, qty)

			if passive.Remaining() == 0 {
				passive.Status = book.Filled
				best.PopHead()
				delete(e.resting, passive.ID)
				e.orderPool.Release(passive)
			} else {
				passive.Status = book.PartiallyFilled
			}
			res.Updates = append(res.Updates, OrderUpdate{
				OrderID:   passive.ID,
				Symbol:    passive.Symbol,
				Status:    passive.Status,
				Filled:    passive.Filled,
				Remaining: passive.Remaining(),
			})
		}

		if best.Empty() {
			b.RemoveLevel(opp, best.Price)
		} else {
			b.RefreshBest(opp)
		}
	}
}

// rest allocates a pool node for incoming's remainder and inserts it at the
// back of its price level's FIFO, per §4.2.
func (e *Engine) rest(b *book.Book, incoming book.Order, res *Result) {
	node, ok := e.orderPool.Acquire()
	if !ok {
		e.Counters.recordPoolExhaustion()
		incoming.Status = book.Rejected
		res.Updates = append(res.Updates, terminalUpdate(incoming, "pool_exhausted"))
		return
	}
	*node = incoming
	if incoming.Filled > 0 {
		node.Status = book.PartiallyFilled
	} else {
		node.Status = book.Incoming
	}

	lvl := b.LevelFor(incoming.Side, incoming.Price)
	lvl.Enqueue(node)
	b.RefreshBest(incoming.Side)

	e.resting[node.ID] = restingRef{symbol: node.Symbol, side: node.Side, node: node}

	res.Updates = append(res.Updates, OrderUpdate{
		OrderID:   node.ID,
		Symbol:    node.Symbol,
		Status:    node.Status,
		Filled:    node.Filled,
		Remaining: node.Remaining(),
	})
}

// Cancel removes a resting order by id: O(1) lookup, unlink from its
// level, release its pool node, and report Cancelled. Returns false for an
// unknown id (§4.2/§8 "Cancelling an unknown id is a no-op").
func (e *Engine) Cancel(id fxp.OrderID) (OrderUpdate, bool) {
	ref, ok := e.resting[id]
	if !ok {
		return OrderUpdate{}, false
	}
	delete(e.resting, id)

	b := e.BookFor(ref.symbol)
	lvl := b.Level(ref.side, ref.node.Price)
	if lvl != nil {
		lvl.Unlink(ref.node)
		if lvl.Empty() {
			b.RemoveLevel(ref.side, ref.node.Price)
		} else {
			b.RefreshBest(ref.side)
		}
	}

	update := OrderUpdate{
		OrderID:   ref.node.ID,
		Symbol:    ref.node.Symbol,
		Status:    book.Cancelled,
		Filled:    ref.node.Filled,
		Remaining: ref.node.Remaining(),
	}
	e.orderPool.Release(ref.node)
	return update, true
}

func (e *Engine) newTrade(incoming, passive *book.Order, price fxp.Price, qty fxp.Qty, aggressor book.Side) Trade {
	buyID, sellID := incoming.ID, passive.ID
	if incoming.Side == book.Sell {
		buyID, sellID = passive.ID, incoming.ID
	}
	return Trade{
		ID:          fxp.TradeID(e.tradeIDs.Next()),
		BuyOrderID:  buyID,
		SellOrderID: sellID,
		Symbol:      incoming.Symbol,
		Price:       price,
		Qty:         qty,
		Timestamp:   e.clock(),
		Aggressor:   aggressor,
	}
}

// aggressorOf returns the side of whichever order arrived later; ties
// break toward the incoming order (§3/§4.2/§8).
func aggressorOf(incoming, passive *book.Order) book.Side {
	if incoming.Ingress >= passive.Ingress {
		return incoming.Side
	}
	return passive.Side
}

func terminalUpdate(o book.Order, reason string) OrderUpdate {
	return OrderUpdate{
		OrderID:   o.ID,
		Symbol:    o.Symbol,
		Status:    o.Status,
		Filled:    o.Filled,
		Remaining: o.Remaining(),
		Reason:    reason,
	}
}

// availableDepth sums resting quantity on side s that crosses limitPrice,
// used by the FOK pre-check (§4.2 "compute available cross depth first").
func availableDepth(b *book.Book, s book.Side, limitPrice fxp.Price) fxp.Qty {
	var total fxp.Qty
	walk := b.WalkAsks
	if s == book.Buy {
		walk = b.WalkBids
	}
	walk(func(lvl *book.PriceLevel) bool {
		if s == book.Sell && lvl.Price > limitPrice {
			return false
		}
		if s == book.Buy && lvl.Price < limitPrice {
			return false
		}
		total += lvl.TotalQty
		return true
	})
	return total
}
