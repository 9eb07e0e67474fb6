package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/book"
	"matchcore/fxp"
)

func fixedClock() fxp.Timestamp { return 100 }

func newTestEngine() *Engine {
	return NewEngine(64, fixedClock)
}

func TestLimitOrderRestsWhenNoCross(t *testing.T) {
	e := newTestEngine()
	res := e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Buy, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 10})

	require.Empty(t, res.Trades)
	require.Len(t, res.Updates, 1)
	assert.Equal(t, book.Incoming, res.Updates[0].Status)

	snap := e.BookFor(1).Snapshot()
	assert.Equal(t, fxp.Price(100), snap.BestBid)
}

func TestLimitOrderFullyCrossesRestingOrder(t *testing.T) {
	e := newTestEngine()
	e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Sell, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 10, Ingress: 1})

	res := e.Submit(book.Order{ID: 2, Symbol: 1, Side: book.Buy, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 10, Ingress: 2})

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, fxp.Qty(10), trade.Qty)
	assert.Equal(t, fxp.Price(100), trade.Price, "execution price is the passive order's price")
	assert.Equal(t, fxp.OrderID(1), trade.SellOrderID)
	assert.Equal(t, fxp.OrderID(2), trade.BuyOrderID)
	assert.Equal(t, book.Buy, trade.Aggressor, "later-arriving order is the aggressor")

	_, stillResting := e.Cancel(1)
	assert.False(t, stillResting, "fully filled resting order must be released")
}

func TestLimitOrderPartialFillLeavesRemainderResting(t *testing.T) {
	e := newTestEngine()
	e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Sell, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 5, Ingress: 1})

	res := e.Submit(book.Order{ID: 2, Symbol: 1, Side: book.Buy, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 10, Ingress: 2})

	require.Len(t, res.Trades, 1)
	assert.Equal(t, fxp.Qty(5), res.Trades[0].Qty)

	// incoming order's remaining 5 should now rest
	last := res.Updates[len(res.Updates)-1]
	assert.Equal(t, fxp.OrderID(2), last.OrderID)
	assert.Equal(t, book.PartiallyFilled, last.Status)
	assert.Equal(t, fxp.Qty(5), last.Remaining)
}

func TestMarketOrderCrossesRegardlessOfPrice(t *testing.T) {
	e := newTestEngine()
	e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Sell, Type: book.Limit, TIF: book.GTC, Price: 500, OrigQty: 10, Ingress: 1})

	res := e.Submit(book.Order{ID: 2, Symbol: 1, Side: book.Buy, Type: book.Market, TIF: book.IOC, OrigQty: 10, Ingress: 2})

	require.Len(t, res.Trades, 1)
	assert.Equal(t, fxp.Price(500), res.Trades[0].Price)
}

func TestMarketOrderNeverRests(t *testing.T) {
	e := newTestEngine()
	res := e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Buy, Type: book.Market, TIF: book.IOC, OrigQty: 10})

	require.Empty(t, res.Trades)
	require.Len(t, res.Updates, 1)
	assert.Equal(t, book.Cancelled, res.Updates[0].Status)

	snap := e.BookFor(1).Snapshot()
	assert.Equal(t, fxp.Price(0), snap.BestBid, "empty bid side reports the zero sentinel")
}

func TestStopOrderNeverRests(t *testing.T) {
	e := newTestEngine()
	res := e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Buy, Type: book.Stop, TIF: book.GTC, Price: 100, OrigQty: 10})

	require.Empty(t, res.Trades)
	require.Len(t, res.Updates, 1)
	assert.Equal(t, book.Cancelled, res.Updates[0].Status, "an unfilled Stop remainder is cancelled, never rested, like Market")

	snap := e.BookFor(1).Snapshot()
	assert.Equal(t, fxp.Price(0), snap.BestBid, "empty bid side reports the zero sentinel")
}

func TestStopOrderCrossesRegardlessOfPrice(t *testing.T) {
	e := newTestEngine()
	e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Sell, Type: book.Limit, TIF: book.GTC, Price: 500, OrigQty: 10, Ingress: 1})

	res := e.Submit(book.Order{ID: 2, Symbol: 1, Side: book.Buy, Type: book.Stop, TIF: book.GTC, Price: 100, OrigQty: 10, Ingress: 2})

	require.Len(t, res.Trades, 1)
	assert.Equal(t, fxp.Price(500), res.Trades[0].Price, "an activated Stop crosses like a Market order, ignoring its own price")
}

func TestStopLimitRestsAtItsOwnPriceWhenUnfilled(t *testing.T) {
	e := newTestEngine()
	res := e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Buy, Type: book.StopLimit, TIF: book.GTC, Price: 100, OrigQty: 10})

	require.Empty(t, res.Trades)
	require.Len(t, res.Updates, 1)
	assert.Equal(t, book.Incoming, res.Updates[0].Status, "an activated StopLimit rests like Limit")

	snap := e.BookFor(1).Snapshot()
	assert.Equal(t, fxp.Price(100), snap.BestBid)
}

func TestIOCCancelsUnfilledRemainder(t *testing.T) {
	e := newTestEngine()
	e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Sell, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 3, Ingress: 1})

	res := e.Submit(book.Order{ID: 2, Symbol: 1, Side: book.Buy, Type: book.Limit, TIF: book.IOC, Price: 100, OrigQty: 10, Ingress: 2})

	require.Len(t, res.Trades, 1)
	last := res.Updates[len(res.Updates)-1]
	assert.Equal(t, book.Cancelled, last.Status)
	assert.Equal(t, fxp.Qty(7), last.Remaining)
}

func TestFOKRejectsWhenDepthInsufficient(t *testing.T) {
	e := newTestEngine()
	e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Sell, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 3, Ingress: 1})

	res := e.Submit(book.Order{ID: 2, Symbol: 1, Side: book.Buy, Type: book.Limit, TIF: book.FOK, Price: 100, OrigQty: 10, Ingress: 2})

	assert.Empty(t, res.Trades, "FOK must not produce a partial trade")
	require.Len(t, res.Updates, 1)
	assert.Equal(t, book.Rejected, res.Updates[0].Status)
}

func TestFOKFillsCompletelyWhenDepthSufficient(t *testing.T) {
	e := newTestEngine()
	e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Sell, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 6, Ingress: 1})
	e.Submit(book.Order{ID: 2, Symbol: 1, Side: book.Sell, Type: book.Limit, TIF: book.GTC, Price: 101, OrigQty: 6, Ingress: 2})

	res := e.Submit(book.Order{ID: 3, Symbol: 1, Side: book.Buy, Type: book.Limit, TIF: book.FOK, Price: 101, OrigQty: 10, Ingress: 3})

	require.Len(t, res.Trades, 2)
	last := res.Updates[len(res.Updates)-1]
	assert.Equal(t, book.Filled, last.Status)
}

func TestCancelUnknownIDIsNoOp(t *testing.T) {
	e := newTestEngine()
	_, ok := e.Cancel(999)
	assert.False(t, ok)
}

func TestCancelRemovesRestingOrderFromBook(t *testing.T) {
	e := newTestEngine()
	e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Buy, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 10})

	update, ok := e.Cancel(1)
	require.True(t, ok)
	assert.Equal(t, book.Cancelled, update.Status)

	snap := e.BookFor(1).Snapshot()
	assert.Equal(t, fxp.Price(0), snap.BestBid)
}

func TestPriceTimePriorityFillsOldestFirst(t *testing.T) {
	e := newTestEngine()
	e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Sell, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 5, Ingress: 1})
	e.Submit(book.Order{ID: 2, Symbol: 1, Side: book.Sell, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 5, Ingress: 2})

	res := e.Submit(book.Order{ID: 3, Symbol: 1, Side: book.Buy, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 5, Ingress: 3})

	require.Len(t, res.Trades, 1)
	assert.Equal(t, fxp.OrderID(1), res.Trades[0].SellOrderID, "the earlier-arriving resting order must fill first")
}

func TestCountersTrackMatching(t *testing.T) {
	e := newTestEngine()
	e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Sell, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 10, Ingress: 1})
	e.Submit(book.Order{ID: 2, Symbol: 1, Side: book.Buy, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 10, Ingress: 2})

	assert.Equal(t, uint64(2), e.Counters.OrdersProcessed())
	assert.Equal(t, uint64(1), e.Counters.TradesGenerated())
	assert.Equal(t, uint64(10), e.Counters.VolumeMatched())
	assert.InDelta(t, 0.5, e.Counters.MatchRate(), 0.001)
	assert.InDelta(t, 10.0, e.Counters.AverageFillSize(), 0.001)
}

func TestOrderPoolExhaustionRejectsRest(t *testing.T) {
	e := NewEngine(1, fixedClock)
	res1 := e.Submit(book.Order{ID: 1, Symbol: 1, Side: book.Buy, Type: book.Limit, TIF: book.GTC, Price: 100, OrigQty: 10})
	require.Equal(t, book.Incoming, res1.Updates[0].Status)

	res2 := e.Submit(book.Order{ID: 2, Symbol: 1, Side: book.Buy, Type: book.Limit, TIF: book.GTC, Price: 99, OrigQty: 10})
	require.Len(t, res2.Updates, 1)
	assert.Equal(t, book.Rejected, res2.Updates[0].Status)
	assert.Equal(t, uint64(1), e.Counters.PoolExhausted())
}
