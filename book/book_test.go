package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/fxp"
)

func testClock() fxp.Timestamp { return 1 }

func TestLevelInvariants(t *testing.T) {
	b := NewBook(1, testClock)
	lvl := b.LevelFor(Buy, 10000)

	o1 := &Order{ID: 1, OrigQty: 30}
	o2 := &Order{ID: 2, OrigQty: 20}
	lvl.Enqueue(o1)
	lvl.Enqueue(o2)

	assert.Equal(t, fxp.Qty(50), lvl.TotalQty)
	assert.Equal(t, 2, lvl.OrderCount)
	assert.Same(t, o1, lvl.Head())

	lvl.PopHead()
	assert.Equal(t, fxp.Qty(20), lvl.TotalQty)
	assert.Equal(t, 1, lvl.OrderCount)
	assert.Same(t, o2, lvl.Head())
}

func TestBestOfBookTracksInsertAndRemove(t *testing.T) {
	b := NewBook(1, testClock)

	b.LevelFor(Buy, 100).Enqueue(&Order{ID: 1, OrigQty: 5})
	b.RefreshBest(Buy)
	snap := b.Snapshot()
	assert.Equal(t, fxp.Price(100), snap.BestBid)
	assert.Equal(t, fxp.Qty(5), snap.BestBidQty)

	b.LevelFor(Buy, 105).Enqueue(&Order{ID: 2, OrigQty: 7})
	b.RefreshBest(Buy)
	snap = b.Snapshot()
	assert.Equal(t, fxp.Price(105), snap.BestBid, "higher bid price must become best")

	lvl := b.Level(Buy, 105)
	lvl.PopHead()
	b.RemoveLevel(Buy, 105)
	snap = b.Snapshot()
	assert.Equal(t, fxp.Price(100), snap.BestBid, "removing best level must restore prior best")
}

func TestEmptyAskSideReportsSentinel(t *testing.T) {
	b := NewBook(1, testClock)
	snap := b.Snapshot()
	assert.Equal(t, PriceSentinel, snap.BestAsk)
	assert.False(t, snap.IsCrossed())
}

func TestRBTreeRoundTrip(t *testing.T) {
	tr := newRBTree()
	prices := []fxp.Price{50, 10, 70, 30, 90, 20, 60, 5}
	for _, p := range prices {
		tr.GetOrCreate(p)
	}
	require.Equal(t, len(prices), tr.Size())

	var seen []fxp.Price
	tr.WalkAscending(func(lvl *PriceLevel) bool {
		seen = append(seen, lvl.Price)
		return true
	})
	for i := 1; i < len(seen); i++ {
		assert.True(t, seen[i-1] < seen[i], "ascending walk must be sorted")
	}

	for _, p := range prices {
		require.True(t, tr.Remove(p))
	}
	assert.Equal(t, 0, tr.Size())
	assert.Nil(t, tr.Min())
}

func TestRBTreeInsertRemoveRestoresBest(t *testing.T) {
	tr := newRBTree()
	tr.GetOrCreate(100)
	before := tr.Max().Price
	tr.GetOrCreate(200)
	require.True(t, tr.Remove(200))
	after := tr.Max().Price
	assert.Equal(t, before, after, "insert-then-remove must restore prior best")
}

func TestQuoteBookDropsBeyondMaxLevels(t *testing.T) {
	q := NewQuoteBook(2)
	q.UpdateLevel(Buy, 100, 10)
	q.UpdateLevel(Buy, 99, 5)
	q.UpdateLevel(Buy, 98, 1) // should be dropped, already at MaxLevels

	top := q.TopK(Buy, 10)
	require.Len(t, top, 2)
	assert.Equal(t, uint64(1), q.LevelsDropped())
}

func TestQuoteBookSortOrderAndRemoval(t *testing.T) {
	q := NewQuoteBook(10)
	q.UpdateLevel(Buy, 100, 1)
	q.UpdateLevel(Buy, 105, 1)
	q.UpdateLevel(Buy, 102, 1)

	top := q.TopK(Buy, 3)
	require.Len(t, top, 3)
	assert.Equal(t, fxp.Price(105), top[0].Price)
	assert.Equal(t, fxp.Price(102), top[1].Price)
	assert.Equal(t, fxp.Price(100), top[2].Price)

	q.UpdateLevel(Buy, 105, 0) // remove best
	best, ok := q.Best(Buy)
	require.True(t, ok)
	assert.Equal(t, fxp.Price(102), best.Price)

	q.UpdateLevel(Buy, 999, 0) // removing an absent level is a no-op
	assert.Len(t, q.TopK(Buy, 10), 2)
}
