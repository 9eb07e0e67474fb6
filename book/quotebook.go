package book

import (
	"sort"
	"sync"

	"matchcore/fxp"
)

// QuoteRow is one row of a QuoteBook side: a price and its aggregate
// resting quantity. Unlike the matching book's PriceLevel, a quote row
// carries no order-level FIFO detail — it exists only to give market-data
// consumers a cheap, cache-friendly depth view.
type QuoteRow struct {
	Price fxp.Price
	Qty   fxp.Qty
}

// QuoteBook is the array+hashmap order-book variant §4.1 calls for at
// market-data call sites: a contiguous, sorted array of up to MaxLevels
// rows per side, paired with a price->index map for O(1) lookup.
// Structural mutation takes an exclusive lock; top-K reads take a shared
// lock, matching §5's concurrency rules for the quote path.
type QuoteBook struct {
	MaxLevels int

	mu   sync.RWMutex
	bids []QuoteRow
	asks []QuoteRow
	bidIdx map[fxp.Price]int
	askIdx map[fxp.Price]int

	levelsDropped uint64
}

// NewQuoteBook constructs an empty quote book capped at maxLevels rows per
// side.
func NewQuoteBook(maxLevels int) *QuoteBook {
	return &QuoteBook{
		MaxLevels: maxLevels,
		bidIdx:    make(map[fxp.Price]int, maxLevels),
		askIdx:    make(map[fxp.Price]int, maxLevels),
	}
}

// UpdateLevel installs or updates the resting quantity at price on side s.
// A zero quantity removes the level. A full book (MaxLevels already
// occupied) silently drops a brand-new price insertion, per §4.1's
// documented failure mode, but increments LevelsDropped so the drop is at
// least observable (see SPEC_FULL's "Supplemented features").
func (q *QuoteBook) UpdateLevel(s Side, price fxp.Price, qty fxp.Qty) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rows, idx := q.rowsFor(s)

	if i, ok := idx[price]; ok {
		if qty == 0 {
			q.removeAt(s, i)
		} else {
			(*rows)[i].Qty = qty
		}
		return
	}

	if qty == 0 {
		return // removing a level that was never present: no-op
	}

	if len(*rows) >= q.MaxLevels {
		q.levelsDropped++
		return
	}

	*rows = append(*rows, QuoteRow{Price: price, Qty: qty})
	q.resort(s)
}

// InstallSnapshot replaces side s wholesale with rows, truncating to
// MaxLevels (and counting the overflow via LevelsDropped) if the source
// sent more levels than this book retains. Unlike UpdateLevel, which
// incrementally patches one price at a time, InstallSnapshot is the bulk
// entry point a market-data snapshot message uses (§4.4 "installs the top
// levels into the book").
func (q *QuoteBook) InstallSnapshot(s Side, rows []QuoteRow) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(rows) > q.MaxLevels {
		q.levelsDropped += uint64(len(rows) - q.MaxLevels)
		rows = rows[:q.MaxLevels]
	}

	dst, idx := q.rowsFor(s)
	*dst = append((*dst)[:0], rows...)
	for k := range idx {
		delete(idx, k)
	}
	q.resort(s)
}

func (q *QuoteBook) rowsFor(s Side) (*[]QuoteRow, map[fxp.Price]int) {
	if s == Buy {
		return &q.bids, q.bidIdx
	}
	return &q.asks, q.askIdx
}

// resort re-sorts rows for side s (bids descending, asks ascending) and
// rebuilds the index. Called after an insertion; O(N log N) but N is
// bounded by MaxLevels.
func (q *QuoteBook) resort(s Side) {
	rows, idx := q.rowsFor(s)
	if s == Buy {
		sort.Slice(*rows, func(i, j int) bool { return (*rows)[i].Price > (*rows)[j].Price })
	} else {
		sort.Slice(*rows, func(i, j int) bool { return (*rows)[i].Price < (*rows)[j].Price })
	}
	for k := range idx {
		delete(idx, k)
	}
	for i, r := range *rows {
		idx[r.Price] = i
	}
}

// removeAt deletes row i from side s, shifting subsequent entries down and
// fixing up their index entries. Caller holds q.mu.
func (q *QuoteBook) removeAt(s Side, i int) {
	rows, idx := q.rowsFor(s)
	delete(idx, (*rows)[i].Price)
	*rows = append((*rows)[:i], (*rows)[i+1:]...)
	for j := i; j < len(*rows); j++ {
		idx[(*rows)[j].Price] = j
	}
}

// TopK returns up to k rows from best outward on side s.
func (q *QuoteBook) TopK(s Side, k int) []QuoteRow {
	q.mu.RLock()
	defer q.mu.RUnlock()
	rows, _ := q.rowsFor(s)
	if k > len(*rows) {
		k = len(*rows)
	}
	out := make([]QuoteRow, k)
	copy(out, (*rows)[:k])
	return out
}

// Best returns the best row on side s, or the zero value and false if the
// side is empty.
func (q *QuoteBook) Best(s Side) (QuoteRow, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	rows, _ := q.rowsFor(s)
	if len(*rows) == 0 {
		return QuoteRow{}, false
	}
	return (*rows)[0], true
}

// LevelsDropped returns the count of insertions dropped because the side
// was already at MaxLevels.
func (q *QuoteBook) LevelsDropped() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.levelsDropped
}
