package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"

	"matchcore/book"
	"matchcore/fxp"
)

// Ledger is a pebble-backed key/value store of each order's last-known
// terminal state, queryable by id for external monitoring. Adapted from
// the teacher's exit WAL (which tracked outbound send/ack state for a
// message broker); there is no outbound transport to retry against here,
// so the retry-count/last-attempt bookkeeping is dropped and the value
// is simply the order's current book.Status plus filled quantity. Like
// the journal, the ledger is never read back to reconstruct a book on
// restart — it exists purely as a queryable terminal-state index.
type Ledger struct {
	db *pebble.DB
}

// LedgerEntry is the decoded value stored per order id.
type LedgerEntry struct {
	Status fxp.Timestamp // last-updated timestamp
	State  book.Status
	Filled fxp.Qty
}

// OpenLedger opens (creating if absent) a pebble database at dir.
func OpenLedger(dir string) (*Ledger, error) {
	db, err := pebble.Open(dir, &pebble.Options{DisableWAL: false})
	if err != nil {
		return nil, errors.Wrap(err, "engine: ledger open")
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Put records order id's current state.
func (l *Ledger) Put(id fxp.OrderID, state book.Status, filled fxp.Qty, at fxp.Timestamp) error {
	key := ledgerKey(id)
	buf := make([]byte, 1+8+8)
	buf[0] = byte(state)
	binary.LittleEndian.PutUint64(buf[1:9], uint64(filled))
	binary.LittleEndian.PutUint64(buf[9:17], uint64(at))
	return l.db.Set(key, buf, pebble.Sync)
}

// Get returns the last recorded state for order id.
func (l *Ledger) Get(id fxp.OrderID) (LedgerEntry, bool, error) {
	key := ledgerKey(id)
	val, closer, err := l.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return LedgerEntry{}, false, nil
		}
		return LedgerEntry{}, false, errors.Wrap(err, "engine: ledger get")
	}
	defer closer.Close()

	if len(val) != 17 {
		return LedgerEntry{}, false, errors.New("engine: ledger value has unexpected length")
	}
	return LedgerEntry{
		State:  book.Status(val[0]),
		Filled: fxp.Qty(binary.LittleEndian.Uint64(val[1:9])),
		Status: fxp.Timestamp(binary.LittleEndian.Uint64(val[9:17])),
	}, true, nil
}

// ScanByState iterates every entry whose recorded state equals state.
func (l *Ledger) ScanByState(state book.Status, fn func(id fxp.OrderID, entry LedgerEntry) error) error {
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("order/"),
		UpperBound: []byte("order/~"),
	})
	if err != nil {
		return errors.Wrap(err, "engine: ledger scan")
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		id, err := parseLedgerKey(iter.Key())
		if err != nil {
			return err
		}
		val := iter.Value()
		if len(val) != 17 || book.Status(val[0]) != state {
			continue
		}
		entry := LedgerEntry{
			State:  book.Status(val[0]),
			Filled: fxp.Qty(binary.LittleEndian.Uint64(val[1:9])),
			Status: fxp.Timestamp(binary.LittleEndian.Uint64(val[9:17])),
		}
		if err := fn(id, entry); err != nil {
			return err
		}
	}
	return iter.Error()
}

func ledgerKey(id fxp.OrderID) []byte {
	return []byte(fmt.Sprintf("order/%020d", uint64(id)))
}

func parseLedgerKey(b []byte) (fxp.OrderID, error) {
	var id uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte("order/"))), "%d", &id)
	return fxp.OrderID(id), err
}
