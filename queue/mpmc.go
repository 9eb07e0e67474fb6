package queue

import "sync/atomic"

// mpmcCell is one slot of an MPMC ring: the sequence number tells producers
// and consumers whether the slot is ready to be written or read.
type mpmcCell[T any] struct {
	sequence atomic.Uint64
	value    T
}

// MPMC is a general-purpose bounded multi-producer/multi-consumer ring,
// following Dmitry Vyukov's sequenced-cell design: each cell owns its own
// sequence counter, so producers and consumers only ever contend on a
// single CAS per operation regardless of how many goroutines are on either
// side.
type MPMC[T any] struct {
	enqueuePos uint64
	_          [cacheLinePad]byte
	dequeuePos uint64
	_          [cacheLinePad]byte

	buf  []mpmcCell[T]
	mask uint64
}

// NewMPMC allocates a ring of the given capacity, which must be a power of
// two.
func NewMPMC[T any](capacity int) *MPMC[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("queue: capacity must be a power of two")
	}
	q := &MPMC[T]{
		buf:  make([]mpmcCell[T], capacity),
		mask: uint64(capacity - 1),
	}
	for i := range q.buf {
		q.buf[i].sequence.Store(uint64(i))
	}
	return q
}

// Push enqueues v. Returns false if the ring is full.
func (q *MPMC[T]) Push(v T) bool {
	var cell *mpmcCell[T]
	pos := atomic.LoadUint64(&q.enqueuePos)
	for {
		cell = &q.buf[pos&q.mask]
		seq := cell.sequence.Load()
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&q.enqueuePos, pos, pos+1) {
				cell.value = v
				cell.sequence.Store(pos + 1)
				return true
			}
			pos = atomic.LoadUint64(&q.enqueuePos)
		case diff < 0:
			return false // full
		default:
			pos = atomic.LoadUint64(&q.enqueuePos)
		}
	}
}

// Pop dequeues the oldest available item. Returns the zero value and false
// if empty.
func (q *MPMC[T]) Pop() (T, bool) {
	var cell *mpmcCell[T]
	pos := atomic.LoadUint64(&q.dequeuePos)
	for {
		cell = &q.buf[pos&q.mask]
		seq := cell.sequence.Load()
		diff := int64(seq) - int64(pos+1)
		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&q.dequeuePos, pos, pos+1) {
				v := cell.value
				var zero T
				cell.value = zero
				cell.sequence.Store(pos + q.mask + 1)
				return v, true
			}
			pos = atomic.LoadUint64(&q.dequeuePos)
		case diff < 0:
			var zero T
			return zero, false // empty
		default:
			pos = atomic.LoadUint64(&q.dequeuePos)
		}
	}
}

// Cap returns the ring's total capacity.
func (q *MPMC[T]) Cap() int {
	return len(q.buf)
}
