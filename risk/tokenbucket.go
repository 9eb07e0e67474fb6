// Package risk implements the pre-trade authorization gate (§4.3): ordered
// limit checks backed by token-bucket rate limiting and per-symbol position
// tracking, plus the post-trade position/P&L/VWAP update it drives.
package risk

import (
	"sync/atomic"
	"time"
)

// bucketState holds the token count and last-refill timestamp together as
// one value in an atomic.Value, so refill-then-consume can be attempted with
// one CompareAndSwap of the whole pair, matching the
// lock-free update discipline the rest of matchcore uses for hot counters.
type bucketState struct {
	tokens     float64
	lastRefill int64 // unix nanoseconds
}

// TokenBucket is a CAS-retry refill-then-consume limiter (§4.3 "Token
// bucket"). Refill and consume happen together under one compare-and-swap
// loop so concurrent callers never observe a torn state.
type TokenBucket struct {
	capacity   float64
	refillRate float64 // tokens per second

	state atomic.Value // bucketState

	now func() time.Time
}

// NewTokenBucket constructs a bucket starting full, refilling at refillRate
// tokens/second up to capacity. now defaults to time.Now when nil.
func NewTokenBucket(capacity, refillRate float64, now func() time.Time) *TokenBucket {
	if now == nil {
		now = time.Now
	}
	b := &TokenBucket{capacity: capacity, refillRate: refillRate, now: now}
	b.state.Store(bucketState{tokens: capacity, lastRefill: now().UnixNano()})
	return b
}

// Allow refills by elapsed_seconds * refill_rate (capped at capacity), then
// tries to consume one token. Returns false if no token is available.
func (b *TokenBucket) Allow() bool {
	for {
		old := b.state.Load().(bucketState)
		nowNanos := b.now().UnixNano()
		elapsed := float64(nowNanos-old.lastRefill) / float64(time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		tokens := old.tokens + elapsed*b.refillRate
		if tokens > b.capacity {
			tokens = b.capacity
		}

		if tokens < 1 {
			next := bucketState{tokens: tokens, lastRefill: nowNanos}
			if b.state.CompareAndSwap(old, next) {
				return false
			}
			continue
		}

		next := bucketState{tokens: tokens - 1, lastRefill: nowNanos}
		if b.state.CompareAndSwap(old, next) {
			return true
		}
	}
}
