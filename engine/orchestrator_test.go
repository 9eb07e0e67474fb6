package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/book"
	"matchcore/fxp"
	"matchcore/marketdata"
)

func testConfig() Config {
	return Config{
		MaxPosition:        100_000,
		MaxNotional:        10_000_000,
		MaxOrdersPerSecond: 1_000_000,
		MaxLossPerDay:      50_000,
		MaxOrderSize:       10_000,
		MaxPriceDeviation:  1_000,
		QueueCapacity:      1024,
		OrderPoolSize:      1024,
		TradePoolSize:      1024,
		LevelPoolSize:      256,
	}
}

func TestEngineMatchesSubmittedOrders(t *testing.T) {
	e, err := NewEngine(testConfig(), nil, "", "")
	require.NoError(t, err)
	e.Start()
	defer e.Shutdown()

	e.SubmitOrder(book.Order{ID: 1, Symbol: 1, Side: book.Sell, Type: book.Limit, TIF: book.GTC, Price: 100 * fxp.Price(fxp.Scale), OrigQty: 10})
	e.SubmitOrder(book.Order{ID: 2, Symbol: 1, Side: book.Buy, Type: book.Limit, TIF: book.GTC, Price: 100 * fxp.Price(fxp.Scale), OrigQty: 10})

	require.Eventually(t, func() bool {
		return e.Matcher.Counters.TradesGenerated() == 1
	}, time.Second, time.Millisecond)
}

func TestEngineRejectsOversizedOrder(t *testing.T) {
	cfg := testConfig()
	cfg.MaxOrderSize = 1
	e, err := NewEngine(cfg, nil, "", "")
	require.NoError(t, err)
	e.Start()
	defer e.Shutdown()

	e.SubmitOrder(book.Order{ID: 1, Symbol: 1, Side: book.Buy, Type: book.Limit, Price: 100 * fxp.Price(fxp.Scale), OrigQty: 500})

	require.Eventually(t, func() bool {
		snap := e.Matcher.BookFor(1).Snapshot()
		return snap.BestBid == 0 // the order was rejected, never entered the book
	}, time.Second, time.Millisecond)
}

func TestEngineCancelRemovesRestingOrder(t *testing.T) {
	e, err := NewEngine(testConfig(), nil, "", "")
	require.NoError(t, err)
	e.Start()
	defer e.Shutdown()

	e.SubmitOrder(book.Order{ID: 1, Symbol: 1, Side: book.Buy, Type: book.Limit, TIF: book.GTC, Price: 100 * fxp.Price(fxp.Scale), OrigQty: 10})

	require.Eventually(t, func() bool {
		return e.Matcher.BookFor(1).Snapshot().BestBid == 100*fxp.Price(fxp.Scale)
	}, time.Second, time.Millisecond)

	assert.True(t, e.CancelOrder(1))

	require.Eventually(t, func() bool {
		return e.Matcher.BookFor(1).Snapshot().BestBid == 0
	}, time.Second, time.Millisecond)
}

func TestShutdownIsIdempotent(t *testing.T) {
	e, err := NewEngine(testConfig(), nil, "", "")
	require.NoError(t, err)
	e.Start()
	e.Shutdown()
	e.Shutdown() // must not panic or block
}

type stubStrategy struct {
	symbol    fxp.SymbolID
	trades    int
	ticks     int
	snapshots int
	enabled   bool
}

func (s *stubStrategy) OnMarketData(tick marketdata.MarketTick) { s.ticks++ }
func (s *stubStrategy) OnBookSnapshot(snap book.BookSnapshot)   { s.snapshots++ }
func (s *stubStrategy) OnTrade(trade TradeEvent)                { s.trades++ }
func (s *stubStrategy) ProcessSignals()                         {}
func (s *stubStrategy) IsEnabled() bool                         { return s.enabled }
func (s *stubStrategy) SymbolID() fxp.SymbolID                  { return s.symbol }
func (s *stubStrategy) Shutdown()                               {}

func TestRegisteredStrategyObservesTrade(t *testing.T) {
	e, err := NewEngine(testConfig(), nil, "", "")
	require.NoError(t, err)

	strat := &stubStrategy{symbol: 1, enabled: true}
	e.RegisterStrategy(strat)
	e.Start()
	defer e.Shutdown()

	e.SubmitOrder(book.Order{ID: 1, Symbol: 1, Side: book.Sell, Type: book.Limit, TIF: book.GTC, Price: 100 * fxp.Price(fxp.Scale), OrigQty: 10})
	e.SubmitOrder(book.Order{ID: 2, Symbol: 1, Side: book.Buy, Type: book.Limit, TIF: book.GTC, Price: 100 * fxp.Price(fxp.Scale), OrigQty: 10})

	require.Eventually(t, func() bool { return strat.trades == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return strat.snapshots == 1 }, time.Second, time.Millisecond)
}

func TestRegisteredStrategyObservesMarketDataFilteredBySymbol(t *testing.T) {
	e, err := NewEngine(testConfig(), nil, "", "")
	require.NoError(t, err)

	inSymbol := &stubStrategy{symbol: 1, enabled: true}
	otherSymbol := &stubStrategy{symbol: 2, enabled: true}
	e.RegisterStrategy(inSymbol)
	e.RegisterStrategy(otherSymbol)

	e.Gateway.OnTick(marketdata.MarketTick{Symbol: 1, Price: 100 * fxp.Price(fxp.Scale), Quantity: 10, Side: book.Buy})

	assert.Equal(t, 1, inSymbol.ticks)
	assert.Equal(t, 0, otherSymbol.ticks)
}

func TestDisabledStrategyDoesNotObserveMarketData(t *testing.T) {
	e, err := NewEngine(testConfig(), nil, "", "")
	require.NoError(t, err)

	strat := &stubStrategy{symbol: 1, enabled: false}
	e.RegisterStrategy(strat)

	e.Gateway.OnTick(marketdata.MarketTick{Symbol: 1, Price: 100 * fxp.Price(fxp.Scale), Quantity: 10, Side: book.Buy})

	assert.Equal(t, 0, strat.ticks)
}
