package engine

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"matchcore/book"
	"matchcore/fxp"
	"matchcore/marketdata"
	"matchcore/matching"
	"matchcore/queue"
	"matchcore/risk"
	"matchcore/telemetry"
)

// Engine creates and wires the risk gate, matching engine, and
// market-data gateway, and drives the four long-running stages §4.5
// names: risk, matching, strategy tick-out, trade notification. It is the
// single entry point external callers use to submit orders and cancels.
// Grounded on service/order_service.go's "only write entry point"
// discipline and cmd/server/main.go's component wiring order.
type Engine struct {
	config Config
	logger *zap.Logger

	Gate    *risk.Gate
	Matcher *matching.Engine
	Gateway *marketdata.Gateway

	journal *Journal
	ledger  *Ledger

	ingress         *queue.MPSC[book.Order]
	cancelRequests  *queue.MPSC[fxp.OrderID]
	approved        *queue.SPSC[book.Order]
	trades          *queue.SPSC[matching.Trade]
	updates         *queue.MPSC[matching.OrderUpdate]

	running atomic.Bool
	wg      sync.WaitGroup

	mu         sync.RWMutex
	strategies []*strategyBinding

	Counters  telemetry.Counters
	Latencies *telemetry.Latencies

	clock func() fxp.Timestamp
}

// NewEngine wires every component from config. journalDir/ledgerDir may be
// empty to disable durable audit trails (useful in tests): a nil
// journal/ledger is treated as a no-op sink.
func NewEngine(config Config, logger *zap.Logger, journalDir, ledgerDir string) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		config:         config,
		logger:         logger,
		Gate:           risk.NewGate(config.RiskLimits(), nil),
		Matcher:        matching.NewEngine(config.OrderPoolSize, telemetry.Now),
		Gateway:        marketdata.NewGateway(telemetry.Now),
		ingress:        queue.NewMPSC[book.Order](config.QueueCapacity),
		cancelRequests: queue.NewMPSC[fxp.OrderID](config.QueueCapacity),
		approved:       queue.NewSPSC[book.Order](config.QueueCapacity),
		trades:         queue.NewSPSC[matching.Trade](config.QueueCapacity),
		updates:        queue.NewMPSC[matching.OrderUpdate](config.QueueCapacity),
		clock:          telemetry.Now,
	}
	e.Latencies = telemetry.NewLatencies(prometheus.NewRegistry())
	e.Gateway.Latency = e.Latencies.Gateway
	e.Gateway.OnTick = e.routeMarketData

	if journalDir != "" {
		j, err := OpenJournal(journalDir, 2*1024*1024)
		if err != nil {
			return nil, err
		}
		e.journal = j
	}
	if ledgerDir != "" {
		l, err := OpenLedger(ledgerDir)
		if err != nil {
			return nil, err
		}
		e.ledger = l
	}

	return e, nil
}

// RegisterStrategy attaches a Strategy and records submit/cancel callbacks
// bound to this engine (SubmitOrder/CancelOrder) in its binding. The
// callbacks are not handed to the Strategy itself: the Strategy interface
// has no method that receives them.
func (e *Engine) RegisterStrategy(s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies = append(e.strategies, &strategyBinding{
		strategy: s,
		submit:   e.SubmitOrder,
		cancel:   e.CancelOrder,
	})
}

// SubmitOrder is the §4.5 "simple submit_order entry point": it pushes
// order into the ingress ring and returns its id. Returns the zero
// OrderID if the ring is full; callers retry or fail locally (§7).
func (e *Engine) SubmitOrder(o book.Order) fxp.OrderID {
	if o.Ingress == 0 {
		o.Ingress = e.clock()
	}
	if !e.ingress.Push(o) {
		e.Counters.RecordQueueDropped()
		return 0
	}
	return o.ID
}

// CancelOrder pushes a cancel request into the matcher's cancel ring.
// Returns false if the ring is full (the cancel is dropped, not retried
// here). A true result only means the request was queued: an unknown id is
// accepted here too, and the matching stage's Matcher.Cancel then finds
// nothing to cancel and emits no update.
func (e *Engine) CancelOrder(id fxp.OrderID) bool {
	if !e.cancelRequests.Push(id) {
		e.Counters.RecordQueueDropped()
		return false
	}
	return true
}

// Start launches the four stage goroutines. Start is not idempotent;
// calling it twice on a running Engine is a programming error.
func (e *Engine) Start() {
	e.running.Store(true)

	e.wg.Add(3)
	go e.runRiskStage()
	go e.runMatchingStage()
	go e.runNotificationStage()

	e.wg.Add(1)
	go e.runStrategyStage()
}

// Shutdown is idempotent (§4.5): it first unsubscribes the gateway from
// every registered strategy's symbol, then flips the running flag, waits on
// one WaitGroup until all four worker goroutines (risk, matching,
// notification, strategy) have exited — they are not joined one at a time
// in a fixed order — and finally shuts down every registered strategy.
func (e *Engine) Shutdown() {
	if !e.running.Load() {
		return // already shut down
	}

	e.mu.RLock()
	strategies := append([]*strategyBinding(nil), e.strategies...)
	e.mu.RUnlock()

	for sym := range symbolsOf(strategies) {
		e.Gateway.Unsubscribe(sym)
	}

	if !e.running.CompareAndSwap(true, false) {
		return // a concurrent Shutdown got here first
	}

	e.wg.Wait()

	for _, s := range strategies {
		s.strategy.Shutdown()
	}

	if e.journal != nil {
		_ = e.journal.Close()
	}
	if e.ledger != nil {
		_ = e.ledger.Close()
	}
}

// routeMarketData is the Gateway.OnTick hook installed in NewEngine (§4.5:
// "Market-data ticks are published both to book updates and to strategy
// interfaces filtered by symbol"). It fans a tick out to every registered,
// enabled strategy whose SymbolID matches.
func (e *Engine) routeMarketData(tick marketdata.MarketTick) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, s := range e.strategies {
		if s.strategy.SymbolID() == tick.Symbol && s.strategy.IsEnabled() {
			s.strategy.OnMarketData(tick)
		}
	}
}

func symbolsOf(strategies []*strategyBinding) map[fxp.SymbolID]struct{} {
	out := make(map[fxp.SymbolID]struct{}, len(strategies))
	for _, s := range strategies {
		out[s.strategy.SymbolID()] = struct{}{}
	}
	return out
}

// runRiskStage drains the ingress ring, runs each order through the risk
// gate, and forwards approvals to the matcher's approved ring. Rejections
// are journaled and never reach the matcher (§4.3).
func (e *Engine) runRiskStage() {
	defer e.wg.Done()
	logger := e.logger.Named("risk")
	for {
		if !e.running.Load() {
			return
		}
		order, ok := e.ingress.Pop()
		if !ok {
			runtime.Gosched()
			continue
		}

		checkStart := time.Now()
		result := e.Gate.Check(order)
		e.Latencies.Risk.Observe(time.Since(checkStart).Seconds())
		if result != risk.Approved {
			update := matching.OrderUpdate{
				OrderID:   order.ID,
				Symbol:    order.Symbol,
				Status:    book.Rejected,
				Remaining: order.OrigQty,
				Reason:    string(result),
			}
			e.recordUpdate(update)
			logger.Debug("order rejected", zap.Uint64("order_id", uint64(order.ID)), zap.String("reason", string(result)))
			continue
		}

		if !e.approved.Push(order) {
			e.Counters.RecordQueueDropped()
			logger.Warn("approved queue full, dropping order", zap.Uint64("order_id", uint64(order.ID)))
		}
	}
}

// runMatchingStage drains both the approved-order ring and the cancel
// ring, feeding matching.Engine, and forwards every trade/update it
// produces downstream (§4.5 "Matcher's trade callback pushes trades into
// the trade-notification ring").
func (e *Engine) runMatchingStage() {
	defer e.wg.Done()
	logger := e.logger.Named("matcher")
	for {
		if !e.running.Load() {
			return
		}

		didWork := false

		if order, ok := e.approved.Pop(); ok {
			didWork = true
			submitStart := time.Now()
			result := e.Matcher.Submit(order)
			e.Latencies.Matching.Observe(time.Since(submitStart).Seconds())
			for _, trade := range result.Trades {
				if !e.trades.Push(trade) {
					e.Counters.RecordQueueDropped()
					logger.Warn("trade queue full, dropping trade", zap.Uint64("trade_id", uint64(trade.ID)))
				}
			}
			for _, update := range result.Updates {
				e.recordUpdate(update)
			}
		}

		if id, ok := e.cancelRequests.Pop(); ok {
			didWork = true
			if update, ok := e.Matcher.Cancel(id); ok {
				e.recordUpdate(update)
			}
		}

		if !didWork {
			runtime.Gosched()
		}
	}
}

// runNotificationStage drains the trade ring, applies the post-trade risk
// update, journals the trade, and notifies every strategy subscribed to
// that symbol. The engine treats itself as aggressor for every observed
// trade — §4.3's documented "simplified ownership model".
func (e *Engine) runNotificationStage() {
	defer e.wg.Done()
	logger := e.logger.Named("notifier")
	for {
		if !e.running.Load() {
			return
		}

		trade, ok := e.trades.Pop()
		if !ok {
			runtime.Gosched()
			continue
		}

		e.Gate.OnTrade(trade.Symbol, trade.Aggressor, trade.Price, trade.Qty, true)
		e.recordTrade(trade)

		snap := e.Matcher.BookFor(trade.Symbol).Snapshot()

		e.mu.RLock()
		for _, s := range e.strategies {
			if s.strategy.SymbolID() == trade.Symbol && s.strategy.IsEnabled() {
				s.strategy.OnTrade(TradeEvent{Symbol: trade.Symbol, Price: trade.Price, Qty: trade.Qty, Side: trade.Aggressor})
				s.strategy.OnBookSnapshot(snap)
			}
		}
		e.mu.RUnlock()

		logger.Debug("trade notified", zap.Uint64("trade_id", uint64(trade.ID)))
	}
}

// runStrategyStage ticks every enabled strategy's ProcessSignals once per
// iteration and drains the order-update ring into the ledger/journal.
func (e *Engine) runStrategyStage() {
	defer e.wg.Done()
	for {
		if !e.running.Load() {
			return
		}

		if update, ok := e.updates.Pop(); ok {
			e.applyUpdate(update)
		}

		e.mu.RLock()
		for _, s := range e.strategies {
			if s.strategy.IsEnabled() {
				s.strategy.ProcessSignals()
			}
		}
		e.mu.RUnlock()

		runtime.Gosched()
	}
}

func (e *Engine) recordUpdate(update matching.OrderUpdate) {
	if !e.updates.Push(update) {
		e.Counters.RecordQueueDropped()
	}
}

func (e *Engine) applyUpdate(update matching.OrderUpdate) {
	if e.ledger != nil {
		switch update.Status {
		case book.Filled, book.Cancelled, book.Rejected:
			_ = e.ledger.Put(update.OrderID, update.Status, update.Filled, e.clock())
		}
	}
	if e.journal != nil {
		payload := encodeOrderUpdatePayload(update)
		if err := e.journal.Append(JournalOrderUpdate, int64(e.clock()), payload); err != nil {
			e.logger.Warn("journal append failed", zap.Error(err))
		}
	}
}

func (e *Engine) recordTrade(trade matching.Trade) {
	if e.journal == nil {
		return
	}
	payload := encodeTradePayload(trade)
	if err := e.journal.Append(JournalTrade, int64(trade.Timestamp), payload); err != nil {
		e.logger.Warn("journal append failed", zap.Error(err))
	}
}
