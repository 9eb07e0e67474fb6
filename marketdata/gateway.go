package marketdata

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"matchcore/book"
	"matchcore/fxp"
	"matchcore/queue"
)

// defaultIngressCapacity is the default per-symbol ring size; overridable via
// Gateway.IngressCapacity before the first Subscribe call.
const defaultIngressCapacity = 4096

// processor owns one symbol's ingress ring and drain goroutine (§4.4
// "subscribe(symbol) creates a per-symbol processor"). Grounded on the
// teacher's per-topic producer fan-out shape in infra/kafka/producer.go,
// generalized here to an in-process ring since market data never crosses
// a real network boundary in this engine (out of scope per SPEC_FULL).
type processor struct {
	symbol   fxp.SymbolID
	ingress  *queue.SPSC[MarketTick]
	quotes   *book.QuoteBook
	sequence atomic.Uint64
	dropped  atomic.Uint64

	stop chan struct{}
	done chan struct{}
}

// OverflowHook is invoked whenever a symbol's ingress ring is full; the
// tick that triggered the overflow is passed for observability.
type OverflowHook func(symbol fxp.SymbolID, tick MarketTick)

// TickHook is invoked for every tick a processor successfully drains,
// after it has been installed into the quote book.
type TickHook func(tick MarketTick)

// SnapshotHook is invoked for every snapshot message processed.
type SnapshotHook func(event SnapshotEvent)

// Gateway parses raw ingress messages, fans them out per symbol into
// bounded rings, and drives per-symbol quote books (§4.4). IngressCapacity
// and the hooks must be set before the first Subscribe call.
type Gateway struct {
	IngressCapacity int
	OnTick          TickHook
	OnSnapshot      SnapshotHook
	OnOverflow      OverflowHook

	// Latency, if set, observes the wall-clock time spent in each
	// ProcessRawMessage call. Nil disables the observation (the default
	// for a Gateway built outside Engine, e.g. in tests).
	Latency prometheus.Observer

	clock func() fxp.Timestamp

	mu         sync.RWMutex
	processors map[fxp.SymbolID]*processor

	parseErrors atomic.Uint64
}

// NewGateway constructs a Gateway. clock supplies the locally stamped
// timestamp attached to every synthesized MarketTick.
func NewGateway(clock func() fxp.Timestamp) *Gateway {
	return &Gateway{
		IngressCapacity: defaultIngressCapacity,
		clock:           clock,
		processors:      make(map[fxp.SymbolID]*processor),
	}
}

// Subscribe creates a per-symbol processor: an ingress ring and a drain
// goroutine that installs incoming ticks into quotes. Subscribing an
// already-subscribed symbol is a no-op.
func (g *Gateway) Subscribe(symbol fxp.SymbolID, quotes *book.QuoteBook) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.processors[symbol]; ok {
		return
	}
	p := &processor{
		symbol:  symbol,
		ingress: queue.NewSPSC[MarketTick](g.IngressCapacity),
		quotes:  quotes,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	g.processors[symbol] = p
	go g.drain(p)
}

// Unsubscribe stops the symbol's drain goroutine and releases its
// processor. Unsubscribing an unknown symbol is a no-op.
func (g *Gateway) Unsubscribe(symbol fxp.SymbolID) {
	g.mu.Lock()
	p, ok := g.processors[symbol]
	if ok {
		delete(g.processors, symbol)
	}
	g.mu.Unlock()
	if !ok {
		return
	}
	close(p.stop)
	<-p.done
}

func (g *Gateway) drain(p *processor) {
	defer close(p.done)
	for {
		select {
		case <-p.stop:
			return
		default:
		}
		tick, ok := p.ingress.Pop()
		if !ok {
			runtime.Gosched()
			continue
		}
		p.quotes.UpdateLevel(tick.Side, tick.Price, tick.Quantity)
		if g.OnTick != nil {
			g.OnTick(tick)
		}
	}
}

// ProcessRawMessage validates and dispatches one raw ingress message
// (§4.4 "process_raw_message(bytes)"). For an incremental message it
// enqueues a synthesized MarketTick into the symbol's ingress ring; for a
// snapshot it installs the top levels directly and emits a SnapshotEvent.
// Malformed messages are dropped and counted; they never panic or block.
func (g *Gateway) ProcessRawMessage(buf []byte) {
	if g.Latency != nil {
		timer := prometheus.NewTimer(g.Latency)
		defer timer.ObserveDuration()
	}

	header, err := DecodeHeader(buf)
	if err != nil {
		g.parseErrors.Add(1)
		return
	}
	body := buf[headerSize : headerSize+int(header.Length)]

	switch header.Type {
	case MessageIncremental:
		g.processIncremental(body)
	case MessageSnapshotBid:
		g.processSnapshot(body, book.Buy)
	case MessageSnapshotAsk:
		g.processSnapshot(body, book.Sell)
	default:
		g.parseErrors.Add(1)
	}
}

func (g *Gateway) processIncremental(body []byte) {
	inc, err := DecodeIncremental(body)
	if err != nil {
		g.parseErrors.Add(1)
		return
	}

	g.mu.RLock()
	p, ok := g.processors[inc.Symbol]
	g.mu.RUnlock()
	if !ok {
		return // not subscribed: silently ignored, per §4.4's per-symbol scoping
	}

	tick := MarketTick{
		Symbol:    inc.Symbol,
		Price:     inc.Price,
		Quantity:  inc.Quantity,
		Side:      book.Side(inc.Side),
		Sequence:  p.sequence.Add(1),
		Timestamp: g.clock(),
	}

	if !p.ingress.Push(tick) {
		p.dropped.Add(1)
		if g.OnOverflow != nil {
			g.OnOverflow(inc.Symbol, tick)
		}
	}
}

func (g *Gateway) processSnapshot(body []byte, side book.Side) {
	snap, err := DecodeSnapshot(body)
	if err != nil {
		g.parseErrors.Add(1)
		return
	}

	g.mu.RLock()
	p, ok := g.processors[snap.Symbol]
	g.mu.RUnlock()
	if !ok {
		return
	}

	p.quotes.InstallSnapshot(side, quoteRowsFrom(snap.Levels))

	event := SnapshotEvent{Symbol: snap.Symbol, Side: side, Levels: snap.Levels, Timestamp: g.clock()}
	if g.OnSnapshot != nil {
		g.OnSnapshot(event)
	}
}

func quoteRowsFrom(levels []SnapshotLevel) []book.QuoteRow {
	rows := make([]book.QuoteRow, len(levels))
	for i, lvl := range levels {
		rows[i] = book.QuoteRow{Price: lvl.Price, Qty: lvl.Quantity}
	}
	return rows
}

// MessagesDropped returns the per-symbol ingress overflow count (§4.4
// "messages_dropped"). Returns 0 for an unsubscribed symbol.
func (g *Gateway) MessagesDropped(symbol fxp.SymbolID) uint64 {
	g.mu.RLock()
	p, ok := g.processors[symbol]
	g.mu.RUnlock()
	if !ok {
		return 0
	}
	return p.dropped.Load()
}

// ParseErrors returns the total count of malformed messages rejected.
func (g *Gateway) ParseErrors() uint64 {
	return g.parseErrors.Load()
}
