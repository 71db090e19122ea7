// Package tradingengine implements the orchestrator that wires Gateway,
// Strategy, Portfolio, OrderManager and PerformanceTracker together.
// All collaborators are wired at construction time; Run then blocks under
// a context until cancellation or shutdown. Gateway is decoupled entirely
// through subscription callbacks — the engine never holds a reference to
// Gateway's internals.
package tradingengine

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tradingcore/internal/core"
	"tradingcore/internal/gateway"
	"tradingcore/internal/performance"
	"tradingcore/internal/portfolio"
	"tradingcore/internal/risk"
	"tradingcore/internal/strategy"
)

// Engine is the TradingEngine: the single-threaded orchestrator that
// reacts to gateway events and drives the strategy/risk/portfolio
// pipeline. It holds no goroutines of its own; Gateway.Run is the only
// suspension point in the event loop.
type Engine struct {
	gw         gateway.Gateway
	strategies []strategy.Strategy
	portfolio  *portfolio.Portfolio
	riskMgr    *risk.Manager
	tracker    *performance.Tracker
	seq        *core.IDSequence
	logger     *slog.Logger

	marks    map[string]decimal.Decimal
	lastTick time.Time
}

// New wires an Engine over its collaborators and subscribes on_market_data
// and on_order_update to gw. tracker may be nil to disable performance
// recording.
func New(
	gw gateway.Gateway,
	strategies []strategy.Strategy,
	p *portfolio.Portfolio,
	riskMgr *risk.Manager,
	tracker *performance.Tracker,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		gw:         gw,
		strategies: strategies,
		portfolio:  p,
		riskMgr:    riskMgr,
		tracker:    tracker,
		seq:        &core.IDSequence{},
		logger:     logger.With("component", "tradingengine"),
		marks:      make(map[string]decimal.Decimal),
	}

	gw.SubscribeMarketData(e.onMarketData)
	gw.SubscribeOrderUpdates(e.onOrderUpdate)

	return e
}

// Run connects the gateway and blocks in its event loop until ctx is
// cancelled, the gateway's data source is exhausted, or a DataSourceError
// interrupts the stream.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.gw.Connect(); err != nil {
		return err
	}
	return e.gw.Run(ctx)
}

// onMarketData implements §4.4's algorithm: mark-to-market, equity
// sampling, strategy signals, then risk-validated order submission.
func (e *Engine) onMarketData(tick core.MarketDataEvent) {
	e.marks[tick.Symbol] = tick.Price
	e.lastTick = tick.Timestamp

	if e.tracker != nil {
		e.tracker.UpdateMark(tick.Symbol, tick.Price)
		e.tracker.RecordPortfolioValue(e.portfolio, e.marks, tick.Timestamp)
	}

	for _, strat := range e.strategies {
		for _, sig := range strat.GenerateSignals(tick) {
			e.handleSignal(sig)
		}
	}
}

func (e *Engine) handleSignal(sig core.Signal) {
	if sig.Action == core.Hold {
		return
	}

	qty := sig.Quantity
	if sig.Action == core.SellSignal {
		qty = -qty
	}

	order := &core.Order{
		ID:         e.seq.Next(),
		Symbol:     sig.Symbol,
		Quantity:   qty,
		LimitPrice: sig.LimitPrice,
		Status:     core.Pending,
	}

	if err := e.riskMgr.Validate(order); err != nil {
		e.logger.Warn("order rejected", "symbol", order.Symbol, "error", err)
		return
	}

	if err := e.gw.SubmitOrder(order); err != nil {
		e.logger.Warn("submit_order failed", "symbol", order.Symbol, "error", err)
		return
	}
}

// onOrderUpdate implements §4.4's fill state machine.
func (e *Engine) onOrderUpdate(update core.OrderUpdate) {
	order := update.Order

	switch order.Status {
	case core.Active:
		if order.FilledQuantity == 0 {
			e.riskMgr.RecordOrder(order)
		} else {
			e.applyFillDelta(order)
		}

	case core.PartiallyFilled:
		e.applyFillDelta(order)

	case core.Filled:
		e.applyFillDelta(order)
		e.riskMgr.Remove(order)

	case core.Canceled, core.Failed:
		e.riskMgr.Remove(order)
	}
}

func (e *Engine) applyFillDelta(order *core.Order) {
	newDelta, _ := e.riskMgr.UpdateFill(order, order.FilledQuantity)
	if newDelta == 0 {
		return
	}

	signedDelta := newDelta
	if order.OrderSide() == core.Sell {
		signedDelta = -newDelta
	}

	fill := portfolio.Fill{Symbol: order.Symbol, Quantity: signedDelta, Price: order.LimitPrice}
	if err := e.portfolio.ApplyFill(fill); err != nil {
		e.logger.Warn("apply_fill failed", "order_id", order.ID, "error", err)
		return
	}

	if e.tracker != nil {
		e.tracker.RecordTrade(order.Symbol, signedDelta, order.LimitPrice, e.lastTick)
	}
}
