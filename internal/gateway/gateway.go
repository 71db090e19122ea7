// Package gateway defines the abstract Gateway contract shared by the
// simulation and live adapters: publish market data to subscribers, route
// order submissions, and publish order updates back. Callers register
// callbacks and never hold a reference to the gateway's internals.
package gateway

import (
	"context"
	"sync"
	"sync/atomic"

	"tradingcore/internal/audit"
	"tradingcore/internal/core"
)

// MarketDataHandler receives one tick at a time, in stream order.
type MarketDataHandler func(core.MarketDataEvent)

// OrderUpdateHandler receives one OrderUpdate at a time, in
// status-transition order for any given order.
type OrderUpdateHandler func(core.OrderUpdate)

// Gateway is the abstract contract: source of market data, sink/source of
// order events.
type Gateway interface {
	SubscribeMarketData(fn MarketDataHandler)
	SubscribeOrderUpdates(fn OrderUpdateHandler)
	SubmitOrder(order *core.Order) error
	Connect() error
	Disconnect() error
	Run(ctx context.Context) error
}

// Base is embedded by concrete gateways to share subscriber bookkeeping,
// the connected flag, and the optional audit sink.
type Base struct {
	mu         sync.Mutex
	marketSubs []MarketDataHandler
	orderSubs  []OrderUpdateHandler
	connected  atomic.Bool
	audit      *audit.Log
}

// AttachAudit wires an append-only audit sink; nil disables auditing.
func (b *Base) AttachAudit(log *audit.Log) {
	b.audit = log
}

func (b *Base) SubscribeMarketData(fn MarketDataHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.marketSubs = append(b.marketSubs, fn)
}

func (b *Base) SubscribeOrderUpdates(fn OrderUpdateHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orderSubs = append(b.orderSubs, fn)
}

// PublishMarketData delivers evt to every market-data subscriber in
// registration order. Called only from the single event-loop goroutine.
func (b *Base) PublishMarketData(evt core.MarketDataEvent) {
	b.mu.Lock()
	subs := append([]MarketDataHandler(nil), b.marketSubs...)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(evt)
	}
}

// PublishOrderUpdate delivers update to every order-update subscriber,
// and appends an audit row first if an audit sink is attached: FILLED for
// Filled, CANCELLED for Canceled or Failed, MODIFIED for Active or
// PartiallyFilled. SENT rows are written by RecordSent, not here.
func (b *Base) PublishOrderUpdate(update core.OrderUpdate) {
	b.recordAudit(update.Order)

	b.mu.Lock()
	subs := append([]OrderUpdateHandler(nil), b.orderSubs...)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(update)
	}
}

func (b *Base) recordAudit(order *core.Order) {
	if b.audit == nil {
		return
	}

	var event string
	switch order.Status {
	case core.Filled:
		event = audit.EventFilled
	case core.Canceled, core.Failed:
		event = audit.EventCancelled
	case core.PartiallyFilled, core.Active:
		event = audit.EventModified
	default:
		return
	}

	_ = b.audit.Record(audit.Row{
		Event:    event,
		Symbol:   order.Symbol,
		Quantity: order.Quantity,
		Price:    order.LimitPrice,
		OrderID:  order.ID,
		Status:   order.Status.String(),
	})
}

// RecordSent writes a SENT audit row for order, if an audit sink is
// attached. Called once per SubmitOrder.
func (b *Base) RecordSent(order *core.Order) {
	if b.audit == nil {
		return
	}
	_ = b.audit.Record(audit.Row{
		Event:    audit.EventSent,
		Symbol:   order.Symbol,
		Quantity: order.Quantity,
		Price:    order.LimitPrice,
		OrderID:  order.ID,
		Status:   order.Status.String(),
	})
}

// Connected reports whether Connect has been called without a matching
// Disconnect.
func (b *Base) Connected() bool {
	return b.connected.Load()
}

// SetConnected flips the cooperative-shutdown flag; concrete gateways call
// this from Connect/Disconnect.
func (b *Base) SetConnected(v bool) {
	b.connected.Store(v)
}

// RequireConnected returns NotConnectedError if the gateway is not
// connected, otherwise nil.
func (b *Base) RequireConnected(op string) error {
	if !b.Connected() {
		return &core.NotConnectedError{Op: op}
	}
	return nil
}
