// Package live implements the live Gateway: a brokerage REST client for
// order submission/cancellation plus two WebSocket feeds (market data,
// order updates).
package live

import (
	"context"
	"log/slog"

	"tradingcore/internal/core"
	"tradingcore/internal/exchange"
	"tradingcore/internal/gateway"
	"tradingcore/internal/marketdata"
)

// Gateway drives live trading against a brokerage REST API plus two
// WebSocket feeds. Market data arrives on the market feed; order fills and
// lifecycle transitions arrive on the user feed and are republished to
// order-update subscribers as they arrive.
type Gateway struct {
	gateway.Base

	client       *exchange.Client
	marketFeed   *exchange.Feed
	userFeed     *exchange.Feed
	marketLogger *marketdata.Logger
	logger       *slog.Logger
}

// New creates a live gateway over client and the two feeds.
func New(client *exchange.Client, marketFeed, userFeed *exchange.Feed, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		client:     client,
		marketFeed: marketFeed,
		userFeed:   userFeed,
		logger:     logger.With("component", "live_gateway"),
	}
}

// Connect marks the gateway connected; symbols are registered separately
// through Subscribe. Connection to the underlying sockets happens inside
// Run; Connect only
// flips the cooperative flag other methods gate on, matching the
// simulation gateway's Connect semantics.
func (g *Gateway) Connect() error {
	g.SetConnected(true)
	return nil
}

// Disconnect marks the gateway disconnected and closes both feeds and the
// market-data logger, if one is attached.
func (g *Gateway) Disconnect() error {
	g.SetConnected(false)
	if g.marketFeed != nil {
		g.marketFeed.Close()
	}
	if g.userFeed != nil {
		g.userFeed.Close()
	}
	if g.marketLogger != nil {
		return g.marketLogger.Close()
	}
	return nil
}

// AttachMarketLogger wires a market-data recorder that every tick received
// from the market feed is written through before publication; nil disables
// recording.
func (g *Gateway) AttachMarketLogger(l *marketdata.Logger) {
	g.marketLogger = l
}

// SubmitOrder sends order to the brokerage and publishes the resulting
// update synchronously.
func (g *Gateway) SubmitOrder(order *core.Order) error {
	if err := g.RequireConnected("submit_order"); err != nil {
		return err
	}
	g.RecordSent(order)

	update, err := g.client.SubmitOrder(context.Background(), order)
	if err != nil {
		order.Status = core.Failed
		g.PublishOrderUpdate(core.OrderUpdate{Order: order})
		return err
	}
	g.PublishOrderUpdate(*update)
	return nil
}

// Subscribe registers symbols on both feeds.
func (g *Gateway) Subscribe(symbols []string) error {
	if err := g.marketFeed.Subscribe(symbols); err != nil {
		return err
	}
	if g.userFeed != nil {
		return g.userFeed.Subscribe(symbols)
	}
	return nil
}

// Run starts both feeds and forwards their events to subscribers until ctx
// is cancelled or the gateway is disconnected.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- g.marketFeed.Run(ctx) }()
	if g.userFeed != nil {
		go func() { errCh <- g.userFeed.Run(ctx) }()
	} else {
		errCh <- nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case evt := <-g.marketFeed.MarketDataEvents():
			if !g.Connected() {
				continue
			}
			if g.marketLogger != nil {
				if err := g.marketLogger.Write(evt); err != nil {
					g.logger.Error("failed to record market data", "error", err, "symbol", evt.Symbol)
				}
			}
			g.PublishMarketData(evt)

		case update := <-g.userFeedOrderUpdates():
			if !g.Connected() {
				continue
			}
			g.PublishOrderUpdate(update)

		case err := <-errCh:
			if err != nil {
				g.logger.Error("feed exited", "error", err)
				return err
			}
		}

		if !g.Connected() {
			return nil
		}
	}
}

func (g *Gateway) userFeedOrderUpdates() <-chan core.OrderUpdate {
	if g.userFeed == nil {
		return nil
	}
	return g.userFeed.OrderUpdateEvents()
}
