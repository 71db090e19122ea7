// Package sim implements the simulation Gateway: a CSV-driven clock feeding
// a matching.Engine, with a context-cancellation, cooperative-shutdown
// lifecycle: a connected flag is checked between ticks.
package sim

import (
	"context"
	"log/slog"

	"tradingcore/internal/core"
	"tradingcore/internal/gateway"
	"tradingcore/internal/marketdata"
	"tradingcore/internal/matching"
)

// Gateway drives a backtest clock from a CSV market-data stream and routes
// order submissions to an in-process matching.Engine.
type Gateway struct {
	gateway.Base

	reader  *marketdata.Reader
	engine  *matching.Engine
	logger  *slog.Logger
}

// New creates a simulation gateway over reader and engine.
func New(reader *marketdata.Reader, engine *matching.Engine, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{reader: reader, engine: engine, logger: logger.With("component", "sim_gateway")}
}

// Connect marks the gateway connected.
func (g *Gateway) Connect() error {
	g.SetConnected(true)
	return nil
}

// Disconnect marks the gateway disconnected.
func (g *Gateway) Disconnect() error {
	g.SetConnected(false)
	return nil
}

// SubmitOrder hands order to the matching engine and publishes the
// resulting update synchronously, matching the single-threaded event loop
// model: there is no suspension here, only inside Run.
func (g *Gateway) SubmitOrder(order *core.Order) error {
	if err := g.RequireConnected("submit_order"); err != nil {
		return err
	}
	g.RecordSent(order)
	update := g.engine.Submit(order)
	g.PublishOrderUpdate(*update)
	return nil
}

// Run is the blocking event loop: it drains the CSV stream tick by tick,
// publishing each to market-data subscribers, until the stream is
// exhausted or ctx is cancelled / the gateway is disconnected.
func (g *Gateway) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !g.Connected() {
			return nil
		}

		evt, ok := g.reader.Next()
		if !ok {
			return nil
		}
		g.PublishMarketData(evt)
	}
}
