package live

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradingcore/internal/core"
	"tradingcore/internal/exchange"
	"tradingcore/internal/marketdata"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSubmitOrderRequiresConnection(t *testing.T) {
	t.Parallel()

	client := exchange.NewClient(exchange.Config{DryRun: true}, exchange.NewAuth(exchange.Credentials{}), exchange.NewRateLimiter(exchange.DefaultRateLimiterConfig()), testLogger())
	g := New(client, exchange.NewMarketFeed("ws://unused", testLogger()), nil, testLogger())

	order := &core.Order{Symbol: "AAPL", Quantity: 10, LimitPrice: decimal.NewFromInt(150)}
	if err := g.SubmitOrder(order); err == nil {
		t.Fatal("expected NotConnectedError before Connect()")
	}
}

func TestSubmitOrderDryRunPublishesUpdate(t *testing.T) {
	t.Parallel()

	client := exchange.NewClient(exchange.Config{DryRun: true}, exchange.NewAuth(exchange.Credentials{}), exchange.NewRateLimiter(exchange.DefaultRateLimiterConfig()), testLogger())
	g := New(client, exchange.NewMarketFeed("ws://unused", testLogger()), nil, testLogger())
	g.Connect()

	var got core.OrderUpdate
	g.SubscribeOrderUpdates(func(u core.OrderUpdate) { got = u })

	order := &core.Order{ID: "ord-1", Symbol: "AAPL", Quantity: 10, LimitPrice: decimal.NewFromInt(150)}
	if err := g.SubmitOrder(order); err != nil {
		t.Fatalf("SubmitOrder() error = %v", err)
	}
	if got.Order == nil || got.Order.Status != core.Active {
		t.Errorf("got = %+v, want Active", got)
	}
}

func TestAttachMarketLoggerRecordsAndDisconnectCloses(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	client := exchange.NewClient(exchange.Config{DryRun: true}, exchange.NewAuth(exchange.Credentials{}), exchange.NewRateLimiter(exchange.DefaultRateLimiterConfig()), testLogger())
	g := New(client, exchange.NewMarketFeed("ws://unused", testLogger()), nil, testLogger())

	mdLogger := marketdata.NewLogger(dir)
	g.AttachMarketLogger(mdLogger)

	evt := core.MarketDataEvent{Timestamp: time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC), Symbol: "AAPL", Price: decimal.NewFromInt(150)}
	if err := mdLogger.Write(evt); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if err := g.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}

	path := filepath.Join(dir, "AAPL", "AAPL_20240102.csv")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file at %s: %v", path, err)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	client := exchange.NewClient(exchange.Config{DryRun: true}, exchange.NewAuth(exchange.Credentials{}), exchange.NewRateLimiter(exchange.DefaultRateLimiterConfig()), testLogger())
	g := New(client, exchange.NewMarketFeed("ws://127.0.0.1:0", testLogger()), nil, testLogger())
	g.Connect()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := g.Run(ctx)
	if err == nil {
		t.Fatal("expected context deadline error")
	}
}
