package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"tradingcore/internal/core"
	"tradingcore/internal/marketdata"
	"tradingcore/internal/matching"
)

func newReader(t *testing.T) *marketdata.Reader {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "aapl.csv")
	content := "Datetime,Symbol,Close\n" +
		"2026-01-01T09:30:00,AAPL,100\n" +
		"2026-01-01T09:31:00,AAPL,101\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := marketdata.NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestSubmitOrderRequiresConnection(t *testing.T) {
	t.Parallel()

	g := New(newReader(t), matching.New(0, 0, 1), nil)
	order := &core.Order{Symbol: "AAPL", Quantity: 10, LimitPrice: decimal.NewFromInt(150)}

	if err := g.SubmitOrder(order); err == nil {
		t.Fatal("expected NotConnectedError before Connect()")
	}
}

func TestSubmitOrderPublishesUpdate(t *testing.T) {
	t.Parallel()

	g := New(newReader(t), matching.New(0, 0, 1), nil)
	g.Connect()

	var got core.OrderUpdate
	g.SubscribeOrderUpdates(func(u core.OrderUpdate) { got = u })

	order := &core.Order{Symbol: "AAPL", Quantity: 10, LimitPrice: decimal.NewFromInt(150)}
	if err := g.SubmitOrder(order); err != nil {
		t.Fatalf("SubmitOrder() error = %v", err)
	}

	if got.Order == nil || got.Order.Status != core.Filled {
		t.Errorf("got = %+v, want Filled", got)
	}
}

func TestRunPublishesAllTicksInOrder(t *testing.T) {
	t.Parallel()

	g := New(newReader(t), matching.New(0, 0, 1), nil)
	g.Connect()

	var prices []string
	g.SubscribeMarketData(func(evt core.MarketDataEvent) {
		prices = append(prices, evt.Price.String())
	})

	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(prices) != 2 || prices[0] != "100" || prices[1] != "101" {
		t.Errorf("prices = %v, want [100 101]", prices)
	}
}

func TestRunStopsWhenDisconnected(t *testing.T) {
	t.Parallel()

	g := New(newReader(t), matching.New(0, 0, 1), nil)
	// never connected: Run should return immediately without error.
	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
