package tradingengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradingcore/internal/core"
	"tradingcore/internal/gateway"
	"tradingcore/internal/gateway/sim"
	"tradingcore/internal/marketdata"
	"tradingcore/internal/matching"
	"tradingcore/internal/performance"
	"tradingcore/internal/portfolio"
	"tradingcore/internal/risk"
	"tradingcore/internal/strategy"
	"tradingcore/internal/strategy/crossover"
)

func writeCSV(t *testing.T, rows []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "aapl.csv")
	content := "Datetime,Symbol,Close\n"
	for _, r := range rows {
		content += r + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestScenarioAEndToEnd reproduces spec scenario A through the full
// gateway -> strategy -> risk -> portfolio -> tracker pipeline.
func TestScenarioAEndToEnd(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, []string{
		"2026-01-01T09:30:00,AAPL,100",
		"2026-01-01T09:31:00,AAPL,101",
		"2026-01-01T09:32:00,AAPL,102",
		"2026-01-01T09:33:00,AAPL,106",
		"2026-01-01T09:34:00,AAPL,108",
		"2026-01-01T09:35:00,AAPL,110",
	})
	reader, err := marketdata.NewReader(path)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}

	gw := sim.New(reader, matching.New(0, 0, 1), nil)
	pf := portfolio.New(decimal.NewFromInt(10000))
	riskMgr := risk.New(pf, risk.Config{MaxOrdersPerMinute: 100}, nil)
	strat := crossover.New(crossover.Config{ShortWindow: 3, LongWindow: 5, Quantity: 10})

	eng := New(gw, []strategy.Strategy{strat}, pf, riskMgr, nil, nil)

	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !pf.Cash().Equal(decimal.NewFromInt(8900)) {
		t.Errorf("cash = %v, want 8900", pf.Cash())
	}
	h, ok := pf.Holding("AAPL")
	if !ok {
		t.Fatal("expected AAPL holding")
	}
	if h.Quantity != 10 || !h.AvgPrice.Equal(decimal.NewFromInt(110)) {
		t.Errorf("holding = %+v, want {10 110}", h)
	}
}

type fakeGateway struct {
	marketSub gateway.MarketDataHandler
	orderSub  gateway.OrderUpdateHandler
	submitted []*core.Order
}

func (f *fakeGateway) SubscribeMarketData(fn gateway.MarketDataHandler)  { f.marketSub = fn }
func (f *fakeGateway) SubscribeOrderUpdates(fn gateway.OrderUpdateHandler) { f.orderSub = fn }
func (f *fakeGateway) SubmitOrder(order *core.Order) error {
	f.submitted = append(f.submitted, order)
	return nil
}
func (f *fakeGateway) Connect() error               { return nil }
func (f *fakeGateway) Disconnect() error             { return nil }
func (f *fakeGateway) Run(ctx context.Context) error { return nil }

type constantStrategy struct {
	signal core.Signal
	fired  bool
}

func (s *constantStrategy) GenerateSignals(core.MarketDataEvent) []core.Signal {
	if s.fired {
		return nil
	}
	s.fired = true
	return []core.Signal{s.signal}
}

func TestOnOrderUpdatePartialThenFilledAppliesPortfolioDeltasOnce(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	pf := portfolio.New(decimal.NewFromInt(10000))
	riskMgr := risk.New(pf, risk.Config{MaxOrdersPerMinute: 100}, nil)
	tracker := performance.New(decimal.NewFromInt(10000), performance.Tick)

	New(gw, nil, pf, riskMgr, tracker, nil)

	order := &core.Order{ID: "ord-1", Symbol: "AAPL", Quantity: 100, LimitPrice: decimal.NewFromInt(100), Status: core.Active, FilledQuantity: 0}
	gw.orderSub(core.OrderUpdate{Order: order})
	riskMgr.RecordOrder(order)

	order.Status = core.PartiallyFilled
	order.FilledQuantity = 30
	gw.orderSub(core.OrderUpdate{Order: order})
	if !pf.Cash().Equal(decimal.NewFromInt(7000)) {
		t.Errorf("cash after 30 filled = %v, want 7000", pf.Cash())
	}

	order.FilledQuantity = 80
	gw.orderSub(core.OrderUpdate{Order: order})
	if !pf.Cash().Equal(decimal.NewFromInt(2000)) {
		t.Errorf("cash after 80 filled = %v, want 2000", pf.Cash())
	}

	order.Status = core.Filled
	order.FilledQuantity = 100
	gw.orderSub(core.OrderUpdate{Order: order})
	if !pf.Cash().Equal(decimal.Zero) {
		t.Errorf("cash after 100 filled = %v, want 0", pf.Cash())
	}
	if riskMgr.IsActive("ord-1") {
		t.Error("order should no longer be active after Filled")
	}
}

func TestHandleSignalRejectedOrderNeverSubmitted(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	pf := portfolio.New(decimal.NewFromInt(100))
	riskMgr := risk.New(pf, risk.Config{MaxOrdersPerMinute: 100}, nil)

	strat := &constantStrategy{signal: core.Signal{
		Symbol:     "AAPL",
		Quantity:   10,
		LimitPrice: decimal.NewFromInt(150),
		Action:     core.BuySignal,
	}}

	eng := New(gw, []strategy.Strategy{strat}, pf, riskMgr, nil, nil)

	eng.onMarketData(core.MarketDataEvent{Symbol: "AAPL", Price: decimal.NewFromInt(150), Timestamp: time.Now()})

	if len(gw.submitted) != 0 {
		t.Errorf("expected no orders submitted for insolvent buy, got %d", len(gw.submitted))
	}
}
