package risk

import (
	"testing"

	"github.com/shopspring/decimal"

	"tradingcore/internal/core"
	"tradingcore/internal/portfolio"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func newManager(cash float64, cfg Config) (*Manager, *portfolio.Portfolio) {
	p := portfolio.New(dec(cash))
	return New(p, cfg, nil), p
}

func TestValidateRejectsInsolventBuy(t *testing.T) {
	t.Parallel()

	m, _ := newManager(100, Config{MaxOrdersPerMinute: 60})
	order := &core.Order{ID: "o1", Symbol: "AAPL", Quantity: 10, LimitPrice: dec(100)}

	if err := m.Validate(order); err == nil {
		t.Fatal("expected insufficient funds error")
	}
}

func TestValidateRejectsOverNotionalCap(t *testing.T) {
	t.Parallel()

	m, _ := newManager(100000, Config{MaxOrdersPerMinute: 60, MaxOrderValue: dec(500)})
	order := &core.Order{ID: "o1", Symbol: "AAPL", Quantity: 10, LimitPrice: dec(100)}

	err := m.Validate(order)
	if err == nil {
		t.Fatal("expected per-order notional cap error")
	}
}

func TestValidateRejectsOverExposureCap(t *testing.T) {
	t.Parallel()

	m, _ := newManager(1000000, Config{MaxOrdersPerMinute: 60, MaxPositionSize: dec(500)})
	order := &core.Order{ID: "o1", Symbol: "AAPL", Quantity: 10, LimitPrice: dec(100)}

	if err := m.Validate(order); err == nil {
		t.Fatal("expected exposure cap error")
	}
}

// Scenario E.
func TestRateLimitAllowsExactlyCapWithinWindow(t *testing.T) {
	t.Parallel()

	m, _ := newManager(1000000, Config{MaxOrdersPerMinute: 3})

	var lastErr error
	admitted := 0
	for i := 0; i < 4; i++ {
		order := &core.Order{ID: string(rune('a' + i)), Symbol: "AAPL", Quantity: 1, LimitPrice: dec(10)}
		err := m.Validate(order)
		if err == nil {
			m.RecordOrder(order)
			admitted++
		} else {
			lastErr = err
		}
	}

	if admitted != 3 {
		t.Errorf("admitted = %d, want 3", admitted)
	}
	if lastErr == nil {
		t.Fatal("4th order should have been rejected")
	}
	ioe, ok := lastErr.(*core.InvalidOrderError)
	if !ok {
		t.Fatalf("error type = %T, want *core.InvalidOrderError", lastErr)
	}
	if !containsSubstring(ioe.Reason, "ate limit") {
		t.Errorf("reason = %q, want it to mention rate limit", ioe.Reason)
	}
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// Scenario D: cumulative filled reports 30, then 80, then 100.
func TestUpdateFillDeltaSequence(t *testing.T) {
	t.Parallel()

	m, p := newManager(10000, Config{MaxOrdersPerMinute: 60})
	order := &core.Order{ID: "o1", Symbol: "AAPL", Quantity: 100, LimitPrice: dec(100), Status: core.Active}
	m.RecordOrder(order)

	steps := []struct {
		cumFilled     int64
		wantDelta     int64
		wantRemaining int64
		wantCash      float64
	}{
		{30, 30, 70, 7000},
		{80, 50, 20, 2000},
		{100, 20, 0, 0},
	}

	for _, step := range steps {
		delta, remaining := m.UpdateFill(order, step.cumFilled)
		if delta != step.wantDelta {
			t.Errorf("delta = %d, want %d", delta, step.wantDelta)
		}
		if remaining != step.wantRemaining {
			t.Errorf("remaining = %d, want %d", remaining, step.wantRemaining)
		}

		if err := p.ApplyFill(portfolio.Fill{Symbol: "AAPL", Quantity: delta, Price: order.LimitPrice}); err != nil {
			t.Fatalf("ApplyFill() error = %v", err)
		}
		if !p.Cash().Equal(dec(step.wantCash)) {
			t.Errorf("Cash() = %v, want %v", p.Cash(), step.wantCash)
		}
	}

	if m.IsActive(order.ID) {
		t.Error("order should not be active after full fill")
	}
	if order.Status != core.Filled {
		t.Errorf("Status = %v, want Filled", order.Status)
	}
}

func TestUpdateFillNegativeDeltaClampedToZero(t *testing.T) {
	t.Parallel()

	m, _ := newManager(10000, Config{MaxOrdersPerMinute: 60})
	order := &core.Order{ID: "o1", Symbol: "AAPL", Quantity: 10, LimitPrice: dec(10), Status: core.Active}
	m.RecordOrder(order)

	delta, remaining := m.UpdateFill(order, 5)
	if delta != 5 || remaining != 5 {
		t.Fatalf("first update delta=%d remaining=%d, want 5,5", delta, remaining)
	}

	// broker reports a lower cumulative value — must clamp, never go negative.
	delta, remaining = m.UpdateFill(order, 3)
	if delta != 0 {
		t.Errorf("delta = %d, want 0 (clamped)", delta)
	}
	if remaining != 5 {
		t.Errorf("remaining = %d, want unchanged 5", remaining)
	}
}

func TestRemoveDropsOrderUnconditionally(t *testing.T) {
	t.Parallel()

	m, _ := newManager(10000, Config{MaxOrdersPerMinute: 60})
	order := &core.Order{ID: "o1", Symbol: "AAPL", Quantity: 10, LimitPrice: dec(10)}
	m.RecordOrder(order)

	if !m.IsActive("o1") {
		t.Fatal("order should be active after RecordOrder")
	}
	m.Remove(order)
	if m.IsActive("o1") {
		t.Error("order should not be active after Remove")
	}
}
