package matching

import (
	"testing"

	"github.com/shopspring/decimal"

	"tradingcore/internal/core"
)

func newOrder(symbol string, qty int64, price float64) *core.Order {
	return &core.Order{
		Symbol:     symbol,
		Quantity:   qty,
		LimitPrice: decimal.NewFromFloat(price),
		Status:     core.Pending,
	}
}

// Scenario B.
func TestSubmitFullFillWhenRatesZero(t *testing.T) {
	t.Parallel()

	e := New(0, 0, 1)
	order := newOrder("AAPL", 10, 150)
	update := e.Submit(order)

	if update.Order.Status != core.Filled {
		t.Errorf("Status = %v, want Filled", update.Order.Status)
	}
	if update.Order.FilledQuantity != 10 {
		t.Errorf("FilledQuantity = %d, want 10", update.Order.FilledQuantity)
	}
	if update.Order.ID == "" {
		t.Error("ID should be assigned")
	}
}

func TestSubmitPreservesCallerSuppliedID(t *testing.T) {
	t.Parallel()

	e := New(0, 0, 1)
	order := newOrder("AAPL", 10, 150)
	order.ID = "caller-id"
	update := e.Submit(order)

	if update.Order.ID != "caller-id" {
		t.Errorf("ID = %s, want caller-id", update.Order.ID)
	}
}

// Scenario C.
func TestSubmitPartialFillRate(t *testing.T) {
	t.Parallel()

	e := New(0, 1.0, 1)
	order := newOrder("AAPL", 9, 150)
	update := e.Submit(order)

	if update.Order.Status != core.PartiallyFilled {
		t.Errorf("Status = %v, want PartiallyFilled", update.Order.Status)
	}
	if update.Order.FilledQuantity != 3 {
		t.Errorf("FilledQuantity = %d, want 3", update.Order.FilledQuantity)
	}
}

func TestSubmitPartialFillBelowThreeTreatedAsFull(t *testing.T) {
	t.Parallel()

	e := New(0, 1.0, 1)
	order := newOrder("AAPL", 2, 150)
	update := e.Submit(order)

	if update.Order.Status != core.Filled {
		t.Errorf("Status = %v, want Filled", update.Order.Status)
	}
	if update.Order.FilledQuantity != 2 {
		t.Errorf("FilledQuantity = %d, want 2", update.Order.FilledQuantity)
	}
}

func TestSubmitCancelRateOne(t *testing.T) {
	t.Parallel()

	e := New(1.0, 0, 1)
	order := newOrder("AAPL", 10, 150)
	update := e.Submit(order)

	if update.Order.Status != core.Canceled {
		t.Errorf("Status = %v, want Canceled", update.Order.Status)
	}
	if update.Order.FilledQuantity != 0 {
		t.Errorf("FilledQuantity = %d, want 0", update.Order.FilledQuantity)
	}
}

func TestFixNextDrawIsConsumedOnce(t *testing.T) {
	t.Parallel()

	e := New(0.25, 0.25, 1)
	e.FixNextDraw(0.9) // lands in "filled" bucket deterministically

	first := e.Submit(newOrder("AAPL", 10, 100))
	if first.Order.Status != core.Filled {
		t.Fatalf("first draw Status = %v, want Filled", first.Order.Status)
	}

	// second call is no longer fixed; just assert it doesn't panic and
	// produces a valid status.
	second := e.Submit(newOrder("AAPL", 10, 100))
	switch second.Order.Status {
	case core.Filled, core.Canceled, core.PartiallyFilled:
	default:
		t.Errorf("unexpected status %v", second.Order.Status)
	}
}

func TestSubmitRecordsOrderByID(t *testing.T) {
	t.Parallel()

	e := New(0, 0, 1)
	order := newOrder("AAPL", 10, 150)
	e.Submit(order)

	got, ok := e.Order(order.ID)
	if !ok {
		t.Fatal("Order(id) not found after Submit")
	}
	if got != order {
		t.Error("Order(id) should return the same order pointer")
	}
}
