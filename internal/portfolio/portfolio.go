// Package portfolio implements cash-and-holdings accounting with
// weighted-average cost basis, as a single signed-quantity Holding per
// symbol. Reductions leave the average price unchanged; realized PnL is
// not tracked here.
package portfolio

import (
	"sync"

	"github.com/shopspring/decimal"

	"tradingcore/internal/core"
)

// Fill is the signed delta quantity applied to the portfolio at a price;
// it is not the full Order, since only the delta (not cumulative fill)
// must ever reach Portfolio.
type Fill struct {
	Symbol   string
	Quantity int64 // signed: positive buys, negative sells
	Price    decimal.Decimal
}

// Portfolio holds cash and per-symbol holdings. Safe for concurrent use.
type Portfolio struct {
	mu       sync.RWMutex
	cash     decimal.Decimal
	holdings map[string]core.Holding
}

// New creates a portfolio with the given starting cash.
func New(initialCash decimal.Decimal) *Portfolio {
	return &Portfolio{
		cash:     initialCash,
		holdings: make(map[string]core.Holding),
	}
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cash
}

// Holding returns a copy of the holding for symbol and whether it exists.
func (p *Portfolio) Holding(symbol string) (core.Holding, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.holdings[symbol]
	return h, ok
}

// Holdings returns a copy of the full holdings map.
func (p *Portfolio) Holdings() map[string]core.Holding {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]core.Holding, len(p.holdings))
	for k, v := range p.holdings {
		out[k] = v
	}
	return out
}

// CanExecute is a pure precondition check mirroring ApplyFill without
// mutation. Buys require cash >= price*quantity; sells require the held
// quantity to cover the sale.
func (p *Portfolio) CanExecute(order *core.Order) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if order.Quantity > 0 {
		cost := order.LimitPrice.Mul(decimal.NewFromInt(order.Quantity))
		return p.cash.Cmp(cost) >= 0
	}
	h, ok := p.holdings[order.Symbol]
	if !ok {
		return false
	}
	return h.Quantity >= -order.Quantity
}

// ApplyFill applies a signed fill at a price. Both the cash and holdings
// preconditions are checked before either is mutated, so a failed fill
// never partially applies.
func (p *Portfolio) ApplyFill(fill Fill) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cost := fill.Price.Mul(decimal.NewFromInt(fill.Quantity))
	newCash := p.cash.Sub(cost)
	if newCash.IsNegative() {
		return &core.InsufficientCashError{Symbol: fill.Symbol, Required: cost, Cash: p.cash}
	}

	existing := p.holdings[fill.Symbol]
	newQty := existing.Quantity + fill.Quantity
	if crossesZero(existing.Quantity, newQty) {
		return &core.InsufficientHoldingsError{Symbol: fill.Symbol, Held: existing.Quantity, Sold: -fill.Quantity}
	}

	p.cash = newCash
	if newQty == 0 {
		delete(p.holdings, fill.Symbol)
	} else {
		p.holdings[fill.Symbol] = nextHolding(existing, fill, newQty)
	}
	return nil
}

func crossesZero(oldQty, newQty int64) bool {
	return (oldQty > 0 && newQty < 0) || (oldQty < 0 && newQty > 0)
}

func nextHolding(existing core.Holding, fill Fill, newQty int64) core.Holding {
	if newQty == 0 {
		return core.Holding{}
	}

	sameDirection := existing.Quantity == 0 || sameSign(existing.Quantity, fill.Quantity)
	if !sameDirection {
		// reduction: avg_price is unchanged.
		return core.Holding{Quantity: newQty, AvgPrice: existing.AvgPrice}
	}

	oldAbs := decimal.NewFromInt(absInt64(existing.Quantity))
	addAbs := decimal.NewFromInt(absInt64(fill.Quantity))
	totalCost := existing.AvgPrice.Mul(oldAbs).Add(fill.Price.Mul(addAbs))
	newAbs := decimal.NewFromInt(absInt64(newQty))
	avg := totalCost.Div(newAbs)
	return core.Holding{Quantity: newQty, AvgPrice: avg}
}

func sameSign(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// Value returns cash + sum(qty * mark), falling back to avg_price for any
// symbol with no observed mark.
func (p *Portfolio) Value(marks map[string]decimal.Decimal) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()

	total := p.cash
	for symbol, h := range p.holdings {
		mark, ok := marks[symbol]
		if !ok {
			mark = h.AvgPrice
		}
		total = total.Add(mark.Mul(decimal.NewFromInt(h.Quantity)))
	}
	return total
}

// SyncState atomically overwrites cash and holdings, used by the live
// adapter at startup to reconcile with the brokerage's reported account
// state.
func (p *Portfolio) SyncState(cash decimal.Decimal, holdings map[string]core.Holding) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cash = cash
	p.holdings = make(map[string]core.Holding, len(holdings))
	for k, v := range holdings {
		if v.Quantity != 0 {
			p.holdings[k] = v
		}
	}
}
