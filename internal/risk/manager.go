// Package risk implements the pre-trade validation and fill-bookkeeping
// layer: an ordered-check-list validator (solvency, rate limit, notional
// cap, exposure cap) plus open-order bookkeeping. The rate limiter tracks an
// explicit rolling 60-second timestamp slice rather than a smoothed
// refill rate, since an exact rolling-window count is required here.
package risk

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradingcore/internal/core"
	"tradingcore/internal/portfolio"
)

// Config holds the caps the manager enforces. A zero MaxOrderValue or
// MaxPositionSize disables the corresponding cap — both are optional.
type Config struct {
	MaxOrdersPerMinute int
	MaxOrderValue      decimal.Decimal
	MaxPositionSize    decimal.Decimal
}

type activeOrder struct {
	order  *core.Order
	filled int64
}

// Manager is the OrderManager: pre-trade validation plus fill-delta
// bookkeeping. Safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	portfolio *portfolio.Portfolio
	cfg       Config
	logger    *slog.Logger

	submissions   []time.Time
	positionValue map[string]decimal.Decimal
	active        map[string]*activeOrder
}

// New creates an OrderManager bound to portfolio for solvency checks.
func New(p *portfolio.Portfolio, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		portfolio:     p,
		cfg:           cfg,
		logger:        logger.With("component", "risk"),
		positionValue: make(map[string]decimal.Decimal),
		active:        make(map[string]*activeOrder),
	}
}

// Validate runs the ordered pre-trade checks: solvency, rate limit,
// per-order notional cap, exposure cap. Returns a descriptive error on the
// first failing check, or nil if the order may proceed.
func (m *Manager) Validate(order *core.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.portfolio.CanExecute(order) {
		return &core.InvalidOrderError{Reason: "insufficient funds or holdings"}
	}

	now := time.Now()
	m.pruneSubmissions(now)
	if m.cfg.MaxOrdersPerMinute > 0 && len(m.submissions) >= m.cfg.MaxOrdersPerMinute {
		return &core.InvalidOrderError{Reason: fmt.Sprintf("rate limit exceeded: %d orders in the last 60s", len(m.submissions))}
	}

	notional := order.LimitPrice.Mul(decimal.NewFromInt(order.Quantity)).Abs()
	if m.cfg.MaxOrderValue.IsPositive() && notional.Cmp(m.cfg.MaxOrderValue) > 0 {
		return &core.InvalidOrderError{Reason: fmt.Sprintf("order value %s exceeds max_order_value %s", notional, m.cfg.MaxOrderValue)}
	}

	if m.cfg.MaxPositionSize.IsPositive() {
		committed := m.positionValue[order.Symbol]
		projected := committed.Add(order.LimitPrice.Mul(decimal.NewFromInt(order.Quantity))).Abs()
		if projected.Cmp(m.cfg.MaxPositionSize) > 0 {
			return &core.InvalidOrderError{Reason: fmt.Sprintf("exposure %s exceeds max_position_size %s", projected, m.cfg.MaxPositionSize)}
		}
	}

	return nil
}

func (m *Manager) pruneSubmissions(now time.Time) {
	cutoff := now.Add(-60 * time.Second)
	i := 0
	for i < len(m.submissions) && m.submissions[i].Before(cutoff) {
		i++
	}
	m.submissions = m.submissions[i:]
}

// RecordOrder admits order into the open-order set: pushes the current
// submission timestamp and, only on first admission, commits its notional
// against the symbol's exposure counter.
func (m *Manager) RecordOrder(order *core.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.submissions = append(m.submissions, time.Now())

	if _, exists := m.active[order.ID]; !exists {
		current := m.positionValue[order.Symbol]
		m.positionValue[order.Symbol] = current.Add(order.LimitPrice.Mul(decimal.NewFromInt(order.Quantity)))
	}
	m.active[order.ID] = &activeOrder{order: order, filled: 0}
}

// UpdateFill computes the fill delta since the last known cumulative
// filled quantity, clamping negative deltas (a reordered/stale broker
// report) to zero. It updates the order's status and filled_quantity in
// place and returns (new_delta, remaining).
func (m *Manager) UpdateFill(order *core.Order, newCumFilled int64) (newDelta int64, remaining int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ao, ok := m.active[order.ID]
	if !ok {
		m.logger.Warn("update_fill for unknown order", "order_id", order.ID)
		ao = &activeOrder{order: order, filled: 0}
		m.active[order.ID] = ao
	}

	delta := newCumFilled - ao.filled
	if delta < 0 {
		m.logger.Warn("negative fill delta clamped to zero", "order_id", order.ID, "prev", ao.filled, "reported", newCumFilled)
		delta = 0
	}

	ao.filled += delta
	order.FilledQuantity = ao.filled
	remaining = order.AbsQuantity() - ao.filled

	if remaining == 0 {
		order.Status = core.Filled
		delete(m.active, order.ID)
	} else {
		order.Status = core.PartiallyFilled
	}

	return delta, remaining
}

// Remove unconditionally drops order from the open-order set.
func (m *Manager) Remove(order *core.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, order.ID)
}

// ActiveOrderCount returns the number of currently open orders.
func (m *Manager) ActiveOrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// IsActive reports whether id is currently tracked as open.
func (m *Manager) IsActive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[id]
	return ok
}

