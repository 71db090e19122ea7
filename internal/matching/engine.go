// Package matching implements the simulated venue: a probabilistic
// outcome draw per submitted order, keyed by a cancel rate and a partial
// fill rate, rather than a balance/inventory solvency gate.
package matching

import (
	"fmt"
	"math/rand"
	"sync"

	"tradingcore/internal/core"
)

// Engine is the simulated matching venue. Safe for concurrent use, though
// the core's single-threaded event loop never calls it concurrently.
type Engine struct {
	mu sync.Mutex

	cancelRate      float64
	partialFillRate float64
	rng             *rand.Rand
	seq             core.IDSequence
	orders          map[string]*core.Order

	fixedDraw   *float64 // test hook: if set, consumed by the next Submit and cleared
}

// New creates a matching engine. cancelRate and partialFillRate must be in
// [0,1] with cancelRate+partialFillRate <= 1 (the two outcomes are
// disjoint); the caller is responsible for that invariant.
func New(cancelRate, partialFillRate float64, seed int64) *Engine {
	return &Engine{
		cancelRate:      cancelRate,
		partialFillRate: partialFillRate,
		rng:             rand.New(rand.NewSource(seed)),
		orders:          make(map[string]*core.Order),
	}
}

// FixNextDraw forces the next Submit's uniform sample to u, removing
// nondeterminism from a single test case. The fix is consumed once.
func (e *Engine) FixNextDraw(u float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fixedDraw = &u
}

func (e *Engine) draw() float64 {
	if e.fixedDraw != nil {
		u := *e.fixedDraw
		e.fixedDraw = nil
		return u
	}
	return e.rng.Float64()
}

// Submit admits order for simulated execution: assigns an id if missing,
// draws one outcome, mutates order in place to reflect it, records the
// order, and returns the resulting update.
func (e *Engine) Submit(order *core.Order) *core.OrderUpdate {
	e.mu.Lock()
	defer e.mu.Unlock()

	if order.ID == "" {
		order.ID = e.seq.Next()
	}

	abs := order.AbsQuantity()
	u := e.draw()

	switch {
	case u < e.cancelRate:
		order.Status = core.Canceled
		order.FilledQuantity = 0
	case u < e.cancelRate+e.partialFillRate:
		if abs < 3 {
			order.Status = core.Filled
			order.FilledQuantity = abs
		} else {
			filled := abs / 3
			if filled < 1 {
				filled = 1
			}
			order.Status = core.PartiallyFilled
			order.FilledQuantity = filled
		}
	default:
		order.Status = core.Filled
		order.FilledQuantity = abs
	}

	e.orders[order.ID] = order
	return &core.OrderUpdate{Order: order}
}

// Order returns the order recorded under id, if any.
func (e *Engine) Order(id string) (*core.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[id]
	return o, ok
}

// matchAgainstBook is the stubbed future extension point: a full matching
// pass against an OrderBook's resting liquidity on each tick, consuming
// crossable quantity before falling back to the probabilistic draw above.
// Not required for conformance; see spec §4.3.
func (e *Engine) matchAgainstBook() error {
	return fmt.Errorf("matching against order book depth: not implemented")
}
