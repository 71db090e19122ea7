// Package performance implements the trade journal, equity curve sampling,
// and risk/return metrics: a read-model snapshot built from accumulated
// trades and periodic mark updates.
package performance

import (
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradingcore/internal/core"
	"tradingcore/internal/portfolio"
)

// RecordingInterval controls equity-curve sampling granularity: a sample
// is appended only when the bucket key derived from the timestamp differs
// from the previously recorded bucket.
type RecordingInterval int

const (
	Tick RecordingInterval = iota
	Second
	Minute
	Hour
	Day
	Week
	Month
)

type position struct {
	qty      int64
	avgEntry decimal.Decimal
	lastMark decimal.Decimal
}

// Tracker is the PerformanceTracker. Safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	interval       RecordingInterval
	initialCapital decimal.Decimal

	trades      []core.Trade
	positions   map[string]*position
	closedPnLs  []decimal.Decimal
	equityCurve []core.EquitySample

	lastBucket []int
	hasBucket  bool
}

// New creates a tracker seeded with the starting capital, used as the
// baseline for total_return.
func New(initialCapital decimal.Decimal, interval RecordingInterval) *Tracker {
	return &Tracker{
		interval:       interval,
		initialCapital: initialCapital,
		positions:      make(map[string]*position),
	}
}

// RecordTrade appends a trade for symbol and updates the internal position:
// a same-direction addition recomputes avg_entry by weighted average; an
// opposite-direction reduction realizes P&L for the closed portion and
// removes the position once net quantity reaches zero.
func (t *Tracker) RecordTrade(symbol string, signedQty int64, price decimal.Decimal, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.trades = append(t.trades, core.Trade{Timestamp: ts, Symbol: symbol, SignedQuantity: signedQty, Price: price})

	pos, ok := t.positions[symbol]
	if !ok {
		pos = &position{}
		t.positions[symbol] = pos
	}

	newQty := pos.qty + signedQty

	switch {
	case pos.qty == 0 || sameSign(pos.qty, signedQty):
		// same-direction addition (or opening from flat): weighted average.
		oldAbs := decimal.NewFromInt(absInt64(pos.qty))
		addAbs := decimal.NewFromInt(absInt64(signedQty))
		totalCost := pos.avgEntry.Mul(oldAbs).Add(price.Mul(addAbs))
		if newQty != 0 {
			pos.avgEntry = totalCost.Div(decimal.NewFromInt(absInt64(newQty)))
		}
	default:
		// opposite-direction: realize P&L on the closed portion.
		direction := int64(1)
		if pos.qty < 0 {
			direction = -1
		}
		closedQty := minInt64(absInt64(signedQty), absInt64(pos.qty))
		realized := price.Sub(pos.avgEntry).Mul(decimal.NewFromInt(closedQty)).Mul(decimal.NewFromInt(direction))
		t.closedPnLs = append(t.closedPnLs, realized)

		if crossesZero(pos.qty, newQty) {
			// flipped through flat into the opposite side: the remainder
			// opens a fresh position at the fill price.
			pos.avgEntry = price
		}
	}

	pos.qty = newQty
	if pos.qty == 0 {
		delete(t.positions, symbol)
	}
}

// UpdateMark records the last observed price for symbol in the tracker's
// position table. RecordPortfolioValue does not read it; equity is valued
// only with the marks passed to RecordPortfolioValue.
func (t *Tracker) UpdateMark(symbol string, price decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[symbol]
	if !ok {
		pos = &position{}
		t.positions[symbol] = pos
	}
	pos.lastMark = price
}

// RecordPortfolioValue samples portfolio's total value and appends it to
// the equity curve, but only when the bucket key derived from ts differs
// from the previously recorded bucket — i.e. at most one sample per
// interval.
func (t *Tracker) RecordPortfolioValue(p *portfolio.Portfolio, marks map[string]decimal.Decimal, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := bucketKey(ts, t.interval)
	if t.hasBucket && equalBucket(key, t.lastBucket) {
		return
	}
	t.lastBucket = key
	t.hasBucket = true

	t.equityCurve = append(t.equityCurve, core.EquitySample{Timestamp: ts, TotalValue: p.Value(marks)})
}

// EquityCurve returns a copy of the recorded equity samples.
func (t *Tracker) EquityCurve() []core.EquitySample {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.EquitySample, len(t.equityCurve))
	copy(out, t.equityCurve)
	return out
}

// ClosedPnLs returns a copy of the realized P&L of every closed (or
// partially closed) position.
func (t *Tracker) ClosedPnLs() []decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]decimal.Decimal, len(t.closedPnLs))
	copy(out, t.closedPnLs)
	return out
}

// Metrics is the result of compute_metrics().
type Metrics struct {
	TotalReturn     decimal.Decimal
	TotalReturnPct  decimal.Decimal
	WinRate         float64
	AvgWin          decimal.Decimal
	AvgLoss         decimal.Decimal
	ProfitFactor    float64
	Sharpe          float64
	MaxDrawdown     decimal.Decimal
	MaxDrawdownPct  float64
}

// ComputeMetrics derives the summary statistics from the trade journal and
// equity curve recorded so far.
func (t *Tracker) ComputeMetrics() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := Metrics{}

	if len(t.equityCurve) > 0 {
		final := t.equityCurve[len(t.equityCurve)-1].TotalValue
		m.TotalReturn = final.Sub(t.initialCapital)
		if !t.initialCapital.IsZero() {
			m.TotalReturnPct = m.TotalReturn.Div(t.initialCapital).Mul(decimal.NewFromInt(100))
		}
	}

	wins, losses := 0, 0
	var sumWin, sumLoss decimal.Decimal
	for _, pnl := range t.closedPnLs {
		if pnl.IsPositive() {
			wins++
			sumWin = sumWin.Add(pnl)
		} else if pnl.IsNegative() {
			losses++
			sumLoss = sumLoss.Add(pnl)
		}
	}
	total := wins + losses
	if total > 0 {
		m.WinRate = float64(wins) / float64(total)
	}
	if wins > 0 {
		m.AvgWin = sumWin.Div(decimal.NewFromInt(int64(wins)))
	}
	if losses > 0 {
		m.AvgLoss = sumLoss.Div(decimal.NewFromInt(int64(losses)))
	}
	if !sumLoss.IsZero() {
		m.ProfitFactor = sumWin.Div(sumLoss.Abs()).InexactFloat64()
	}

	m.Sharpe = computeSharpe(t.equityCurve)
	m.MaxDrawdown, m.MaxDrawdownPct = computeMaxDrawdown(t.equityCurve)

	return m
}

func computeSharpe(curve []core.EquitySample) float64 {
	if len(curve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].TotalValue
		if prev.IsZero() {
			continue
		}
		r := curve[i].TotalValue.Sub(prev).Div(prev).InexactFloat64()
		returns = append(returns, r)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	stddev := math.Sqrt(variance)

	if stddev == 0 {
		return 0
	}
	return mean / stddev
}

func computeMaxDrawdown(curve []core.EquitySample) (decimal.Decimal, float64) {
	if len(curve) == 0 {
		return decimal.Zero, 0
	}

	peak := curve[0].TotalValue
	maxDD := decimal.Zero
	maxDDPct := 0.0

	for _, sample := range curve {
		if sample.TotalValue.Cmp(peak) > 0 {
			peak = sample.TotalValue
		}
		dd := peak.Sub(sample.TotalValue)
		if dd.Cmp(maxDD) > 0 {
			maxDD = dd
			if !peak.IsZero() {
				maxDDPct = dd.Div(peak).Mul(decimal.NewFromInt(100)).InexactFloat64()
			}
		}
	}
	return maxDD, maxDDPct
}

func sameSign(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func crossesZero(oldQty, newQty int64) bool {
	return (oldQty > 0 && newQty < 0) || (oldQty < 0 && newQty > 0)
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
