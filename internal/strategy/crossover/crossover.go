// Package crossover implements a deterministic moving-average crossover
// reference strategy. It holds no backreference to portfolio or gateway
// internals, only its own per-symbol price history.
package crossover

import (
	"github.com/shopspring/decimal"

	"tradingcore/internal/core"
)

// Config parameterizes the strategy: short and long lookback lengths (in
// ticks) and the fixed order quantity used for both entry and exit signals.
type Config struct {
	ShortWindow int
	LongWindow  int
	Quantity    int64
}

type symbolState struct {
	prices    []decimal.Decimal
	inPosition bool
}

// Strategy computes trailing short/long simple moving averages over the
// prices seen strictly before the current tick, and signals Buy on the
// first tick where the short average exceeds the long average (golden
// cross) while flat, or Sell on the first tick where it falls back below
// while in a position (death cross). Each symbol is tracked independently.
type Strategy struct {
	cfg   Config
	state map[string]*symbolState
}

// New creates a crossover strategy. ShortWindow must be less than
// LongWindow for the cross condition to be meaningful.
func New(cfg Config) *Strategy {
	return &Strategy{cfg: cfg, state: make(map[string]*symbolState)}
}

// GenerateSignals implements strategy.Strategy.
func (s *Strategy) GenerateSignals(tick core.MarketDataEvent) []core.Signal {
	st, ok := s.state[tick.Symbol]
	if !ok {
		st = &symbolState{}
		s.state[tick.Symbol] = st
	}

	var signals []core.Signal
	if len(st.prices) >= s.cfg.LongWindow {
		shortMA := average(st.prices[len(st.prices)-s.cfg.ShortWindow:])
		longMA := average(st.prices[len(st.prices)-s.cfg.LongWindow:])

		switch {
		case shortMA.GreaterThan(longMA) && !st.inPosition:
			st.inPosition = true
			signals = append(signals, core.Signal{
				Symbol:     tick.Symbol,
				Quantity:   s.cfg.Quantity,
				LimitPrice: tick.Price,
				Action:     core.BuySignal,
			})
		case shortMA.LessThan(longMA) && st.inPosition:
			st.inPosition = false
			signals = append(signals, core.Signal{
				Symbol:     tick.Symbol,
				Quantity:   s.cfg.Quantity,
				LimitPrice: tick.Price,
				Action:     core.SellSignal,
			})
		}
	}

	st.prices = append(st.prices, tick.Price)
	return signals
}

func average(prices []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
	}
	return sum.DivRound(decimal.NewFromInt(int64(len(prices))), 8)
}
