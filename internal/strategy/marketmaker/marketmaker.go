// Package marketmaker implements an Avellaneda-Stoikov quoting model as a
// tick-driven Strategy: rather than resting a bid/ask pair and
// reconciling it against an order book, it carries the skew-adjusted
// reservation quote computed from the previous tick as the "resting"
// quote, fires a buy whenever the current tick trades at or below the
// resting bid and a sell (capped at the held position) whenever it trades
// at or above the resting ask while long, and then recomputes the quote
// from the current tick for next time. The
// flow tracker widens the spread under toxic (one-sided) flow, scored
// from the strategy's own emitted signals rather than venue fill reports,
// since this Strategy contract receives no fill feedback.
package marketmaker

import (
	"math"
	"time"

	"tradingcore/internal/core"
)

// Config parameterizes the reservation-price model and the toxicity-based
// spread widener.
type Config struct {
	Gamma            float64 // risk aversion: higher = tighter spread, less inventory risk
	Sigma            float64 // estimated price volatility
	K                float64 // order arrival intensity
	T                float64 // time horizon
	DefaultSpreadBps int     // minimum spread floor, in basis points of mid
	Quantity         int64   // fixed order quantity per signal
	MaxPosition      int64   // position magnitude at which inventory skew saturates to +-1

	FlowWindow              time.Duration // rolling window for toxicity detection
	FlowToxicityThreshold   float64       // score above this widens the spread
	FlowCooldownPeriod      time.Duration // stay wide for this long after toxicity clears
	FlowMaxSpreadMultiplier float64       // maximum spread widening factor
}

type symbolState struct {
	position int64
	flow     *flowTracker

	hasQuote bool
	bid, ask float64
}

// Strategy is the adapted Avellaneda-Stoikov reference strategy.
type Strategy struct {
	cfg   Config
	state map[string]*symbolState
}

// New creates a marketmaker strategy.
func New(cfg Config) *Strategy {
	return &Strategy{cfg: cfg, state: make(map[string]*symbolState)}
}

// GenerateSignals implements strategy.Strategy.
func (s *Strategy) GenerateSignals(tick core.MarketDataEvent) []core.Signal {
	st, ok := s.state[tick.Symbol]
	if !ok {
		st = &symbolState{flow: newFlowTracker(s.cfg.FlowWindow, s.cfg.FlowToxicityThreshold, s.cfg.FlowCooldownPeriod, s.cfg.FlowMaxSpreadMultiplier)}
		s.state[tick.Symbol] = st
	}

	mid, _ := tick.Price.Float64()

	var signals []core.Signal
	if st.hasQuote {
		switch {
		case mid <= st.bid:
			signals = append(signals, core.Signal{Symbol: tick.Symbol, Quantity: s.cfg.Quantity, LimitPrice: tick.Price, Action: core.BuySignal})
			st.position += s.cfg.Quantity
			st.flow.addFill(core.Buy, tick.Timestamp)
		case mid >= st.ask && st.position > 0:
			qty := s.cfg.Quantity
			if qty > st.position {
				qty = st.position
			}
			signals = append(signals, core.Signal{Symbol: tick.Symbol, Quantity: qty, LimitPrice: tick.Price, Action: core.SellSignal})
			st.position -= qty
			st.flow.addFill(core.Sell, tick.Timestamp)
		}
	}

	st.bid, st.ask = s.quotes(st, mid)
	st.hasQuote = true

	return signals
}

// quotes computes the reservation-price bid/ask band, widened by the
// symbol's current flow toxicity: reservation price, optimal spread,
// minimum-spread floor, in that order.
func (s *Strategy) quotes(st *symbolState, mid float64) (bid, ask float64) {
	q := inventorySkew(st.position, s.cfg.MaxPosition)
	gamma, sigma, k, t := s.cfg.Gamma, s.cfg.Sigma, s.cfg.K, s.cfg.T

	reservation := mid - q*gamma*sigma*sigma*t
	spread := gamma*sigma*sigma*t + (2.0/gamma)*math.Log(1+gamma/k)

	minSpread := mid * float64(s.cfg.DefaultSpreadBps) / 10000.0
	multiplier := st.flow.spreadMultiplier()
	spread *= multiplier
	minSpread *= multiplier
	if spread < minSpread {
		spread = minSpread
	}

	return reservation - spread/2, reservation + spread/2
}

func inventorySkew(position, maxPosition int64) float64 {
	if maxPosition <= 0 {
		return 0
	}
	q := float64(position) / float64(maxPosition)
	switch {
	case q > 1:
		return 1
	case q < -1:
		return -1
	default:
		return q
	}
}
