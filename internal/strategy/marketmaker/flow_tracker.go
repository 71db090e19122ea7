package marketmaker

import (
	"math"
	"time"

	"tradingcore/internal/core"
)

// flowTracker detects toxic (one-sided) flow in a rolling window of this
// strategy's own recent signals and returns a spread-widening multiplier.
// It tracks the strategy's own emitted Buy/Sell decisions keyed by
// core.Side, since this Strategy contract receives no fill feedback from
// the engine.
type flowTracker struct {
	window            time.Duration
	toxicityThreshold float64
	cooldownPeriod    time.Duration
	maxSpreadMultiple float64

	fills         []flowFill
	lastToxicTime time.Time
}

type flowFill struct {
	side core.Side
	at   time.Time
}

func newFlowTracker(window time.Duration, toxicityThreshold float64, cooldownPeriod time.Duration, maxSpreadMultiple float64) *flowTracker {
	return &flowTracker{
		window:            window,
		toxicityThreshold: toxicityThreshold,
		cooldownPeriod:    cooldownPeriod,
		maxSpreadMultiple: maxSpreadMultiple,
	}
}

func (ft *flowTracker) addFill(side core.Side, at time.Time) {
	ft.fills = append(ft.fills, flowFill{side: side, at: at})
	ft.evictStale(at)
}

func (ft *flowTracker) evictStale(now time.Time) {
	if ft.window <= 0 || len(ft.fills) == 0 {
		return
	}
	cutoff := now.Add(-ft.window)
	i := 0
	for i < len(ft.fills) && ft.fills[i].at.Before(cutoff) {
		i++
	}
	ft.fills = ft.fills[i:]
}

// toxicityScore weighs directional imbalance (dominant side's share of
// recent fills) against fill velocity (fills per minute) in a 60/40 split.
func (ft *flowTracker) toxicityScore() (score float64, isAverse bool) {
	if len(ft.fills) == 0 {
		return 0, false
	}

	var buys, sells int
	for _, f := range ft.fills {
		if f.side == core.Buy {
			buys++
		} else {
			sells++
		}
	}
	total := len(ft.fills)
	imbalance := math.Max(float64(buys), float64(sells)) / float64(total)

	if total < 2 || ft.window <= 0 {
		score := imbalance * 0.6
		return score, imbalance > ft.toxicityThreshold
	}

	span := ft.fills[total-1].at.Sub(ft.fills[0].at).Minutes()
	if span <= 0 {
		span = ft.window.Minutes()
	}
	velocity := math.Min(float64(total)/span/3.0, 1.0)

	score = 0.6*imbalance + 0.4*velocity
	return score, score > ft.toxicityThreshold
}

// spreadMultiplier returns 1.0 under normal flow, rising toward
// maxSpreadMultiple while toxic and decaying back to 1.0 over
// cooldownPeriod once toxicity clears.
func (ft *flowTracker) spreadMultiplier() float64 {
	score, isAverse := ft.toxicityScore()
	now := time.Now()
	if isAverse {
		ft.lastToxicTime = now
	}

	inCooldown := ft.cooldownPeriod > 0 && now.Sub(ft.lastToxicTime) < ft.cooldownPeriod
	if !isAverse && !inCooldown {
		return 1.0
	}

	if score < ft.toxicityThreshold {
		progress := math.Min(now.Sub(ft.lastToxicTime).Seconds()/ft.cooldownPeriod.Seconds(), 1.0)
		return 1.0 + (ft.maxSpreadMultiple-1.0)*(1.0-progress)
	}

	normalized := (score - ft.toxicityThreshold) / (1.0 - ft.toxicityThreshold)
	return 1.0 + (ft.maxSpreadMultiple-1.0)*math.Min(normalized*2.0, 1.0)
}
