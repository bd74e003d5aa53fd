// Package risk implements the daily loss gate that forces mass closure.
package risk

import "math"

// Gate checks aggregate live P&L against a daily maximum loss. It tracks
// only the last observed value and is reset at the start of each day.
type Gate struct {
	dailyMaxLoss float64 // positive magnitude
	observedPnl  float64
}

// NewGate creates a gate with the given daily maximum loss. A negative
// value is taken by magnitude.
func NewGate(dailyMaxLoss float64) *Gate {
	return &Gate{dailyMaxLoss: math.Abs(dailyMaxLoss)}
}

// Breached reports whether the given aggregate live P&L is at or below the
// negative loss limit, and records the observation.
func (g *Gate) Breached(pnl float64) bool {
	g.observedPnl = pnl
	return pnl <= -g.dailyMaxLoss
}

// Reset clears daily tracking for a new trading day.
func (g *Gate) Reset() {
	g.observedPnl = 0
}

// RemainingCapacity returns how much further the observed P&L may fall
// before the limit is hit. Never negative.
func (g *Gate) RemainingCapacity() float64 {
	return math.Max(0, g.dailyMaxLoss+g.observedPnl)
}

// DailyMaxLoss returns the configured limit as a positive magnitude.
func (g *Gate) DailyMaxLoss() float64 {
	return g.dailyMaxLoss
}

// ObservedPnl returns the last P&L value fed to the gate.
func (g *Gate) ObservedPnl() float64 {
	return g.observedPnl
}
