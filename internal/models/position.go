package models

import "sort"

// Position is a live multi-leg options position. Leg composition and entry
// prices are fixed at creation; only LivePnl and LastPrices change, and only
// the ledger mutates them.
type Position struct {
	SetupID     string
	EntryTick   int
	EntryPrices map[LegKey]float64 // unadjusted quotes at entry
	Quantity    int
	LotSize     int
	TargetPnl   float64 // positive threshold
	StopLossPnl float64 // negative threshold
	LivePnl     float64
	Slippage    float64 // applied symmetrically at mark and close
	ForceClose  int     // tick at which the position must close

	// LastPrices carries the most recent observed quote per leg so forced
	// closures never fall back to a zero price on a data gap.
	LastPrices map[LegKey]float64
}

// Strikes returns the distinct strikes across all legs, ascending.
func (p *Position) Strikes() []float64 {
	seen := make(map[float64]bool, len(p.EntryPrices))
	var out []float64
	for leg := range p.EntryPrices {
		if !seen[leg.Strike] {
			seen[leg.Strike] = true
			out = append(out, leg.Strike)
		}
	}
	sort.Float64s(out)
	return out
}

// LegPnl applies the slippage-adjusted P&L formula for one leg.
func LegPnl(action Action, entry, mark, slippage float64, quantity, lotSize int) float64 {
	size := float64(quantity) * float64(lotSize)
	if action == ActionSell {
		return ((entry - slippage) - (mark + slippage)) * size
	}
	return ((mark - slippage) - (entry + slippage)) * size
}
