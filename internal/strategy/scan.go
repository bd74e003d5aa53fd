package strategy

import (
	"math"
	"sort"

	"options-backtester/internal/models"
)

// sortedStrikes returns the quoted strikes for one option type, ascending.
func sortedStrikes(quotes map[float64]float64) []float64 {
	out := make([]float64, 0, len(quotes))
	for strike := range quotes {
		out = append(out, strike)
	}
	sort.Float64s(out)
	return out
}

// premiumStrike scans OTM to ITM and returns the first strike whose premium
// is at least threshold. For calls the scan runs strikes >= spot descending
// then strikes < spot descending; for puts strikes <= spot ascending then
// strikes > spot ascending. Returns false if no strike qualifies.
func premiumStrike(t models.OptionType, spot, threshold float64, quotes map[float64]float64) (float64, bool) {
	if len(quotes) == 0 {
		return 0, false
	}
	strikes := sortedStrikes(quotes)

	var scan []float64
	if t == models.OptionCE {
		// OTM first: >= spot, highest to lowest; then ITM: < spot, highest to lowest.
		for i := len(strikes) - 1; i >= 0; i-- {
			if strikes[i] >= spot {
				scan = append(scan, strikes[i])
			}
		}
		for i := len(strikes) - 1; i >= 0; i-- {
			if strikes[i] < spot {
				scan = append(scan, strikes[i])
			}
		}
	} else {
		// OTM first: <= spot, lowest to highest; then ITM: > spot, lowest to highest.
		for _, s := range strikes {
			if s <= spot {
				scan = append(scan, s)
			}
		}
		for _, s := range strikes {
			if s > spot {
				scan = append(scan, s)
			}
		}
	}

	for _, strike := range scan {
		if quotes[strike] >= threshold {
			return strike, true
		}
	}
	return 0, false
}

// distanceStrike picks the strike a fixed count away from the one nearest
// spot, offset away from spot (upward for calls, downward for puts). The
// index is clamped to the available range.
func distanceStrike(t models.OptionType, spot float64, offset int, quotes map[float64]float64) (float64, bool) {
	if len(quotes) == 0 {
		return 0, false
	}
	strikes := sortedStrikes(quotes)

	idx := closestStrikeIndex(strikes, spot)
	if t == models.OptionCE {
		idx += offset
		if idx > len(strikes)-1 {
			idx = len(strikes) - 1
		}
	} else {
		idx -= offset
		if idx < 0 {
			idx = 0
		}
	}
	return strikes[idx], true
}

// closestStrikeIndex returns the index minimizing absolute distance to
// spot. Ties resolve to the first occurrence in the ascending scan.
func closestStrikeIndex(strikes []float64, spot float64) int {
	best := 0
	bestDist := math.Abs(strikes[0] - spot)
	for i := 1; i < len(strikes); i++ {
		if dist := math.Abs(strikes[i] - spot); dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}

// hedgeStrike places a hedge a configured count of strikes further OTM than
// the main sold strike. If fewer strikes exist than the offset, the
// furthest available is used. Returns false when nothing is further OTM
// or the offset is not positive.
func hedgeStrike(t models.OptionType, mainStrike float64, offset int, quotes map[float64]float64) (float64, bool) {
	strikes := sortedStrikes(quotes)

	var otm []float64
	if t == models.OptionCE {
		for _, s := range strikes {
			if s > mainStrike {
				otm = append(otm, s)
			}
		}
	} else {
		for i := len(strikes) - 1; i >= 0; i-- {
			if strikes[i] < mainStrike {
				otm = append(otm, strikes[i])
			}
		}
	}

	if len(otm) == 0 || offset < 1 {
		return 0, false
	}
	if len(otm) >= offset {
		return otm[offset-1], true
	}
	return otm[len(otm)-1], true
}
