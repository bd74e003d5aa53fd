// Package models defines the core data types shared across the backtester.
package models

import "fmt"

// OptionType identifies the side of an option contract.
type OptionType string

const (
	OptionCE OptionType = "CE" // call
	OptionPE OptionType = "PE" // put
)

// Action is the direction of a single leg.
type Action string

const (
	ActionSell Action = "SELL"
	ActionBuy  Action = "BUY"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitTarget     ExitReason = "TARGET"
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTimeBased  ExitReason = "TIME_BASED"
	ExitJobEnd     ExitReason = "JOB_END"
	ExitDailyLimit ExitReason = "DAILY_LIMIT"
)

// Surface is an option price surface at a single tick: type -> strike -> price.
type Surface map[OptionType]map[float64]float64

// Price looks up a quote on the surface.
func (s Surface) Price(t OptionType, strike float64) (float64, bool) {
	strikes, ok := s[t]
	if !ok {
		return 0, false
	}
	price, ok := strikes[strike]
	return price, ok
}

// Copy returns a deep copy of the surface.
func (s Surface) Copy() Surface {
	out := make(Surface, len(s))
	for t, strikes := range s {
		m := make(map[float64]float64, len(strikes))
		for k, v := range strikes {
			m[k] = v
		}
		out[t] = m
	}
	return out
}

// LegKey identifies one leg of a position.
type LegKey struct {
	Type   OptionType
	Strike float64
	Action Action
}

func (k LegKey) String() string {
	return fmt.Sprintf("%s_%g_%s", k.Type, k.Strike, k.Action)
}

// DaySnapshot holds all market data for one trading day. It is immutable
// once loaded and discarded at the day boundary.
type DaySnapshot struct {
	Date      string
	Spot      map[int]float64 // tick -> spot price
	Options   map[int]Surface // tick -> price surface
	CutoffIdx int             // last valid tick of the day
	Metadata  map[string]string
}

// MarketView is a read-only snapshot of a single tick, handed to strategies.
type MarketView struct {
	Tick    int
	Spot    float64
	Options Surface
	Strikes []float64 // sorted strikes with any quote at this tick
}

// Price looks up an option quote at this tick.
func (v *MarketView) Price(t OptionType, strike float64) (float64, bool) {
	return v.Options.Price(t, strike)
}
