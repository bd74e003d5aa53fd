package models

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestLegPnlShortLeg(t *testing.T) {
	// Sold at 2.45, marked at 1.20, slippage 0.005 each side, 1 lot of 100.
	pnl := LegPnl(ActionSell, 2.45, 1.20, 0.005, 1, 100)
	assert.InDelta(t, 124.0, pnl, 1e-9)
}

func TestLegPnlLongLeg(t *testing.T) {
	// Bought at 1.00, marked at 1.50.
	pnl := LegPnl(ActionBuy, 1.00, 1.50, 0.005, 1, 100)
	assert.InDelta(t, 49.0, pnl, 1e-9)
}

func TestLegPnlZeroSlippage(t *testing.T) {
	pnl := LegPnl(ActionSell, 2.00, 2.00, 0, 2, 50)
	assert.Equal(t, 0.0, pnl)
}

// Slippage always costs: for any leg, the slippage-adjusted P&L is exactly
// 2*slippage*quantity*lotSize below the frictionless P&L.
func TestPropertySlippageAlwaysCosts(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("slippage cost is symmetric and fixed", prop.ForAll(
		func(entry, mark, slippage float64, qty, lot int) bool {
			size := float64(qty) * float64(lot)
			cost := 2 * slippage * size

			short := LegPnl(ActionSell, entry, mark, slippage, qty, lot)
			shortRaw := (entry - mark) * size
			if math.Abs(shortRaw-short-cost) > 1e-6 {
				return false
			}

			long := LegPnl(ActionBuy, entry, mark, slippage, qty, lot)
			longRaw := (mark - entry) * size
			return math.Abs(longRaw-long-cost) <= 1e-6
		},
		gen.Float64Range(0.05, 500),
		gen.Float64Range(0.05, 500),
		gen.Float64Range(0, 1),
		gen.IntRange(1, 10),
		gen.IntRange(1, 500),
	))

	properties.TestingRun(t)
}

func TestLegKeyString(t *testing.T) {
	key := LegKey{Type: OptionCE, Strike: 580, Action: ActionSell}
	assert.Equal(t, "CE_580_SELL", key.String())

	key = LegKey{Type: OptionPE, Strike: 577.5, Action: ActionBuy}
	assert.Equal(t, "PE_577.5_BUY", key.String())
}

func TestSurfaceCopyIsDeep(t *testing.T) {
	original := Surface{
		OptionCE: {580: 2.45, 585: 1.10},
		OptionPE: {580: 2.15},
	}
	clone := original.Copy()

	clone[OptionCE][580] = 99.0
	clone[OptionPE][575] = 1.0

	price, ok := original.Price(OptionCE, 580)
	assert.True(t, ok)
	assert.Equal(t, 2.45, price)

	_, ok = original.Price(OptionPE, 575)
	assert.False(t, ok)
}

func TestSurfacePriceMissing(t *testing.T) {
	s := Surface{OptionCE: {580: 2.45}}

	_, ok := s.Price(OptionCE, 585)
	assert.False(t, ok)

	_, ok = s.Price(OptionPE, 580)
	assert.False(t, ok)
}

func TestPositionStrikesSortedDistinct(t *testing.T) {
	p := &Position{
		EntryPrices: map[LegKey]float64{
			{Type: OptionCE, Strike: 585, Action: ActionSell}: 1.10,
			{Type: OptionPE, Strike: 575, Action: ActionSell}: 1.05,
			{Type: OptionCE, Strike: 585, Action: ActionBuy}:  0.20,
			{Type: OptionPE, Strike: 570, Action: ActionBuy}:  0.15,
		},
	}
	assert.Equal(t, []float64{570, 575, 585}, p.Strikes())
}
