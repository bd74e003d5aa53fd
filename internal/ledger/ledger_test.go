package ledger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-backtester/internal/models"
)

func ceLeg(strike float64) models.LegKey {
	return models.LegKey{Type: models.OptionCE, Strike: strike, Action: models.ActionSell}
}

func peLeg(strike float64) models.LegKey {
	return models.LegKey{Type: models.OptionPE, Strike: strike, Action: models.ActionSell}
}

// straddlePosition mirrors a typical short straddle: 580 CE sold at 2.45
// and 580 PE sold at 2.15, 1 lot of 100, slippage 0.005 per side.
func straddlePosition() *models.Position {
	entries := map[models.LegKey]float64{
		ceLeg(580): 2.45,
		peLeg(580): 2.15,
	}
	last := make(map[models.LegKey]float64, len(entries))
	for k, v := range entries {
		last[k] = v
	}
	return &models.Position{
		SetupID:     "straddle_1",
		EntryTick:   930,
		EntryPrices: entries,
		LastPrices:  last,
		Quantity:    1,
		LotSize:     100,
		TargetPnl:   50,
		StopLossPnl: -100,
		Slippage:    0.005,
		ForceClose:  4650,
	}
}

func view(tick int, ce, pe float64) *models.MarketView {
	return &models.MarketView{
		Tick: tick,
		Spot: 580,
		Options: models.Surface{
			models.OptionCE: {580: ce},
			models.OptionPE: {580: pe},
		},
	}
}

func TestAddPositionAssignsSequentialIds(t *testing.T) {
	l := New(zerolog.Nop())

	assert.Equal(t, "straddle_1_0", l.AddPosition(straddlePosition()))
	assert.Equal(t, "straddle_1_1", l.AddPosition(straddlePosition()))
	assert.Equal(t, 2, l.OpenCount())

	l.Reset()
	assert.Equal(t, 0, l.OpenCount())
	assert.Equal(t, "straddle_1_0", l.AddPosition(straddlePosition()))
}

func TestMarkToMarketLivePnl(t *testing.T) {
	l := New(zerolog.Nop())
	l.AddPosition(straddlePosition())

	// Both legs drop to 1.00:
	//   CE: ((2.45-0.005)-(1.00+0.005))*100 = 144.0
	//   PE: ((2.15-0.005)-(1.00+0.005))*100 = 114.0
	closed := l.MarkAndClose(view(1000, 1.00, 1.00), "2024-01-15")

	// 258 >= target 50, so the position closes at TARGET.
	require.Len(t, closed, 1)
	trade := closed[0]
	assert.Equal(t, models.ExitTarget, trade.ExitReason)
	assert.InDelta(t, 258.0, trade.Pnl, 1e-9)
	assert.Equal(t, 1000, trade.ExitTick)
	assert.Equal(t, 0, l.OpenCount())

	// Exit prices are the unadjusted quotes.
	assert.Equal(t, 1.00, trade.ExitPrices[ceLeg(580)])
	assert.Equal(t, 1.00, trade.ExitPrices[peLeg(580)])
}

func TestPositionStaysOpenBetweenThresholds(t *testing.T) {
	l := New(zerolog.Nop())
	l.AddPosition(straddlePosition())

	// Small favorable move, below target.
	closed := l.MarkAndClose(view(1000, 2.30, 2.05), "2024-01-15")
	assert.Empty(t, closed)
	assert.Equal(t, 1, l.OpenCount())
	assert.InDelta(t, 23.0, l.TotalLivePnl(), 1e-9)
}

func TestStopLossExit(t *testing.T) {
	l := New(zerolog.Nop())
	l.AddPosition(straddlePosition())

	// CE doubles: CE leg = ((2.445)-(4.905))*100 = -246, PE = 14.0.
	closed := l.MarkAndClose(view(1000, 4.90, 2.00), "2024-01-15")

	require.Len(t, closed, 1)
	assert.Equal(t, models.ExitStopLoss, closed[0].ExitReason)
	assert.InDelta(t, -232.0, closed[0].Pnl, 1e-9)
}

func TestTargetTakesPriorityOverTimeBased(t *testing.T) {
	// At the force-close tick a position already at target still reports
	// TARGET, not TIME_BASED.
	l := New(zerolog.Nop())
	l.AddPosition(straddlePosition())

	closed := l.MarkAndClose(view(4650, 1.00, 1.00), "2024-01-15")
	require.Len(t, closed, 1)
	assert.Equal(t, models.ExitTarget, closed[0].ExitReason)
}

func TestTimeBasedExitAtForceCloseTick(t *testing.T) {
	l := New(zerolog.Nop())
	l.AddPosition(straddlePosition())

	closed := l.MarkAndClose(view(4649, 2.40, 2.10), "2024-01-15")
	assert.Empty(t, closed)

	closed = l.MarkAndClose(view(4650, 2.40, 2.10), "2024-01-15")
	require.Len(t, closed, 1)
	assert.Equal(t, models.ExitTimeBased, closed[0].ExitReason)
}

func TestStaleLegCarriesPnlForward(t *testing.T) {
	l := New(zerolog.Nop())
	l.AddPosition(straddlePosition())

	// Establish a live P&L with both legs quoted.
	l.MarkAndClose(view(1000, 2.30, 2.05), "2024-01-15")
	require.InDelta(t, 23.0, l.TotalLivePnl(), 1e-9)

	// The PE quote disappears; the huge CE move would breach the stop if
	// marked against a zero PE, but the stale tick carries P&L forward.
	stale := &models.MarketView{
		Tick:    1001,
		Spot:    580,
		Options: models.Surface{models.OptionCE: {580: 5.00}},
	}
	closed := l.MarkAndClose(stale, "2024-01-15")
	assert.Empty(t, closed)
	assert.InDelta(t, 23.0, l.TotalLivePnl(), 1e-9)
}

func TestStaleLegStillClosesTimeBased(t *testing.T) {
	l := New(zerolog.Nop())
	l.AddPosition(straddlePosition())

	l.MarkAndClose(view(1000, 2.30, 2.05), "2024-01-15")

	// At the force-close tick only the CE has a quote. The PE exit falls
	// back to its last observed price, never zero.
	stale := &models.MarketView{
		Tick:    4650,
		Spot:    580,
		Options: models.Surface{models.OptionCE: {580: 2.20}},
	}
	closed := l.MarkAndClose(stale, "2024-01-15")
	require.Len(t, closed, 1)

	trade := closed[0]
	assert.Equal(t, models.ExitTimeBased, trade.ExitReason)
	assert.Equal(t, 2.20, trade.ExitPrices[ceLeg(580)])
	assert.Equal(t, 2.05, trade.ExitPrices[peLeg(580)])

	// Realized P&L uses the fallback quote:
	//   CE: ((2.445)-(2.205))*100 = 24.0
	//   PE: ((2.145)-(2.055))*100 = 9.0
	assert.InDelta(t, 33.0, trade.Pnl, 1e-9)
}

func TestCloseAllEmptiesLedgerInInsertionOrder(t *testing.T) {
	l := New(zerolog.Nop())

	first := straddlePosition()
	second := straddlePosition()
	second.SetupID = "straddle_2"
	l.AddPosition(first)
	l.AddPosition(second)

	closed := l.CloseAll(view(4660, 2.40, 2.10), models.ExitJobEnd, "2024-01-15")
	require.Len(t, closed, 2)
	assert.Equal(t, "straddle_1", closed[0].SetupID)
	assert.Equal(t, "straddle_2", closed[1].SetupID)
	for _, trade := range closed {
		assert.Equal(t, models.ExitJobEnd, trade.ExitReason)
	}
	assert.Equal(t, 0, l.OpenCount())
	assert.Equal(t, 0.0, l.TotalLivePnl())
}

func TestSetupLivePnlFiltersBySetup(t *testing.T) {
	l := New(zerolog.Nop())

	first := straddlePosition()
	second := straddlePosition()
	second.SetupID = "straddle_2"
	l.AddPosition(first)
	l.AddPosition(second)

	l.MarkAndClose(view(1000, 2.30, 2.05), "2024-01-15")

	assert.InDelta(t, 23.0, l.SetupLivePnl("straddle_1"), 1e-9)
	assert.InDelta(t, 23.0, l.SetupLivePnl("straddle_2"), 1e-9)
	assert.InDelta(t, 46.0, l.TotalLivePnl(), 1e-9)
	assert.Equal(t, 0.0, l.SetupLivePnl("other"))
}
