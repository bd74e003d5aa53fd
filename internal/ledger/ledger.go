// Package ledger owns all open positions: per-tick valuation with
// slippage, exit detection, and conversion of closed positions to trades.
package ledger

import (
	"fmt"

	"github.com/rs/zerolog"

	"options-backtester/internal/errors"
	"options-backtester/internal/logging"
	"options-backtester/internal/models"
)

// Ledger tracks open positions by id and closes them into trades. Position
// ids combine the owning setup id with a counter that resets each day.
// Iteration over positions follows insertion order so identical inputs
// always produce identical trade sequences.
type Ledger struct {
	logger    zerolog.Logger
	positions map[string]*models.Position
	order     []string
	counter   int
}

// New creates an empty ledger.
func New(logger zerolog.Logger) *Ledger {
	return &Ledger{
		logger:    logger,
		positions: make(map[string]*models.Position),
	}
}

// Reset clears positions and the id counter for a new trading day.
func (l *Ledger) Reset() {
	l.positions = make(map[string]*models.Position)
	l.order = l.order[:0]
	l.counter = 0
}

// AddPosition registers a position and returns its assigned id.
func (l *Ledger) AddPosition(p *models.Position) string {
	id := fmt.Sprintf("%s_%d", p.SetupID, l.counter)
	l.counter++
	l.positions[id] = p
	l.order = append(l.order, id)
	return id
}

// OpenCount returns the number of open positions.
func (l *Ledger) OpenCount() int {
	return len(l.positions)
}

// TotalLivePnl sums live P&L over currently open positions. Realized P&L
// from trades already closed today is not included; this is the figure the
// risk gate sees.
func (l *Ledger) TotalLivePnl() float64 {
	var total float64
	for _, p := range l.positions {
		total += p.LivePnl
	}
	return total
}

// SetupLivePnl sums live P&L for one setup's open positions.
func (l *Ledger) SetupLivePnl(setupID string) float64 {
	var total float64
	for _, p := range l.positions {
		if p.SetupID == setupID {
			total += p.LivePnl
		}
	}
	return total
}

// MarkAndClose revalues every open position at the tick and closes those
// meeting an exit condition, in strict priority order: TARGET, then
// STOP_LOSS, then TIME_BASED. A position whose leg has no quote this tick
// carries its prior live P&L forward instead of marking against zero; the
// time-based exit still applies so no position outlives its close tick.
func (l *Ledger) MarkAndClose(view *models.MarketView, date string) []models.Trade {
	var closed []models.Trade
	var remaining []string

	for _, id := range l.order {
		p, ok := l.positions[id]
		if !ok {
			continue
		}

		pnl, fresh := l.markToMarket(p, view)
		if fresh {
			p.LivePnl = pnl
		} else {
			logger := logging.WithSetup(l.logger, p.SetupID)
			logger.Debug().
				Err(errors.ErrStaleLeg).
				Str("position", id).
				Int("tick", view.Tick).
				Msg("Carrying live P&L forward")
		}

		reason, exit := l.exitReason(p, fresh, view.Tick)
		if !exit {
			remaining = append(remaining, id)
			continue
		}

		trade := l.closePosition(p, view, reason, date)
		closed = append(closed, trade)
		delete(l.positions, id)
	}

	l.order = remaining
	return closed
}

// markToMarket computes the slippage-adjusted live P&L. The second return
// is false when any leg lacks a quote at this tick; legs that do have
// quotes still refresh their last observed price.
func (l *Ledger) markToMarket(p *models.Position, view *models.MarketView) (float64, bool) {
	var total float64
	fresh := true
	for leg, entry := range p.EntryPrices {
		mark, ok := view.Price(leg.Type, leg.Strike)
		if !ok {
			fresh = false
			continue
		}
		p.LastPrices[leg] = mark
		total += models.LegPnl(leg.Action, entry, mark, p.Slippage, p.Quantity, p.LotSize)
	}
	return total, fresh
}

func (l *Ledger) exitReason(p *models.Position, fresh bool, tick int) (models.ExitReason, bool) {
	if fresh {
		if p.TargetPnl > 0 && p.LivePnl >= p.TargetPnl {
			return models.ExitTarget, true
		}
		if p.StopLossPnl < 0 && p.LivePnl <= p.StopLossPnl {
			return models.ExitStopLoss, true
		}
	}
	if tick >= p.ForceClose {
		return models.ExitTimeBased, true
	}
	return "", false
}

// CloseAll unconditionally closes every open position with the given
// reason, in insertion order, and empties the ledger.
func (l *Ledger) CloseAll(view *models.MarketView, reason models.ExitReason, date string) []models.Trade {
	var closed []models.Trade
	for _, id := range l.order {
		p, ok := l.positions[id]
		if !ok {
			continue
		}
		closed = append(closed, l.closePosition(p, view, reason, date))
		delete(l.positions, id)
	}
	l.order = l.order[:0]
	return closed
}

// ForceCloseAtCutoff closes every remaining position with reason JOB_END
// when the day's cutoff tick is reached.
func (l *Ledger) ForceCloseAtCutoff(view *models.MarketView, date string) []models.Trade {
	return l.CloseAll(view, models.ExitJobEnd, date)
}

// closePosition converts a position into its trade record. Exit prices are
// the tick's unadjusted quotes, falling back to the leg's last observed
// quote when the tick has none; slippage appears only in the realized P&L.
func (l *Ledger) closePosition(p *models.Position, view *models.MarketView, reason models.ExitReason, date string) models.Trade {
	exitPrices := make(map[models.LegKey]float64, len(p.EntryPrices))
	for leg := range p.EntryPrices {
		if mark, ok := view.Price(leg.Type, leg.Strike); ok {
			exitPrices[leg] = mark
		} else {
			exitPrices[leg] = p.LastPrices[leg]
		}
	}

	var pnl float64
	for leg, entry := range p.EntryPrices {
		pnl += models.LegPnl(leg.Action, entry, exitPrices[leg], p.Slippage, p.Quantity, p.LotSize)
	}

	logging.LogTrade(l.logger, p.SetupID, view.Tick, pnl, string(reason))

	return models.Trade{
		SetupID:     p.SetupID,
		EntryTick:   p.EntryTick,
		ExitTick:    view.Tick,
		EntryPrices: p.EntryPrices,
		ExitPrices:  exitPrices,
		Strikes:     p.Strikes(),
		Quantity:    p.Quantity,
		Pnl:         pnl,
		ExitReason:  reason,
		Date:        date,
	}
}
