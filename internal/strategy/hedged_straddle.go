package strategy

import (
	"options-backtester/internal/errors"
	"options-backtester/internal/models"
)

// HedgedStraddle sells a straddle and buys protective wings a configured
// count of strikes further out-of-the-money.
type HedgedStraddle struct {
	base
	hedgeStrikesAway int
}

// NewHedgedStraddle creates a hedged straddle setup.
func NewHedgedStraddle(params Params, hedgeStrikesAway int) (*HedgedStraddle, error) {
	params = params.Defaults()
	if hedgeStrikesAway == 0 {
		hedgeStrikesAway = 5
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if hedgeStrikesAway < 0 {
		return nil, errors.NewConfigError("hedge_strikes_away", hedgeStrikesAway, "must not be negative")
	}
	return &HedgedStraddle{
		base:             base{params: params},
		hedgeStrikesAway: hedgeStrikesAway,
	}, nil
}

// CheckEntryCondition enters exactly at the configured entry tick.
func (h *HedgedStraddle) CheckEntryCondition(tick int) bool {
	return tick == h.params.EntryTick
}

// SelectStrikes picks the main SELL strikes, then a BUY hedge further OTM
// for each sold leg. A hedge leg is omitted when no strike is further OTM
// than the sold strike.
func (h *HedgedStraddle) SelectStrikes(spot float64, surface models.Surface) map[models.LegKey]float64 {
	selected := make(map[models.LegKey]float64)
	for _, t := range []models.OptionType{models.OptionCE, models.OptionPE} {
		quotes, ok := surface[t]
		if !ok {
			continue
		}

		var strike float64
		var found bool
		switch h.params.Selection {
		case SelectPremium:
			strike, found = premiumStrike(t, spot, h.params.ScalpPrice, quotes)
		case SelectDistance:
			strike, found = distanceStrike(t, spot, h.params.StrikesAway, quotes)
		}
		if !found {
			continue
		}
		selected[models.LegKey{Type: t, Strike: strike, Action: models.ActionSell}] = strike

		if hedge, ok := hedgeStrike(t, strike, h.hedgeStrikesAway, quotes); ok {
			selected[models.LegKey{Type: t, Strike: hedge, Action: models.ActionBuy}] = hedge
		}
	}
	return selected
}

// CreatePositions builds one mixed SELL/BUY position. Both sold legs are
// required; hedges ride along when placeable.
func (h *HedgedStraddle) CreatePositions(view *models.MarketView) []*models.Position {
	selected := h.SelectStrikes(view.Spot, view.Options)

	sold := 0
	for leg := range selected {
		if leg.Action == models.ActionSell {
			sold++
		}
	}
	if sold < 2 {
		return nil
	}

	pos := h.buildPosition(view, selected)
	if pos == nil {
		return nil
	}
	return []*models.Position{pos}
}
