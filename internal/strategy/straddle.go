package strategy

import "options-backtester/internal/models"

// Straddle sells an at-entry call and put pair at strikes chosen by the
// configured selection mode.
type Straddle struct {
	base
}

// NewStraddle creates a straddle setup. Returns a ConfigError on invalid
// parameters.
func NewStraddle(params Params) (*Straddle, error) {
	params = params.Defaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Straddle{base: base{params: params}}, nil
}

// CheckEntryCondition enters exactly at the configured entry tick.
func (s *Straddle) CheckEntryCondition(tick int) bool {
	return tick == s.params.EntryTick
}

// SelectStrikes picks one SELL strike per option type. A leg with no
// qualifying strike is omitted.
func (s *Straddle) SelectStrikes(spot float64, surface models.Surface) map[models.LegKey]float64 {
	selected := make(map[models.LegKey]float64)
	for _, t := range []models.OptionType{models.OptionCE, models.OptionPE} {
		quotes, ok := surface[t]
		if !ok {
			continue
		}
		var strike float64
		var found bool
		switch s.params.Selection {
		case SelectPremium:
			strike, found = premiumStrike(t, spot, s.params.ScalpPrice, quotes)
		case SelectDistance:
			strike, found = distanceStrike(t, spot, s.params.StrikesAway, quotes)
		}
		if found {
			selected[models.LegKey{Type: t, Strike: strike, Action: models.ActionSell}] = strike
		}
	}
	return selected
}

// CreatePositions builds the straddle position. Both legs are required; if
// either is unavailable the whole attempt is voided.
func (s *Straddle) CreatePositions(view *models.MarketView) []*models.Position {
	selected := s.SelectStrikes(view.Spot, view.Options)
	if len(selected) < 2 {
		return nil
	}
	pos := s.buildPosition(view, selected)
	if pos == nil {
		return nil
	}
	return []*models.Position{pos}
}
