package strategy

import (
	"options-backtester/internal/errors"
	"options-backtester/internal/models"
)

// defaultGuardWindow keeps re-entries away from the day's close.
const defaultGuardWindow = 100

// ScalperConfig holds the re-entry bookkeeping limits for scalping setups.
type ScalperConfig struct {
	MaxEntries  int // total entries allowed per day, initial entry included
	ReentryGap  int // minimum ticks between entries
	GuardWindow int // no entries within this many ticks of the close
}

// Defaults fills unset fields with the standard scalper defaults.
func (c ScalperConfig) Defaults() ScalperConfig {
	if c.MaxEntries == 0 {
		c.MaxEntries = 3
	}
	if c.ReentryGap == 0 {
		c.ReentryGap = 300
	}
	if c.GuardWindow == 0 {
		c.GuardWindow = defaultGuardWindow
	}
	return c
}

func (c ScalperConfig) validate() error {
	if c.MaxEntries < 1 {
		return errors.NewConfigError("max_entries", c.MaxEntries, "must allow at least one entry")
	}
	if c.ReentryGap < 0 {
		return errors.NewConfigError("reentry_gap", c.ReentryGap, "must not be negative")
	}
	if c.GuardWindow < 0 {
		return errors.NewConfigError("guard_window", c.GuardWindow, "must not be negative")
	}
	return nil
}

// dailyState is the per-day re-entry bookkeeping, reset by the scheduler.
type dailyState struct {
	entryCount    int
	lastEntryTick int
}

// Scalper sells a single option leg and may re-enter during the day,
// bounded by entry count, gap, and guard window. The option type picks the
// CE or PE variant.
type Scalper struct {
	base
	optionType models.OptionType
	cfg        ScalperConfig
	state      dailyState
}

// NewCEScalper creates a call-side scalping setup.
func NewCEScalper(params Params, cfg ScalperConfig) (*Scalper, error) {
	return newScalper(models.OptionCE, params, cfg)
}

// NewPEScalper creates a put-side scalping setup.
func NewPEScalper(params Params, cfg ScalperConfig) (*Scalper, error) {
	return newScalper(models.OptionPE, params, cfg)
}

func newScalper(t models.OptionType, params Params, cfg ScalperConfig) (*Scalper, error) {
	params = params.Defaults()
	cfg = cfg.Defaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Scalper{
		base:       base{params: params},
		optionType: t,
		cfg:        cfg,
	}, nil
}

// OptionType returns the side this scalper trades.
func (s *Scalper) OptionType() models.OptionType {
	return s.optionType
}

// EntryCount returns the number of entries taken today.
func (s *Scalper) EntryCount() int {
	return s.state.entryCount
}

// CheckEntryCondition takes the initial entry at the configured tick, then
// re-enters while under the daily cap, past the re-entry gap, and outside
// the guard window before the close.
func (s *Scalper) CheckEntryCondition(tick int) bool {
	if s.state.entryCount == 0 {
		return tick == s.params.EntryTick
	}
	return s.state.entryCount < s.cfg.MaxEntries &&
		tick >= s.state.lastEntryTick+s.cfg.ReentryGap &&
		tick <= s.params.CloseTickIdx-s.cfg.GuardWindow
}

// SelectStrikes picks one SELL strike on the scalper's side.
func (s *Scalper) SelectStrikes(spot float64, surface models.Surface) map[models.LegKey]float64 {
	quotes, ok := surface[s.optionType]
	if !ok {
		return nil
	}

	var strike float64
	var found bool
	switch s.params.Selection {
	case SelectPremium:
		strike, found = premiumStrike(s.optionType, spot, s.params.ScalpPrice, quotes)
	case SelectDistance:
		strike, found = distanceStrike(s.optionType, spot, s.params.StrikesAway, quotes)
	}
	if !found {
		return nil
	}
	return map[models.LegKey]float64{
		{Type: s.optionType, Strike: strike, Action: models.ActionSell}: strike,
	}
}

// CreatePositions builds the single-leg position and, on success, advances
// the re-entry bookkeeping. A voided attempt consumes no entry.
func (s *Scalper) CreatePositions(view *models.MarketView) []*models.Position {
	selected := s.SelectStrikes(view.Spot, view.Options)
	if len(selected) == 0 {
		return nil
	}

	pos := s.buildPosition(view, selected)
	if pos == nil {
		return nil
	}

	s.state.entryCount++
	s.state.lastEntryTick = view.Tick
	return []*models.Position{pos}
}

// ResetDailyState zeroes the re-entry counters for a new trading day.
func (s *Scalper) ResetDailyState() {
	s.state = dailyState{}
}
