// Package strategy implements the trading setups driven by the scheduler:
// entry timing, strike selection, and position construction.
package strategy

import (
	"math"

	"options-backtester/internal/chain"
	"options-backtester/internal/errors"
	"options-backtester/internal/models"
)

// Selection chooses how a setup picks strikes.
type Selection string

const (
	SelectPremium  Selection = "premium"  // first strike with premium >= scalp price, OTM to ITM
	SelectDistance Selection = "distance" // fixed strike count away from ATM
)

// Setup is the capability interface every strategy variant implements.
// Implementations own their per-day state; ResetDailyState is called by the
// scheduler at the start of each trading day.
type Setup interface {
	ID() string
	CheckEntryCondition(tick int) bool
	SelectStrikes(spot float64, surface models.Surface) map[models.LegKey]float64
	CreatePositions(view *models.MarketView) []*models.Position
	ShouldForceClose(tick int) bool
	ResetDailyState()
	CloseTick() int
}

// Params holds the common configuration shared by all setups.
type Params struct {
	ID           string
	TargetPnl    float64
	StopLossPnl  float64 // stored as a positive magnitude; applied negative
	EntryTick    int
	CloseTickIdx int
	Selection    Selection
	ScalpPrice   float64 // premium threshold for premium-based selection
	StrikesAway  int     // offset for distance-based selection
	Quantity     int
	LotSize      int
	Slippage     float64
}

// Defaults fills unset fields with the standard intraday defaults.
func (p Params) Defaults() Params {
	if p.CloseTickIdx == 0 {
		p.CloseTickIdx = 4650
	}
	if p.Selection == "" {
		p.Selection = SelectPremium
	}
	if p.ScalpPrice == 0 {
		p.ScalpPrice = 0.40
	}
	if p.StrikesAway == 0 {
		p.StrikesAway = 2
	}
	if p.Quantity == 0 {
		p.Quantity = 1
	}
	if p.LotSize == 0 {
		p.LotSize = 100
	}
	if p.Slippage == 0 {
		p.Slippage = 0.005
	}
	return p
}

// Validate rejects parameter combinations that cannot simulate. Failing
// here is fatal: no simulation starts with an invalid setup.
func (p Params) Validate() error {
	if p.ID == "" {
		return errors.NewConfigError("id", p.ID, "setup id is required")
	}
	if p.TargetPnl <= 0 {
		return errors.NewConfigError("target", p.TargetPnl, "target P&L must be positive")
	}
	if p.StopLossPnl == 0 {
		return errors.NewConfigError("stop_loss", p.StopLossPnl, "stop loss must be non-zero")
	}
	if p.EntryTick < 0 {
		return errors.NewConfigError("entry_tick", p.EntryTick, "entry tick must not be negative")
	}
	if p.CloseTickIdx <= p.EntryTick {
		return errors.NewConfigError("close_tick", p.CloseTickIdx, "close tick must be after entry tick")
	}
	if p.Selection != SelectPremium && p.Selection != SelectDistance {
		return errors.NewConfigError("strike_selection", p.Selection, "must be premium or distance")
	}
	if p.Quantity <= 0 {
		return errors.NewConfigError("quantity", p.Quantity, "quantity must be positive")
	}
	if p.LotSize <= 0 {
		return errors.NewConfigError("lot_size", p.LotSize, "lot size must be positive")
	}
	if p.Slippage < 0 {
		return errors.NewConfigError("slippage", p.Slippage, "slippage must not be negative")
	}
	return nil
}

// base carries the parameter block and the behavior every setup shares.
type base struct {
	params Params
}

func (b *base) ID() string {
	return b.params.ID
}

func (b *base) ShouldForceClose(tick int) bool {
	return tick >= b.params.CloseTickIdx
}

func (b *base) CloseTick() int {
	return b.params.CloseTickIdx
}

func (b *base) ResetDailyState() {}

// buildPosition resolves entry quotes for the selected legs and assembles a
// position. Creation is all-or-nothing: if any selected leg has no quote at
// this tick the attempt is voided and nil is returned.
func (b *base) buildPosition(view *models.MarketView, selected map[models.LegKey]float64) *models.Position {
	if len(selected) == 0 {
		return nil
	}

	required := make([]chain.RequiredLeg, 0, len(selected))
	for leg := range selected {
		required = append(required, chain.RequiredLeg{Type: leg.Type, Strike: leg.Strike})
	}
	if !chain.ValidateSurface(view.Options, required).OK() {
		return nil
	}

	entryPrices := make(map[models.LegKey]float64, len(selected))
	lastPrices := make(map[models.LegKey]float64, len(selected))
	for leg := range selected {
		price, _ := view.Price(leg.Type, leg.Strike)
		entryPrices[leg] = price
		lastPrices[leg] = price
	}

	return &models.Position{
		SetupID:     b.params.ID,
		EntryTick:   view.Tick,
		EntryPrices: entryPrices,
		LastPrices:  lastPrices,
		Quantity:    b.params.Quantity,
		LotSize:     b.params.LotSize,
		TargetPnl:   b.params.TargetPnl,
		StopLossPnl: -math.Abs(b.params.StopLossPnl),
		Slippage:    b.params.Slippage,
		ForceClose:  b.params.CloseTickIdx,
	}
}
