// Package engine drives the time-stepped simulation: the per-day tick
// loop, risk gating, forced closures, and result aggregation.
package engine

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"options-backtester/internal/chain"
	"options-backtester/internal/errors"
	"options-backtester/internal/ledger"
	"options-backtester/internal/logging"
	"options-backtester/internal/models"
	"options-backtester/internal/risk"
	"options-backtester/internal/strategy"
)

// SnapshotLoader supplies immutable day snapshots. Implemented by the file
// loader; the engine only depends on this contract.
type SnapshotLoader interface {
	AvailableDates(symbol string) ([]string, error)
	LoadTradingDay(symbol, date string) (*models.DaySnapshot, error)
}

// Engine orchestrates a multi-day backtest over one symbol.
type Engine struct {
	loader SnapshotLoader
	setups []strategy.Setup
	book   *ledger.Ledger
	gate   *risk.Gate
	logger zerolog.Logger

	trades []models.Trade
	days   []models.DailyResult
}

// New creates an engine. The setups must already be validated; construction
// of an invalid setup fails before an engine is ever built.
func New(loader SnapshotLoader, setups []strategy.Setup, dailyMaxLoss float64, logger zerolog.Logger) *Engine {
	return &Engine{
		loader: loader,
		setups: setups,
		book:   ledger.New(logger),
		gate:   risk.NewGate(dailyMaxLoss),
		logger: logger,
	}
}

// Run executes the backtest across all available dates within the range,
// inclusive. A day whose snapshot cannot be loaded is skipped with a
// diagnostic; only loader enumeration failures and cancellation abort the
// run.
func (e *Engine) Run(ctx context.Context, symbol, startDate, endDate string) (*models.BacktestResults, error) {
	dates, err := e.loader.AvailableDates(symbol)
	if err != nil {
		return nil, err
	}

	var testDates []string
	for _, d := range dates {
		if d >= startDate && d <= endDate {
			testDates = append(testDates, d)
		}
	}
	sort.Strings(testDates)

	e.logger.Info().
		Str("symbol", symbol).
		Str("start", startDate).
		Str("end", endDate).
		Int("days", len(testDates)).
		Msg("Starting backtest")

	for _, date := range testDates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		day := e.processTradingDay(symbol, date)
		if day != nil {
			e.days = append(e.days, *day)
		}
	}

	return e.finalResults(), nil
}

// processTradingDay runs the strict ordered fold over one day's ticks.
// Returns nil when the day's snapshot is unavailable.
func (e *Engine) processTradingDay(symbol, date string) *models.DailyResult {
	logger := logging.WithDate(e.logger, date)

	snapshot, err := e.loader.LoadTradingDay(symbol, date)
	if err != nil || snapshot == nil {
		logger.Warn().Err(err).Msg("Could not load trading day, skipping")
		return nil
	}

	e.book.Reset()
	e.gate.Reset()
	for _, setup := range e.setups {
		setup.ResetDailyState()
	}

	idx := chain.New(snapshot.Options)
	ticks := e.tradableTicks(snapshot)
	logger.Debug().Int("ticks", len(ticks)).Msg("Processing day")

	var dailyTrades []models.Trade
	forcedClosed := 0

	for _, tick := range ticks {
		view := idx.MarketView(tick, snapshot.Spot[tick])
		if view == nil {
			continue
		}

		dailyTrades = append(dailyTrades, e.processTick(view, date, logger)...)

		if e.gate.Breached(e.book.TotalLivePnl()) {
			logger.Warn().
				Err(errors.NewRiskError(e.gate.ObservedPnl(), e.gate.DailyMaxLoss())).
				Int("tick", tick).
				Msg("Daily loss limit hit, closing all positions")
			dailyTrades = append(dailyTrades, e.book.CloseAll(view, models.ExitDailyLimit, date)...)
			break
		}

		if tick >= snapshot.CutoffIdx {
			jobEnd := e.book.ForceCloseAtCutoff(view, date)
			forcedClosed = len(jobEnd)
			dailyTrades = append(dailyTrades, jobEnd...)
			logger.Info().
				Int("tick", tick).
				Int("forced_closed", forcedClosed).
				Msg("Reached day cutoff, force closed remaining positions")
			break
		}
	}

	var dailyPnl float64
	for _, t := range dailyTrades {
		dailyPnl += t.Pnl
	}

	setupPnls := make(map[string]float64, len(e.setups))
	for _, setup := range e.setups {
		var pnl float64
		for _, t := range dailyTrades {
			if t.SetupID == setup.ID() {
				pnl += t.Pnl
			}
		}
		setupPnls[setup.ID()] = pnl
	}

	e.trades = append(e.trades, dailyTrades...)

	logger.Info().
		Int("trades", len(dailyTrades)).
		Float64("pnl", dailyPnl).
		Msg("Day completed")

	return &models.DailyResult{
		Date:         date,
		Pnl:          dailyPnl,
		TradeCount:   len(dailyTrades),
		ForcedClosed: forcedClosed,
		SetupPnls:    setupPnls,
	}
}

// tradableTicks returns in ascending order the ticks that carry both spot
// and option data. A tick missing either side is a data gap and is skipped
// entirely.
func (e *Engine) tradableTicks(snapshot *models.DaySnapshot) []int {
	ticks := make([]int, 0, len(snapshot.Options))
	for tick := range snapshot.Options {
		if _, ok := snapshot.Spot[tick]; ok {
			ticks = append(ticks, tick)
		}
	}
	sort.Ints(ticks)
	return ticks
}

// processTick evaluates entries before exits, so a position opened this
// tick may close this same tick only if the tick's prices already satisfy
// its target or stop.
func (e *Engine) processTick(view *models.MarketView, date string, logger zerolog.Logger) []models.Trade {
	for _, setup := range e.setups {
		if !setup.CheckEntryCondition(view.Tick) {
			continue
		}
		// Zero positions is a legitimate outcome (required strikes missing).
		for _, pos := range setup.CreatePositions(view) {
			e.book.AddPosition(pos)
			logging.LogEntry(logger, setup.ID(), view.Tick, view.Spot, pos.Strikes())
		}
	}

	return e.book.MarkAndClose(view, date)
}

// finalResults aggregates the full run: totals, win rate, max drawdown over
// the cumulative trade P&L curve, and per-setup statistics.
func (e *Engine) finalResults() *models.BacktestResults {
	var totalPnl float64
	wins := 0
	for _, t := range e.trades {
		totalPnl += t.Pnl
		if t.Pnl > 0 {
			wins++
		}
	}

	winRate := 0.0
	if len(e.trades) > 0 {
		winRate = float64(wins) / float64(len(e.trades))
	}

	setups := make(map[string]models.SetupResult, len(e.setups))
	for _, setup := range e.setups {
		setups[setup.ID()] = e.setupResult(setup.ID())
	}

	return &models.BacktestResults{
		TotalPnl:    totalPnl,
		Days:        e.days,
		Trades:      e.trades,
		Setups:      setups,
		WinRate:     winRate,
		MaxDrawdown: maxDrawdown(e.trades),
		TotalTrades: len(e.trades),
	}
}

func (e *Engine) setupResult(setupID string) models.SetupResult {
	var totalPnl, winSum, lossSum float64
	count, winCount, lossCount := 0, 0, 0

	for _, t := range e.trades {
		if t.SetupID != setupID {
			continue
		}
		count++
		totalPnl += t.Pnl
		if t.Pnl > 0 {
			winCount++
			winSum += t.Pnl
		} else if t.Pnl < 0 {
			lossCount++
			lossSum += t.Pnl
		}
	}

	result := models.SetupResult{
		SetupID:    setupID,
		TotalPnl:   totalPnl,
		TradeCount: count,
	}
	if count > 0 {
		result.WinRate = float64(winCount) / float64(count)
	}
	if winCount > 0 {
		result.AvgWin = winSum / float64(winCount)
	}
	if lossCount > 0 {
		result.AvgLoss = lossSum / float64(lossCount)
	}
	return result
}

// maxDrawdown walks the cumulative P&L of the trade log in order and
// returns the largest peak-to-trough fall.
func maxDrawdown(trades []models.Trade) float64 {
	var cumulative, peak, maxDD float64
	for _, t := range trades {
		cumulative += t.Pnl
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
