// Package reporting exports backtest results as CSV files and a text
// summary.
package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"options-backtester/internal/errors"
	"options-backtester/internal/models"
)

// Reporter writes result artifacts for one completed run.
type Reporter struct {
	results   *models.BacktestResults
	reportDir string
}

// New creates a reporter writing into reportDir (created if absent).
func New(results *models.BacktestResults, reportDir string) (*Reporter, error) {
	if reportDir == "" {
		reportDir = "backtest_reports"
	}
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return nil, errors.Wrap(err, "creating report directory")
	}
	return &Reporter{results: results, reportDir: reportDir}, nil
}

// tradeRow is the flat CSV form of a trade.
type tradeRow struct {
	SetupID     string  `csv:"setup_id"`
	Date        string  `csv:"date"`
	EntryTick   int     `csv:"entry_tick"`
	ExitTick    int     `csv:"exit_tick"`
	Legs        string  `csv:"legs"`
	EntryPrices string  `csv:"entry_prices"`
	ExitPrices  string  `csv:"exit_prices"`
	Quantity    int     `csv:"quantity"`
	Pnl         float64 `csv:"pnl"`
	ExitReason  string  `csv:"exit_reason"`
}

// dailyRow is the flat CSV form of a daily result.
type dailyRow struct {
	Date         string  `csv:"date"`
	Pnl          float64 `csv:"pnl"`
	TradeCount   int     `csv:"trade_count"`
	ForcedClosed int     `csv:"forced_closed"`
}

// setupRow is the flat CSV form of per-setup statistics.
type setupRow struct {
	SetupID    string  `csv:"setup_id"`
	TotalPnl   float64 `csv:"total_pnl"`
	TradeCount int     `csv:"trade_count"`
	WinRate    float64 `csv:"win_rate"`
	AvgWin     float64 `csv:"avg_win"`
	AvgLoss    float64 `csv:"avg_loss"`
}

// GenerateFullReport writes the trade log, daily results, setup statistics,
// and a text summary, returning the paths of the written files.
func (r *Reporter) GenerateFullReport(symbol, startDate, endDate string) ([]string, error) {
	stamp := time.Now().Format("20060102_150405")
	prefix := fmt.Sprintf("%s_%s_to_%s_%s", symbol, startDate, endDate, stamp)

	files := []struct {
		name  string
		write func(string) error
	}{
		{prefix + "_trades.csv", r.exportTrades},
		{prefix + "_daily.csv", r.exportDaily},
		{prefix + "_setups.csv", r.exportSetups},
		{prefix + "_summary.txt", r.writeSummary},
	}

	var written []string
	for _, f := range files {
		path := filepath.Join(r.reportDir, f.name)
		if err := f.write(path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func (r *Reporter) exportTrades(path string) error {
	rows := make([]tradeRow, 0, len(r.results.Trades))
	for _, t := range r.results.Trades {
		rows = append(rows, tradeRow{
			SetupID:     t.SetupID,
			Date:        t.Date,
			EntryTick:   t.EntryTick,
			ExitTick:    t.ExitTick,
			Legs:        formatLegs(t.EntryPrices),
			EntryPrices: formatPrices(t.EntryPrices),
			ExitPrices:  formatPrices(t.ExitPrices),
			Quantity:    t.Quantity,
			Pnl:         t.Pnl,
			ExitReason:  string(t.ExitReason),
		})
	}
	return writeCsv(path, &rows)
}

func (r *Reporter) exportDaily(path string) error {
	rows := make([]dailyRow, 0, len(r.results.Days))
	for _, d := range r.results.Days {
		rows = append(rows, dailyRow{
			Date:         d.Date,
			Pnl:          d.Pnl,
			TradeCount:   d.TradeCount,
			ForcedClosed: d.ForcedClosed,
		})
	}
	return writeCsv(path, &rows)
}

func (r *Reporter) exportSetups(path string) error {
	ids := make([]string, 0, len(r.results.Setups))
	for id := range r.results.Setups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]setupRow, 0, len(ids))
	for _, id := range ids {
		s := r.results.Setups[id]
		rows = append(rows, setupRow{
			SetupID:    s.SetupID,
			TotalPnl:   s.TotalPnl,
			TradeCount: s.TradeCount,
			WinRate:    s.WinRate,
			AvgWin:     s.AvgWin,
			AvgLoss:    s.AvgLoss,
		})
	}
	return writeCsv(path, &rows)
}

func writeCsv(path string, rows interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()
	return gocsv.MarshalFile(rows, f)
}

func (r *Reporter) writeSummary(path string) error {
	return os.WriteFile(path, []byte(r.Summary()), 0644)
}

// Summary renders the run's aggregate statistics as text.
func (r *Reporter) Summary() string {
	var sb strings.Builder
	sb.WriteString("BACKTEST SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 48) + "\n")
	fmt.Fprintf(&sb, "Total P&L:      %.2f\n", r.results.TotalPnl)
	fmt.Fprintf(&sb, "Total trades:   %d\n", r.results.TotalTrades)
	fmt.Fprintf(&sb, "Win rate:       %.1f%%\n", r.results.WinRate*100)
	fmt.Fprintf(&sb, "Max drawdown:   %.2f\n", r.results.MaxDrawdown)
	fmt.Fprintf(&sb, "Days traded:    %d\n", len(r.results.Days))

	sb.WriteString("\nPER-SETUP PERFORMANCE\n")
	sb.WriteString(strings.Repeat("-", 48) + "\n")

	ids := make([]string, 0, len(r.results.Setups))
	for id := range r.results.Setups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s := r.results.Setups[id]
		fmt.Fprintf(&sb, "%-16s pnl=%.2f trades=%d win=%.1f%% avgWin=%.2f avgLoss=%.2f\n",
			s.SetupID, s.TotalPnl, s.TradeCount, s.WinRate*100, s.AvgWin, s.AvgLoss)
	}
	return sb.String()
}

// formatLegs renders leg keys in a stable order.
func formatLegs(prices map[models.LegKey]float64) string {
	keys := sortedLegs(prices)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k.String())
	}
	return strings.Join(parts, ";")
}

// formatPrices renders leg prices in the same stable order as formatLegs.
func formatPrices(prices map[models.LegKey]float64) string {
	keys := sortedLegs(prices)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%.2f", prices[k]))
	}
	return strings.Join(parts, ";")
}

func sortedLegs(prices map[models.LegKey]float64) []models.LegKey {
	keys := make([]models.LegKey, 0, len(prices))
	for k := range prices {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		if keys[i].Strike != keys[j].Strike {
			return keys[i].Strike < keys[j].Strike
		}
		return keys[i].Action < keys[j].Action
	})
	return keys
}
