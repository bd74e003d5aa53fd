package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"options-backtester/internal/config"
	"options-backtester/internal/engine"
	"options-backtester/internal/loader"
	"options-backtester/internal/logging"
	"options-backtester/internal/models"
	"options-backtester/internal/reporting"
)

func newRunCmd(app *App) *cobra.Command {
	var noReport bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest from the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(app.ConfigPath)
			if err != nil {
				return err
			}
			setups, err := cfg.BuildSetups()
			if err != nil {
				return err
			}

			// A log block in the config overrides the default logger.
			if cfg.Log.Level != "" || cfg.Log.Path != "" {
				logCfg := logging.DefaultLogConfig()
				if cfg.Log.Level != "" {
					logCfg.Level = cfg.Log.Level
				}
				logCfg.File = cfg.Log.File
				if cfg.Log.Path != "" {
					logCfg.FilePath = cfg.Log.Path
					logCfg.File = true
				}
				app.Logger = logging.NewLoggerWithConfig(logCfg)
			}

			fileLoader := loader.New(cfg.DataPath, app.Logger)
			eng := engine.New(fileLoader, setups, cfg.DailyMaxLoss, app.Logger)

			app.Logger.Info().
				Str("symbol", cfg.Symbol).
				Str("start", cfg.StartDate).
				Str("end", cfg.EndDate).
				Int("setups", len(setups)).
				Msg("Starting backtest")

			results, err := eng.Run(cmd.Context(), cfg.Symbol, cfg.StartDate, cfg.EndDate)
			if err != nil {
				return err
			}

			printResults(cmd, cfg, results)

			if !noReport {
				reporter, err := reporting.New(results, cfg.ReportDir)
				if err != nil {
					return err
				}
				files, err := reporter.GenerateFullReport(cfg.Symbol, cfg.StartDate, cfg.EndDate)
				if err != nil {
					return err
				}
				cmd.Println()
				for _, f := range files {
					dim.Fprintf(cmd.OutOrStdout(), "Report written: %s\n", f)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noReport, "no-report", false, "skip writing CSV reports")
	return cmd
}

func printResults(cmd *cobra.Command, cfg *config.Config, results *models.BacktestResults) {
	out := cmd.OutOrStdout()

	bold.Fprintf(out, "\nBacktest Results: %s %s to %s\n", cfg.Symbol, cfg.StartDate, cfg.EndDate)
	fmt.Fprintf(out, "  Total P&L:     %s\n", FormatPnL(results.TotalPnl))
	fmt.Fprintf(out, "  Trades:        %d\n", results.TotalTrades)
	fmt.Fprintf(out, "  Win Rate:      %s\n", FormatPercent(results.WinRate*100))
	fmt.Fprintf(out, "  Max Drawdown:  %s\n", FormatIndianCurrency(results.MaxDrawdown))
	fmt.Fprintf(out, "  Trading Days:  %d\n", len(results.Days))

	if len(results.Setups) > 0 {
		ids := make([]string, 0, len(results.Setups))
		for id := range results.Setups {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		bold.Fprintln(out, "\nPer-Setup Breakdown")
		for _, id := range ids {
			s := results.Setups[id]
			fmt.Fprintf(out, "  %-20s %s  (%d trades, %.1f%% wins)\n",
				s.SetupID, FormatPnL(s.TotalPnl), s.TradeCount, s.WinRate*100)
		}
	}

	if len(results.Days) > 0 {
		bold.Fprintln(out, "\nDaily P&L")
		for _, d := range results.Days {
			marker := ""
			if d.ForcedClosed > 0 {
				marker = dim.Sprintf("  (%d forced)", d.ForcedClosed)
			}
			fmt.Fprintf(out, "  %s  %s%s\n", d.Date, FormatPnL(d.Pnl), marker)
		}
	}
}
