// Package cli provides the command-line interface for the backtester.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"options-backtester/internal/config"
	"options-backtester/internal/logging"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies shared by all commands.
type App struct {
	Logger     zerolog.Logger
	ConfigPath string
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(logger zerolog.Logger) *cobra.Command {
	app := &App{
		Logger:     logger,
		ConfigPath: "backtest.yaml",
	}

	rootCmd := &cobra.Command{
		Use:   "backtester",
		Short: "Intraday options backtesting engine",
		Long: `Backtester replays recorded intraday option chain data against
configured strategy setups and reports the resulting P&L.

Strategies, risk limits, and the date range are defined in a YAML
config file. Use 'backtester run' to execute a backtest.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				app.ConfigPath = path
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default: backtest.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newValidateCmd(app))
	rootCmd.AddCommand(newRunCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("backtester v%s\n", Version)
		},
	}
}

func newValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the backtest configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(app.ConfigPath)
			if err != nil {
				red.Fprintf(cmd.OutOrStdout(), "Configuration invalid: %v\n", err)
				return err
			}
			if _, err := cfg.BuildSetups(); err != nil {
				red.Fprintf(cmd.OutOrStdout(), "Setup invalid: %v\n", err)
				return err
			}
			green.Fprintf(cmd.OutOrStdout(), "✓ Configuration is valid (%d setups)\n", len(cfg.Setups))
			return nil
		},
	}
}
