// Package config provides configuration management for the backtester.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"options-backtester/internal/errors"
	"options-backtester/internal/strategy"
)

// Config holds a full backtest run definition.
type Config struct {
	DataPath     string        `mapstructure:"data_path"`
	Symbol       string        `mapstructure:"symbol"`
	StartDate    string        `mapstructure:"start_date"`
	EndDate      string        `mapstructure:"end_date"`
	DailyMaxLoss float64       `mapstructure:"daily_max_loss"`
	ReportDir    string        `mapstructure:"report_dir"`
	Log          LogConfig     `mapstructure:"log"`
	Setups       []SetupConfig `mapstructure:"setups"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  bool   `mapstructure:"file"`
	Path  string `mapstructure:"path"`
}

// SetupConfig is one strategy block in the config file.
type SetupConfig struct {
	ID               string  `mapstructure:"id"`
	Kind             string  `mapstructure:"kind"` // straddle, hedged_straddle, ce_scalper, pe_scalper
	Target           float64 `mapstructure:"target"`
	StopLoss         float64 `mapstructure:"stop_loss"`
	EntryTick        int     `mapstructure:"entry_tick"`
	CloseTick        int     `mapstructure:"close_tick"`
	StrikeSelection  string  `mapstructure:"strike_selection"`
	ScalpPrice       float64 `mapstructure:"scalp_price"`
	StrikesAway      int     `mapstructure:"strikes_away"`
	HedgeStrikesAway int     `mapstructure:"hedge_strikes_away"`
	MaxEntries       int     `mapstructure:"max_entries"`
	ReentryGap       int     `mapstructure:"reentry_gap"`
	GuardWindow      int     `mapstructure:"guard_window"`
	Quantity         int     `mapstructure:"quantity"`
	LotSize          int     `mapstructure:"lot_size"`
	Slippage         float64 `mapstructure:"slippage"`
}

// Load reads a YAML config file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("data_path", "5SecData")
	v.SetDefault("daily_max_loss", 1000.0)
	v.SetDefault("report_dir", "backtest_reports")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks run-level fields. Setup parameters are validated by
// their constructors in BuildSetups.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return errors.NewConfigError("symbol", c.Symbol, "symbol is required")
	}
	if c.StartDate == "" || c.EndDate == "" {
		return errors.NewConfigError("dates", c.StartDate+".."+c.EndDate, "start and end dates are required")
	}
	if c.EndDate < c.StartDate {
		return errors.NewConfigError("end_date", c.EndDate, "end date must not precede start date")
	}
	if c.DailyMaxLoss <= 0 {
		return errors.NewConfigError("daily_max_loss", c.DailyMaxLoss, "must be positive")
	}
	if len(c.Setups) == 0 {
		return errors.NewConfigError("setups", nil, "at least one setup is required")
	}
	return nil
}

// BuildSetups constructs the configured strategy setups. Any invalid
// parameter fails the whole run before simulation starts.
func (c *Config) BuildSetups() ([]strategy.Setup, error) {
	setups := make([]strategy.Setup, 0, len(c.Setups))
	for _, sc := range c.Setups {
		setup, err := buildSetup(sc)
		if err != nil {
			return nil, err
		}
		setups = append(setups, setup)
	}
	return setups, nil
}

func buildSetup(sc SetupConfig) (strategy.Setup, error) {
	params := strategy.Params{
		ID:           sc.ID,
		TargetPnl:    sc.Target,
		StopLossPnl:  sc.StopLoss,
		EntryTick:    sc.EntryTick,
		CloseTickIdx: sc.CloseTick,
		Selection:    strategy.Selection(sc.StrikeSelection),
		ScalpPrice:   sc.ScalpPrice,
		StrikesAway:  sc.StrikesAway,
		Quantity:     sc.Quantity,
		LotSize:      sc.LotSize,
		Slippage:     sc.Slippage,
	}
	scalperCfg := strategy.ScalperConfig{
		MaxEntries:  sc.MaxEntries,
		ReentryGap:  sc.ReentryGap,
		GuardWindow: sc.GuardWindow,
	}

	switch strings.ToLower(sc.Kind) {
	case "straddle":
		return strategy.NewStraddle(params)
	case "hedged_straddle":
		return strategy.NewHedgedStraddle(params, sc.HedgeStrikesAway)
	case "ce_scalper":
		return strategy.NewCEScalper(params, scalperCfg)
	case "pe_scalper":
		return strategy.NewPEScalper(params, scalperCfg)
	default:
		return nil, errors.NewConfigError("kind", sc.Kind, "unknown setup kind")
	}
}
