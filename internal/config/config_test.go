package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-backtester/internal/errors"
	"options-backtester/internal/strategy"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backtest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `
data_path: testdata
symbol: NIFTY
start_date: "2024-01-01"
end_date: "2024-01-31"
daily_max_loss: 1000
setups:
  - id: straddle_1
    kind: straddle
    target: 50
    stop_loss: 100
    entry_tick: 930
  - id: hedged_1
    kind: hedged_straddle
    target: 75
    stop_loss: 150
    entry_tick: 930
    hedge_strikes_away: 4
  - id: ce_scalp
    kind: ce_scalper
    target: 40
    stop_loss: 80
    entry_tick: 1000
    max_entries: 2
    reentry_gap: 200
  - id: pe_scalp
    kind: pe_scalper
    target: 40
    stop_loss: 80
    entry_tick: 1000
    strike_selection: distance
    strikes_away: 3
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "NIFTY", cfg.Symbol)
	assert.Equal(t, "testdata", cfg.DataPath)
	assert.Equal(t, 1000.0, cfg.DailyMaxLoss)
	assert.Equal(t, "backtest_reports", cfg.ReportDir)
	require.Len(t, cfg.Setups, 4)
}

func TestBuildSetupsAllKinds(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	setups, err := cfg.BuildSetups()
	require.NoError(t, err)
	require.Len(t, setups, 4)

	assert.Equal(t, "straddle_1", setups[0].ID())
	assert.IsType(t, &strategy.Straddle{}, setups[0])
	assert.IsType(t, &strategy.HedgedStraddle{}, setups[1])

	ce, ok := setups[2].(*strategy.Scalper)
	require.True(t, ok)
	assert.Equal(t, "CE", string(ce.OptionType()))

	pe, ok := setups[3].(*strategy.Scalper)
	require.True(t, ok)
	assert.Equal(t, "PE", string(pe.OptionType()))
}

func TestUnknownSetupKind(t *testing.T) {
	content := `
symbol: NIFTY
start_date: "2024-01-01"
end_date: "2024-01-31"
setups:
  - id: x
    kind: iron_condor
    target: 50
    stop_loss: 100
`
	cfg, err := Load(writeConfig(t, content))
	require.NoError(t, err)

	_, err = cfg.BuildSetups()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)
}

func TestInvalidSetupParamsFailBuild(t *testing.T) {
	content := `
symbol: NIFTY
start_date: "2024-01-01"
end_date: "2024-01-31"
setups:
  - id: x
    kind: straddle
    target: -5
    stop_loss: 100
`
	cfg, err := Load(writeConfig(t, content))
	require.NoError(t, err)

	_, err = cfg.BuildSetups()
	assert.ErrorIs(t, err, errors.ErrConfigInvalid)
}

func TestValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing symbol", `
start_date: "2024-01-01"
end_date: "2024-01-31"
setups: [{id: x, kind: straddle, target: 50, stop_loss: 100}]
`},
		{"missing dates", `
symbol: NIFTY
setups: [{id: x, kind: straddle, target: 50, stop_loss: 100}]
`},
		{"inverted range", `
symbol: NIFTY
start_date: "2024-02-01"
end_date: "2024-01-01"
setups: [{id: x, kind: straddle, target: 50, stop_loss: 100}]
`},
		{"no setups", `
symbol: NIFTY
start_date: "2024-01-01"
end_date: "2024-01-31"
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.ErrorIs(t, err, errors.ErrConfigInvalid)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
