package models

// Trade is the immutable closure record of a position. Entry and exit prices
// are the unadjusted quotes; slippage shows up only in Pnl.
type Trade struct {
	SetupID     string
	EntryTick   int
	ExitTick    int
	EntryPrices map[LegKey]float64
	ExitPrices  map[LegKey]float64
	Strikes     []float64
	Quantity    int
	Pnl         float64
	ExitReason  ExitReason
	Date        string
}

// DailyResult summarizes one trading day.
type DailyResult struct {
	Date         string
	Pnl          float64
	TradeCount   int
	ForcedClosed int // positions closed with JOB_END at the cutoff
	SetupPnls    map[string]float64
}

// SetupResult holds aggregate statistics for one strategy across the run.
type SetupResult struct {
	SetupID    string
	TotalPnl   float64
	TradeCount int
	WinRate    float64
	AvgWin     float64
	AvgLoss    float64
}

// BacktestResults is the full output of a multi-day run.
type BacktestResults struct {
	TotalPnl    float64
	Days        []DailyResult
	Trades      []Trade
	Setups      map[string]SetupResult
	WinRate     float64
	MaxDrawdown float64
	TotalTrades int
}
