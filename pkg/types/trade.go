package types

import "time"

// TradeAction enumerates the simulator's per-bar action codes from
// spec.md §4.4 (1=open, 4=close; 0=no action).
type TradeAction int

const (
	ActionNone       TradeAction = 0
	ActionOpen       TradeAction = 1
	ActionClose      TradeAction = 4
)

// PositionType labels the open/close event recorded on a bar.
type PositionType string

const (
	PositionNone       PositionType = ""
	PositionNewLong    PositionType = "new_long"
	PositionNewShort   PositionType = "new_short"
	PositionCloseLong  PositionType = "close_long"
	PositionCloseShort PositionType = "close_short"
)

// TradeRecord is one row of the per-task trade-record table from
// spec.md §4.4, one row per bar from warmupEnd onward.
type TradeRecord struct {
	Time               time.Time
	Open, High, Low, Close float64
	PositionType       PositionType
	OpenPrice          float64
	ClosePrice         float64
	PositionSize       float64 // +1 long, -1 short, 0 flat
	Return             float64 // bar return while in position
	TradeGroupID       string
	TradeAction        TradeAction
	OpenTime           time.Time
	CloseTime          time.Time
	ParameterSetID     string
	EquityValue        float64 // equity * 100
	TransactionCost    float64
	SlippageCost       float64
	PredictorValue     float64
	EntrySignal        float64
	ExitSignal         float64
	HoldingPeriodCount int
	HoldingPeriod      int     // only set on close bars
	TradeReturn        float64 // only set on close bars
	HasTradeReturn     bool
	BacktestID         string
}

// BacktestResult is one task's outcome from runBacktests (spec.md §4.5):
// either a populated record table, or an error with empty records.
type BacktestResult struct {
	BacktestID     string
	StrategyIndex  int
	ParameterSetID string
	Predictor      string
	Records        []TradeRecord
	Warning        string
	Err            error
}
