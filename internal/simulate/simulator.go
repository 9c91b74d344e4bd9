// Package simulate implements the C4 trade simulator from spec.md §4.4:
// a bar-by-bar Flat/Long/Short state machine that turns a combined
// entry/exit signal pair into a trade-record table. Grounded on
// original_source/backtester/TradeSimulator_backtester.py, reworked from
// a pandas row-loop into a typed Go state machine over pkg/types.Series.
package simulate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	engerrors "github.com/lo2cin4bt/backtest-engine/internal/errors"
	"github.com/lo2cin4bt/backtest-engine/pkg/types"
)

type position int

const (
	flat position = 0
	long position = 1
	short position = -1
)

// Simulate runs one task's signal pair through the Flat/Long/Short state
// machine, starting at warmupEnd, and returns its trade-record table.
// An all-zero signal stream is not an error: it yields an all-flat table
// and a non-empty warning string (spec.md §4.4 failure modes).
func Simulate(series *types.Series, entry, exit []float64, tp types.TradingParams, parameterSetID, backtestID string, predictor string, warmupEnd int, initialEquity float64) ([]types.TradeRecord, string, error) {
	tradePriceCol, ok := series.TradePrice(tp.TradePrice)
	if !ok {
		return nil, "", engerrors.New(engerrors.KindMissingColumn, "simulate", "Simulate",
			fmt.Sprintf("trade price column %q not found", tp.TradePrice))
	}
	if series.Close == nil {
		return nil, "", engerrors.New(engerrors.KindMissingColumn, "simulate", "Simulate", "Close column not found")
	}

	n := series.Len()
	records := make([]types.TradeRecord, 0, n-warmupEnd)

	pos := flat
	equity := initialEquity
	tradeGroupID := ""
	holdingCount := 0
	openPrice := 0.0
	openTime := time.Time{}
	tradeCount := 0

	var predictorValues []float64
	if predictor != "" {
		predictorValues, _ = series.Predictor(predictor)
	}

	for i := warmupEnd; i < n; i++ {
		signalIdx := i - tp.TradeDelay
		var e, x float64
		if signalIdx >= 0 && signalIdx < len(entry) {
			e = entry[signalIdx]
		}
		if signalIdx >= 0 && signalIdx < len(exit) {
			x = exit[signalIdx]
		}

		if pos != flat {
			holdingCount++
		} else {
			holdingCount = 0
		}

		ret := 0.0
		if i > 0 && pos != flat {
			prevClose := series.Close[i-1]
			ret = (series.Close[i] - prevClose) / prevClose * float64(pos)
			equity *= (1 + ret)
		}

		rec := types.TradeRecord{
			Time:               series.Time[i],
			Open:               series.Open[i],
			High:               series.High[i],
			Low:                series.Low[i],
			Close:              series.Close[i],
			PositionSize:       float64(pos),
			Return:             ret,
			TradeGroupID:       tradeGroupID,
			ParameterSetID:     parameterSetID,
			EquityValue:        equity * 100,
			EntrySignal:        e,
			ExitSignal:         x,
			HoldingPeriodCount: holdingCount,
			BacktestID:         backtestID,
		}
		if predictorValues != nil {
			rec.PredictorValue = predictorValues[i]
		}

		price := tradePriceCol[i]

		switch {
		case pos == flat && e == 1:
			tradeGroupID = "T" + uuid.NewString()[:8]
			rec.TradeAction = types.ActionOpen
			rec.PositionType = types.PositionNewLong
			rec.OpenPrice = price
			rec.PositionSize = 1
			rec.OpenTime = series.Time[i]
			rec.TradeGroupID = tradeGroupID
			equity *= (1 - tp.Slippage) * (1 - tp.TransactionCost)
			rec.SlippageCost = tp.Slippage
			rec.TransactionCost = tp.TransactionCost
			rec.EquityValue = equity * 100
			pos = long
			openPrice, openTime = price, series.Time[i]
			tradeCount++

		case pos == flat && e == -1:
			tradeGroupID = "T" + uuid.NewString()[:8]
			rec.TradeAction = types.ActionOpen
			rec.PositionType = types.PositionNewShort
			rec.OpenPrice = price
			rec.PositionSize = -1
			rec.OpenTime = series.Time[i]
			rec.TradeGroupID = tradeGroupID
			equity *= (1 - tp.Slippage) * (1 - tp.TransactionCost)
			rec.SlippageCost = tp.Slippage
			rec.TransactionCost = tp.TransactionCost
			rec.EquityValue = equity * 100
			pos = short
			openPrice, openTime = price, series.Time[i]
			tradeCount++

		case pos == long && x == -1:
			rec.TradeAction = types.ActionClose
			rec.PositionType = types.PositionCloseLong
			rec.ClosePrice = price
			rec.PositionSize = 0
			rec.CloseTime = series.Time[i]
			rec.TradeGroupID = tradeGroupID
			equity *= (1 - tp.Slippage) * (1 - tp.TransactionCost)
			rec.SlippageCost = tp.Slippage
			rec.TransactionCost = tp.TransactionCost
			rec.EquityValue = equity * 100
			rec.HoldingPeriod = holdingDays(openTime, series.Time[i])
			if openPrice != 0 {
				rec.TradeReturn = (price - openPrice) / openPrice * 100
				rec.HasTradeReturn = true
			}
			pos = flat
			holdingCount = 0

		case pos == short && x == 1:
			rec.TradeAction = types.ActionClose
			rec.PositionType = types.PositionCloseShort
			rec.ClosePrice = price
			rec.PositionSize = 0
			rec.CloseTime = series.Time[i]
			rec.TradeGroupID = tradeGroupID
			equity *= (1 - tp.Slippage) * (1 - tp.TransactionCost)
			rec.SlippageCost = tp.Slippage
			rec.TransactionCost = tp.TransactionCost
			rec.EquityValue = equity * 100
			rec.HoldingPeriod = holdingDays(openTime, series.Time[i])
			if openPrice != 0 {
				rec.TradeReturn = -(price - openPrice) / openPrice * 100
				rec.HasTradeReturn = true
			}
			pos = flat
			holdingCount = 0
		}

		records = append(records, rec)
	}

	var warning string
	if tradeCount == 0 {
		warning = fmt.Sprintf("backtest %s produced no trades: check signal distribution or parameters", backtestID)
	}
	return records, warning, nil
}

func holdingDays(open, close time.Time) int {
	if open.IsZero() || close.IsZero() {
		return 1
	}
	days := int(close.Sub(open).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return days
}

// BatchSimulate runs Simulate once per task, sharing the underlying
// series and trading params. spec.md §4.4 describes a single vectorized
// pass over an [N,K] signal matrix; here each task's column is processed
// independently, matching the original's per-column state machine while
// letting the worker pool (internal/backtest) provide the batching
// parallelism instead of a literal shared matrix pass.
type BatchTask struct {
	BacktestID     string
	ParameterSetID string
	Predictor      string
	Entry, Exit    []float64
	WarmupEnd      int
}

func BatchSimulate(series *types.Series, tasks []BatchTask, tp types.TradingParams, initialEquity float64) []types.BacktestResult {
	results := make([]types.BacktestResult, len(tasks))
	for i, task := range tasks {
		records, warning, err := Simulate(series, task.Entry, task.Exit, tp, task.ParameterSetID, task.BacktestID, task.Predictor, task.WarmupEnd, initialEquity)
		results[i] = types.BacktestResult{
			BacktestID:     task.BacktestID,
			ParameterSetID: task.ParameterSetID,
			Predictor:      task.Predictor,
			Records:        records,
			Warning:        warning,
			Err:            err,
		}
	}
	return results
}
