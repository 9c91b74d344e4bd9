package wfa

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lo2cin4bt/backtest-engine/internal/backtest"
	"github.com/lo2cin4bt/backtest-engine/pkg/types"
)

// TestRun_StandardMode_TagsEveryRow runs the full walk-forward loop
// end-to-end and tags every row with the window and condition-pair IDs
// it was produced for.
func TestRun_StandardMode_TagsEveryRow(t *testing.T) {
	series := mkOptimizerSeries(120)
	cfg := RunConfig{
		Series:         series,
		ConditionPairs: []backtest.ConditionPair{{Entry: []string{"MA1"}, Exit: []string{"MA3"}}},
		IndicatorParams: map[string]map[string]any{
			"MA1": {"ma_range": "3,5"},
			"MA3": {"ma_range": "4,6"},
		},
		TradingParams: types.TradingParams{TradePrice: "close"},
		InitialEquity: 1.0,
		Mode:          ModeStandard,
		TrainPct:      0.6,
		TestPct:       0.2,
		StepSize:      20,
		Objectives:    []string{"sharpe"},
	}

	rows, err := Run(cfg)
	require.NoError(t, err)
	for _, r := range rows {
		assert.GreaterOrEqual(t, r.WindowID, 0)
		assert.Equal(t, 0, r.ConditionPairID)
		assert.Equal(t, "sharpe", r.Objective)
	}
}

// TestRun_OptimiserFailsInEveryWindow_ReturnsEmptyRowsWithoutError a
// 3-bar series yields one window whose fixed (non-variable) parameters
// make the optimiser fail; that slot is skipped rather than aborting the
// whole run, so the result is no rows and no error.
func TestRun_OptimiserFailsInEveryWindow_ReturnsEmptyRowsWithoutError(t *testing.T) {
	series := mkOptimizerSeries(3)
	cfg := RunConfig{
		Series:         series,
		ConditionPairs: []backtest.ConditionPair{{Entry: []string{"MA1"}, Exit: []string{"MA3"}}},
		IndicatorParams: map[string]map[string]any{
			"MA1": {"ma_range": "3"},
			"MA3": {"ma_range": "4"},
		},
		TradingParams: types.TradingParams{TradePrice: "close"},
		InitialEquity: 1.0,
		Mode:          ModeStandard,
		TrainPct:      0.6,
		TestPct:       0.2,
		StepSize:      20,
		Objectives:    []string{"sharpe"},
	}

	rows, err := Run(cfg)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// TestObjectiveResult_EmptyRecords_ReturnsNaNResult computes a
// well-defined (not panicking) all-NaN result from an empty trade-record
// slice.
func TestObjectiveResult_EmptyRecords_ReturnsNaNResult(t *testing.T) {
	res := objectiveResult(nil)
	assert.True(t, math.IsNaN(res.TotalReturn))
}

// TestEvaluateRegion_FallbackCell_ProducesOneRow falls back to a single
// combination when the region carries only a BestCell, tagging it as
// ParamCombinationID 1.
func TestEvaluateRegion_FallbackCell_ProducesOneRow(t *testing.T) {
	series := mkOptimizerSeries(40)
	cell, ok := buildSmokeCell(series)
	require.True(t, ok)
	region := GridRegion{Fallback: true, BestCell: cell}
	cfg := RunConfig{
		TradingParams: types.TradingParams{TradePrice: "close"},
		InitialEquity: 1.0,
	}
	rows := evaluateRegion(series, region, cfg, 0, 0, "sharpe")
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].ParamCombinationID)
}

func buildSmokeCell(series *types.Series) (Cell, bool) {
	pair := backtest.ConditionPair{Entry: []string{"MA1"}, Exit: []string{"MA3"}}
	region, err := Optimize(series, pair, map[string]map[string]any{
		"MA1": {"ma_range": "3,5"},
		"MA3": {"ma_range": "4,6"},
	}, nil, types.TradingParams{TradePrice: "close"}, "sharpe")
	if err != nil {
		return Cell{}, false
	}
	if region.Fallback {
		return region.BestCell, region.BestCell.Entry != nil
	}
	if len(region.Cells) == 0 {
		return Cell{}, false
	}
	return region.Cells[0], region.Cells[0].Entry != nil
}
