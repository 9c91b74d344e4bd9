package wfa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lo2cin4bt/backtest-engine/internal/backtest"
	"github.com/lo2cin4bt/backtest-engine/internal/params"
	"github.com/lo2cin4bt/backtest-engine/pkg/types"
)

func mkOptimizerSeries(n int) *types.Series {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &types.Series{}
	for i := 0; i < n; i++ {
		c := 100 + float64(i%12) - float64((i/6)%4)
		s.Time = append(s.Time, base.AddDate(0, 0, i))
		s.Open = append(s.Open, c)
		s.High = append(s.High, c+1)
		s.Low = append(s.Low, c-1)
		s.Close = append(s.Close, c)
	}
	return s
}

// TestValidateVariableCount_TwoVariables_Passes allows exactly two
// variable parameters, one entry-side and one exit-side.
func TestValidateVariableCount_TwoVariables_Passes(t *testing.T) {
	entryByID := map[string][]params.Params{
		"a": {{Values: map[string]any{"period": 3}}},
		"b": {{Values: map[string]any{"period": 5}}},
	}
	exitByID := map[string][]params.Params{
		"a": {{Values: map[string]any{"period": 4}}},
		"b": {{Values: map[string]any{"period": 6}}},
	}
	assert.NoError(t, validateVariableCount(entryByID, exitByID))
}

// TestValidateVariableCount_ThreeVariables_Errors rejects a search space
// with more than two distinct variable parameters across entry and exit.
func TestValidateVariableCount_ThreeVariables_Errors(t *testing.T) {
	entryByID := map[string][]params.Params{
		"a": {{Values: map[string]any{"period": 3, "short": 1}}},
		"b": {{Values: map[string]any{"period": 5, "short": 2}}},
	}
	exitByID := map[string][]params.Params{
		"a": {{Values: map[string]any{"period": 4}}},
		"b": {{Values: map[string]any{"period": 6}}},
	}
	assert.Error(t, validateVariableCount(entryByID, exitByID))
}

// TestFindVariableKeys_OneEntryOneExit_ReturnsBothKeys identifies the
// sole varying key on each side.
func TestFindVariableKeys_OneEntryOneExit_ReturnsBothKeys(t *testing.T) {
	entryByID := map[string][]params.Params{
		"a": {{Values: map[string]any{"period": 3}}},
		"b": {{Values: map[string]any{"period": 5}}},
	}
	exitByID := map[string][]params.Params{
		"a": {{Values: map[string]any{"m": 4}}},
		"b": {{Values: map[string]any{"m": 6}}},
	}
	k1, k2, ok := findVariableKeys(entryByID, exitByID)
	require.True(t, ok)
	assert.Equal(t, "period", k1)
	assert.Equal(t, "m", k2)
}

// TestUniqueSorted_DedupsAndOrdersAscending removes duplicate values and
// returns them in ascending order.
func TestUniqueSorted_DedupsAndOrdersAscending(t *testing.T) {
	out := uniqueSorted([]float64{3, 1, 2, 1, 3})
	assert.Equal(t, []float64{1, 2, 3}, out)
}

// TestPrefixSumAndWindowSum_MatchesDirectSum computes a 2x2 window sum
// via the prefix-sum trick identically to a direct nested loop.
func TestPrefixSumAndWindowSum_MatchesDirectSum(t *testing.T) {
	m := [][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
	}
	prefix := prefixSum(m)
	got := windowSum(prefix, 0, 0, 2)
	assert.Equal(t, 1.0+2+4+5, got)
}

// TestObjectiveMetric_DispatchesByObjectiveName routes known objective
// names to the corresponding metrics.Result field, defaulting to Sharpe.
func TestObjectiveMetric_DispatchesByObjectiveName(t *testing.T) {
	records := []types.TradeRecord{
		{Time: time.Unix(0, 0), Close: 100, EquityValue: 1.0, TradeAction: types.ActionOpen},
		{Time: time.Unix(86400, 0), Close: 110, Return: 0.1, EquityValue: 1.1, TradeAction: types.ActionClose, HasTradeReturn: true, TradeReturn: 0.1},
	}
	sharpe := objectiveMetric(records, "sharpe")
	unknown := objectiveMetric(records, "bogus")
	assert.Equal(t, sharpe, unknown)
}

// TestOptimize_EndToEnd_ReturnsFallbackOnSmallAxes falls back to a
// single best cell when the variable axes have fewer than three
// distinct values each.
func TestOptimize_EndToEnd_ReturnsFallbackOnSmallAxes(t *testing.T) {
	series := mkOptimizerSeries(60)
	pair := backtest.ConditionPair{Entry: []string{"MA1"}, Exit: []string{"MA3"}}
	indicatorParams := map[string]map[string]any{
		"MA1": {"ma_range": "3,5"},
		"MA3": {"ma_range": "4,6"},
	}
	region, err := Optimize(series, pair, indicatorParams, nil, types.TradingParams{TradePrice: "close"}, "sharpe")
	require.NoError(t, err)
	assert.True(t, region.Fallback)
}
