package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lo2cin4bt/backtest-engine/pkg/types"
)

func mkBacktestResult() types.BacktestResult {
	return types.BacktestResult{
		BacktestID:     "bt-1",
		ParameterSetID: "ps-1",
		Records: []types.TradeRecord{
			{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Open: 10, High: 11, Low: 9, Close: 10.5,
				PositionType: types.PositionNewLong, TradeAction: types.ActionOpen, EquityValue: 1.0},
			{Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 10.5, High: 12, Low: 10, Close: 11.5,
				PositionType: types.PositionCloseLong, TradeAction: types.ActionClose, EquityValue: 1.1, HasTradeReturn: true, TradeReturn: 0.1},
		},
	}
}

// TestCSVWriter_WriteTrades_WritesHeaderAndOneRowPerRecord writes one
// data row per trade record, preceded by the fixed trade header row.
func TestCSVWriter_WriteTrades_WritesHeaderAndOneRowPerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	result := mkBacktestResult()

	require.NoError(t, NewCSVWriter().WriteTrades(result, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 trade rows
	assert.Equal(t, tradeHeaders, records[0])
	assert.Equal(t, "bt-1", records[1][0])
}

// TestCSVWriter_WriteTrades_CreatesParentDirectories writes through a
// nonexistent intermediate directory.
func TestCSVWriter_WriteTrades_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "trades.csv")
	require.NoError(t, NewCSVWriter().WriteTrades(mkBacktestResult(), path))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

// TestCSVWriter_WriteWFASummaryCSV_WritesOneRowPerSummaryRow writes the
// fixed WFA summary header followed by one row per WFASummaryRow.
func TestCSVWriter_WriteWFASummaryCSV_WritesOneRowPerSummaryRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wfa_summary.csv")
	rows := []WFASummaryRow{
		{WindowID: 0, ConditionPairID: 0, ParamCombinationID: 1, Objective: "sharpe", InSampleMetric: 1.2, OutOfSampleSharpe: 0.9, ParamSetID: "ps-1"},
		{WindowID: 1, ConditionPairID: 0, ParamCombinationID: 1, Objective: "sharpe", InSampleMetric: 1.1, OutOfSampleSharpe: 0.8, ParamSetID: "ps-2"},
	}

	require.NoError(t, NewCSVWriter().WriteWFASummaryCSV(rows, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, wfaSummaryHeaders, records[0])
	assert.Equal(t, "ps-2", records[2][len(records[2])-1])
}

// TestFormatTime_ZeroValue_ReturnsEmptyString leaves an unset time as an
// empty CSV field instead of Go's zero-time string.
func TestFormatTime_ZeroValue_ReturnsEmptyString(t *testing.T) {
	assert.Equal(t, "", formatTime(time.Time{}))
}
