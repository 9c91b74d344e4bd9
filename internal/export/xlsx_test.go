package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// TestXLSXWriter_WriteTrades_WritesHeaderAndTradeRows writes the
// "Trades" sheet with the fixed header row followed by one row per
// trade record.
func TestXLSXWriter_WriteTrades_WritesHeaderAndTradeRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.xlsx")
	result := mkBacktestResult()

	require.NoError(t, NewXLSXWriter().WriteTrades(result, path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	rows, err := fx.GetRows("Trades")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, tradeHeaders[0], rows[0][0])
	assert.Equal(t, "bt-1", rows[1][0])
}

// TestXLSXWriter_WriteWFASummary_WritesOneRowPerSummaryRow writes the
// "WFA Summary" sheet with one data row per WFASummaryRow.
func TestXLSXWriter_WriteWFASummary_WritesOneRowPerSummaryRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wfa_summary.xlsx")
	summaryRows := []WFASummaryRow{
		{WindowID: 0, ConditionPairID: 0, ParamCombinationID: 1, Objective: "sharpe", ParamSetID: "ps-1"},
	}

	require.NoError(t, NewXLSXWriter().WriteWFASummary(summaryRows, path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	rows, err := fx.GetRows("WFA Summary")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, wfaSummaryHeaders[0], rows[0][0])
}

// TestColumnLetter_MapsIndexToExcelColumnName matches excelize's own
// 1-indexed column naming.
func TestColumnLetter_MapsIndexToExcelColumnName(t *testing.T) {
	assert.Equal(t, "A", columnLetter(1))
	assert.Equal(t, "Z", columnLetter(26))
	assert.Equal(t, "AA", columnLetter(27))
}
