package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/lo2cin4bt/backtest-engine/pkg/types"
)

// XLSXWriter writes a BacktestResult (and optionally a WFA bundle summary)
// to a styled workbook, grounded on the teacher's pkg/reporting/excel.go
// header/style/row pattern, generalized from DCA cycles to trade records.
type XLSXWriter struct{}

func NewXLSXWriter() *XLSXWriter { return &XLSXWriter{} }

// WriteTrades writes result.Records to a single "Trades" sheet.
func (w *XLSXWriter) WriteTrades(result types.BacktestResult, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const sheet = "Trades"
	fx.SetSheetName(fx.GetSheetName(0), sheet)

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	for i, h := range tradeHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for row, r := range result.Records {
		excelRow := row + 2
		values := []interface{}{
			result.BacktestID, result.ParameterSetID, formatTime(r.Time),
			r.Open, r.High, r.Low, r.Close,
			string(r.PositionType), r.PositionSize, r.Return, int(r.TradeAction),
			r.TradeGroupID, r.OpenPrice, r.ClosePrice, formatTime(r.OpenTime), formatTime(r.CloseTime),
			r.HoldingPeriod, r.TradeReturn, r.EquityValue, r.TransactionCost, r.SlippageCost,
			r.PredictorValue, r.EntrySignal, r.ExitSignal,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, excelRow)
			fx.SetCellValue(sheet, cell, v)
		}
	}

	if len(result.Records) > 0 {
		fx.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", columnLetter(len(tradeHeaders)), len(result.Records)+1), []excelize.AutoFilterOptions{})
	}

	return fx.SaveAs(path)
}

// WFASummaryRow is one row of the "WFA Summary" sheet WriteWFASummary
// writes, one per wfa.Row; the caller passes already-flattened rows to
// avoid an import cycle with internal/wfa.
type WFASummaryRow struct {
	WindowID           int
	ConditionPairID     int
	ParamCombinationID  int
	Objective           string
	InSampleMetric       float64
	OutOfSampleSharpe     float64
	OutOfSampleTotalReturn float64
	OutOfSampleMaxDrawdown float64
	ParamSetID           string
}

var wfaSummaryHeaders = []string{
	"WindowID", "ConditionPairID", "ParamCombinationID", "Objective",
	"InSampleMetric", "OOSSharpe", "OOSTotalReturn", "OOSMaxDrawdown", "ParamSetID",
}

func (w *XLSXWriter) WriteWFASummary(rows []WFASummaryRow, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const sheet = "WFA Summary"
	fx.SetSheetName(fx.GetSheetName(0), sheet)

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	for i, h := range wfaSummaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i, r := range rows {
		excelRow := i + 2
		values := []interface{}{
			r.WindowID, r.ConditionPairID, r.ParamCombinationID, r.Objective,
			r.InSampleMetric, r.OutOfSampleSharpe, r.OutOfSampleTotalReturn, r.OutOfSampleMaxDrawdown, r.ParamSetID,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, excelRow)
			fx.SetCellValue(sheet, cell, v)
		}
	}

	return fx.SaveAs(path)
}

func columnLetter(n int) string {
	name, _ := excelize.ColumnNumberToName(n)
	return name
}
