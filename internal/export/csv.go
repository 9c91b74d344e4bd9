// Package export writes BacktestResult and WFA result tables to the
// external formats spec.md §6 names: CSV (stdlib encoding/csv), Parquet
// (xitongsys/parquet-go), and XLSX (xuri/excelize/v2). Grounded on the
// teacher's pkg/reporting package (csv.go/excel.go), generalized from
// DCA-cycle rows to backtest/WFA trade rows.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lo2cin4bt/backtest-engine/pkg/types"
)

// CSVWriter writes one BacktestResult's trade-record table to a CSV file.
type CSVWriter struct{}

func NewCSVWriter() *CSVWriter { return &CSVWriter{} }

var tradeHeaders = []string{
	"BacktestID", "ParameterSetID", "Time", "Open", "High", "Low", "Close",
	"PositionType", "PositionSize", "Return", "TradeAction", "TradeGroupID",
	"OpenPrice", "ClosePrice", "OpenTime", "CloseTime", "HoldingPeriod",
	"TradeReturn", "EquityValue", "TransactionCost", "SlippageCost",
	"PredictorValue", "EntrySignal", "ExitSignal",
}

// WriteTrades writes result.Records to path, creating parent directories
// as needed.
func (w *CSVWriter) WriteTrades(result types.BacktestResult, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write(tradeHeaders); err != nil {
		return err
	}
	for _, r := range result.Records {
		if err := cw.Write(tradeRow(result, r)); err != nil {
			return err
		}
	}
	return nil
}

func tradeRow(result types.BacktestResult, r types.TradeRecord) []string {
	return []string{
		result.BacktestID,
		result.ParameterSetID,
		r.Time.Format("2006-01-02T15:04:05Z07:00"),
		strconv.FormatFloat(r.Open, 'f', -1, 64),
		strconv.FormatFloat(r.High, 'f', -1, 64),
		strconv.FormatFloat(r.Low, 'f', -1, 64),
		strconv.FormatFloat(r.Close, 'f', -1, 64),
		string(r.PositionType),
		strconv.FormatFloat(r.PositionSize, 'f', -1, 64),
		strconv.FormatFloat(r.Return, 'f', -1, 64),
		strconv.Itoa(int(r.TradeAction)),
		r.TradeGroupID,
		strconv.FormatFloat(r.OpenPrice, 'f', -1, 64),
		strconv.FormatFloat(r.ClosePrice, 'f', -1, 64),
		formatTime(r.OpenTime),
		formatTime(r.CloseTime),
		strconv.Itoa(r.HoldingPeriod),
		strconv.FormatFloat(r.TradeReturn, 'f', -1, 64),
		strconv.FormatFloat(r.EquityValue, 'f', -1, 64),
		strconv.FormatFloat(r.TransactionCost, 'f', -1, 64),
		strconv.FormatFloat(r.SlippageCost, 'f', -1, 64),
		strconv.FormatFloat(r.PredictorValue, 'f', -1, 64),
		strconv.FormatFloat(r.EntrySignal, 'f', -1, 64),
		strconv.FormatFloat(r.ExitSignal, 'f', -1, 64),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02T15:04:05Z07:00")
}

// WriteWFASummaryCSV writes one row per WFASummaryRow to path.
func (w *CSVWriter) WriteWFASummaryCSV(rows []WFASummaryRow, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write(wfaSummaryHeaders); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.WindowID),
			strconv.Itoa(r.ConditionPairID),
			strconv.Itoa(r.ParamCombinationID),
			r.Objective,
			strconv.FormatFloat(r.InSampleMetric, 'f', -1, 64),
			strconv.FormatFloat(r.OutOfSampleSharpe, 'f', -1, 64),
			strconv.FormatFloat(r.OutOfSampleTotalReturn, 'f', -1, 64),
			strconv.FormatFloat(r.OutOfSampleMaxDrawdown, 'f', -1, 64),
			r.ParamSetID,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return nil
}
