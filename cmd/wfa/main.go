// cmd/wfa is a thin CLI entrypoint wiring the CSV bar loader, strategy
// and WFA config documents, and internal/wfa.Run into a console summary
// table and file exports (spec.md §4.9/§6). Grounded on the teacher's
// cmd/backtest/main.go flag-parsed entrypoint, adapted from a single
// backtest run to the nested walk-forward loop.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"github.com/lo2cin4bt/backtest-engine/internal/backtest"
	"github.com/lo2cin4bt/backtest-engine/internal/config"
	"github.com/lo2cin4bt/backtest-engine/internal/export"
	"github.com/lo2cin4bt/backtest-engine/internal/logger"
	"github.com/lo2cin4bt/backtest-engine/internal/wfa"
	"github.com/lo2cin4bt/backtest-engine/pkg/dataloader"
	"github.com/lo2cin4bt/backtest-engine/pkg/types"
)

func main() {
	_ = godotenv.Load()

	dataPath := flag.String("data", "", "bar CSV file (time,open,high,low,close,volume)")
	strategyPath := flag.String("strategy", "", "strategy document JSON path")
	wfaPath := flag.String("wfa", "", "WFA document JSON path")
	outDir := flag.String("out", "results", "output directory for exported WFA summary")
	format := flag.String("format", "csv", "export format: csv|xlsx")
	flag.Parse()

	if *dataPath == "" || *strategyPath == "" || *wfaPath == "" {
		fmt.Fprintln(os.Stderr, "usage: wfa -data bars.csv -strategy strategy.json -wfa wfa.json [-out results] [-format csv]")
		os.Exit(2)
	}

	runtimeCfg := config.Load()
	log, err := logger.New("wfa", runtimeCfg.LogDir, runtimeCfg.DebugMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Close()

	series, err := dataloader.LoadSeries(*dataPath, dataloader.DefaultColumnMapping)
	if err != nil {
		log.Error("load series: %v", err)
		os.Exit(1)
	}

	strategyDoc, err := config.LoadStrategyDocument(*strategyPath)
	if err != nil {
		log.Error("load strategy document: %v", err)
		os.Exit(1)
	}
	wfaDoc, err := config.LoadWFADocument(*wfaPath)
	if err != nil {
		log.Error("load wfa document: %v", err)
		os.Exit(1)
	}

	pairs := make([]backtest.ConditionPair, len(strategyDoc.ConditionPairs))
	for i, p := range strategyDoc.ConditionPairs {
		pairs[i] = backtest.ConditionPair{Entry: p.Entry, Exit: p.Exit}
	}

	mode := wfa.ModeStandard
	if wfaDoc.Mode == string(wfa.ModeAnchored) {
		mode = wfa.ModeAnchored
	}

	runCfg := wfa.RunConfig{
		Series:         series,
		ConditionPairs: pairs,
		IndicatorParams: strategyDoc.IndicatorParams,
		Predictors:     strategyDoc.Predictors,
		TradingParams: types.TradingParams{
			TransactionCost: strategyDoc.TradingParams.TransactionCost,
			Slippage:        strategyDoc.TradingParams.Slippage,
			TradeDelay:      strategyDoc.TradingParams.TradeDelay,
			TradePrice:      strategyDoc.TradingParams.TradePrice,
		},
		InitialEquity: 1.0,
		Mode:          mode,
		TrainPct:      wfaDoc.TrainSetPercentage,
		TestPct:       wfaDoc.TestSetPercentage,
		StepSize:      wfaDoc.StepSize,
		Objectives:    wfaDoc.OptimizationObjectives,
		Logger:        log,
	}

	rows, err := wfa.Run(runCfg)
	if err != nil {
		log.Error("wfa run: %v", err)
		os.Exit(1)
	}

	printSummary(rows)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Error("create output dir: %v", err)
		os.Exit(1)
	}
	if err := exportRows(rows, *outDir, *format); err != nil {
		log.Error("export wfa rows: %v", err)
		os.Exit(1)
	}
	log.Info("wrote %d wfa rows to %s", len(rows), *outDir)
}

func printSummary(rows []wfa.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("WALK-FORWARD SUMMARY")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Window", "Pair", "Combo", "Objective", "IS Metric", "OOS Sharpe", "OOS TotalReturn"})

	for _, r := range rows {
		t.AppendRow(table.Row{
			r.WindowID, r.ConditionPairID, r.ParamCombinationID, r.Objective,
			fmt.Sprintf("%.4f", r.InSampleMetric),
			fmt.Sprintf("%.4f", r.OutOfSampleMetrics.Sharpe),
			fmt.Sprintf("%.4f", r.OutOfSampleMetrics.TotalReturn),
		})
	}
	t.Render()
	fmt.Println()
}

func exportRows(rows []wfa.Row, outDir, format string) error {
	path := fmt.Sprintf("%s/wfa_summary.%s", outDir, format)
	summary := make([]export.WFASummaryRow, len(rows))
	for i, r := range rows {
		summary[i] = export.WFASummaryRow{
			WindowID:               r.WindowID,
			ConditionPairID:        r.ConditionPairID,
			ParamCombinationID:     r.ParamCombinationID,
			Objective:              r.Objective,
			InSampleMetric:         r.InSampleMetric,
			OutOfSampleSharpe:      r.OutOfSampleMetrics.Sharpe,
			OutOfSampleTotalReturn: r.OutOfSampleMetrics.TotalReturn,
			OutOfSampleMaxDrawdown: r.OutOfSampleMetrics.MaxDrawdown,
			ParamSetID:             r.OutOfSampleParamSetID,
		}
	}
	if format == "xlsx" {
		return export.NewXLSXWriter().WriteWFASummary(summary, path)
	}
	return export.NewCSVWriter().WriteWFASummaryCSV(summary, path)
}
