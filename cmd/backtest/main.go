// cmd/backtest is a thin CLI entrypoint wiring a CSV bar loader, the
// strategy document config, and internal/backtest.Engine into a console
// table and file exports. Grounded on the teacher's cmd/backtest/main.go
// flag-parsed entrypoint, generalized from DCA simulation to the
// condition-pair/indicator-params backtest engine.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lo2cin4bt/backtest-engine/internal/backtest"
	"github.com/lo2cin4bt/backtest-engine/internal/config"
	"github.com/lo2cin4bt/backtest-engine/internal/export"
	"github.com/lo2cin4bt/backtest-engine/internal/logger"
	"github.com/lo2cin4bt/backtest-engine/internal/telemetry"
	"github.com/lo2cin4bt/backtest-engine/pkg/dataloader"
	"github.com/lo2cin4bt/backtest-engine/pkg/types"
)

func main() {
	_ = godotenv.Load()

	dataPath := flag.String("data", "", "bar CSV file (time,open,high,low,close,volume)")
	strategyPath := flag.String("strategy", "", "strategy document JSON path")
	outDir := flag.String("out", "results", "output directory for exported trade tables")
	format := flag.String("format", "csv", "export format: csv|parquet|xlsx")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9100)")
	flag.Parse()

	if *dataPath == "" || *strategyPath == "" {
		fmt.Fprintln(os.Stderr, "usage: backtest -data bars.csv -strategy strategy.json [-out results] [-format csv]")
		os.Exit(2)
	}

	runtimeCfg := config.Load()
	log, err := logger.New("backtest", runtimeCfg.LogDir, runtimeCfg.DebugMode)
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

	doc, err := config.LoadStrategyDocument(*strategyPath)
	if err != nil {
		log.Error("load strategy document: %v", err)
		os.Exit(1)
	}

	var recorder telemetry.Recorder
	if *metricsAddr != "" {
		rec, err := telemetry.NewPrometheusRecorder(prometheus.DefaultRegisterer)
		if err != nil {
			log.Error("telemetry setup: %v", err)
			os.Exit(1)
		}
		recorder = rec
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			log.Info("serving metrics on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				log.Error("metrics server: %v", err)
			}
		}()
	}

	pairs := make([]backtest.ConditionPair, len(doc.ConditionPairs))
	for i, p := range doc.ConditionPairs {
		pairs[i] = backtest.ConditionPair{Entry: p.Entry, Exit: p.Exit}
	}

	cfg := backtest.EngineConfig{
		Series:          series,
		ConditionPairs:  pairs,
		IndicatorParams: doc.IndicatorParams,
		Predictors:      doc.Predictors,
		TradingParams: types.TradingParams{
			TransactionCost: doc.TradingParams.TransactionCost,
			Slippage:        doc.TradingParams.Slippage,
			TradeDelay:      doc.TradingParams.TradeDelay,
			TradePrice:      doc.TradingParams.TradePrice,
		},
		InitialEquity: 1.0,
		Runtime:       runtimeCfg,
		Logger:        log,
		Telemetry:     recorder,
	}

	engine := backtest.NewEngine()
	results, err := engine.Run(cfg)
	if err != nil {
		log.Error("engine run: %v", err)
		os.Exit(1)
	}

	printSummary(results)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Error("create output dir: %v", err)
		os.Exit(1)
	}
	if err := exportResults(results, *outDir, *format); err != nil {
		log.Error("export results: %v", err)
		os.Exit(1)
	}
	log.Info("wrote %d backtest results to %s", len(results), *outDir)
}

func printSummary(results []types.BacktestResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BACKTEST SUMMARY")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ParameterSetID", "Predictor", "Trades", "Warning", "Error"})

	for _, r := range results {
		errStr := ""
		if r.Err != nil {
			errStr = r.Err.Error()
		}
		t.AppendRow(table.Row{r.ParameterSetID, r.Predictor, len(r.Records), r.Warning, errStr})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: 36, Align: text.AlignLeft},
	})
	t.Render()
	fmt.Println()
}

func exportResults(results []types.BacktestResult, outDir, format string) error {
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		path := fmt.Sprintf("%s/%s.%s", outDir, r.ParameterSetID, format)
		switch format {
		case "parquet":
			if err := export.NewParquetWriter().WriteTrades(r, path); err != nil {
				return err
			}
		case "xlsx":
			if err := export.NewXLSXWriter().WriteTrades(r, path); err != nil {
				return err
			}
		default:
			if err := export.NewCSVWriter().WriteTrades(r, path); err != nil {
				return err
			}
		}
	}
	return nil
}
