package wfa

import (
	"github.com/lo2cin4bt/backtest-engine/internal/backtest"
	"github.com/lo2cin4bt/backtest-engine/internal/indicators"
	"github.com/lo2cin4bt/backtest-engine/internal/logger"
	"github.com/lo2cin4bt/backtest-engine/internal/metrics"
	"github.com/lo2cin4bt/backtest-engine/internal/params"
	"github.com/lo2cin4bt/backtest-engine/internal/signal"
	"github.com/lo2cin4bt/backtest-engine/internal/simulate"
	"github.com/lo2cin4bt/backtest-engine/internal/telemetry"
	"github.com/lo2cin4bt/backtest-engine/pkg/types"
)

// RunConfig configures one WFA run. A pair's index into ConditionPairs
// doubles as its ConditionPairID in result rows.
type RunConfig struct {
	Series          *types.Series
	ConditionPairs  []backtest.ConditionPair
	IndicatorParams map[string]map[string]any
	Predictors      []string
	TradingParams   types.TradingParams
	InitialEquity   float64
	Mode            Mode
	TrainPct        float64
	TestPct         float64
	StepSize        int
	Objectives      []string
	Logger          *logger.Logger
	Telemetry       telemetry.Recorder
}

// Row is one exported WFA result: a single grid cell's IS and OOS
// metrics for one (window, conditionPair, objective), tagged so up to
// nine rows share a (windowId, conditionPairId, objective) triple (one
// row on the fallback single-best-cell path).
type Row struct {
	WindowID            int
	ConditionPairID      int
	ParamCombinationID   int // 1..9; the fallback single-best-cell row is 1
	Objective            string
	InSampleMetric        float64
	InSampleParamSetID     string
	OutOfSampleMetrics     metrics.Result
	OutOfSampleParamSetID  string
}

// Run implements the C10 WFA engine (spec.md §4.9): plan windows, then
// for each window/conditionPair/objective run the C9 optimiser on the
// train slice and re-simulate its grid region on the test slice. A
// failed (window, pair, objective) slot is skipped; sibling slots and
// the overall aggregate still export.
func Run(cfg RunConfig) ([]Row, error) {
	n := cfg.Series.Len()
	windows := PlanWindows(n, cfg.Mode, cfg.TrainPct, cfg.TestPct, cfg.StepSize)

	var rows []Row
	for _, w := range windows {
		train := cfg.Series.Slice(w.TrainStart, w.TrainEnd)
		test := cfg.Series.Slice(w.TestStart, w.TestEnd)

		for pairID, pair := range cfg.ConditionPairs {
			for _, objective := range cfg.Objectives {
				region, err := Optimize(train, pair, cfg.IndicatorParams, cfg.Predictors, cfg.TradingParams, objective)
				if err != nil {
					if cfg.Logger != nil {
						cfg.Logger.WFA("window %d pair %d objective %s: optimiser failed: %v", w.ID, pairID, objective, err)
					}
					continue
				}

				windowRows := evaluateRegion(test, region, cfg, w.ID, pairID, objective)
				rows = append(rows, windowRows...)
			}
		}
		if cfg.Telemetry != nil {
			cfg.Telemetry.ObserveWindow(w.ID)
		}
	}
	return rows, nil
}

// evaluateRegion re-simulates each cell of a GridRegion on the test
// slice (single-task mode, fixed params) and scores it with C5.
func evaluateRegion(test *types.Series, region GridRegion, cfg RunConfig, windowID, pairID int, objective string) []Row {
	cells := region.Cells
	if region.Fallback {
		cells = []Cell{region.BestCell}
	}

	var rows []Row
	for i, cell := range cells {
		if cell.Entry == nil {
			continue // empty cell in a partially-filled grid region
		}
		entrySeqs := make([][]float64, len(cell.Entry))
		exitSeqs := make([][]float64, len(cell.Exit))
		predictor := "Close"
		if len(cfg.Predictors) > 0 {
			predictor = cfg.Predictors[0]
		}
		x, ok := test.Predictor(predictor)
		if !ok {
			continue
		}
		cache := indicators.NewCache()
		ok2 := true
		for j, p := range cell.Entry {
			seq, err := indicators.Evaluate(x, p, cache, predictor)
			if err != nil {
				ok2 = false
				break
			}
			entrySeqs[j] = seq
		}
		if !ok2 {
			continue
		}
		for j, p := range cell.Exit {
			seq, err := indicators.Evaluate(x, p, cache, predictor)
			if err != nil {
				ok2 = false
				break
			}
			exitSeqs[j] = seq
		}
		if !ok2 {
			continue
		}

		entry, exit, err := signal.Combine(entrySeqs, exitSeqs, cell.Exit)
		if err != nil {
			continue
		}

		warmup := 0
		for _, p := range cell.Entry {
			if w := indicators.Warmup(p); w > warmup {
				warmup = w
			}
		}
		for _, p := range cell.Exit {
			if w := indicators.Warmup(p); w > warmup {
				warmup = w
			}
		}

		paramSetID := params.ParameterSetID(cell.Entry, cell.Exit)
		records, _, err := simulate.Simulate(test, entry, exit, cfg.TradingParams, paramSetID, "", predictor, warmup, cfg.InitialEquity)
		if err != nil {
			continue
		}

		oos := objectiveResult(records)
		rows = append(rows, Row{
			WindowID:              windowID,
			ConditionPairID:       pairID,
			ParamCombinationID:    i + 1,
			Objective:             objective,
			InSampleMetric:        cell.Metric,
			InSampleParamSetID:    paramSetID,
			OutOfSampleMetrics:    oos,
			OutOfSampleParamSetID: paramSetID,
		})
	}
	return rows
}

// objectiveResult computes the full out-of-sample metrics snapshot for
// one cell's test-slice trade-record table.
func objectiveResult(records []types.TradeRecord) metrics.Result {
	rows := make([]metrics.Row, len(records))
	for i, r := range records {
		rows[i] = metrics.Row{
			Time: float64(r.Time.Unix()) / 86400, Close: r.Close, Return: r.Return,
			EquityValue: r.EquityValue, PositionSize: r.PositionSize, TradeAction: int(r.TradeAction),
			HasTradeReturn: r.HasTradeReturn, TradeReturn: r.TradeReturn,
		}
	}
	return metrics.Compute(rows, 365.25, 0)
}
