package wfa

import (
	"fmt"
	"math"
	"sort"

	"github.com/lo2cin4bt/backtest-engine/internal/backtest"
	"github.com/lo2cin4bt/backtest-engine/internal/config"
	engerrors "github.com/lo2cin4bt/backtest-engine/internal/errors"
	"github.com/lo2cin4bt/backtest-engine/internal/metrics"
	"github.com/lo2cin4bt/backtest-engine/internal/params"
	"github.com/lo2cin4bt/backtest-engine/pkg/types"
)

// Cell is one of the nine resolved parameter combinations a GridRegion
// reports: its indices into the sorted variable-value axes, its full
// (entry, exit) IndicatorParams tuple, and its in-sample metric.
type Cell struct {
	I, J   int
	Entry  []params.Params
	Exit   []params.Params
	Metric float64
}

// GridRegion is C9's output: the best 3x3 block of the (k1,k2) metric
// surface, plus the single best individual cell.
type GridRegion struct {
	Cells      []Cell // exactly 9, row-major, empty if the fallback path was used
	Average    float64
	BestCell   Cell
	Fallback   bool // true when either axis had <3 distinct values
}

// Optimize implements the C9 walk-forward parameter optimiser (spec.md
// §4.8) for one (window, conditionPair, objective): enumerate the train
// slice's search space, validate variable-parameter count, build the
// 2-D metric surface, and find the best 3x3 grid region.
func Optimize(train *types.Series, pair backtest.ConditionPair, indicatorParams map[string]map[string]any,
	predictors []string, tradingParams types.TradingParams, objective string) (GridRegion, error) {

	cfg := backtest.EngineConfig{
		Series:          train,
		ConditionPairs:  []backtest.ConditionPair{pair},
		IndicatorParams: indicatorParams,
		Predictors:      predictors,
		TradingParams:   tradingParams,
		InitialEquity:   1.0,
		Runtime:         &config.RuntimeConfig{},
	}

	entryByID, exitByID, err := rebuildTasks(cfg, pair)
	if err != nil {
		return GridRegion{}, err
	}
	if err := validateVariableCount(entryByID, exitByID); err != nil {
		return GridRegion{}, err
	}

	k1, k2, ok := findVariableKeys(entryByID, exitByID)
	if !ok {
		return GridRegion{}, engerrors.New(engerrors.KindNoSignal, "wfa", "Optimize",
			"could not identify exactly one variable entry key and one variable exit key")
	}

	engine := backtest.NewEngine()
	results, err := engine.Run(cfg)
	if err != nil {
		return GridRegion{}, err
	}
	if len(results) == 0 {
		return GridRegion{}, engerrors.New(engerrors.KindNoSignal, "wfa", "Optimize", "no tasks enumerated for condition pair")
	}

	type scored struct {
		paramSetID string
		v1, v2     float64
		metric     float64
	}
	var valid []scored
	for _, r := range results {
		if r.Err != nil || len(r.Records) == 0 {
			continue
		}
		if !hasOpenTrade(r.Records) {
			continue
		}
		m := objectiveMetric(r.Records, objective)
		if math.IsNaN(m) || math.IsInf(m, 0) {
			continue
		}
		entry := entryByID[r.ParameterSetID]
		exit := exitByID[r.ParameterSetID]
		valid = append(valid, scored{r.ParameterSetID, paramValue(entry, k1), paramValue(exit, k2), m})
	}
	if len(valid) == 0 {
		return GridRegion{}, engerrors.New(engerrors.KindNoSignal, "wfa", "Optimize", "no finite-metric task with an open trade")
	}

	v1s := uniqueSorted(mapFloats(valid, func(s scored) float64 { return s.v1 }))
	v2s := uniqueSorted(mapFloats(valid, func(s scored) float64 { return s.v2 }))
	R, C := len(v1s), len(v2s)

	matrix := make([][]float64, R)
	for i := range matrix {
		matrix[i] = make([]float64, C)
		for j := range matrix[i] {
			matrix[i][j] = math.Inf(-1)
		}
	}
	taskAt := make(map[[2]int]string)
	for _, s := range valid {
		i := indexOf(v1s, s.v1)
		j := indexOf(v2s, s.v2)
		matrix[i][j] = s.metric
		taskAt[[2]int{i, j}] = s.paramSetID
	}

	best := bestCellScored(matrix, taskAt, entryByID, exitByID)
	if R < 3 || C < 3 {
		return GridRegion{Fallback: true, BestCell: best}, nil
	}

	prefix := prefixSum(matrix)
	bi, bj, bestSum := -1, -1, math.Inf(-1)
	for i := 0; i+3 <= R; i++ {
		for j := 0; j+3 <= C; j++ {
			sum := windowSum(prefix, i, j, 3)
			if sum > bestSum {
				bestSum, bi, bj = sum, i, j
			}
		}
	}

	cells := make([]Cell, 0, 9)
	for i := bi; i < bi+3; i++ {
		for j := bj; j < bj+3; j++ {
			id, ok := taskAt[[2]int{i, j}]
			cell := Cell{I: i, J: j, Metric: matrix[i][j]}
			if ok {
				cell.Entry = entryByID[id]
				cell.Exit = exitByID[id]
			}
			cells = append(cells, cell)
		}
	}

	return GridRegion{Cells: cells, Average: bestSum / 9, BestCell: best}, nil
}

// validateVariableCount implements spec.md §4.8 step 1: across the
// combined entry+exit parameter configs for this condition pair, the
// variable parameter count must be <=2.
func validateVariableCount(entryByID, exitByID map[string][]params.Params) error {
	entryVarying := variableValueCounts(entryByID)
	exitVarying := variableValueCounts(exitByID)
	total := len(entryVarying) + len(exitVarying)
	if total > 2 {
		return engerrors.New(engerrors.KindTooManyVariables, "wfa", "validateVariableCount",
			fmt.Sprintf("condition pair has %d variable parameters, maximum is 2", total))
	}
	return nil
}

// rebuildTasks re-enumerates the same search space Engine.Run will
// enumerate and indexes every combination by its ParameterSetID (a pure
// function of the resolved params), since BacktestResult.BacktestID is a
// fresh UUID per run and cannot be predicted ahead of time.
func rebuildTasks(cfg backtest.EngineConfig, pair backtest.ConditionPair) (map[string][]params.Params, map[string][]params.Params, error) {
	entryLists := make([][]params.Params, len(pair.Entry))
	for i, alias := range pair.Entry {
		list, err := params.Enumerate(alias, cfg.IndicatorParams[alias])
		if err != nil {
			return nil, nil, err
		}
		entryLists[i] = list
	}
	exitLists := make([][]params.Params, len(pair.Exit))
	for i, alias := range pair.Exit {
		list, err := params.Enumerate(alias, cfg.IndicatorParams[alias])
		if err != nil {
			return nil, nil, err
		}
		exitLists[i] = list
	}

	entryCombos := cartesian(entryLists)
	exitCombos := cartesian(exitLists)
	if len(exitCombos) == 0 {
		exitCombos = [][]params.Params{{}}
	}

	entryByID := make(map[string][]params.Params)
	exitByID := make(map[string][]params.Params)
	for _, ec := range entryCombos {
		for _, xc := range exitCombos {
			id := params.ParameterSetID(ec, xc)
			entryByID[id] = ec
			exitByID[id] = xc
		}
	}
	return entryByID, exitByID, nil
}

func cartesian(lists [][]params.Params) [][]params.Params {
	if len(lists) == 0 {
		return nil
	}
	combos := [][]params.Params{{}}
	for _, list := range lists {
		var next [][]params.Params
		for _, combo := range combos {
			for _, p := range list {
				extended := make([]params.Params, len(combo)+1)
				copy(extended, combo)
				extended[len(combo)] = p
				next = append(next, extended)
			}
		}
		combos = next
	}
	return combos
}

func findVariableKeys(entryByID, exitByID map[string][]params.Params) (k1, k2 string, ok bool) {
	entryVarying := variableValueCounts(entryByID)
	exitVarying := variableValueCounts(exitByID)
	if len(entryVarying) != 1 || len(exitVarying) != 1 {
		return "", "", false
	}
	for k := range entryVarying {
		k1 = k
	}
	for k := range exitVarying {
		k2 = k
	}
	return k1, k2, true
}

func variableValueCounts(byID map[string][]params.Params) map[string]struct{} {
	seen := make(map[string]map[string]struct{})
	for _, combo := range byID {
		for _, p := range combo {
			for k, v := range p.Values {
				if seen[k] == nil {
					seen[k] = make(map[string]struct{})
				}
				seen[k][fmt.Sprint(v)] = struct{}{}
			}
		}
	}
	varying := make(map[string]struct{})
	for k, vals := range seen {
		if len(vals) > 1 {
			varying[k] = struct{}{}
		}
	}
	return varying
}

func paramValue(combo []params.Params, key string) float64 {
	for _, p := range combo {
		if v, ok := p.Values[key]; ok {
			switch n := v.(type) {
			case int:
				return float64(n)
			case float64:
				return n
			}
		}
	}
	return math.NaN()
}

func hasOpenTrade(records []types.TradeRecord) bool {
	for _, r := range records {
		if r.TradeAction == types.ActionOpen {
			return true
		}
	}
	return false
}

func objectiveMetric(records []types.TradeRecord, objective string) float64 {
	rows := make([]metrics.Row, len(records))
	for i, r := range records {
		rows[i] = metrics.Row{
			Time: float64(r.Time.Unix()) / 86400, Close: r.Close, Return: r.Return,
			EquityValue: r.EquityValue, PositionSize: r.PositionSize, TradeAction: int(r.TradeAction),
			HasTradeReturn: r.HasTradeReturn, TradeReturn: r.TradeReturn,
		}
	}
	res := metrics.Compute(rows, 365.25, 0)
	switch objective {
	case "sharpe":
		return res.Sharpe
	case "sortino":
		return res.Sortino
	case "calmar":
		return res.Calmar
	case "total_return":
		return res.TotalReturn
	case "cagr":
		return res.CAGR
	default:
		return res.Sharpe
	}
}

func uniqueSorted(xs []float64) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, x := range xs {
		if _, ok := seen[x]; !ok {
			seen[x] = struct{}{}
			out = append(out, x)
		}
	}
	sort.Float64s(out)
	return out
}

func mapFloats[T any](xs []T, f func(T) float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = f(x)
	}
	return out
}

func indexOf(xs []float64, v float64) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}

func prefixSum(m [][]float64) [][]float64 {
	R, C := len(m), len(m[0])
	p := make([][]float64, R+1)
	for i := range p {
		p[i] = make([]float64, C+1)
	}
	for i := 0; i < R; i++ {
		for j := 0; j < C; j++ {
			p[i+1][j+1] = m[i][j] + p[i][j+1] + p[i+1][j] - p[i][j]
		}
	}
	return p
}

func windowSum(prefix [][]float64, i, j, size int) float64 {
	return prefix[i+size][j+size] - prefix[i][j+size] - prefix[i+size][j] + prefix[i][j]
}

func bestCellScored(matrix [][]float64, taskAt map[[2]int]string,
	entryByID, exitByID map[string][]params.Params) Cell {
	best := Cell{Metric: math.Inf(-1)}
	for i := range matrix {
		for j := range matrix[i] {
			if matrix[i][j] > best.Metric {
				id := taskAt[[2]int{i, j}]
				best = Cell{I: i, J: j, Metric: matrix[i][j], Entry: entryByID[id], Exit: exitByID[id]}
			}
		}
	}
	return best
}
