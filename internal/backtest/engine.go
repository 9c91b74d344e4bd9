// Package backtest implements the C7 vectorized backtest engine from
// spec.md §4.5: enumeration, grouping, batched signal generation,
// combination, simulation, and scoring. Grounded on the teacher's
// internal/backtest/engine.go orchestration shape and worker_pool.go,
// generalized from a single DCA strategy sweep to the full indicator
// cartesian-product search space.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lo2cin4bt/backtest-engine/internal/config"
	engerrors "github.com/lo2cin4bt/backtest-engine/internal/errors"
	"github.com/lo2cin4bt/backtest-engine/internal/indicators"
	"github.com/lo2cin4bt/backtest-engine/internal/logger"
	"github.com/lo2cin4bt/backtest-engine/internal/params"
	"github.com/lo2cin4bt/backtest-engine/internal/signal"
	"github.com/lo2cin4bt/backtest-engine/internal/simulate"
	"github.com/lo2cin4bt/backtest-engine/internal/telemetry"
	"github.com/lo2cin4bt/backtest-engine/pkg/types"
)

// batchTimeout bounds how long a single batch of tasks may run before
// it is cancelled and its tasks are reported as failures (spec.md §5).
const batchTimeout = 5 * time.Minute

// Task is one resolved strategy instance: a condition pair, predictor,
// and the fully resolved entry/exit IndicatorParams tuples.
type Task struct {
	StrategyIndex  int
	BacktestID     string
	ParameterSetID string
	Predictor      string
	Entry          []params.Params
	Exit           []params.Params
}

type groupKey struct {
	EntryCount int
	ExitCount  int
}

// ConditionPair is the resolved (non-JSON) form of config.ConditionPairDoc.
type ConditionPair struct {
	Entry []string
	Exit  []string
}

// EngineConfig bundles everything runBacktests needs for one run.
type EngineConfig struct {
	Series          *types.Series
	ConditionPairs  []ConditionPair
	IndicatorParams map[string]map[string]any
	Predictors      []string
	TradingParams   types.TradingParams
	InitialEquity   float64
	Runtime         *config.RuntimeConfig
	Logger          *logger.Logger
	Telemetry       telemetry.Recorder
}

// Engine runs runBacktests (spec.md §4.5).
type Engine struct {
	cache *indicators.Cache
}

func NewEngine() *Engine {
	return &Engine{cache: indicators.NewCache()}
}

// Run executes runBacktests: enumerate every task, group by
// (entryCount, exitCount), generate and combine signals, simulate, and
// return results in deterministic enumeration order.
func (e *Engine) Run(cfg EngineConfig) ([]types.BacktestResult, error) {
	tasks, err := e.enumerate(cfg)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}

	plan, err := PlanCapacity(len(tasks), cfg.Runtime.WorkerOverride, cfg.Runtime.BatchSizeOverride, cfg.Runtime.MemoryBudgetGiB)
	if err != nil {
		return nil, err
	}
	if cfg.Logger != nil {
		cfg.Logger.Info(plan.Summary)
	}
	if cfg.Telemetry != nil {
		cfg.Telemetry.ObserveCapacity(plan.Workers, plan.BatchSize)
	}

	groups := groupTasks(tasks, plan.BatchSize)

	results := make([]types.BacktestResult, len(tasks))
	taskIndex := make(map[string]int, len(tasks))
	for i, t := range tasks {
		taskIndex[t.BacktestID] = i
	}

	tracker := NewProgressTracker(len(tasks))
	eg, ctx := errgroup.WithContext(context.Background())
	eg.SetLimit(plan.Workers)

	for i, g := range groups {
		g := g
		// Every batch of one (entryCount, exitCount) group finishes before
		// the next group's batches start.
		if i > 0 && g.GroupKey != groups[i-1].GroupKey {
			if err := eg.Wait(); err != nil {
				return nil, err
			}
			eg, ctx = errgroup.WithContext(context.Background())
			eg.SetLimit(plan.Workers)
		}
		eg.Go(func() error {
			batchCtx, cancel := context.WithTimeout(ctx, batchTimeout)
			defer cancel()

			groupResults, err := e.runGroup(batchCtx, cfg, g)
			if err != nil {
				if !errors.Is(batchCtx.Err(), context.DeadlineExceeded) {
					return err
				}
				if cfg.Logger != nil {
					cfg.Logger.Warn("batch %+v timed out after %s, marking %d tasks failed", g.GroupKey, batchTimeout, len(g.Tasks))
				}
				groupResults = timeoutResults(g)
			}
			for _, r := range groupResults {
				results[taskIndex[r.BacktestID]] = r
			}
			tracker.Increment(len(groupResults))
			if cfg.Telemetry != nil {
				cfg.Telemetry.ObserveBatch(len(groupResults))
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// timeoutResults reports every task in a cancelled batch as a failed
// result carrying a RuntimeError (spec.md §7's conversion of a
// BatchTimeout into the result-facing error kind).
func timeoutResults(batch Batch) []types.BacktestResult {
	out := make([]types.BacktestResult, len(batch.Tasks))
	for i, t := range batch.Tasks {
		out[i] = types.BacktestResult{
			BacktestID: t.BacktestID,
			Err: engerrors.New(engerrors.KindRuntimeError, "backtest", "runGroup", "batch timeout").
				WithContext("kind", string(engerrors.KindBatchTimeout)),
		}
	}
	return out
}

// enumerate implements spec.md §4.5 step 1: cartesian-product every
// condition pair's entry/exit indicator alias configs, per predictor.
func (e *Engine) enumerate(cfg EngineConfig) ([]Task, error) {
	var tasks []Task
	for s, pair := range cfg.ConditionPairs {
		entryLists, err := resolveAliasLists(pair.Entry, cfg.IndicatorParams)
		if err != nil {
			return nil, err
		}
		exitLists, err := resolveAliasLists(pair.Exit, cfg.IndicatorParams)
		if err != nil {
			return nil, err
		}
		entryCombos := cartesianParamLists(entryLists)
		exitCombos := cartesianParamLists(exitLists)
		if len(exitCombos) == 0 {
			exitCombos = [][]params.Params{{}}
		}

		predictors := cfg.Predictors
		if len(predictors) == 0 {
			predictors = []string{"Close"}
		}

		for _, predictor := range predictors {
			for _, ec := range entryCombos {
				for _, xc := range exitCombos {
					tasks = append(tasks, Task{
						StrategyIndex:  s,
						BacktestID:     newBacktestID(),
						ParameterSetID: params.ParameterSetID(ec, xc),
						Predictor:      predictor,
						Entry:          ec,
						Exit:           xc,
					})
				}
			}
		}
	}
	return tasks, nil
}

func resolveAliasLists(aliases []string, indicatorParams map[string]map[string]any) ([][]params.Params, error) {
	lists := make([][]params.Params, 0, len(aliases))
	for _, alias := range aliases {
		list, err := params.Enumerate(alias, indicatorParams[alias])
		if err != nil {
			return nil, err
		}
		lists = append(lists, list)
	}
	return lists, nil
}

// cartesianParamLists computes the cartesian product of N parameter
// lists, preserving lexicographic (first-list-major) enumeration order.
func cartesianParamLists(lists [][]params.Params) [][]params.Params {
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

func groupTasks(tasks []Task, batchSize int) []Batch {
	buckets := make(map[groupKey][]Task)
	var order []groupKey
	for _, t := range tasks {
		k := groupKey{EntryCount: len(t.Entry), ExitCount: len(t.Exit)}
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], t)
	}

	var batches []Batch
	for _, k := range order {
		group := buckets[k]
		for start := 0; start < len(group); start += batchSize {
			end := start + batchSize
			if end > len(group) {
				end = len(group)
			}
			batches = append(batches, Batch{GroupKey: k, Tasks: group[start:end]})
		}
	}
	return batches
}

// runGroup implements spec.md §4.5 steps 3-5 for one batch: generate
// signals (batched when every task's side carries exactly one
// indicator, the common case; per-indicator otherwise), combine, and
// simulate. ctx is checked between tasks and at indicator sub-group
// boundaries (spec.md §5) so a batch timeout or run cancellation stops
// work promptly instead of running the batch to completion.
func (e *Engine) runGroup(ctx context.Context, cfg EngineConfig, batch Batch) ([]types.BacktestResult, error) {
	// When every task in the batch carries exactly one entry (or exit)
	// indicator, use the batched tensor calling convention (spec.md
	// §4.2/§4.5) grouped by predictor so the shared Cache sees every
	// task sharing a (window, predictor) tuple in one pass; otherwise
	// fall back to the per-indicator loop below.
	entryBySlot := make(map[string][]float64) // backtestID -> single entry sequence
	exitBySlot := make(map[string][]float64)
	if batch.GroupKey.EntryCount == 1 {
		var err error
		entryBySlot, err = e.batchEvaluateSide(cfg, batch.Tasks, true)
		if err != nil {
			return nil, err
		}
	}
	if batch.GroupKey.ExitCount == 1 {
		var err error
		exitBySlot, err = e.batchEvaluateSide(cfg, batch.Tasks, false)
		if err != nil {
			return nil, err
		}
	}

	results := make([]types.BacktestResult, 0, len(batch.Tasks))
	for _, task := range batch.Tasks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		x, ok := cfg.Series.Predictor(task.Predictor)
		if !ok {
			results = append(results, types.BacktestResult{
				BacktestID: task.BacktestID,
				Err: engerrors.New(engerrors.KindMissingColumn, "backtest", "runGroup",
					fmt.Sprintf("predictor %q not found", task.Predictor)),
			})
			continue
		}

		entrySeqs := make([][]float64, len(task.Entry))
		if batch.GroupKey.EntryCount == 1 {
			entrySeqs[0] = entryBySlot[task.BacktestID]
		} else {
			for i, p := range task.Entry {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				seq, err := indicators.Evaluate(x, p, e.cache, task.Predictor)
				if err != nil {
					return nil, err
				}
				entrySeqs[i] = seq
			}
		}
		exitSeqs := make([][]float64, len(task.Exit))
		if batch.GroupKey.ExitCount == 1 {
			exitSeqs[0] = exitBySlot[task.BacktestID]
		} else {
			for i, p := range task.Exit {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				seq, err := indicators.Evaluate(x, p, e.cache, task.Predictor)
				if err != nil {
					return nil, err
				}
				exitSeqs[i] = seq
			}
		}

		entry, exit, err := signal.Combine(entrySeqs, exitSeqs, task.Exit)
		if err != nil {
			return nil, err
		}

		warmup := warmupFor(task)
		records, warning, err := simulate.Simulate(cfg.Series, entry, exit, cfg.TradingParams,
			task.ParameterSetID, task.BacktestID, task.Predictor, warmup, cfg.InitialEquity)
		if err != nil {
			results = append(results, types.BacktestResult{BacktestID: task.BacktestID, Err: err})
			continue
		}
		results = append(results, types.BacktestResult{
			BacktestID:     task.BacktestID,
			StrategyIndex:  task.StrategyIndex,
			ParameterSetID: task.ParameterSetID,
			Predictor:      task.Predictor,
			Records:        records,
			Warning:        warning,
		})
	}
	return results, nil
}

// batchEvaluateSide evaluates every task's single entry (or exit)
// indicator via indicators.BatchEvaluate, grouped by predictor so each
// call shares one underlying series and cache, and returns the
// resulting sequence keyed by BacktestID.
func (e *Engine) batchEvaluateSide(cfg EngineConfig, tasks []Task, entry bool) (map[string][]float64, error) {
	byPredictor := make(map[string][]Task)
	for _, t := range tasks {
		byPredictor[t.Predictor] = append(byPredictor[t.Predictor], t)
	}

	out := make(map[string][]float64, len(tasks))
	for predictor, group := range byPredictor {
		x, ok := cfg.Series.Predictor(predictor)
		if !ok {
			continue // missing-column failure surfaces per-task in runGroup
		}
		n := cfg.Series.Len()
		tensor := make([][][]float64, n)
		for t := 0; t < n; t++ {
			tensor[t] = make([][]float64, len(group))
			for k := range tensor[t] {
				tensor[t][k] = make([]float64, 1)
			}
		}

		batchTasks := make([]indicators.BatchTask, len(group))
		for i, t := range group {
			side := t.Exit
			if entry {
				side = t.Entry
			}
			batchTasks[i] = indicators.BatchTask{TaskIdx: i, IndicatorSlot: 0, Params: side[0]}
		}
		if err := indicators.BatchEvaluate(batchTasks, x, predictor, e.cache, tensor); err != nil {
			return nil, err
		}
		for i, t := range group {
			seq := make([]float64, n)
			for bar := 0; bar < n; bar++ {
				seq[bar] = tensor[bar][i][0]
			}
			out[t.BacktestID] = seq
		}
	}
	return out, nil
}

func warmupFor(task Task) int {
	w := 0
	for _, p := range task.Entry {
		if v := indicators.Warmup(p); v > w {
			w = v
		}
	}
	for _, p := range task.Exit {
		if v := indicators.Warmup(p); v > w {
			w = v
		}
	}
	return w
}

func newBacktestID() string {
	return uuid.NewString()[:16]
}
