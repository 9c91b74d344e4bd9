// Package indicators implements the C2 indicator signal generators from
// spec.md §4.2: a small family of rolling-window indicators, each
// producing a {-1,0,+1} signal sequence, exposed via both a single-series
// and a batched-matrix calling convention. Grounded on the teacher's
// TechnicalIndicator interface (internal/indicators/interface.go) and
// IndicatorManager (internal/indicators/manager.go), generalized from
// buy/sell booleans to signed signal sequences and from row-wise
// evaluation to whole-series evaluation.
package indicators

import (
	"fmt"

	engerrors "github.com/lo2cin4bt/backtest-engine/internal/errors"
	"github.com/lo2cin4bt/backtest-engine/internal/params"
)

// Warmup returns the number of leading bars a generator cannot legally
// evaluate for the given resolved parameters (spec.md §4.2).
func Warmup(p params.Params) int {
	switch p.Kind {
	case params.KindMA:
		local := localVariant(p.Variant)
		switch {
		case p.Variant <= 4:
			return p.GetInt("period", 1) - 1
		case p.Variant <= 8:
			s, l := p.GetInt("short", 1), p.GetInt("long", 1)
			if s > l {
				s, l = l, s
			}
			return l - 1
		default:
			_ = local
			m := p.GetInt("m", 1) // consecutive-bar count
			n := p.GetInt("n", 1) // MA length
			return m + n - 2
		}
	case params.KindBOLL:
		return p.GetInt("period", 1) - 1
	case params.KindHL:
		n := p.GetInt("n", 1)
		m := p.GetInt("m", 1)
		return m + n - 2
	case params.KindPERC:
		return p.GetInt("window", 1) - 1
	case params.KindVALUE:
		if p.Variant <= 4 {
			return p.GetInt("n", 1) - 1
		}
		return 0
	case params.KindNDayCycle:
		return 0
	}
	return 0
}

// localVariant maps a family-wide variant (1..12 for MA) down to the
// 1..4 local position within its sub-family (single/double/consecutive).
func localVariant(variant int) int {
	switch {
	case variant <= 4:
		return variant
	case variant <= 8:
		return variant - 4
	default:
		return variant - 8
	}
}

// direction returns +1 for the "bullish"/odd local variant, -1 for the
// "bearish"/even local variant: the four strategy slots per
// MA/BOLL/HL/PERC/VALUE sub-family alternate sign.
func direction(variant int) float64 {
	if localVariant(variant)%2 == 1 {
		return 1
	}
	return -1
}

// Evaluate computes the full-length signal sequence for one resolved
// Params against predictor series x, consulting cache for any shared
// rolling statistic. predictorID identifies x for cache-key purposes.
func Evaluate(x []float64, p params.Params, cache *Cache, predictorID string) ([]float64, error) {
	switch p.Kind {
	case params.KindMA:
		return evaluateMA(x, p, cache, predictorID)
	case params.KindBOLL:
		return evaluateBoll(x, p, cache, predictorID)
	case params.KindHL:
		return evaluateHL(x, p, cache, predictorID)
	case params.KindPERC:
		return evaluatePerc(x, p, cache, predictorID)
	case params.KindVALUE:
		return evaluateValue(x, p, cache, predictorID)
	case params.KindNDayCycle:
		return evaluateNDayCycle(x, p), nil
	}
	return nil, engerrors.New(engerrors.KindInvalidConfig, "indicators", "Evaluate",
		fmt.Sprintf("unknown indicator kind %q", p.Kind))
}

// BatchTask is one unit of the batched calling convention from spec.md
// §4.2: a (taskIdx, indicatorSlot, params) triple sharing a tensor slice.
type BatchTask struct {
	TaskIdx       int
	IndicatorSlot int
	Params        params.Params
}

// BatchEvaluate evaluates every task against predictor x, writing each
// result into tensor[t][taskIdx][indicatorSlot] (tensor is caller-owned
// and pre-sized). Tasks sharing a cache key reuse the same rolling
// statistics, satisfying spec.md §4.2's cache-sharing requirement.
func BatchEvaluate(tasks []BatchTask, x []float64, predictorID string, cache *Cache, tensor [][][]float64) error {
	for _, task := range tasks {
		signal, err := Evaluate(x, task.Params, cache, predictorID)
		if err != nil {
			return err
		}
		for t, v := range signal {
			tensor[t][task.TaskIdx][task.IndicatorSlot] = v
		}
	}
	return nil
}

// crossUp reports whether series a crosses strictly above series b at
// index i (a[i] > b[i] and a[i-1] <= b[i-1]); event-style, not state-style.
func crossUp(a, b []float64, i int) bool {
	if i == 0 {
		return false
	}
	return a[i] > b[i] && a[i-1] <= b[i-1]
}

func crossDown(a, b []float64, i int) bool {
	if i == 0 {
		return false
	}
	return a[i] < b[i] && a[i-1] >= b[i-1]
}
