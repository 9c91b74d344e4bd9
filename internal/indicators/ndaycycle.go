package indicators

import "github.com/lo2cin4bt/backtest-engine/internal/params"

// evaluateNDayCycle always returns an all-zero sentinel series. Unlike
// every other family, NDayCycle is exit-only and cannot be evaluated
// from its own predictor: its exit events are derived in
// internal/signal from the *combined* entry sequence (fire ∓N bars
// after an entry fires), per spec.md §4.3. The generator still needs to
// exist so that Warmup/Evaluate dispatch and config validation behave
// uniformly across all six families.
func evaluateNDayCycle(x []float64, p params.Params) []float64 {
	return make([]float64, len(x))
}
