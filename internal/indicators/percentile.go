package indicators

import "github.com/lo2cin4bt/backtest-engine/internal/params"

// evaluatePerc dispatches the two PERC sub-families: a single rolling-
// quantile threshold (variants 1-4) and a two-quantile band (variants 5-6).
func evaluatePerc(x []float64, p params.Params, cache *Cache, predictorID string) ([]float64, error) {
	if p.Variant <= 4 {
		return evaluatePercThreshold(x, p, cache, predictorID), nil
	}
	return evaluatePercBand(x, p, cache, predictorID), nil
}

// evaluatePercThreshold fires when x crosses its own rolling percentile:
// PERC1 opens long on an upward cross, PERC2 opens short on a downward
// cross, PERC3/PERC4 mirror PERC1/PERC2 for the matching exit slot.
func evaluatePercThreshold(x []float64, p params.Params, cache *Cache, predictorID string) []float64 {
	window := p.GetInt("window", 1)
	pct := p.GetFloat("percentile", 50)
	q := cache.GetOrCompute(Key("PERC", window, pct, predictorID), func() []float64 {
		return RollingQuantile(x, window, pct)
	})

	dir := direction(p.Variant)
	bullish := localVariant(p.Variant) == 1
	out := make([]float64, len(x))
	for i := range x {
		if i < window-1 {
			continue
		}
		if bullish {
			if crossUp(x, q, i) {
				out[i] = dir
			}
		} else {
			if crossDown(x, q, i) {
				out[i] = dir
			}
		}
	}
	return out
}

// evaluatePercBand fires when x newly enters the [q(m1), q(m2)] rolling
// band: PERC5 fires on entry from below, PERC6 on entry from above.
func evaluatePercBand(x []float64, p params.Params, cache *Cache, predictorID string) []float64 {
	window := p.GetInt("window", 1)
	m1 := p.GetFloat("m1", 25)
	m2 := p.GetFloat("m2", 75)
	lower := cache.GetOrCompute(Key("PERC", window, m1, predictorID), func() []float64 {
		return RollingQuantile(x, window, m1)
	})
	upper := cache.GetOrCompute(Key("PERC", window, m2, predictorID), func() []float64 {
		return RollingQuantile(x, window, m2)
	})

	dir := direction(p.Variant)
	fromBelow := localVariant(p.Variant) == 1
	out := make([]float64, len(x))
	for i := range x {
		if i < window-1 || i == 0 {
			continue
		}
		inBand := x[i] >= lower[i] && x[i] <= upper[i]
		wasInBand := x[i-1] >= lower[i-1] && x[i-1] <= upper[i-1]
		if !inBand || wasInBand {
			continue
		}
		if fromBelow && x[i-1] < lower[i-1] {
			out[i] = dir
		} else if !fromBelow && x[i-1] > upper[i-1] {
			out[i] = dir
		}
	}
	return out
}
