package indicators

import "github.com/lo2cin4bt/backtest-engine/internal/params"

// evaluateValue dispatches the two VALUE sub-families: a constant
// threshold held for n bars (variants 1-4) and a constant [m1,m2] band
// (variants 5-6). Neither needs a rolling statistic, so cache/predictorID
// are accepted only for interface symmetry with the other generators.
func evaluateValue(x []float64, p params.Params, cache *Cache, predictorID string) ([]float64, error) {
	if p.Variant <= 4 {
		return evaluateValueThreshold(x, p), nil
	}
	return evaluateValueBand(x, p), nil
}

// evaluateValueThreshold fires when x has stood on one side of the
// constant m for n consecutive bars without having done so at t-n:
// VALUE1 opens long on a sustained above-threshold run, VALUE2 opens
// short on a sustained below-threshold run, VALUE3/VALUE4 mirror
// VALUE1/VALUE2 for the matching exit slot.
func evaluateValueThreshold(x []float64, p params.Params) []float64 {
	n := p.GetInt("n", 1)
	m := p.GetFloat("m", 0)
	dir := direction(p.Variant)
	bullish := localVariant(p.Variant) == 1

	above := func(i int) bool {
		if bullish {
			return x[i] > m
		}
		return x[i] < m
	}

	out := make([]float64, len(x))
	for i := range x {
		if i < n-1 {
			continue
		}
		held := true
		for k := i - n + 1; k <= i; k++ {
			if !above(k) {
				held = false
				break
			}
		}
		if !held {
			continue
		}
		if i-n >= 0 && above(i-n) {
			continue
		}
		out[i] = dir
	}
	return out
}

// evaluateValueBand fires when x newly enters the constant [m1,m2]
// band: VALUE5 on entry from below, VALUE6 on entry from above.
func evaluateValueBand(x []float64, p params.Params) []float64 {
	m1 := p.GetFloat("m1", 0)
	m2 := p.GetFloat("m2", 0)
	dir := direction(p.Variant)
	fromBelow := localVariant(p.Variant) == 1

	out := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		inBand := x[i] >= m1 && x[i] <= m2
		wasInBand := x[i-1] >= m1 && x[i-1] <= m2
		if !inBand || wasInBand {
			continue
		}
		if fromBelow && x[i-1] < m1 {
			out[i] = dir
		} else if !fromBelow && x[i-1] > m2 {
			out[i] = dir
		}
	}
	return out
}
