package indicators

import "github.com/lo2cin4bt/backtest-engine/internal/params"

const hlTolerance = 1e-10

// evaluateHL fires when x sets a new m-bar high (or low) and has held
// that extreme for n consecutive bars without having done so at bar
// t-n: HL1 opens long on a sustained new high, HL2 opens short on a
// sustained new low, HL3/HL4 mirror HL1/HL2 for the matching exit slot.
func evaluateHL(x []float64, p params.Params, cache *Cache, predictorID string) ([]float64, error) {
	m := p.GetInt("m", 1) // lookback length
	n := p.GetInt("n", 1) // consecutive-bar requirement

	bullish := localVariant(p.Variant) == 1
	var extreme []float64
	if bullish {
		extreme = cache.GetOrCompute(Key("HLMAX", m, predictorID), func() []float64 {
			return RollingMax(x, m)
		})
	} else {
		extreme = cache.GetOrCompute(Key("HLMIN", m, predictorID), func() []float64 {
			return RollingMin(x, m)
		})
	}

	atExtreme := func(i int) bool {
		d := x[i] - extreme[i]
		if d < 0 {
			d = -d
		}
		return d <= hlTolerance
	}

	dir := direction(p.Variant)
	warmup := m + n - 2
	out := make([]float64, len(x))
	for i := range x {
		if i < warmup {
			continue
		}
		held := true
		for k := i - n + 1; k <= i; k++ {
			if !atExtreme(k) {
				held = false
				break
			}
		}
		if !held {
			continue
		}
		if i-n >= m-1 && atExtreme(i-n) {
			continue // already at the extreme at t-n: not a new event
		}
		out[i] = dir
	}
	return out, nil
}
