package indicators

import (
	"github.com/lo2cin4bt/backtest-engine/internal/params"
)

// evaluateMA dispatches the three MA sub-families (single/double/
// consecutive, variants 1-12) described in spec.md §4.2.
func evaluateMA(x []float64, p params.Params, cache *Cache, predictorID string) ([]float64, error) {
	switch {
	case p.Variant <= 4:
		return evaluateMASingle(x, p, cache, predictorID), nil
	case p.Variant <= 8:
		return evaluateMADouble(x, p, cache, predictorID), nil
	default:
		return evaluateMAConsecutive(x, p, cache, predictorID), nil
	}
}

// evaluateMASingle fires when x crosses its own moving average, signed
// per direction(variant): MA1 opens long on an upward cross, MA2 opens
// short on a downward cross, MA3/MA4 mirror MA1/MA2 for the matching
// exit slot.
func evaluateMASingle(x []float64, p params.Params, cache *Cache, predictorID string) []float64 {
	period := p.GetInt("period", 1)
	maType := p.GetString("ma_type", "SMA")
	ma := cache.GetOrCompute(Key("MA", period, maType, predictorID), func() []float64 {
		return MovingAverage(x, period, maType)
	})

	dir := direction(p.Variant)
	out := make([]float64, len(x))
	bullish := localVariant(p.Variant) == 1
	for i := range x {
		if i < period-1 {
			continue
		}
		if bullish {
			if crossUp(x, ma, i) {
				out[i] = dir
			}
		} else {
			if crossDown(x, ma, i) {
				out[i] = dir
			}
		}
	}
	return out
}

// evaluateMADouble fires on a short-MA/long-MA crossover: MA5 (golden
// cross, short crosses above long) opens long, MA6 (death cross) opens
// short, MA7/MA8 mirror MA5/MA6 for the matching exit slot.
func evaluateMADouble(x []float64, p params.Params, cache *Cache, predictorID string) []float64 {
	short := p.GetInt("short", 1)
	long := p.GetInt("long", 1)
	maType := p.GetString("ma_type", "SMA")
	shortMA := cache.GetOrCompute(Key("MA", short, maType, predictorID), func() []float64 {
		return MovingAverage(x, short, maType)
	})
	longMA := cache.GetOrCompute(Key("MA", long, maType, predictorID), func() []float64 {
		return MovingAverage(x, long, maType)
	})

	dir := direction(p.Variant)
	bullish := localVariant(p.Variant) == 1
	out := make([]float64, len(x))
	warmup := long - 1
	for i := range x {
		if i < warmup {
			continue
		}
		if bullish {
			if crossUp(shortMA, longMA, i) {
				out[i] = dir
			}
		} else {
			if crossDown(shortMA, longMA, i) {
				out[i] = dir
			}
		}
	}
	return out
}

// evaluateMAConsecutive fires the bar x first stands on the bullish (or
// bearish) side of its n-length MA for m consecutive bars, having not
// held that side at bar t-m: MA9 opens long, MA10 opens short, MA11/MA12
// mirror MA9/MA10 for the matching exit slot.
func evaluateMAConsecutive(x []float64, p params.Params, cache *Cache, predictorID string) []float64 {
	length := p.GetInt("n", 1) // MA period
	count := p.GetInt("m", 1)  // consecutive-bar requirement
	maType := p.GetString("ma_type", "SMA")
	ma := cache.GetOrCompute(Key("MA", length, maType, predictorID), func() []float64 {
		return MovingAverage(x, length, maType)
	})

	dir := direction(p.Variant)
	bullish := localVariant(p.Variant) == 1
	warmup := length + count - 2
	out := make([]float64, len(x))

	above := func(i int) bool {
		if bullish {
			return x[i] > ma[i]
		}
		return x[i] < ma[i]
	}

	for i := range x {
		if i < warmup {
			continue
		}
		held := true
		for k := i - count + 1; k <= i; k++ {
			if !above(k) {
				held = false
				break
			}
		}
		if !held {
			continue
		}
		if i-count >= length-1 && above(i-count) {
			continue // was already true at t-m: not a new crossing event
		}
		out[i] = dir
	}
	return out
}
