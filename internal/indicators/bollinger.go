package indicators

import "github.com/lo2cin4bt/backtest-engine/internal/params"

// evaluateBoll fires a breakout signal when price crosses the
// Bollinger outer band: BOLL1 opens long on an upper-band breakout,
// BOLL2 opens short on a lower-band breakout, BOLL3/BOLL4 mirror
// BOLL1/BOLL2 for the matching exit slot.
func evaluateBoll(x []float64, p params.Params, cache *Cache, predictorID string) ([]float64, error) {
	period := p.GetInt("period", 1)
	sdMulti := p.GetFloat("sd_multi", 2)

	mid := cache.GetOrCompute(Key("MA", period, "SMA", predictorID), func() []float64 {
		return SMA(x, period)
	})
	std := cache.GetOrCompute(Key("STD", period, predictorID), func() []float64 {
		return RollingStdSample(x, period)
	})

	n := len(x)
	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := 0; i < n; i++ {
		upper[i] = mid[i] + sdMulti*std[i]
		lower[i] = mid[i] - sdMulti*std[i]
	}

	dir := direction(p.Variant)
	bullish := localVariant(p.Variant) == 1
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < period-1 {
			continue
		}
		if bullish {
			if crossUp(x, upper, i) {
				out[i] = dir
			}
		} else {
			if crossDown(x, lower, i) {
				out[i] = dir
			}
		}
	}
	return out, nil
}
