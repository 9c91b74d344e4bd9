package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSMA_WarmupIsNaN leaves the first p-1 bars as NaN before the window
// fills.
func TestSMA_WarmupIsNaN(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-9) // (1+2+3)/3
	assert.InDelta(t, 4.0, out[4], 1e-9) // (3+4+5)/3
}

// TestEMA_SeedsFromFirstValue seeds EMA(0) from x(0) rather than an
// SMA-warmed average, per the documented divergence from the teacher's
// convention.
func TestEMA_SeedsFromFirstValue(t *testing.T) {
	out := EMA([]float64{10, 20, 30}, 2)
	assert.InDelta(t, 10.0, out[0], 1e-9)
}

// TestWMA_WeightsMostRecentBarHeaviest produces a higher value than a
// flat SMA when the series is rising, since WMA overweights recent bars.
func TestWMA_WeightsMostRecentBarHeaviest(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	wma := WMA(x, 4)
	sma := SMA(x, 4)
	assert.Greater(t, wma[3], sma[3])
}

// TestMovingAverage_DispatchesOnType routes to the correctly-named
// implementation for each configured MA type.
func TestMovingAverage_DispatchesOnType(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, SMA(x, 3), MovingAverage(x, 3, "SMA"))
	assert.Equal(t, EMA(x, 3), MovingAverage(x, 3, "EMA"))
	assert.Equal(t, WMA(x, 3), MovingAverage(x, 3, "WMA"))
}

// TestRollingMax_TracksTrailingWindowHigh reports the trailing window's
// maximum, not the all-time maximum.
func TestRollingMax_TracksTrailingWindowHigh(t *testing.T) {
	out := RollingMax([]float64{5, 1, 2, 3}, 3)
	assert.InDelta(t, 3.0, out[3], 1e-9) // max(1,2,3), window has rolled off the 5
}

// TestRollingMin_TracksTrailingWindowLow reports the trailing window's
// minimum.
func TestRollingMin_TracksTrailingWindowLow(t *testing.T) {
	out := RollingMin([]float64{5, 1, 2, 3}, 3)
	assert.InDelta(t, 1.0, out[3], 1e-9)
}

// TestRollingQuantile_MedianOfOddWindow computes the 50th percentile as
// the middle value of a sorted odd-length window.
func TestRollingQuantile_MedianOfOddWindow(t *testing.T) {
	out := RollingQuantile([]float64{3, 1, 2}, 3, 50)
	assert.InDelta(t, 2.0, out[2], 1e-9)
}

// TestRollingQuantile_ExtremesMatchMinMax the 0th/100th percentiles equal
// the window's min/max.
func TestRollingQuantile_ExtremesMatchMinMax(t *testing.T) {
	out0 := RollingQuantile([]float64{3, 1, 2}, 3, 0)
	out100 := RollingQuantile([]float64{3, 1, 2}, 3, 100)
	assert.InDelta(t, 1.0, out0[2], 1e-9)
	assert.InDelta(t, 3.0, out100[2], 1e-9)
}

// TestRollingStdSample_ZeroForConstantWindow reports zero variance over a
// constant window.
func TestRollingStdSample_ZeroForConstantWindow(t *testing.T) {
	out := RollingStdSample([]float64{5, 5, 5, 5}, 3)
	assert.InDelta(t, 0.0, out[3], 1e-9)
}

// TestCleanNaN_ReplacesNaNAndInfWithZero maps non-finite values to 0 per
// the documented signal-generation semantics.
func TestCleanNaN_ReplacesNaNAndInfWithZero(t *testing.T) {
	assert.Equal(t, 0.0, cleanNaN(math.NaN()))
	assert.Equal(t, 0.0, cleanNaN(math.Inf(1)))
	assert.Equal(t, 0.0, cleanNaN(math.Inf(-1)))
	assert.Equal(t, 5.0, cleanNaN(5.0))
}
