package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lo2cin4bt/backtest-engine/internal/params"
)

// TestEvaluateMA_DispatchesByVariantRange routes variants 1-4 to single,
// 5-8 to double, and 9+ to consecutive.
func TestEvaluateMA_DispatchesByVariantRange(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	single := params.Params{Kind: params.KindMA, Variant: 1, Values: map[string]any{"period": 3, "ma_type": "SMA"}}
	double := params.Params{Kind: params.KindMA, Variant: 5, Values: map[string]any{"short": 2, "long": 4, "ma_type": "SMA"}}
	consecutive := params.Params{Kind: params.KindMA, Variant: 9, Values: map[string]any{"n": 3, "m": 2, "ma_type": "SMA"}}

	for _, p := range []params.Params{single, double, consecutive} {
		out, err := evaluateMA(x, p, NewCache(), "Close")
		assert.NoError(t, err)
		assert.Len(t, out, len(x))
	}
}

// TestEvaluateMADouble_GoldenCross_FiresLongOnVariant5 fires a long
// signal when the short MA crosses above the long MA.
func TestEvaluateMADouble_GoldenCross_FiresLongOnVariant5(t *testing.T) {
	x := []float64{10, 10, 10, 10, 10, 10, 30, 30, 30, 30}
	p := params.Params{Kind: params.KindMA, Variant: 5, Values: map[string]any{"short": 2, "long": 5, "ma_type": "SMA"}}
	out := evaluateMADouble(x, p, NewCache(), "Close")
	assert.Contains(t, out, 1.0)
}

// TestEvaluateMAConsecutive_SustainedAbove_FiresOnceOnVariant9 fires a
// long signal once the bar x completes m consecutive bars above its
// n-length MA, and does not re-fire on every subsequent bar holding the
// same side.
func TestEvaluateMAConsecutive_SustainedAbove_FiresOnceOnVariant9(t *testing.T) {
	x := []float64{1, 1, 1, 10, 10, 10, 10, 10}
	p := params.Params{Kind: params.KindMA, Variant: 9, Values: map[string]any{"n": 3, "m": 2, "ma_type": "SMA"}}
	out := evaluateMAConsecutive(x, p, NewCache(), "Close")
	fires := 0
	for _, v := range out {
		if v != 0 {
			fires++
		}
	}
	assert.Equal(t, 1, fires)
}
