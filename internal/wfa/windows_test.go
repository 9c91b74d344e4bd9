package wfa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPlanWindows_Standard_RollsForwardByStepSize produces successive
// fixed-size train/test windows each shifted by stepSize.
func TestPlanWindows_Standard_RollsForwardByStepSize(t *testing.T) {
	windows := PlanWindows(100, ModeStandard, 0.5, 0.2, 10)
	require.NotEmpty(t, windows)
	for i, w := range windows {
		assert.Equal(t, i+1, w.ID)
		assert.Equal(t, 50, w.TrainEnd-w.TrainStart)
		assert.Equal(t, 20, w.TestEnd-w.TestStart)
		assert.Equal(t, w.TrainEnd, w.TestStart)
	}
	assert.Equal(t, 0, windows[0].TrainStart)
	assert.Equal(t, windows[0].TrainStart+10, windows[1].TrainStart)
}

// TestPlanWindows_Standard_StopsBeforeOverrunningSeries never emits a
// window whose test end exceeds n.
func TestPlanWindows_Standard_StopsBeforeOverrunningSeries(t *testing.T) {
	windows := PlanWindows(100, ModeStandard, 0.5, 0.2, 10)
	last := windows[len(windows)-1]
	assert.LessOrEqual(t, last.TestEnd, 100)
}

// TestPlanWindows_Anchored_TrainStartStaysAtZero keeps the train window
// anchored at bar 0 and grows it each step instead of rolling forward.
func TestPlanWindows_Anchored_TrainStartStaysAtZero(t *testing.T) {
	windows := PlanWindows(100, ModeAnchored, 0, 0.1, 10)
	require.NotEmpty(t, windows)
	for _, w := range windows {
		assert.Equal(t, 0, w.TrainStart)
	}
	assert.Less(t, windows[0].TrainEnd, windows[1].TrainEnd)
}

// TestPlanWindows_MinimumTestSizeIsOneBar clamps a rounded-to-zero test
// size up to 1 bar rather than producing a degenerate window.
func TestPlanWindows_MinimumTestSizeIsOneBar(t *testing.T) {
	windows := PlanWindows(20, ModeStandard, 0.5, 0.001, 5)
	require.NotEmpty(t, windows)
	assert.Equal(t, 1, windows[0].TestEnd-windows[0].TestStart)
}

// TestPlanWindows_TooFewBars_ReturnsNoWindows produces an empty plan when
// the series is too short to fit even one train+test window.
func TestPlanWindows_TooFewBars_ReturnsNoWindows(t *testing.T) {
	windows := PlanWindows(5, ModeStandard, 0.8, 0.5, 1)
	assert.Empty(t, windows)
}
