package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_UsesDefaultsWhenEnvUnset falls back to the documented defaults
// when none of the BT_* environment variables are set.
func TestLoad_UsesDefaultsWhenEnvUnset(t *testing.T) {
	for _, k := range []string{"BT_LOG_DIR", "BT_DEBUG", "BT_WORKERS", "BT_BATCH_SIZE", "BT_MEMORY_BUDGET_GIB"} {
		os.Unsetenv(k)
	}
	cfg := Load()
	assert.Equal(t, "logs", cfg.LogDir)
	assert.False(t, cfg.DebugMode)
	assert.Equal(t, 0, cfg.WorkerOverride)
}

// TestLoad_ReadsOverridesFromEnvironment parses every BT_* variable when
// present.
func TestLoad_ReadsOverridesFromEnvironment(t *testing.T) {
	t.Setenv("BT_LOG_DIR", "/tmp/btlogs")
	t.Setenv("BT_DEBUG", "true")
	t.Setenv("BT_WORKERS", "4")
	t.Setenv("BT_BATCH_SIZE", "50")
	t.Setenv("BT_MEMORY_BUDGET_GIB", "2.5")

	cfg := Load()
	assert.Equal(t, "/tmp/btlogs", cfg.LogDir)
	assert.True(t, cfg.DebugMode)
	assert.Equal(t, 4, cfg.WorkerOverride)
	assert.Equal(t, 50, cfg.BatchSizeOverride)
	assert.Equal(t, 2.5, cfg.MemoryBudgetGiB)
}

// TestLoad_MalformedIntEnv_FallsBackToDefault ignores an unparseable
// integer override rather than erroring.
func TestLoad_MalformedIntEnv_FallsBackToDefault(t *testing.T) {
	t.Setenv("BT_WORKERS", "not-a-number")
	cfg := Load()
	assert.Equal(t, 0, cfg.WorkerOverride)
}

// TestLoadStrategyDocument_ParsesConditionPairsAndTradingParams round
// trips a strategy document's JSON shape.
func TestLoadStrategyDocument_ParsesConditionPairsAndTradingParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.json")
	body := `{
		"condition_pairs": [{"entry": ["MA1"], "exit": ["MA3"]}],
		"indicator_params": {"MA1": {"ma_range": "3,5"}},
		"predictors": ["Close"],
		"trading_params": {"transaction_cost": 0.001, "slippage": 0.0005, "trade_delay": 1, "trade_price": "close"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	doc, err := LoadStrategyDocument(path)
	require.NoError(t, err)
	require.Len(t, doc.ConditionPairs, 1)
	assert.Equal(t, []string{"MA1"}, doc.ConditionPairs[0].Entry)
	assert.Equal(t, "close", doc.TradingParams.TradePrice)
}

// TestLoadStrategyDocument_MissingFile_ReturnsError surfaces a read
// error rather than a zero-valued document.
func TestLoadStrategyDocument_MissingFile_ReturnsError(t *testing.T) {
	_, err := LoadStrategyDocument(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// TestLoadWFADocument_ParsesModeAndObjectives round trips a WFA document's
// JSON shape.
func TestLoadWFADocument_ParsesModeAndObjectives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wfa.json")
	body := `{
		"mode": "anchored",
		"train_set_percentage": 0.6,
		"test_set_percentage": 0.2,
		"step_size": 30,
		"optimization_objectives": ["sharpe", "calmar"],
		"output_csv": true
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	doc, err := LoadWFADocument(path)
	require.NoError(t, err)
	assert.Equal(t, "anchored", doc.Mode)
	assert.Equal(t, []string{"sharpe", "calmar"}, doc.OptimizationObjectives)
}

// TestLoadWFADocument_InvalidJSON_ReturnsError surfaces a parse error
// for malformed JSON.
func TestLoadWFADocument_InvalidJSON_ReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := LoadWFADocument(path)
	assert.Error(t, err)
}
