package dataloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// TestLoadSeries_ParsesWellFormedRows reads every data row into the
// struct-of-arrays Series in file order.
func TestLoadSeries_ParsesWellFormedRows(t *testing.T) {
	path := writeCSV(t, "time,open,high,low,close,volume\n"+
		"2024-01-01T00:00:00Z,10,11,9,10.5,100\n"+
		"2024-01-02T00:00:00Z,10.5,12,10,11.5,150\n")

	series, err := LoadSeries(path, DefaultColumnMapping)
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, 10.0, series.Open[0])
	assert.Equal(t, 11.5, series.Close[1])
}

// TestLoadSeries_SkipsMalformedRows drops an unparseable timestamp and a
// non-numeric price row without failing the whole load.
func TestLoadSeries_SkipsMalformedRows(t *testing.T) {
	path := writeCSV(t, "time,open,high,low,close,volume\n"+
		"not-a-time,10,11,9,10.5,100\n"+
		"2024-01-01T00:00:00Z,abc,11,9,10.5,100\n"+
		"2024-01-02T00:00:00Z,10.5,12,10,11.5,150\n")

	series, err := LoadSeries(path, DefaultColumnMapping)
	require.NoError(t, err)
	assert.Equal(t, 1, series.Len())
}

// TestLoadSeries_SkipsNonPositivePrices drops a row whose open/high/low/
// close is zero or negative.
func TestLoadSeries_SkipsNonPositivePrices(t *testing.T) {
	path := writeCSV(t, "time,open,high,low,close,volume\n"+
		"2024-01-01T00:00:00Z,0,11,9,10.5,100\n"+
		"2024-01-02T00:00:00Z,10.5,12,10,11.5,150\n")

	series, err := LoadSeries(path, DefaultColumnMapping)
	require.NoError(t, err)
	assert.Equal(t, 1, series.Len())
}

// TestLoadSeries_NoUsableRows_ReturnsError fails rather than returning
// an empty series when every data row was skipped.
func TestLoadSeries_NoUsableRows_ReturnsError(t *testing.T) {
	path := writeCSV(t, "time,open,high,low,close,volume\n"+
		"not-a-time,10,11,9,10.5,100\n")

	_, err := LoadSeries(path, DefaultColumnMapping)
	assert.Error(t, err)
}

// TestLoadSeries_MissingFile_ReturnsError surfaces the open error.
func TestLoadSeries_MissingFile_ReturnsError(t *testing.T) {
	_, err := LoadSeries(filepath.Join(t.TempDir(), "missing.csv"), DefaultColumnMapping)
	assert.Error(t, err)
}
