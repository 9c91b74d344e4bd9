// Package dataloader provides a minimal CSV bar loader for cmd/backtest
// and cmd/wfa. Grounded on the teacher's pkg/data/csv_provider.go column
// mapping and skip-bad-row behavior, reworked to build a pkg/types.Series
// (struct-of-arrays) instead of an []types.OHLCV. Loading bar data is
// explicitly out of scope for the engine itself (spec.md §1) — this is
// sample CLI wiring, not a spec component.
package dataloader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/lo2cin4bt/backtest-engine/pkg/types"
)

// ColumnMapping names which CSV column holds each OHLCV field.
type ColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	DateFormat   string
}

// DefaultColumnMapping matches a "time,open,high,low,close,volume" CSV with
// RFC3339 timestamps.
var DefaultColumnMapping = ColumnMapping{
	TimestampCol: 0, OpenCol: 1, HighCol: 2, LowCol: 3, CloseCol: 4, VolumeCol: 5,
	DateFormat: time.RFC3339,
}

// LoadSeries reads a bar CSV into a types.Series, skipping malformed rows.
func LoadSeries(path string, mapping ColumnMapping) (*types.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		return nil, fmt.Errorf("read header: %w", err)
	}

	series := &types.Series{}
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		need := mapping.VolumeCol
		if mapping.CloseCol > need {
			need = mapping.CloseCol
		}
		if len(record) <= need {
			continue
		}

		ts, err := time.Parse(mapping.DateFormat, record[mapping.TimestampCol])
		if err != nil {
			continue
		}
		open, err1 := strconv.ParseFloat(record[mapping.OpenCol], 64)
		high, err2 := strconv.ParseFloat(record[mapping.HighCol], 64)
		low, err3 := strconv.ParseFloat(record[mapping.LowCol], 64)
		closeP, err4 := strconv.ParseFloat(record[mapping.CloseCol], 64)
		volume, err5 := strconv.ParseFloat(record[mapping.VolumeCol], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}
		if open <= 0 || high <= 0 || low <= 0 || closeP <= 0 {
			continue
		}

		series.Time = append(series.Time, ts)
		series.Open = append(series.Open, open)
		series.High = append(series.High, high)
		series.Low = append(series.Low, low)
		series.Close = append(series.Close, closeP)
		series.Volume = append(series.Volume, volume)
	}

	if len(series.Time) == 0 {
		return nil, fmt.Errorf("no usable rows in %s", path)
	}
	return series, nil
}
