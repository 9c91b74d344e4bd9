package backtest

import (
	"fmt"
	"runtime"
	"runtime/debug"

	engerrors "github.com/lo2cin4bt/backtest-engine/internal/errors"
)

// CapacityPlan is the resolved worker count, batch size, and projected
// memory usage chosen by the System Capacity Heuristic (spec.md §4.5).
type CapacityPlan struct {
	Workers        int
	BatchSize      int
	ProjectedMB    float64
	AvailableGiB   float64
	Summary        string
}

const perTaskMB = 0.15

// PlanCapacity applies spec.md §4.5's System Capacity Heuristic to n
// tasks, given a detected or overridden CPU count and available memory
// (GiB). workerOverride/batchOverride of 0 mean "auto".
func PlanCapacity(n, workerOverride, batchOverride int, availableGiB float64) (CapacityPlan, error) {
	cores := runtime.NumCPU()
	if availableGiB <= 0 {
		availableGiB = detectAvailableGiB()
	}

	workers := workerOverride
	if workers <= 0 {
		workers = workersForCores(cores)
		if availableGiB < 2 {
			workers = maxInt(1, workers/2)
		}
	}

	batch := batchOverride
	if batch <= 0 {
		batch = batchSizeFor(n, workers)
	}

	projectedMB := perTaskMB * float64(n)
	availableMB := availableGiB * 1024
	threshold := memoryThreshold(availableGiB)
	plan := CapacityPlan{
		Workers:      workers,
		BatchSize:    batch,
		ProjectedMB:  projectedMB,
		AvailableGiB: availableGiB,
	}
	plan.Summary = fmt.Sprintf("capacity: cores=%d workers=%d batch=%d tasks=%d projected=%.1fMB available=%.1fGiB",
		cores, workers, batch, n, projectedMB, availableGiB)

	if availableMB > 0 && projectedMB > availableMB*threshold {
		debug.FreeOSMemory()
		projectedMB = perTaskMB * float64(n) // re-estimate is identical; GC only reclaims Go heap, not task footprint
		if projectedMB > availableMB*threshold {
			return plan, engerrors.New(engerrors.KindOutOfMemory, "backtest", "PlanCapacity",
				fmt.Sprintf("projected %.1fMB exceeds %.0f%% of %.1fMB available after forced GC", projectedMB, threshold*100, availableMB))
		}
	}
	return plan, nil
}

func workersForCores(cores int) int {
	switch {
	case cores >= 8:
		return cores - 1
	case cores >= 5:
		return minInt(cores-1, 6)
	case cores >= 3:
		return maxInt(2, cores-1)
	default:
		return 1
	}
}

func batchSizeFor(n, workers int) int {
	switch {
	case n <= 100:
		return maxInt(20, n/2)
	case n <= 1000:
		return maxInt(50, n/(2*workers))
	case n <= 10000:
		return maxInt(200, n/(2*workers))
	default:
		return maxInt(400, n/(3*workers))
	}
}

func memoryThreshold(availableGiB float64) float64 {
	if availableGiB < 4 {
		return 0.80
	}
	return 0.95
}

func detectAvailableGiB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	// runtime.MemStats reports process heap, not system memory; treated
	// as a conservative proxy when no better signal is available.
	sysGiB := float64(m.Sys) / (1024 * 1024 * 1024)
	if sysGiB < 1 {
		return 4 // fall back to a moderate assumption
	}
	return sysGiB * 4
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
