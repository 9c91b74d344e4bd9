package backtest

import (
	"sync"
	"time"
)

// Batch is one unit of work: a contiguous slice of enumerated Tasks
// sharing a (entryCount, exitCount) group, sized per the capacity plan.
// Run (engine.go) fans these out through an errgroup.Group instead of the
// teacher's hand-rolled channel pool, since golang.org/x/sync/errgroup is
// already in the pack's ecosystem and collapses the submit/collect/drain
// boilerplate the teacher's WorkerPool existed to manage.
type Batch struct {
	GroupKey groupKey
	Tasks    []Task
}

// ProgressTracker reports batch-processing throughput, adapted verbatim
// from the teacher's ProgressTracker idiom for use in telemetry logging.
type ProgressTracker struct {
	total     int
	completed int
	startTime time.Time
	mu        sync.RWMutex
}

func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{total: total, startTime: time.Now()}
}

func (pt *ProgressTracker) Increment(n int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.completed += n
}

func (pt *ProgressTracker) Progress() (completed, total int, pct float64, elapsed time.Duration) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	elapsed = time.Since(pt.startTime)
	if pt.total > 0 {
		pct = float64(pt.completed) / float64(pt.total) * 100
	}
	return pt.completed, pt.total, pct, elapsed
}
