// Package telemetry wraps prometheus/client_golang metrics for the
// backtest and WFA engines, grounded on the teacher's use of
// prometheus/client_golang for bot-health gauges/counters, generalized
// to batch-processing throughput instead of trading-bot health.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Recorder is the nil-safe telemetry sink consumed by internal/backtest
// and internal/wfa at batch/window boundaries. A nil Recorder (or the
// zero value of *PrometheusRecorder with registration skipped) must
// never be required by callers — Engine.Run only calls these methods
// when cfg.Telemetry is non-nil.
type Recorder interface {
	ObserveCapacity(workers, batchSize int)
	ObserveBatch(tasksCompleted int)
	ObserveWindow(windowID int)
}

// PrometheusRecorder publishes run metrics to a prometheus.Registerer.
type PrometheusRecorder struct {
	workers       prometheus.Gauge
	batchSize     prometheus.Gauge
	tasksDone     prometheus.Counter
	windowsDone   prometheus.Counter
}

// NewPrometheusRecorder registers the engine's gauges/counters against
// reg and returns a ready-to-use Recorder.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_engine_workers",
			Help: "Number of worker goroutines chosen by the capacity heuristic.",
		}),
		batchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backtest_engine_batch_size",
			Help: "Batch size chosen by the capacity heuristic.",
		}),
		tasksDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backtest_engine_tasks_completed_total",
			Help: "Total backtest tasks completed.",
		}),
		windowsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wfa_engine_windows_completed_total",
			Help: "Total walk-forward windows completed.",
		}),
	}
	for _, c := range []prometheus.Collector{r.workers, r.batchSize, r.tasksDone, r.windowsDone} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) ObserveCapacity(workers, batchSize int) {
	r.workers.Set(float64(workers))
	r.batchSize.Set(float64(batchSize))
}

func (r *PrometheusRecorder) ObserveBatch(tasksCompleted int) {
	r.tasksDone.Add(float64(tasksCompleted))
}

func (r *PrometheusRecorder) ObserveWindow(windowID int) {
	r.windowsDone.Inc()
}
