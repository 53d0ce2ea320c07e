package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "hierbuild"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	operationDuration *prom.HistogramVec
	operationResults  *prom.CounterVec
	runDuration       prom.Histogram
	runOutcome        *prom.CounterVec
	mergeSources      *prom.CounterVec
	mergeFiles        prom.Counter
	mergeBytes        prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.operationDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of executed operations by operation name",
			Buckets:   prom.DefBuckets,
		}, []string{"operation"})
		pr.operationResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "operation_results_total",
			Help:      "Operation result counts by outcome",
		}, []string{"operation", "result"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total invocation duration",
			Buckets:   prom.DefBuckets,
		})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Invocation outcomes by final status",
		}, []string{"outcome"})
		pr.mergeSources = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "merge_sources_total",
			Help:      "Child repositories considered by repository merges",
		}, []string{"result"})
		pr.mergeFiles = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "merge_files_total",
			Help:      "Files copied into aggregate repositories",
		})
		pr.mergeBytes = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "merge_bytes_total",
			Help:      "Bytes copied into aggregate repositories",
		})
		reg.MustRegister(pr.operationDuration, pr.operationResults, pr.runDuration, pr.runOutcome,
			pr.mergeSources, pr.mergeFiles, pr.mergeBytes)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveOperationDuration(operation string, d time.Duration) {
	if p == nil || p.operationDuration == nil {
		return
	}
	p.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncOperationResult(operation string, result ResultLabel) {
	if p == nil || p.operationResults == nil {
		return
	}
	p.operationResults.WithLabelValues(operation, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome RunOutcomeLabel) {
	if p == nil || p.runOutcome == nil {
		return
	}
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveMerge(merged, skipped, files int, bytes int64) {
	if p == nil || p.mergeSources == nil {
		return
	}
	p.mergeSources.WithLabelValues("merged").Add(float64(merged))
	p.mergeSources.WithLabelValues("skipped").Add(float64(skipped))
	p.mergeFiles.Add(float64(files))
	p.mergeBytes.Add(float64(bytes))
}
