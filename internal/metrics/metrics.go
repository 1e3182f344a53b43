// Package metrics exposes Prometheus counters for the edge lifecycle. A
// Recorder owns its own registry so tests and multiple engines never collide;
// every method is safe to call on a nil *Recorder.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "edgesim"

// 生命周期的终止路径。
const (
	PathViewerShortCircuit = "viewer_short_circuit"
	PathCacheHit           = "cache_hit"
	PathOrigin             = "origin"
	PathOriginShortCircuit = "origin_short_circuit"
	PathError              = "error"
)

// Recorder 汇总阶段调用、缓存与回源的计数。
type Recorder struct {
	registry *prometheus.Registry

	stageInvocations *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	cacheWrites      *prometheus.CounterVec
	originFetches    *prometheus.CounterVec
	runs             *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
}

// New 创建 Recorder 并注册全部指标以及 Go 运行时采集器。
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stageInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_invocations_total",
				Help:      "Count of edge function invocations by stage and result.",
			},
			[]string{"stage", "result"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Count of cache lookups by result.",
			},
			[]string{"result"},
		),
		cacheWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "writes_total",
				Help:      "Count of cache writes by result.",
			},
			[]string{"result"},
		),
		originFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "origin",
				Name:      "fetches_total",
				Help:      "Count of origin fetches by origin kind and result.",
			},
			[]string{"kind", "result"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_runs_total",
				Help:      "Count of completed lifecycle runs by termination path.",
			},
			[]string{"path"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lifecycle_duration_seconds",
				Help:      "Lifecycle run latency by termination path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path"},
		),
	}
	r.registry.MustRegister(
		r.stageInvocations,
		r.cacheLookups,
		r.cacheWrites,
		r.originFetches,
		r.runs,
		r.runDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry 返回底层注册表，供 /-/metrics 暴露。
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordStage 记录一次阶段处理器调用，result 为 continue/terminal/error。
func (r *Recorder) RecordStage(stage, result string) {
	if r == nil {
		return
	}
	r.stageInvocations.WithLabelValues(stage, result).Inc()
}

// RecordCacheLookup 记录缓存查询，result 为 hit/miss/error。
func (r *Recorder) RecordCacheLookup(result string) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordCacheWrite 记录缓存写入，result 为 ok/error。
func (r *Recorder) RecordCacheWrite(result string) {
	if r == nil {
		return
	}
	r.cacheWrites.WithLabelValues(result).Inc()
}

// RecordOriginFetch 记录一次回源，result 为 ok/not_found/error。
func (r *Recorder) RecordOriginFetch(kind, result string) {
	if r == nil {
		return
	}
	r.originFetches.WithLabelValues(kind, result).Inc()
}

// RecordRun 记录一次生命周期执行的终止路径与耗时。
func (r *Recorder) RecordRun(path string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(path).Inc()
	r.runDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}
