package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики release pipeline.
//
// Регистрируются в default registry; /metrics поднимается в main
// каждого бинарника через promhttp.Handler().
var (
	// RunsTotal — количество завершённых runs по терминальному статусу.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relman_runs_total",
		Help: "Total finished release runs by terminal status",
	}, []string{"status"})

	// StageDuration — длительность стадий pipeline.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relman_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"stage", "status"})

	// StageFailures — количество падений по стадиям.
	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relman_stage_failures_total",
		Help: "Total stage failures by stage name",
	}, []string{"stage"})

	// TriggersTotal — принятые и отклонённые триггеры.
	TriggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relman_triggers_total",
		Help: "Total trigger events by kind and decision",
	}, []string{"kind", "decision"})
)

// ObserveStage записывает длительность и статус завершённой стадии.
func ObserveStage(stage string, status string, d time.Duration) {
	StageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
	if status == "FAILED" {
		StageFailures.WithLabelValues(stage).Inc()
	}
}
