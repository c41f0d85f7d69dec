package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	syncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remind_sync_total",
			Help: "Total number of schedule syncs by outcome",
		},
		[]string{"outcome"},
	)

	jobOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remind_job_operations_total",
			Help: "Keyed job replace/remove calls against the queue",
		},
		[]string{"operation", "status"},
	)

	fireTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remind_fire_total",
			Help: "Total number of reminder firings by outcome",
		},
		[]string{"outcome"},
	)

	transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remind_status_transitions_total",
			Help: "Schedule status transitions",
		},
		[]string{"to"},
	)

	resolveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remind_resolve_duration_seconds",
			Help:    "Next-occurrence resolution latency in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
		[]string{"reason"},
	)

	reconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remind_reconcile_schedules_total",
			Help: "Schedules visited by reconcile runs",
		},
		[]string{"status"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordSync(outcome string) {
	syncTotal.WithLabelValues(outcome).Inc()
}

func RecordJobOperation(operation string, err error) {
	jobOperations.WithLabelValues(operation, status(err)).Inc()
}

func RecordFire(outcome string) {
	fireTotal.WithLabelValues(outcome).Inc()
}

func RecordTransition(to string) {
	transitions.WithLabelValues(to).Inc()
}

func RecordResolve(reason string, duration time.Duration) {
	resolveDuration.WithLabelValues(reason).Observe(duration.Seconds())
}

func RecordReconcile(err error) {
	reconcileTotal.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}
