// Package metrics exposes Prometheus counters for the ward service and the
// /metrics exposition endpoint.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AssignmentsCreated counts successfully created bed assignments.
	AssignmentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wardd",
		Name:      "assignments_created_total",
		Help:      "Number of bed assignments created.",
	})

	// AssignmentsReleased counts manual releases.
	AssignmentsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wardd",
		Name:      "assignments_released_total",
		Help:      "Number of bed assignments released by callers.",
	})

	// AssignmentsExpired counts assignments force-released by the sweeper.
	AssignmentsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wardd",
		Name:      "assignments_expired_total",
		Help:      "Number of bed assignments force-released after exceeding the holding limit.",
	})

	// SweepRuns counts sweeper passes, labelled by outcome.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wardd",
		Name:      "sweep_runs_total",
		Help:      "Number of expiry sweep passes.",
	}, []string{"outcome"})
)

// Handler returns the Prometheus exposition endpoint as an echo handler.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
