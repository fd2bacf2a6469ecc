package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Check metrics
	CheckRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apollo_check_runs_total",
			Help: "Total number of check runs by check and verdict",
		},
		[]string{"check", "verdict"},
	)

	CheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apollo_check_duration_seconds",
			Help:    "Check script duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"check"},
	)

	ChecksSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apollo_checks_suppressed_total",
			Help: "Recoveries held back by the hysteresis window, by check",
		},
		[]string{"check"},
	)

	ChecksDemoted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apollo_checks_demoted_total",
			Help: "BAD verdicts pushed as WARN while below the retry budget, by check",
		},
		[]string{"check"},
	)

	TicksDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apollo_ticks_dropped_total",
			Help: "Timer firings dropped because the previous run was still active",
		},
		[]string{"check"},
	)

	// Heal metrics
	HealRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apollo_heal_runs_total",
			Help: "Total number of heal command runs by result",
		},
		[]string{"result"},
	)

	HealDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "apollo_heal_duration_seconds",
			Help:    "Heal command duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Cluster metrics
	ClusterMembers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "apollo_cluster_members",
			Help: "Members of the main service pool by consul status, as of the last safety read",
		},
		[]string{"status"},
	)

	ReportsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "apollo_reports_written_total",
			Help: "Total number of status reports written",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(CheckRunsTotal)
	prometheus.MustRegister(CheckDuration)
	prometheus.MustRegister(ChecksSuppressed)
	prometheus.MustRegister(ChecksDemoted)
	prometheus.MustRegister(TicksDropped)
	prometheus.MustRegister(HealRunsTotal)
	prometheus.MustRegister(HealDuration)
	prometheus.MustRegister(ClusterMembers)
	prometheus.MustRegister(ReportsWritten)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
