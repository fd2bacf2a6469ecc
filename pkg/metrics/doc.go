/*
Package metrics provides Prometheus metrics collection and exposition for Apollo.

The metrics package defines and registers all Apollo metrics using the
Prometheus client library, providing observability into check verdicts, heal
activity, and the cluster view the safety decisions are made against. Metrics
are exposed via an optional HTTP endpoint for scraping by Prometheus servers.

# Metrics

Check metrics:

	apollo_check_runs_total{check,verdict}   counter of script runs by verdict
	apollo_check_duration_seconds{check}     script duration histogram
	apollo_checks_suppressed_total{check}    recoveries held by hysteresis
	apollo_checks_demoted_total{check}       BAD pushed as WARN under the retry budget
	apollo_ticks_dropped_total{check}        timer firings dropped by single-flight

Heal metrics:

	apollo_heal_runs_total{result}           heal runs by healed/failed
	apollo_heal_duration_seconds             heal command duration histogram

Cluster metrics:

	apollo_cluster_members{status}           pool members as of the last safety read
	apollo_reports_written_total             status reports written

# Usage

The recorder converts broker events into series, so instrumentation lives in
one place instead of being sprinkled through the check pipeline:

	broker := events.NewBroker()
	defer broker.Close()

	recorder := metrics.NewRecorder(broker)
	recorder.Start()
	defer recorder.Stop()

	// Expose /metrics when metrics_addr is configured
	go metrics.Serve("127.0.0.1:9102")

# Integration Points

  - pkg/events: the recorder subscribes to the broker
  - pkg/agent: publishes check events and sets cluster member gauges
  - pkg/heal: publishes heal lifecycle events
  - cmd/apollo: starts the recorder and the optional listener

# See Also

  - Prometheus client library: https://github.com/prometheus/client_golang
  - Metric naming: https://prometheus.io/docs/practices/naming/
*/
package metrics
