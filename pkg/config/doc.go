/*
Package config loads Apollo's YAML configuration.

The configuration is immutable after load. service_name, hostname, and colo
are mandatory; everything else has a default. Unknown keys are rejected so a
typo fails the daemon at startup instead of silently disabling a feature.

	service_name: www
	service_cmd: /usr/local/bin/check_www --quick
	service_frequency: 30
	extra_service:
	  httpok:
	    healthcheck: /usr/local/bin/check_http
	    frequency: 15
	    retries: 3
	heal_cmd: /usr/local/bin/heal
	heal_frequency: 120
	heal_on_status: critical
	keep_critical_secs: 90
	threshold_down: "30%"
	hostname: w01
	colo: par

heal_on_status uses consul's vocabulary (passing/warning/critical) plus
any. threshold_down is either a literal count or a percentage of the pool.
*/
package config
