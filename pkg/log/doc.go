/*
Package log provides structured logging for Apollo using zerolog.

The log package wraps the zerolog library to provide structured logging,
written as JSON or through zerolog's console writer, with component-specific
loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Usage

Initializing the logger:

	import "github.com/cuemby/apollo/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Component loggers:

	checkLog := log.WithComponent("scheduler")
	checkLog.Info().Str("check", "httpok").Msg("tick dropped, previous run still active")

Structured logging:

	log.Logger.Error().
		Err(err).
		Str("service", "www").
		Msg("consul push failed")

# Integration Points

This package integrates with:

  - pkg/agent: logs check verdicts and consul transitions
  - pkg/scheduler: logs timer arming and dropped ticks
  - pkg/heal: logs heal gating decisions and outcomes
  - pkg/consul: logs HTTP retries against the local agent

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - 12-Factor App Logs: https://12factor.net/logs
*/
package log
