package decision

import (
	"context"

	"github.com/cuemby/apollo/pkg/config"
)

// CanHostGoDown decides whether this host may report the main service
// critical without exceeding the cluster's failure budget. Every call does
// a fresh members read; a failed read denies, keeping the host in rotation
// on missing data. The returned health is the members view the decision was
// made against, nil when the read failed.
func (e *Engine) CanHostGoDown(ctx context.Context) (bool, *HealthSummary) {
	health, err := e.view.ServiceHealth(ctx, e.cfg.ServiceName, true)
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to read service members, denying go-down")
		return false, nil
	}

	summary := &HealthSummary{
		Passing:       health.Passing,
		Warning:       health.Warning,
		Critical:      health.Critical,
		CriticalHosts: health.CriticalHosts,
	}

	// A pool with nobody passing must not lose its last hosts unless the
	// operator opted into full outages.
	if health.Passing == 0 && !e.cfg.AllowFullOutage {
		e.logger.Warn().Msg("no passing members and full outage not allowed, denying go-down")
		return false, summary
	}

	if health.Critical == 0 {
		return true, summary
	}
	if e.cfg.ThresholdDown == "" {
		return true, summary
	}

	threshold, err := config.ParseThreshold(e.cfg.ThresholdDown, health.Any())
	if err != nil {
		e.logger.Error().Err(err).Msg("unparsable threshold_down, denying go-down")
		return false, summary
	}

	if health.Critical < threshold {
		return true, summary
	}

	// Budget exhausted. Every instance computes the same sorted prefix, so
	// only the first threshold critical hosts keep their failure slot and
	// the rest fold back to passing. That keeps a thundering herd of
	// failures from flapping the whole pool.
	firstBad := health.CriticalHosts
	if len(firstBad) > threshold {
		firstBad = firstBad[:threshold]
	}
	for _, host := range firstBad {
		if host == e.cfg.Hostname {
			return true, summary
		}
	}
	e.logger.Info().
		Int("critical", health.Critical).
		Int("threshold", threshold).
		Msg("failure budget exhausted and host not in accepted set, denying go-down")
	return false, summary
}

// HealthSummary carries the member counts a go-down decision was made
// against, for the cluster member metrics.
type HealthSummary struct {
	Passing       int
	Warning       int
	Critical      int
	CriticalHosts []string
}

// Any returns the total member count.
func (h HealthSummary) Any() int {
	return h.Passing + h.Warning + h.Critical
}
