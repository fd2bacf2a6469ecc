package agent

import (
	"context"

	"github.com/cuemby/apollo/pkg/consul"
	"github.com/cuemby/apollo/pkg/status"
)

// Environment builds the APOLLO_* bindings for a child process from a fresh
// consul read: one summary per registered service, main first. Read
// failures degrade to a summary without cluster counts rather than blocking
// the child.
func (a *Agent) Environment(ctx context.Context) map[string]string {
	env := status.Environment{
		ServiceName: a.cfg.ServiceName,
		Datacenter:  a.cfg.Colo,
	}

	ids := []string{a.cfg.ServiceName}
	for name := range a.cfg.ExtraService {
		ids = append(ids, a.cfg.SubServiceID(name))
	}

	checks, err := a.consul.NodeChecks(ctx, a.cfg.Hostname)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to read node checks for environment")
	}
	byService := map[string]consul.NodeCheck{}
	for _, c := range checks {
		if c.ServiceID != "" {
			byService[c.ServiceID] = c
		}
	}

	for _, id := range ids {
		summary := status.ServiceSummary{
			ID:     id,
			Status: status.ConsulPassing,
			Since:  -1,
		}
		if c, ok := byService[id]; ok {
			summary.Status = c.Status
			summary.Since = int64(c.Since)
		}
		if health, err := a.consul.ServiceHealth(ctx, id, false); err != nil {
			a.logger.Error().Err(err).Str("service", id).Msg("failed to read service health for environment")
		} else {
			summary.Passing = health.Passing
			summary.Warning = health.Warning
			summary.Critical = health.Critical
		}
		env.Services = append(env.Services, summary)
	}

	return env.Vars()
}

func (a *Agent) captureSnapshot(env map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshot = status.SnapshotVars(env)
	a.logger.Info().Int("keys", len(a.snapshot)).Msg("captured environment snapshot")
}

// Snapshot returns the APOLLO_SNAPSHOT_* overlay captured when the main
// service left OK, nil when none is active.
func (a *Agent) Snapshot() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.snapshot == nil {
		return nil
	}
	snap := make(map[string]string, len(a.snapshot))
	for k, v := range a.snapshot {
		snap[k] = v
	}
	return snap
}

// ClearSnapshot drops the stored snapshot after a heal consumed it.
func (a *Agent) ClearSnapshot() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshot = nil
}
