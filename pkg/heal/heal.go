package heal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/apollo/pkg/check"
	"github.com/cuemby/apollo/pkg/config"
	"github.com/cuemby/apollo/pkg/consul"
	"github.com/cuemby/apollo/pkg/events"
	"github.com/cuemby/apollo/pkg/log"
	"github.com/cuemby/apollo/pkg/status"
)

// EnvSource supplies the child environment and the frozen snapshot captured
// when the main service left OK. Implemented by the agent.
type EnvSource interface {
	Environment(ctx context.Context) map[string]string
	Snapshot() map[string]string
	ClearSnapshot()
}

// Record is the last-heal marker file content.
type Record struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"time"`
	Fast   bool      `json:"fast"`
	Status string    `json:"status"`
}

// Heal record statuses.
const (
	StatusStarting = "starting"
	StatusHealed   = "healed"
	StatusFailed   = "failed"
)

// Orchestrator gates and runs the heal command.
type Orchestrator struct {
	cfg    *config.Config
	consul *consul.Client
	runner *check.Runner
	env    EnvSource
	broker *events.Broker
	logger zerolog.Logger

	mu         sync.Mutex
	inFlight   bool
	alreadyRan bool

	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

// New creates a heal orchestrator.
func New(cfg *config.Config, client *consul.Client, runner *check.Runner, env EnvSource, broker *events.Broker) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		consul: client,
		runner: runner,
		env:    env,
		broker: broker,
		logger: log.WithComponent("heal"),
		Now:    time.Now,
	}
}

// Heal runs one gated heal attempt. fast bypasses the heal_on_status gate;
// the dryrun, first-invocation, authorship, and executable gates always
// apply. Overlapping invocations are dropped.
func (o *Orchestrator) Heal(ctx context.Context, fast bool) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		o.logger.Warn().Msg("heal already in flight, dropping invocation")
		return
	}
	o.inFlight = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	if o.cfg.HealDryrun {
		o.logger.Info().Msg("heal_dryrun set, skipping heal")
		return
	}

	// The very first firing is skipped so the first round of checks gets
	// to publish status before any repair decision is made.
	o.mu.Lock()
	first := !o.alreadyRan
	o.alreadyRan = true
	o.mu.Unlock()
	if first {
		// The heal timer's first firing lands right after startup, before
		// any check has published status.
		o.logger.Debug().Msg("first heal invocation, skipping")
		return
	}

	current, err := o.consul.ServiceCheck(ctx, o.cfg.Hostname, o.cfg.ServiceName)
	if err != nil {
		o.logger.Error().Err(err).Msg("failed to read main service status, skipping heal")
		return
	}
	if current == nil || !current.ByApollo {
		o.logger.Debug().Msg("main service status not authored by apollo, skipping heal")
		return
	}

	if !fast && o.cfg.HealOnStatus != status.ConsulAny && current.Status != o.cfg.HealOnStatus {
		o.logger.Debug().
			Str("current", current.Status).
			Str("heal_on_status", o.cfg.HealOnStatus).
			Msg("status does not match heal_on_status, skipping heal")
		return
	}

	argv := strings.Fields(o.cfg.HealCmd)
	if len(argv) == 0 || !check.Executable(argv[0]) {
		o.logger.Warn().Str("heal_cmd", o.cfg.HealCmd).Msg("heal command not executable, skipping heal")
		return
	}

	o.run(ctx, fast)
}

func (o *Orchestrator) run(ctx context.Context, fast bool) {
	id := uuid.New().String()
	vars := []map[string]string{o.env.Environment(ctx)}
	if snap := o.env.Snapshot(); snap != nil {
		vars = append(vars, snap)
	}
	if fast {
		vars = append(vars, map[string]string{status.EnvFastHealing: "1"})
	}

	o.touchActive()
	o.writeRecord(Record{ID: id, Time: o.Now(), Fast: fast, Status: StatusStarting})
	o.broker.Publish(&events.Event{ID: id, Type: events.EventHealStarted})
	o.logger.Info().Str("id", id).Bool("fast", fast).Msg("running heal command")

	result := o.runner.Run(ctx, "heal", o.cfg.HealCmd, status.MergeEnv(vars...))

	finalStatus := StatusFailed
	if result.Succeeded() {
		finalStatus = StatusHealed
	}
	o.removeActive()
	o.writeRecord(Record{ID: id, Time: o.Now(), Fast: fast, Status: finalStatus})
	o.env.ClearSnapshot()

	o.broker.Publish(&events.Event{
		ID:       id,
		Type:     events.EventHealFinished,
		Healed:   finalStatus == StatusHealed,
		Duration: result.Duration,
	})
	o.logger.Info().Str("id", id).Str("status", finalStatus).Dur("duration", result.Duration).Msg("heal finished")
}

func (o *Orchestrator) touchActive() {
	if err := os.MkdirAll(filepath.Dir(o.cfg.HealingActiveFile), 0755); err != nil {
		o.logger.Error().Err(err).Msg("failed to create heal marker directory")
		return
	}
	f, err := os.OpenFile(o.cfg.HealingActiveFile, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		o.logger.Error().Err(err).Msg("failed to touch heal active marker")
		return
	}
	f.Close()
}

func (o *Orchestrator) removeActive() {
	if err := os.Remove(o.cfg.HealingActiveFile); err != nil && !os.IsNotExist(err) {
		o.logger.Error().Err(err).Msg("failed to remove heal active marker")
	}
}

func (o *Orchestrator) writeRecord(rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		o.logger.Error().Err(err).Msg("failed to encode heal record")
		return
	}
	if err := os.WriteFile(o.cfg.HealingLastFile, append(data, '\n'), 0644); err != nil {
		o.logger.Error().Err(err).Msg("failed to write heal record")
	}
}
