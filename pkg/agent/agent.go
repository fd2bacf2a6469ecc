package agent

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/apollo/pkg/check"
	"github.com/cuemby/apollo/pkg/config"
	"github.com/cuemby/apollo/pkg/consul"
	"github.com/cuemby/apollo/pkg/decision"
	"github.com/cuemby/apollo/pkg/events"
	"github.com/cuemby/apollo/pkg/ledger"
	"github.com/cuemby/apollo/pkg/log"
	"github.com/cuemby/apollo/pkg/metrics"
	"github.com/cuemby/apollo/pkg/status"
)

// CheckSpec describes one scheduled check.
type CheckSpec struct {
	// Name is the human name: the sub-service name, or the service name
	// for the main check.
	Name string

	// ID is the on-the-wire consul service id.
	ID string

	Script    string
	Frequency int
	Retries   int
	Main      bool
}

// BuildSpecs derives the check list from the configuration: all
// sub-services first (sorted by name), then the main service when it has a
// check command.
func BuildSpecs(cfg *config.Config) []CheckSpec {
	names := make([]string, 0, len(cfg.ExtraService))
	for name := range cfg.ExtraService {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]CheckSpec, 0, len(names)+1)
	for _, name := range names {
		extra := cfg.ExtraService[name]
		specs = append(specs, CheckSpec{
			Name:      name,
			ID:        cfg.SubServiceID(name),
			Script:    extra.Healthcheck,
			Frequency: extra.Frequency,
			Retries:   extra.Retries,
		})
	}
	if cfg.ServiceCmd != "" {
		specs = append(specs, CheckSpec{
			Name:      cfg.ServiceName,
			ID:        cfg.ServiceName,
			Script:    cfg.ServiceCmd,
			Frequency: cfg.ServiceFrequency,
			Retries:   1,
			Main:      true,
		})
	}
	return specs
}

// Healer is the heal orchestrator's surface the agent triggers on fast-heal
// verdicts.
type Healer interface {
	Heal(ctx context.Context, fast bool)
}

// Agent runs the per-tick pipeline for every check: script execution,
// cluster-safety gating, transition evaluation, ledger bookkeeping, and the
// consul TTL push.
type Agent struct {
	cfg    *config.Config
	consul *consul.Client
	engine *decision.Engine
	runner *check.Runner
	ledger *ledger.Ledger
	broker *events.Broker
	logger zerolog.Logger

	healer Healer

	mu       sync.Mutex
	snapshot map[string]string

	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

// New creates an agent. The healer is attached separately because the heal
// orchestrator consumes the agent's environment builder.
func New(cfg *config.Config, client *consul.Client, engine *decision.Engine, runner *check.Runner, ldg *ledger.Ledger, broker *events.Broker) *Agent {
	return &Agent{
		cfg:    cfg,
		consul: client,
		engine: engine,
		runner: runner,
		ledger: ldg,
		broker: broker,
		logger: log.WithComponent("agent"),
		Now:    time.Now,
	}
}

// SetHealer attaches the heal orchestrator.
func (a *Agent) SetHealer(h Healer) {
	a.healer = h
}

// Tick runs one scheduled invocation of the check.
func (a *Agent) Tick(ctx context.Context, spec CheckSpec) {
	logger := a.logger.With().Str("check", spec.Name).Logger()

	env := a.Environment(ctx)
	result := a.runner.Run(ctx, spec.Name, spec.Script, status.MergeEnv(env))
	verdict, fastHeal := result.Verdict, result.FastHeal

	// Main-service failures are gated by the cluster failure budget,
	// read fresh immediately before any fail push.
	if spec.Main && verdict != status.VerdictOK && verdict != status.VerdictOOR {
		allowed, summary := a.engine.CanHostGoDown(ctx)
		if summary != nil {
			metrics.SetClusterMembers(summary.Passing, summary.Warning, summary.Critical)
		}
		if !allowed {
			logger.Warn().Str("verdict", verdict.String()).Msg("cluster-safety denied going down, reporting ok")
			verdict = status.VerdictOK
		}
	}

	outcome := a.engine.Transition(ctx, spec.ID, verdict)

	// The environment at the moment the main service leaves OK is frozen
	// for the next heal call.
	if spec.Main && verdict != status.VerdictOK && verdict != status.VerdictOOR && outcome.Action == decision.Allow {
		a.captureSnapshot(env)
	}

	now := a.Now()
	wire := outcome.Verdict
	demoted := false

	if wire != status.VerdictOOR {
		if err := a.ledger.Append(spec.ID, now.Unix(), wire); err != nil {
			logger.Error().Err(err).Msg("ledger write failed")
		}
		// A BAD run below the retry budget goes out as WARN; the ledger
		// keeps the truth so the budget fills across ticks.
		if wire == status.VerdictBad {
			hard, err := a.ledger.HardFailing(spec.ID, spec.Retries)
			if err != nil {
				logger.Error().Err(err).Msg("ledger read failed")
			} else if !hard {
				wire = status.VerdictWarn
				demoted = true
			}
		}
	}

	if spec.Main {
		a.maintainBadFlag(outcome.Verdict == status.VerdictBad)
	}

	byApollo := wire != status.VerdictOOR
	since := pushSince(outcome.Prior, wire, now)
	note := consul.Note(byApollo, since)
	if err := a.consul.UpdateTTL(ctx, spec.ID, wire.PushVerb(), note); err != nil {
		logger.Error().Err(err).Str("verb", wire.PushVerb()).Msg("consul push failed")
	} else {
		logger.Info().
			Str("verb", wire.PushVerb()).
			Str("verdict", outcome.Verdict.String()).
			Bool("demoted", demoted).
			Str("action", outcome.Action.String()).
			Msg("status pushed")
	}

	a.publish(spec, outcome, result, demoted)

	if fastHeal && a.healer != nil {
		logger.Info().Msg("fast heal requested by check")
		a.healer.Heal(ctx, true)
	}
}

// pushSince picks the transition timestamp encoded in the note: fresh when
// the consul status actually changes, preserved otherwise.
func pushSince(prior *consul.NodeCheck, wire status.Verdict, now time.Time) float64 {
	if prior == nil || prior.Since < 0 || prior.Status != wire.ConsulStatus() {
		return float64(now.Unix())
	}
	return prior.Since
}

func (a *Agent) maintainBadFlag(bad bool) {
	if bad {
		f, err := os.OpenFile(a.cfg.BadFlagFile, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			a.logger.Error().Err(err).Msg("failed to create bad flag file")
			return
		}
		f.Close()
		return
	}
	if err := os.Remove(a.cfg.BadFlagFile); err != nil && !os.IsNotExist(err) {
		a.logger.Error().Err(err).Msg("failed to remove bad flag file")
	}
}

func (a *Agent) publish(spec CheckSpec, outcome decision.Outcome, result check.Result, demoted bool) {
	var typ events.EventType
	switch outcome.Verdict {
	case status.VerdictOK:
		typ = events.EventCheckOK
	case status.VerdictWarn:
		typ = events.EventCheckWarn
	case status.VerdictBad:
		typ = events.EventCheckBad
	default:
		typ = events.EventCheckOOR
	}
	a.broker.Publish(&events.Event{
		Type:     typ,
		Check:    spec.Name,
		Verdict:  outcome.Verdict.String(),
		Duration: result.Duration,
	})
	if outcome.Action == decision.Suppress {
		a.broker.Publish(&events.Event{Type: events.EventCheckSuppressed, Check: spec.Name})
	}
	if demoted {
		a.broker.Publish(&events.Event{Type: events.EventCheckDemoted, Check: spec.Name})
	}
}
