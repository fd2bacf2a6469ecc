package decision

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/apollo/pkg/config"
	"github.com/cuemby/apollo/pkg/consul"
	"github.com/cuemby/apollo/pkg/log"
	"github.com/cuemby/apollo/pkg/status"
)

// Action classifies the outcome of a transition evaluation. The action does
// not pick the note's timestamp: that is fresh exactly when the pushed
// verdict changes the consul status, and preserved otherwise.
type Action int

const (
	// Allow pushes the new verdict.
	Allow Action = iota

	// Suppress pushes the overwrite verdict instead (hysteresis holding a
	// degraded state).
	Suppress

	// Noop pushes the verdict as given, without applying any rule to it.
	// The TTL still has to be refreshed every tick.
	Noop
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Suppress:
		return "suppress"
	default:
		return "noop"
	}
}

// ClusterView is the slice of the consul client the engine reads from.
type ClusterView interface {
	ServiceCheck(ctx context.Context, hostname, serviceID string) (*consul.NodeCheck, error)
	ServiceHealth(ctx context.Context, service string, withHosts bool) (*consul.ServiceHealth, error)
}

// Outcome is the result of one transition evaluation.
type Outcome struct {
	Action Action

	// Verdict is the verdict to actually push, after any suppression.
	Verdict status.Verdict

	// Prior is the current consul state of the check, nil when the check
	// has never reported.
	Prior *consul.NodeCheck
}

// ByApollo reports whether the resulting push claims Apollo authorship.
// OOR relinquishes authorship so an external actor's view wins afterwards.
func (o Outcome) ByApollo() bool {
	return o.Verdict != status.VerdictOOR
}

// Since returns the transition timestamp to encode in the push note: now
// when the consul status actually changes, the preserved prior timestamp
// otherwise.
func (o Outcome) Since(now time.Time) float64 {
	if o.Prior == nil || o.Prior.Since < 0 {
		return float64(now.Unix())
	}
	if o.Prior.Status != o.Verdict.ConsulStatus() {
		return float64(now.Unix())
	}
	return o.Prior.Since
}

// Engine implements the verdict transition and cluster-safety rules.
type Engine struct {
	cfg    *config.Config
	view   ClusterView
	logger zerolog.Logger

	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

// NewEngine creates a decision engine over the given cluster view.
func NewEngine(cfg *config.Config, view ClusterView) *Engine {
	return &Engine{
		cfg:    cfg,
		view:   view,
		logger: log.WithComponent("decision"),
		Now:    time.Now,
	}
}

// Transition evaluates whether the new verdict may be pushed for the
// service, reading the check's current consul state fresh. A read failure
// degrades to a Noop push of the new verdict with no prior state.
func (e *Engine) Transition(ctx context.Context, serviceID string, verdict status.Verdict) Outcome {
	prior, err := e.view.ServiceCheck(ctx, e.cfg.Hostname, serviceID)
	if err != nil {
		e.logger.Error().Err(err).Str("service", serviceID).Msg("failed to read current check state")
		return Outcome{Action: Noop, Verdict: verdict}
	}

	outcome := e.transition(prior, verdict)
	e.logger.Debug().
		Str("service", serviceID).
		Str("verdict", verdict.String()).
		Str("action", outcome.Action.String()).
		Str("effective", outcome.Verdict.String()).
		Msg("transition evaluated")
	return outcome
}

func (e *Engine) transition(prior *consul.NodeCheck, verdict status.Verdict) Outcome {
	out := Outcome{Action: Allow, Verdict: verdict, Prior: prior}

	// OOR is authored externally, the engine never argues with it.
	if verdict == status.VerdictOOR {
		out.Action = Noop
		return out
	}

	// A state Apollo did not author is not Apollo's to defend. The new
	// verdict goes out as-is and hysteresis does not apply.
	if prior == nil || !prior.ByApollo {
		out.Action = Noop
		return out
	}

	switch verdict {
	case status.VerdictBad:
		if prior.Status == status.ConsulCritical {
			out.Action = Noop
		}
	case status.VerdictWarn:
		if prior.Status == status.ConsulWarning {
			out.Action = Noop
		}
	case status.VerdictOK:
		switch prior.Status {
		case status.ConsulCritical:
			if !e.dwellElapsed(prior.Since, e.cfg.KeepCriticalSecs) {
				out.Action = Suppress
				out.Verdict = status.VerdictBad
			}
		case status.ConsulWarning:
			if !e.dwellElapsed(prior.Since, e.cfg.KeepWarningSecs) {
				out.Action = Suppress
				out.Verdict = status.VerdictWarn
			}
		}
	}
	return out
}

// dwellElapsed reports whether the hysteresis window has passed. A keep of
// zero disables the window; an unknown transition time never holds a state.
func (e *Engine) dwellElapsed(since float64, keep int64) bool {
	if keep == 0 || since < 0 {
		return true
	}
	return float64(e.Now().Unix())-since > float64(keep)
}
