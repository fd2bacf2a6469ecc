package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/apollo/pkg/agent"
	"github.com/cuemby/apollo/pkg/config"
	"github.com/cuemby/apollo/pkg/events"
	"github.com/cuemby/apollo/pkg/log"
)

const (
	// initialDelay arms every check timer; the first bodies run only
	// after the consul registrations have settled.
	initialDelay = 10 * time.Second

	// healInitialDelay arms the heal timer. Its first firing is consumed
	// by the orchestrator's first-invocation skip.
	healInitialDelay = 100 * time.Millisecond

	// Jitter windows in milliseconds. Sub-services draw from
	// [subJitterMin, subJitterMax); the main service lands after the
	// largest sub offset so its safety read sees the subs' pushes.
	subJitterMin  = 10
	subJitterMax  = 200
	mainJitterGap = 100
	mainJitterWin = 200
)

// Healer is the heal orchestrator's surface the heal timer drives.
type Healer interface {
	Heal(ctx context.Context, fast bool)
}

// Reporter writes the status report after each heal tick.
type Reporter interface {
	Write(ctx context.Context) error
}

// job is one scheduled check with its jitter offset and in-flight flag.
type job struct {
	spec   agent.CheckSpec
	offset time.Duration
	busy   atomic.Bool
}

// Scheduler owns the check and heal timers: jittered start offsets,
// per-check single-flight, and the heal/report cycle.
type Scheduler struct {
	cfg      *config.Config
	agent    *agent.Agent
	healer   Healer
	reporter Reporter
	broker   *events.Broker
	logger   zerolog.Logger

	jobs   []*job
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a scheduler over the configured checks. Offsets are drawn
// once: each sub-service uniformly in [10,200) ms, the main service
// uniformly in [maxSub+100, maxSub+300) ms.
func New(cfg *config.Config, a *agent.Agent, healer Healer, reporter Reporter, broker *events.Broker) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		agent:    a,
		healer:   healer,
		reporter: reporter,
		broker:   broker,
		logger:   log.WithComponent("scheduler"),
		stopCh:   make(chan struct{}),
	}

	maxSub := 0
	for _, spec := range agent.BuildSpecs(cfg) {
		j := &job{spec: spec}
		if spec.Main {
			j.offset = time.Duration(maxSub+mainJitterGap+rand.Intn(mainJitterWin)) * time.Millisecond
		} else {
			ms := subJitterMin + rand.Intn(subJitterMax-subJitterMin)
			if ms > maxSub {
				maxSub = ms
			}
			j.offset = time.Duration(ms) * time.Millisecond
		}
		s.jobs = append(s.jobs, j)
	}
	return s
}

// Start arms all timers.
func (s *Scheduler) Start(ctx context.Context) {
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.checkLoop(ctx, j)
		s.logger.Info().
			Str("check", j.spec.Name).
			Dur("offset", j.offset).
			Int("frequency", j.spec.Frequency).
			Msg("check timer armed")
	}

	s.wg.Add(1)
	go s.healLoop(ctx)
}

// Stop stops all timers and waits for loops to exit. In-flight check and
// heal bodies finish on their own.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) checkLoop(ctx context.Context, j *job) {
	defer s.wg.Done()

	timer := time.NewTimer(initialDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-s.stopCh:
		return
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(time.Duration(j.spec.Frequency) * time.Second)
	defer ticker.Stop()

	s.fire(ctx, j)
	for {
		select {
		case <-ticker.C:
			s.fire(ctx, j)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// fire dispatches one tick unless the previous one is still running.
func (s *Scheduler) fire(ctx context.Context, j *job) {
	if !j.busy.CompareAndSwap(false, true) {
		s.logger.Warn().Str("check", j.spec.Name).Msg("previous run still active, dropping tick")
		s.broker.Publish(&events.Event{Type: events.EventTickDropped, Check: j.spec.Name})
		return
	}
	go func() {
		defer j.busy.Store(false)
		select {
		case <-time.After(j.offset):
		case <-s.stopCh:
			return
		}
		s.agent.Tick(ctx, j.spec)
	}()
}

func (s *Scheduler) healLoop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(healInitialDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-s.stopCh:
		return
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(time.Duration(s.cfg.HealFrequency) * time.Second)
	defer ticker.Stop()

	s.healTick(ctx)
	for {
		select {
		case <-ticker.C:
			s.healTick(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// healTick runs one heal attempt and refreshes the report whether or not
// the heal actually ran.
func (s *Scheduler) healTick(ctx context.Context) {
	s.healer.Heal(ctx, false)
	if err := s.reporter.Write(ctx); err != nil {
		s.logger.Error().Err(err).Msg("report write failed")
	}
}
