package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/apollo/pkg/agent"
	"github.com/cuemby/apollo/pkg/check"
	"github.com/cuemby/apollo/pkg/config"
	"github.com/cuemby/apollo/pkg/consul"
	"github.com/cuemby/apollo/pkg/decision"
	"github.com/cuemby/apollo/pkg/events"
	"github.com/cuemby/apollo/pkg/heal"
	"github.com/cuemby/apollo/pkg/ledger"
	"github.com/cuemby/apollo/pkg/log"
	"github.com/cuemby/apollo/pkg/metrics"
	"github.com/cuemby/apollo/pkg/pidfile"
	"github.com/cuemby/apollo/pkg/report"
	"github.com/cuemby/apollo/pkg/scheduler"
)

func runDaemon(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("pid-file") {
		cfg.PIDFile, _ = cmd.Flags().GetString("pid-file")
	}

	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	log.Init(log.Config{
		Level:      level,
		JSONOutput: cfg.LogJSON,
		Output:     os.Stdout,
	})

	if err := pidfile.Acquire(cfg.PIDFile); err != nil {
		return err
	}
	defer pidfile.Release(cfg.PIDFile)

	log.Logger.Info().
		Str("version", Version).
		Str("service", cfg.ServiceName).
		Str("hostname", cfg.Hostname).
		Str("colo", cfg.Colo).
		Msg("apollo starting")

	// Stale verdicts from a previous run never feed the retry policy.
	ldg, err := ledger.New(cfg.TrackDirectory)
	if err != nil {
		return err
	}
	if err := ldg.Wipe(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := consul.NewClient(cfg.ConsulEndpoint)
	if err := register(ctx, cfg, client); err != nil {
		return err
	}

	broker := events.NewBroker()
	defer broker.Close()

	recorder := metrics.NewRecorder(broker)
	recorder.Start()
	defer recorder.Stop()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil && err != http.ErrServerClosed {
				log.Logger.Error().Err(err).Msg("metrics listener failed")
			}
		}()
		log.Logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listener started")
	}

	runner := check.NewRunner()
	engine := decision.NewEngine(cfg, client)
	a := agent.New(cfg, client, engine, runner, ldg, broker)
	healer := heal.New(cfg, client, runner, a, broker)
	a.SetHealer(healer)
	reporter := report.NewWriter(cfg, client, broker)

	sched := scheduler.New(cfg, a, healer, reporter, broker)
	sched.Start(ctx)
	log.Logger.Info().Msg("scheduler started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Logger.Info().Str("signal", sig.String()).Msg("shutting down")

	cancel()
	sched.Stop()
	return nil
}

// register registers the main service and every sub-service with its TTL
// check. The TTL is frequency+penalty so a slow check does not expire it.
func register(ctx context.Context, cfg *config.Config, client *consul.Client) error {
	regs := []consul.Registration{{
		ID:        cfg.ServiceName,
		Script:    cfg.ServiceCmd,
		Frequency: cfg.ServiceFrequency,
		Penalty:   cfg.Penalty,
		Port:      cfg.Port,
		Tags:      cfg.TagsList,
	}}
	for name, extra := range cfg.ExtraService {
		regs = append(regs, consul.Registration{
			ID:        cfg.SubServiceID(name),
			Script:    extra.Healthcheck,
			Frequency: extra.Frequency,
			Penalty:   cfg.Penalty,
		})
	}
	for _, reg := range regs {
		if err := client.Register(ctx, reg); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.ID, err)
		}
	}
	return nil
}
