package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/apollo/pkg/config"
	"github.com/cuemby/apollo/pkg/consul"
	"github.com/cuemby/apollo/pkg/events"
	"github.com/cuemby/apollo/pkg/log"
)

const header = "apollo check report"

// Writer emits the human-readable status report after each heal cycle.
type Writer struct {
	cfg    *config.Config
	consul *consul.Client
	broker *events.Broker
	logger zerolog.Logger

	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

// NewWriter creates a report writer.
func NewWriter(cfg *config.Config, client *consul.Client, broker *events.Broker) *Writer {
	return &Writer{
		cfg:    cfg,
		consul: client,
		broker: broker,
		logger: log.WithComponent("report"),
		Now:    time.Now,
	}
}

// Write fetches the agent's checks and atomically replaces the report file.
func (w *Writer) Write(ctx context.Context) error {
	checks, err := w.consul.AgentChecks(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch agent checks: %w", err)
	}

	content := w.render(checks)
	if err := replaceFile(w.cfg.ReportFile, content); err != nil {
		return err
	}

	w.broker.Publish(&events.Event{Type: events.EventReportWritten})
	w.logger.Debug().Str("path", w.cfg.ReportFile).Int("checks", len(checks)).Msg("report written")
	return nil
}

func (w *Writer) render(checks map[string]consul.AgentCheck) string {
	ids := make([]string, 0, len(checks))
	for id := range checks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", header)
	fmt.Fprintf(&b, "host: %s  colo: %s  generated: %s\n\n",
		w.cfg.Hostname, w.cfg.Colo, w.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "%-40s %s\n", "CHECK", "STATUS")
	for _, id := range ids {
		fmt.Fprintf(&b, "%-40s %s\n", id, reportStatus(checks[id].Status))
	}
	return b.String()
}

// reportStatus maps consul status words to the report vocabulary.
func reportStatus(st string) string {
	switch st {
	case "passing":
		return "OK"
	case "warning":
		return "WARNING"
	case "critical":
		return "BAD"
	default:
		return strings.ToUpper(st)
	}
}

func replaceFile(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace report: %w", err)
	}
	return nil
}
