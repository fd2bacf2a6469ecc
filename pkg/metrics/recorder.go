package metrics

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/apollo/pkg/events"
	"github.com/cuemby/apollo/pkg/log"
)

// Recorder converts broker events into prometheus series, keeping the check
// pipeline free of metrics plumbing.
type Recorder struct {
	broker *events.Broker
	sub    events.Subscriber
	logger zerolog.Logger
	stopCh chan struct{}
}

// NewRecorder subscribes a recorder to the broker.
func NewRecorder(broker *events.Broker) *Recorder {
	return &Recorder{
		broker: broker,
		sub:    broker.Subscribe(),
		logger: log.WithComponent("metrics"),
		stopCh: make(chan struct{}),
	}
}

// Start begins consuming events.
func (r *Recorder) Start() {
	go r.run()
}

// Stop stops the recorder and drops its subscription.
func (r *Recorder) Stop() {
	close(r.stopCh)
	r.broker.Unsubscribe(r.sub)
}

func (r *Recorder) run() {
	for {
		select {
		case event, ok := <-r.sub:
			if !ok {
				return
			}
			r.record(event)
		case <-r.stopCh:
			return
		}
	}
}

func (r *Recorder) record(event *events.Event) {
	switch event.Type {
	case events.EventCheckOK, events.EventCheckWarn, events.EventCheckBad, events.EventCheckOOR:
		CheckRunsTotal.WithLabelValues(event.Check, event.Verdict).Inc()
		CheckDuration.WithLabelValues(event.Check).Observe(event.Duration.Seconds())
	case events.EventCheckSuppressed:
		ChecksSuppressed.WithLabelValues(event.Check).Inc()
	case events.EventCheckDemoted:
		ChecksDemoted.WithLabelValues(event.Check).Inc()
	case events.EventTickDropped:
		TicksDropped.WithLabelValues(event.Check).Inc()
	case events.EventHealFinished:
		result := "failed"
		if event.Healed {
			result = "healed"
		}
		HealRunsTotal.WithLabelValues(result).Inc()
		HealDuration.Observe(event.Duration.Seconds())
	case events.EventReportWritten:
		ReportsWritten.Inc()
	}
}

// SetClusterMembers records the member counts of the last safety read.
func SetClusterMembers(passing, warning, critical int) {
	ClusterMembers.WithLabelValues("passing").Set(float64(passing))
	ClusterMembers.WithLabelValues("warning").Set(float64(warning))
	ClusterMembers.WithLabelValues("critical").Set(float64(critical))
}

// Serve exposes /metrics on addr. Blocks like http.ListenAndServe.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
