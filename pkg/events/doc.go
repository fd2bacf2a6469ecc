/*
Package events provides an in-memory event broker for Apollo's pub/sub messaging.

The events package implements a lightweight event bus for broadcasting check
verdicts, heal lifecycle transitions, and report writes to interested
subscribers. Events are handed to per-subscriber buffered channels and
consumed at each observer's own pace, keeping the check pipeline decoupled
from observers such as the metrics recorder.

# Event Types

Check events:
  - check.ok / check.warn / check.bad / check.oor: the tick's verdict after
    cluster safety and hysteresis (a BAD demoted by the retry budget still
    reports check.bad, alongside check.demoted)
  - check.suppressed: hysteresis held a degraded state against a recovery
  - check.demoted: consecutive-failure budget turned a BAD into a WARN push
  - tick.dropped: a timer fired while the previous run was still in flight

Heal events:
  - heal.started / heal.finished: heal command lifecycle

Report events:
  - report.written: the plaintext status report was replaced

# Usage

	broker := events.NewBroker()
	defer broker.Close()

	sub := broker.Subscribe()
	go func() {
		for event := range sub {
			fmt.Printf("%s %s\n", event.Type, event.Check)
		}
	}()

	broker.Publish(&events.Event{
		Type:    events.EventCheckBad,
		Check:   "httpok",
		Verdict: "bad",
	})

Delivery is a synchronous fan-out on the publisher's goroutine: each
subscriber owns a buffered channel, and one whose buffer is full is skipped
so a stalled observer can never stall a check tick. Close shuts every
subscriber channel.

# Integration Points

  - pkg/agent publishes check events per tick
  - pkg/heal publishes heal lifecycle events
  - pkg/report publishes report.written
  - pkg/metrics subscribes and converts events into prometheus series
*/
package events
