/*
Package agent runs the per-tick pipeline tying the check runner, decision
engine, ledger, and consul client together.

# Tick Pipeline

One tick of one check, in order:

 1. Build the APOLLO_* environment from a fresh consul read and run the
    script.
 2. For a failing main service, evaluate the cluster failure budget; a
    denial folds the verdict back to OK for this tick.
 3. Evaluate the transition rules. When the main service crosses out of OK
    with an allowed transition, freeze the environment as the snapshot the
    next heal will see.
 4. Record the verdict in the ledger (OOR is never recorded). A BAD run
    below the check's retry budget goes out as WARN while the ledger keeps
    BAD, so the budget fills across ticks.
 5. Maintain the main service's bad-flag file.
 6. Push the TTL verb with a note carrying authorship and the transition
    timestamp: fresh when the status changed, preserved otherwise.
 7. A fast-heal exit code invokes the heal orchestrator immediately.

Every decision is made against a fresh consul read; the agent holds no
cluster state beyond the snapshot and the ledger files.

# Integration Points

  - pkg/scheduler: drives Tick on jittered timers
  - pkg/heal: consumes Environment, Snapshot, ClearSnapshot
  - pkg/events: receives one event per tick plus suppression/demotion events
*/
package agent
