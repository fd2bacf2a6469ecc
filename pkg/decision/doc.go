/*
Package decision implements Apollo's transition and cluster-safety rules.

# Transition Rules

Transition decides what one check tick actually pushes, reading the check's
current consul state fresh each time. In order:

 1. OOR: never argued with — the engine no-ops and authorship is dropped.
 2. A state not authored by Apollo passes the new verdict through untouched;
    hysteresis only defends states Apollo itself set.
 3. BAD over critical and WARN over warning are no-ops that preserve the
    original transition timestamp.
 4. A recovery to OK out of critical (or warning) is allowed only once the
    keep_critical_secs (keep_warning_secs) dwell has elapsed; inside the
    window the degraded verdict is pushed again instead. A dwell of zero
    disables the window.

The dwell keeps a flapping host from bouncing in and out of rotation faster
than downstream config generators can follow.

# Cluster Safety

CanHostGoDown answers "may this host report the main service critical
without exceeding the pool's failure budget?" from a fresh members read:

  - a failed read denies (missing data keeps the host in rotation)
  - an empty passing set denies unless allow_full_outage is set
  - threshold_down bounds the simultaneous critical members, either as a
    literal count or as a floor'd percentage of the pool
  - at the boundary, the budget goes to the lexicographically first
    critical hostnames: every instance computes the same sorted prefix, so
    a thundering herd of failures converges instead of flapping

The predicate is evaluated immediately before every main-service fail push
and never cached across ticks.
*/
package decision
