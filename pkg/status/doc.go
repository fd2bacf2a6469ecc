/*
Package status defines Apollo's verdict vocabulary and the APOLLO_* child
environment encoding.

# Verdicts

Check scripts speak in exit codes:

	0   OK          in rotation
	1   WARN        degraded but serving (also the catch-all for unknown codes)
	2   BAD         out of rotation, candidate for healing
	3   OOR         out of rotation by an external actor; Apollo steps aside
	100 OK_HEAL_NOW, 101 WARN_HEAL_NOW, 102 BAD_HEAL_NOW
	            base verdict plus an immediate heal request

Normalize decomposes a raw exit code into (verdict, fastHeal). On the wire a
verdict becomes one of consul's TTL verbs: pass, warn, or fail; OOR pushes
fail because the host must leave rotation either way.

# Child Environment

Every check and heal invocation gets a fresh environment:

	APOLLO_RECORD        <service>.service.<colo>.consul
	APOLLO_DATACENTER    <colo>
	APOLLO_SERVICE_NAME  <service>
	APOLLO_SERVICE_STATUS_<ID>
	    status=<st>,since=<ts>,passing=<n>,passing_pct=<p>,
	    warning=...,critical=...,any=<total>,any_pct=<100|0>

When a snapshot is active every key is additionally exported with the
APOLLO_SNAPSHOT_ prefix, and APOLLO_FAST_HEALING=1 rides along on fast
heals.

# Integration Points

  - pkg/check: maps exit codes through Normalize
  - pkg/agent: builds the environment and captures snapshots
  - pkg/heal: overlays the snapshot onto the heal command's environment
*/
package status
