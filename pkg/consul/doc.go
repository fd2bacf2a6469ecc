/*
Package consul is a narrow HTTP client for the local Consul agent.

Apollo treats consul as the authoritative store of cluster membership and
per-node check status. The client covers exactly the endpoints the daemon
consumes, nothing more:

	PUT /v1/agent/service/register               register service + TTL check
	PUT /v1/agent/check/{pass,warn,fail}/service:<id>?note=...
	GET /v1/health/node/<hostname>               this node's checks
	GET /v1/health/service/<service>             member health across the pool
	GET /v1/agent/checks                         report writer's check dump

# Note Markers

Every TTL push carries a note. Two markers are parsed back out of the check
Output on reads:

	by:apollo                    Apollo authored the last transition
	Last change was on <secs>    transition timestamp ("TTL expired" reads as -1)

The markers are how a fleet of stateless Apollo instances shares transition
history through consul itself instead of a side channel.

# Member Status

A pool member is critical when its service check or its consul-internal
serfHealth check is critical; otherwise the service check's word wins,
defaulting to passing when the member carries no status at all.

# Retries

Reads retry with a constant backoff: the agent check dump 5 tries with a
30 second pause (it tolerates an agent restart), node and service health
reads 4 tries with a 1 second pause. Writes never retry; the next tick
pushes again anyway. Every request times out after 5 seconds.
*/
package consul
