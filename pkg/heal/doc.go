/*
Package heal gates and runs the user-supplied repair command.

A heal attempt passes through the gates in order: dryrun, the first-ever
invocation (always skipped so the first check round publishes status first),
the main service's status must be Apollo-authored, the status must match
heal_on_status (bypassed on fast heals), and the command's first token must
be executable.

The command runs with the full APOLLO_* environment, the APOLLO_SNAPSHOT_*
overlay frozen when the main service left OK, and APOLLO_FAST_HEALING=1 on
fast heals. Exit 0 means healed; anything else is recorded as failed.

Two marker files track heal activity for external readers: an active marker
that exists only while a heal is running, and a last-heal JSON record
{id, time, fast, status} written at start and rewritten with the outcome.
*/
package heal
