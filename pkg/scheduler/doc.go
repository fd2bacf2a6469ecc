/*
Package scheduler owns Apollo's timers.

Each check runs on its own interval with a jittered start offset: sub
services draw uniformly from [10,200) ms and the main service lands 100 to
300 ms after the largest sub offset, so by the time the main check's safety
read happens the subs of this tick have already pushed. All check timers arm
with a 10 second initial delay.

The heal timer fires 100 ms after startup and then every heal_frequency
seconds; the orchestrator swallows the first firing so a repair decision is
never made before the first round of checks has published status. Every heal
tick also refreshes the plaintext report, whether or not the heal ran.

A tick that fires while the previous run of the same check is still in
flight is dropped with a warning — one invocation per check at a time, one
heal at a time.
*/
package scheduler
