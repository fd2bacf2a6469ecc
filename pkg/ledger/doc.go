/*
Package ledger persists the recent verdict history of every check.

Each check owns one plain-text file under the track directory holding its
last ten (timestamp, verdict) entries, newest first. The files are the only
history Apollo keeps; they feed the retry policy that demotes a BAD verdict
to WARN until the configured number of consecutive failures is reached.

Writes replace the file atomically (temp file + rename) so external readers
never see a torn ledger. The directory is wiped at startup: a verdict
recorded by a previous daemon run says nothing about the current one.
*/
package ledger
