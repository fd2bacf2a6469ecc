/*
Package check runs health check and heal scripts as child processes.

The runner splits the configured command on whitespace, verifies the first
token resolves to an executable, and runs it with a 10 minute hard timeout
and a fresh environment per invocation. Merged stdout/stderr is logged line
by line and the exit code is normalized into a verdict.

Two deliberate asymmetries:

  - A missing or non-executable command yields WARN, not BAD: a broken
    deploy of the check script must not take the host out of rotation.
  - A timeout yields OK: a hung check is indistinguishable from a
    cluster-wide slowdown, and failing closed would withdraw every host at
    once.

# Usage

	runner := check.NewRunner()
	result := runner.Run(ctx, "httpok", "/usr/local/bin/check_http --quick", env)
	// result.Verdict, result.FastHeal, result.Output
*/
package check
