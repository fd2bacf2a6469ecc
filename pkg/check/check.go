package check

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/apollo/pkg/log"
	"github.com/cuemby/apollo/pkg/status"
)

// Timeout is the hard wall-clock limit for one script run. A check that
// exceeds it fails open to OK so a cluster-wide slowdown does not pull
// every host out of rotation at once.
const Timeout = 10 * time.Minute

// Result is the outcome of one script run.
type Result struct {
	Verdict  status.Verdict
	FastHeal bool
	ExitCode int
	TimedOut bool

	// StartFailed is set when the command never ran: empty or
	// non-executable command, or a fork failure.
	StartFailed bool

	Output   string
	Duration time.Duration
}

// Succeeded reports a clean exit 0 run, the heal command's success
// condition.
func (r Result) Succeeded() bool {
	return !r.TimedOut && !r.StartFailed && r.ExitCode == 0
}

// Runner forks check and heal scripts with a bounded timeout and a fresh
// environment per invocation.
type Runner struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewRunner creates a runner with the default timeout.
func NewRunner() *Runner {
	return &Runner{
		timeout: Timeout,
		logger:  log.WithComponent("check"),
	}
}

// WithTimeout overrides the script timeout.
func (r *Runner) WithTimeout(timeout time.Duration) *Runner {
	r.timeout = timeout
	return r
}

// Run executes the script, splitting it on whitespace. The environment is
// set from env alone, the parent's environment is not inherited. Merged
// stdout/stderr is logged line by line and returned in the result.
func (r *Runner) Run(ctx context.Context, name, script string, env []string) Result {
	start := time.Now()
	logger := r.logger.With().Str("check", name).Logger()

	argv := strings.Fields(script)
	if len(argv) == 0 {
		logger.Warn().Msg("empty check command")
		return Result{Verdict: status.VerdictWarn, StartFailed: true, Duration: time.Since(start)}
	}
	if !Executable(argv[0]) {
		logger.Warn().Str("path", argv[0]).Msg("check command not executable")
		return Result{Verdict: status.VerdictWarn, StartFailed: true, Duration: time.Since(start)}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Env = env
	if cmd.Env == nil {
		// A nil Env would make exec inherit the parent's environment.
		cmd.Env = []string{}
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	result := Result{
		Output:   output.String(),
		Duration: time.Since(start),
	}
	logOutput(logger, result.Output)

	if runCtx.Err() == context.DeadlineExceeded {
		// Fail open: a hung script must not withdraw the host.
		logger.Warn().Dur("timeout", r.timeout).Msg("check timed out, treating as ok")
		result.Verdict = status.VerdictOK
		result.TimedOut = true
		return result
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			logger.Warn().Err(err).Msg("check failed to start")
			result.Verdict = status.VerdictWarn
			result.StartFailed = true
			return result
		}
	}

	result.ExitCode = exitCode
	result.Verdict, result.FastHeal = status.Normalize(exitCode)
	logger.Debug().
		Int("exit_code", exitCode).
		Str("verdict", result.Verdict.String()).
		Bool("fast_heal", result.FastHeal).
		Dur("duration", result.Duration).
		Msg("check finished")
	return result
}

// Executable reports whether the first token of a command resolves to an
// executable file, via PATH lookup for bare names.
func Executable(path string) bool {
	if strings.Contains(path, "/") {
		info, err := os.Stat(path)
		return err == nil && !info.IsDir() && info.Mode()&0111 != 0
	}
	_, err := exec.LookPath(path)
	return err == nil
}

func logOutput(logger zerolog.Logger, output string) {
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		if line != "" {
			logger.Info().Msg(line)
		}
	}
}
