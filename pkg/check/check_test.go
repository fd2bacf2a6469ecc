package check

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/apollo/pkg/log"
	"github.com/cuemby/apollo/pkg/status"
)

func init() {
	log.Init(log.Config{Level: log.ErrorLevel})
}

// script writes an executable shell script and returns its path.
func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "check.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		verdict  status.Verdict
		fastHeal bool
	}{
		{name: "ok", body: "exit 0", verdict: status.VerdictOK},
		{name: "warn", body: "exit 1", verdict: status.VerdictWarn},
		{name: "bad", body: "exit 2", verdict: status.VerdictBad},
		{name: "oor", body: "exit 3", verdict: status.VerdictOOR},
		{name: "fast heal", body: "exit 100", verdict: status.VerdictOK, fastHeal: true},
		{name: "unknown code", body: "exit 42", verdict: status.VerdictUnknown},
	}

	runner := NewRunner()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := runner.Run(context.Background(), "t", script(t, tt.body), nil)
			assert.Equal(t, tt.verdict, result.Verdict)
			assert.Equal(t, tt.fastHeal, result.FastHeal)
			assert.False(t, result.StartFailed)
		})
	}
}

func TestRunNotExecutable(t *testing.T) {
	runner := NewRunner()

	result := runner.Run(context.Background(), "t", "/nonexistent/check --flag", nil)
	assert.Equal(t, status.VerdictWarn, result.Verdict)
	assert.True(t, result.StartFailed)
}

func TestRunEmptyCommand(t *testing.T) {
	runner := NewRunner()

	result := runner.Run(context.Background(), "t", "   ", nil)
	assert.Equal(t, status.VerdictWarn, result.Verdict)
	assert.True(t, result.StartFailed)
}

func TestRunTimeoutFailsOpen(t *testing.T) {
	runner := NewRunner().WithTimeout(100 * time.Millisecond)

	result := runner.Run(context.Background(), "t", script(t, "sleep 5"), nil)
	assert.Equal(t, status.VerdictOK, result.Verdict)
	assert.True(t, result.TimedOut)
}

func TestRunCapturesOutput(t *testing.T) {
	runner := NewRunner()

	result := runner.Run(context.Background(), "t", script(t, "echo out; echo err 1>&2; exit 2"), nil)
	assert.Equal(t, status.VerdictBad, result.Verdict)
	assert.Contains(t, result.Output, "out")
	assert.Contains(t, result.Output, "err")
}

func TestRunArguments(t *testing.T) {
	path := script(t, `[ "$1" = "--mode" ] && [ "$2" = "deep" ] && exit 0; exit 2`)
	runner := NewRunner()

	result := runner.Run(context.Background(), "t", path+" --mode deep", nil)
	assert.Equal(t, status.VerdictOK, result.Verdict)
}

func TestRunFreshEnvironment(t *testing.T) {
	path := script(t, `[ "$APOLLO_SERVICE_NAME" = "www" ] || exit 2
[ -z "$HOME" ] || exit 1
exit 0`)
	runner := NewRunner()

	result := runner.Run(context.Background(), "t", path, []string{"APOLLO_SERVICE_NAME=www", "PATH=/usr/bin:/bin"})
	assert.Equal(t, status.VerdictOK, result.Verdict)
}

func TestExecutable(t *testing.T) {
	assert.True(t, Executable("sh"))
	assert.True(t, Executable("/bin/sh"))
	assert.False(t, Executable("/nonexistent/binary"))
	assert.False(t, Executable("/etc"))
}

func TestResultSucceeded(t *testing.T) {
	assert.True(t, Result{}.Succeeded())
	assert.False(t, Result{ExitCode: 1}.Succeeded())
	assert.False(t, Result{TimedOut: true}.Succeeded())
	assert.False(t, Result{StartFailed: true}.Succeeded())
}
