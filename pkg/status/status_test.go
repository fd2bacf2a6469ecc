package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		verdict  Verdict
		fastHeal bool
	}{
		{name: "ok", exitCode: 0, verdict: VerdictOK},
		{name: "warn", exitCode: 1, verdict: VerdictWarn},
		{name: "bad", exitCode: 2, verdict: VerdictBad},
		{name: "oor", exitCode: 3, verdict: VerdictOOR},
		{name: "ok heal now", exitCode: 100, verdict: VerdictOK, fastHeal: true},
		{name: "warn heal now", exitCode: 101, verdict: VerdictWarn, fastHeal: true},
		{name: "bad heal now", exitCode: 102, verdict: VerdictBad, fastHeal: true},
		{name: "out of table", exitCode: 42, verdict: VerdictUnknown},
		{name: "negative", exitCode: -1, verdict: VerdictUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, fastHeal := Normalize(tt.exitCode)
			assert.Equal(t, tt.verdict, verdict)
			assert.Equal(t, tt.fastHeal, fastHeal)
		})
	}
}

func TestPushVerb(t *testing.T) {
	assert.Equal(t, PushPass, VerdictOK.PushVerb())
	assert.Equal(t, PushWarn, VerdictWarn.PushVerb())
	assert.Equal(t, PushFail, VerdictBad.PushVerb())
	assert.Equal(t, PushFail, VerdictOOR.PushVerb())
}

func TestConsulStatus(t *testing.T) {
	assert.Equal(t, ConsulPassing, VerdictOK.ConsulStatus())
	assert.Equal(t, ConsulWarning, VerdictWarn.ConsulStatus())
	assert.Equal(t, ConsulCritical, VerdictBad.ConsulStatus())
	assert.Equal(t, ConsulCritical, VerdictOOR.ConsulStatus())
}
