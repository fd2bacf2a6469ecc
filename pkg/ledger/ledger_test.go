package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/apollo/pkg/status"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := New(t.TempDir())
	require.NoError(t, err)
	return l
}

func TestEntriesMissingFile(t *testing.T) {
	l := newLedger(t)

	entries, err := l.Entries("httpok-www")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppendNewestFirst(t *testing.T) {
	l := newLedger(t)

	require.NoError(t, l.Append("www", 100, status.VerdictOK))
	require.NoError(t, l.Append("www", 200, status.VerdictBad))
	require.NoError(t, l.Append("www", 300, status.VerdictWarn))

	entries, err := l.Entries("www")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, Entry{Timestamp: 300, Verdict: status.VerdictWarn}, entries[0])
	assert.Equal(t, Entry{Timestamp: 200, Verdict: status.VerdictBad}, entries[1])
	assert.Equal(t, Entry{Timestamp: 100, Verdict: status.VerdictOK}, entries[2])
}

func TestAppendCapsAtMaxEntries(t *testing.T) {
	l := newLedger(t)

	for i := 0; i < 25; i++ {
		require.NoError(t, l.Append("www", int64(i), status.VerdictOK))
	}

	entries, err := l.Entries("www")
	require.NoError(t, err)
	require.Len(t, entries, MaxEntries)
	assert.Equal(t, int64(24), entries[0].Timestamp)
	assert.Equal(t, int64(15), entries[MaxEntries-1].Timestamp)
}

func TestHardFailing(t *testing.T) {
	tests := []struct {
		name     string
		verdicts []status.Verdict // oldest to newest
		retries  int
		hard     bool
	}{
		{name: "empty ledger", retries: 1, hard: false},
		{name: "single bad retries one", verdicts: []status.Verdict{status.VerdictBad}, retries: 1, hard: true},
		{name: "not enough entries", verdicts: []status.Verdict{status.VerdictBad, status.VerdictBad}, retries: 3, hard: false},
		{
			name:     "three consecutive bad",
			verdicts: []status.Verdict{status.VerdictOK, status.VerdictBad, status.VerdictBad, status.VerdictBad},
			retries:  3,
			hard:     true,
		},
		{
			name:     "recovery breaks the streak",
			verdicts: []status.Verdict{status.VerdictBad, status.VerdictBad, status.VerdictOK},
			retries:  2,
			hard:     false,
		},
		{
			name:     "warn does not count as bad",
			verdicts: []status.Verdict{status.VerdictBad, status.VerdictWarn},
			retries:  2,
			hard:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t)
			for i, v := range tt.verdicts {
				require.NoError(t, l.Append("c", int64(i), v))
			}
			hard, err := l.HardFailing("c", tt.retries)
			require.NoError(t, err)
			assert.Equal(t, tt.hard, hard)
		})
	}
}

func TestWipe(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, l.Append("a", 1, status.VerdictOK))
	require.NoError(t, l.Append("b", 2, status.VerdictBad))
	require.NoError(t, l.Wipe())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)

	entries, err := l.Entries("a")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEntriesSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "www"), []byte("garbage\n100 2\n"), 0644))

	entries, err := l.Entries("www")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Entry{Timestamp: 100, Verdict: status.VerdictBad}, entries[0])
}
