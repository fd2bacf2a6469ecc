package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cuemby/apollo/pkg/status"
)

// MaxEntries caps the per-check ring.
const MaxEntries = 10

// Entry is one recorded verdict.
type Entry struct {
	Timestamp int64
	Verdict   status.Verdict
}

// Ledger persists the last verdicts of every check as one file per check
// under the track directory, newest first. External tooling reads the files,
// so the format stays a plain "<unix_seconds> <verdict>" line per entry.
type Ledger struct {
	dir string
}

// New creates a ledger rooted at dir, creating it when missing.
func New(dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create track directory: %w", err)
	}
	return &Ledger{dir: dir}, nil
}

// Wipe removes all recorded entries. Called once at startup so stale
// verdicts from a previous run never feed the retry policy.
func (l *Ledger) Wipe() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("failed to read track directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(l.dir, e.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Entries returns the recorded verdicts for a check, newest first. A
// missing file is an empty ledger.
func (l *Ledger) Entries(checkID string) ([]Entry, error) {
	data, err := os.ReadFile(l.path(checkID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger for %s: %w", checkID, err)
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		ts, err1 := strconv.ParseInt(fields[0], 10, 64)
		v, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		entries = append(entries, Entry{Timestamp: ts, Verdict: status.Verdict(v)})
	}
	return entries, nil
}

// Append records a verdict for a check, keeping the newest MaxEntries. The
// file is atomically replaced.
func (l *Ledger) Append(checkID string, timestamp int64, verdict status.Verdict) error {
	entries, err := l.Entries(checkID)
	if err != nil {
		return err
	}

	entries = append([]Entry{{Timestamp: timestamp, Verdict: verdict}}, entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%d %d\n", e.Timestamp, int(e.Verdict))
	}

	tmp, err := os.CreateTemp(l.dir, "."+checkID+".tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path(checkID)); err != nil {
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}

// HardFailing reports whether the check's retries most recent entries exist
// and are all BAD. A retries of 1 fails on the first BAD verdict.
func (l *Ledger) HardFailing(checkID string, retries int) (bool, error) {
	if retries < 1 {
		retries = 1
	}
	entries, err := l.Entries(checkID)
	if err != nil {
		return false, err
	}
	if len(entries) < retries {
		return false, nil
	}
	for _, e := range entries[:retries] {
		if e.Verdict != status.VerdictBad {
			return false, nil
		}
	}
	return true, nil
}

func (l *Ledger) path(checkID string) string {
	return filepath.Join(l.dir, checkID)
}
