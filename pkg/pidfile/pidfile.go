package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// Acquire guards against a second live instance: when the file holds the
// PID of a running process, Acquire fails; a stale file is replaced with
// the current PID.
func Acquire(path string) error {
	if pid, ok := readPID(path); ok && alive(pid) {
		return fmt.Errorf("another instance is running with pid %d (per %s)", pid, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// Release removes the pid file when it still belongs to this process.
func Release(path string) {
	if pid, ok := readPID(path); ok && pid == os.Getpid() {
		os.Remove(path)
	}
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// alive probes the process with signal 0. EPERM still means the process
// exists, just owned by someone else.
func alive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
