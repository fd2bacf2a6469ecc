// Package pidfile guards against running two Apollo instances on one host.
// Acquire refuses to start while the stored PID belongs to a live process
// and otherwise claims the file; Release removes it on clean shutdown.
package pidfile
