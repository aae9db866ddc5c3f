// Package pidfile enforces a single daemon instance through a pid file. A
// stale file left behind by a crashed process is detected and replaced; a
// file owned by a live process refuses the startup.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// PIDFile is the on-disk lock for one daemon instance.
type PIDFile struct {
	path string
}

func New(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Acquire claims the lock for the current process. It fails when another
// live process already holds it; stale and garbled files are replaced.
func (p *PIDFile) Acquire() error {
	owner, err := p.owner()
	if err != nil {
		return err
	}
	if owner != 0 {
		return fmt.Errorf("daemon is already running (PID %d)", owner)
	}

	content := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(p.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// Release removes the pid file. A file that is already gone is fine.
func (p *PIDFile) Release() error {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove pid file: %w", err)
	}
	return nil
}

// owner returns the live pid recorded in the file, or zero when the file is
// absent, not a pid, or names a process that no longer runs. Stale files are
// removed on the way out.
func (p *PIDFile) owner() (int, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || !alive(pid) {
		_ = os.Remove(p.path)
		return 0, nil
	}
	return pid, nil
}

// alive probes a pid with signal 0, which delivers nothing. EPERM still
// means the process exists, it just belongs to someone else.
func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
