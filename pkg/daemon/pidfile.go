package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// PIDFile is the daemon's instance record: the running process id at a
// well-known path. It enforces the singleton and lets external stop and
// status calls find the instance.
type PIDFile struct {
	path string
}

// NewPIDFile creates a PID file handle for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the record's location.
func (f *PIDFile) Path() string {
	return f.path
}

// Write records the given pid, creating parent directories as needed.
func (f *PIDFile) Write(pid int) error {
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create pid file directory: %w", err)
		}
	}
	if err := os.WriteFile(f.path, []byte(fmt.Sprintf("%d\n", pid)), 0644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// Read returns the recorded pid.
func (f *PIDFile) Read() (int, error) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return 0, fmt.Errorf("invalid pid in %s: %w", f.path, err)
	}
	return pid, nil
}

// Remove deletes the record. A missing record is not an error.
func (f *PIDFile) Remove() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pid file: %w", err)
	}
	return nil
}

// Alive returns the recorded pid and whether that process still exists.
// A missing or unreadable record reports not alive; a record pointing
// at a dead process is stale and safe to discard.
func (f *PIDFile) Alive() (int, bool) {
	pid, err := f.Read()
	if err != nil {
		return 0, false
	}
	return pid, processAlive(pid)
}

// processAlive checks process existence with a null signal. EPERM means
// the process exists but belongs to someone else, which still counts.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
