// Package applylock keeps two powermodes invocations from applying modes at the same time. The
// lock is a lease: a lock older than the lease timeout belongs to a crashed invocation and is
// taken over.
package applylock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"powermodes/internal/fsutil"
	"powermodes/internal/logging"
)

const (
	// LockFileName is the name of the apply lock file
	LockFileName = "apply.lock"

	// DefaultLeaseTimeout is how long a lock is honoured
	DefaultLeaseTimeout = 5 * time.Minute
)

// Manager manages apply lock acquisition and release
type Manager struct {
	stateDir     string
	logger       *logging.Logger
	leaseTimeout time.Duration
	pid          int
}

// NewManager creates a new apply lock manager for the current process
func NewManager(stateDir string, logger *logging.Logger) *Manager {
	return &Manager{
		stateDir:     stateDir,
		logger:       logger,
		leaseTimeout: DefaultLeaseTimeout,
		pid:          os.Getpid(),
	}
}

func (m *Manager) getLockPath() string {
	return filepath.Join(m.stateDir, LockFileName)
}

// Acquire takes the lock for applying mode. A *HeldError means another invocation is applying.
func (m *Manager) Acquire(mode string) error {
	if err := fsutil.EnsureStateDirectory(m.stateDir); err != nil {
		return err
	}

	lock := &LockInfo{PID: m.pid, Mode: mode, SinceTS: time.Now().UTC()}
	err := m.create(lock)
	if !errors.Is(err, os.ErrExist) {
		if err == nil {
			m.logger.Info("apply.lock.acquired", "Apply lock acquired", map[string]interface{}{
				"mode": mode,
			})
		}
		return err
	}

	existing, loadErr := m.loadLock()
	if loadErr != nil && !os.IsNotExist(loadErr) {
		m.logger.Warn("apply.lock.unreadable", "Replacing unreadable apply lock", map[string]interface{}{
			"error": loadErr.Error(),
		})
	} else if existing != nil && time.Since(existing.SinceTS) <= m.leaseTimeout {
		return &HeldError{Holder: *existing}
	} else if existing != nil {
		m.logger.Warn("apply.lock.stale_detected", "Stale apply lock detected", map[string]interface{}{
			"pid":         existing.PID,
			"age_seconds": time.Since(existing.SinceTS).Seconds(),
		})
	}

	if err := m.forceUnlock(); err != nil {
		return fmt.Errorf("failed to clear stale lock: %w", err)
	}
	if err := m.create(lock); err != nil {
		if errors.Is(err, os.ErrExist) {
			// Another invocation won the race for the stale lock
			if existing, loadErr := m.loadLock(); loadErr == nil {
				return &HeldError{Holder: *existing}
			}
		}
		return err
	}

	m.logger.Info("apply.lock.acquired", "Apply lock acquired", map[string]interface{}{
		"mode": mode,
	})
	return nil
}

// Release removes the lock if this process holds it
func (m *Manager) Release() error {
	existing, err := m.loadLock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read existing lock: %w", err)
	}

	if existing.PID != m.pid {
		return fmt.Errorf("cannot release lock: held by process %d", existing.PID)
	}

	if err := m.forceUnlock(); err != nil {
		return err
	}

	m.logger.Debug("apply.lock.released", "Apply lock released", map[string]interface{}{
		"mode": existing.Mode,
	})
	return nil
}

// GetStatus returns the current holder, or nil when the lock is free or stale
func (m *Manager) GetStatus() (*LockInfo, error) {
	lock, err := m.loadLock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lock: %w", err)
	}
	if time.Since(lock.SinceTS) > m.leaseTimeout {
		return nil, nil
	}
	return lock, nil
}

func (m *Manager) forceUnlock() error {
	if err := os.Remove(m.getLockPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (m *Manager) loadLock() (*LockInfo, error) {
	data, err := os.ReadFile(m.getLockPath())
	if err != nil {
		return nil, err
	}

	var lock LockInfo
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lock: %w", err)
	}

	return &lock, nil
}

// create writes the lock file, failing with os.ErrExist when it is already present
func (m *Manager) create(lock *LockInfo) error {
	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock: %w", err)
	}

	f, err := os.OpenFile(m.getLockPath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return err
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	_, writeErr := f.Write(data)
	closeErr := f.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(m.getLockPath())
		return fmt.Errorf("failed to write lock file: %w", errors.Join(writeErr, closeErr))
	}
	return nil
}
