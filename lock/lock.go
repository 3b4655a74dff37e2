// Package lock provides the mutual-exclusion guard that serializes
// deployment attempts across overlapping scheduler invocations.
package lock

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
)

// Holder describes the current lock holder. It is written into the lock file
// for operator diagnosis only; mutual exclusion comes from the flock itself.
type Holder struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// DeploymentLock guards the checkout and the container runtime state. The
// underlying flock is atomic with respect to concurrent invocations and is
// dropped by the kernel if the holding process dies, so a crashed attempt
// can never leave the lock held.
type DeploymentLock struct {
	path string
	fl   *flock.Flock
	held bool
}

func New(path string) *DeploymentLock {
	return &DeploymentLock{
		path: path,
		fl:   flock.New(path),
	}
}

// TryAcquire attempts to take the lock without blocking. It returns false
// when another invocation currently holds it.
func (l *DeploymentLock) TryAcquire() (bool, error) {
	acquired, err := l.fl.TryLock()
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "lock",
			"operation", "lock_acquire",
			"lock_path", l.path,
			"error", err)
		return false, fmt.Errorf("failed to acquire deployment lock: %w", err)
	}

	if !acquired {
		slog.Info("Deployment lock already held", "lock_path", l.path)
		return false, nil
	}

	l.held = true
	l.writeHolder()

	slog.Debug("Deployment lock acquired", "lock_path", l.path, "pid", os.Getpid())
	return true, nil
}

// Release drops the lock. It is idempotent and safe to call when the lock
// was never acquired, so callers can defer it unconditionally.
func (l *DeploymentLock) Release() error {
	if !l.held {
		return nil
	}

	// Best-effort: clear the holder metadata while the flock is still held,
	// so a racing acquirer's freshly written holder can never be wiped
	if err := os.Truncate(l.path, 0); err != nil {
		slog.Debug("Failed to truncate lock file", "lock_path", l.path, "error", err)
	}

	if err := l.fl.Unlock(); err != nil {
		slog.Error("Service operation failed",
			"layer", "lock",
			"operation", "lock_release",
			"lock_path", l.path,
			"error", err)
		return fmt.Errorf("failed to release deployment lock: %w", err)
	}

	l.held = false

	slog.Debug("Deployment lock released", "lock_path", l.path)
	return nil
}

// Held reports whether this instance currently holds the lock
func (l *DeploymentLock) Held() bool {
	return l.held
}

// ReadHolder returns the holder metadata recorded in the lock file, if any
func ReadHolder(path string) (*Holder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var holder Holder
	if err := json.Unmarshal(data, &holder); err != nil {
		return nil, fmt.Errorf("failed to parse lock holder: %w", err)
	}
	return &holder, nil
}

func (l *DeploymentLock) writeHolder() {
	holder := Holder{
		PID:        os.Getpid(),
		AcquiredAt: time.Now().UTC(),
	}

	data, err := json.Marshal(holder)
	if err != nil {
		return
	}

	// The flock is held, so writing through a second handle is safe
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		slog.Debug("Failed to write lock holder metadata", "lock_path", l.path, "error", err)
	}
}
