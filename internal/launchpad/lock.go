// Package launchpad enforces forced completion: once a session is locked
// behind the launchpad, every classified item must be resolved (or the lock
// force-cleared) before a new capture session may take its place.
package launchpad

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"

	"github.com/tabwarden/tabwarden/internal/errors"
)

// ResumeState is the lightweight context persisted alongside the lock so an
// interrupted session can be picked back up.
type ResumeState struct {
	Goal          string    `json:"goal,omitempty"`
	FocusCategory string    `json:"focus_category,omitempty"`
	LastActivity  time.Time `json:"last_activity"`
}

// Record is the persisted lock state. It survives process restarts; the
// flock only serializes access to it, holdership lives in the record.
type Record struct {
	SessionID      string      `json:"session_id"`
	LockedAt       time.Time   `json:"locked_at"`
	ItemsRemaining int         `json:"items_remaining"`
	Resume         ResumeState `json:"resume"`
}

// ConflictError reports who holds the lock and how much work remains.
type ConflictError struct {
	Holder    string
	Remaining int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("session %s holds the launchpad lock with %d items remaining",
		e.Holder, e.Remaining)
}

func (e *ConflictError) Unwrap() error { return errors.ErrConflict }

// UnresolvedError refuses a clear while items are still pending.
type UnresolvedError struct {
	SessionID string
	Remaining int
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("session %s still has %d unresolved items", e.SessionID, e.Remaining)
}

func (e *UnresolvedError) Unwrap() error { return errors.ErrConflict }

type Config struct {
	FlockRetry    time.Duration
	FlockMaxRetry int
	StaleAfter    time.Duration
}

func (c Config) withDefaults() Config {
	if c.FlockRetry <= 0 {
		c.FlockRetry = 50 * time.Millisecond
	}
	if c.FlockMaxRetry <= 0 {
		c.FlockMaxRetry = 40
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 24 * time.Hour
	}
	return c
}

// Manager owns the single lock record under the state directory. Cross-process
// mutations are serialized with an advisory flock held only for the duration
// of each operation.
type Manager struct {
	recordPath string
	flockPath  string
	cfg        Config
}

func NewManager(dir string, cfg Config) *Manager {
	return &Manager{
		recordPath: filepath.Join(dir, "launchpad.lock.json"),
		flockPath:  filepath.Join(dir, "launchpad.flock"),
		cfg:        cfg.withDefaults(),
	}
}

func (m *Manager) withFlock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(m.flockPath), 0o755); err != nil {
		return errors.Wrap(errors.MapError(err), "create lock dir")
	}

	fl := flock.New(m.flockPath)
	locked := false
	for i := 0; i < m.cfg.FlockMaxRetry; i++ {
		ok, err := fl.TryLock()
		if err != nil {
			return errors.Wrap(errors.MapError(err), "attempt flock")
		}
		if ok {
			locked = true
			break
		}
		if i < m.cfg.FlockMaxRetry-1 {
			time.Sleep(m.cfg.FlockRetry)
		}
	}
	if !locked {
		return errors.Transient("launchpad flock held by another process")
	}
	defer func() {
		if err := fl.Unlock(); err != nil {
			slog.Error("Failed to release launchpad flock", "path", m.flockPath, "error", err)
		}
	}()

	return fn()
}

// load reads the current record; a missing file means unlocked.
func (m *Manager) load() (*Record, error) {
	data, err := os.ReadFile(m.recordPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.MapError(err), "read lock record")
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Internal("decode lock record: " + err.Error())
	}
	return &rec, nil
}

func (m *Manager) save(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Internal("encode lock record: " + err.Error())
	}
	if err := atomic.WriteFile(m.recordPath, bytes.NewReader(data)); err != nil {
		return errors.Wrap(errors.MapError(err), "write lock record")
	}
	return nil
}

// Acquire takes the lock for sessionID. Re-acquiring for the holder refreshes
// the remaining count; any other session gets a ConflictError naming the
// holder and its outstanding work.
func (m *Manager) Acquire(sessionID string, itemsRemaining int) (*Record, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.InvalidInput("session id is required")
	}

	var out *Record
	err := m.withFlock(func() error {
		current, err := m.load()
		if err != nil {
			return err
		}
		if current != nil && current.SessionID != sessionID {
			return &ConflictError{Holder: current.SessionID, Remaining: current.ItemsRemaining}
		}

		rec := &Record{
			SessionID:      sessionID,
			LockedAt:       time.Now().UTC(),
			ItemsRemaining: itemsRemaining,
			Resume:         ResumeState{LastActivity: time.Now().UTC()},
		}
		if current != nil {
			rec.LockedAt = current.LockedAt
			rec.Resume = current.Resume
			rec.Resume.LastActivity = time.Now().UTC()
		}
		if err := m.save(rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Launchpad lock acquired",
		"session_id", sessionID, "items_remaining", itemsRemaining)
	return out, nil
}

// SetRemaining refreshes the outstanding-item count for the holder.
func (m *Manager) SetRemaining(sessionID string, remaining int) error {
	return m.mutateHolder(sessionID, func(rec *Record) {
		rec.ItemsRemaining = remaining
		rec.Resume.LastActivity = time.Now().UTC()
	})
}

// UpdateResume stores the holder's resume context.
func (m *Manager) UpdateResume(sessionID string, goal, focusCategory string) error {
	return m.mutateHolder(sessionID, func(rec *Record) {
		rec.Resume.Goal = goal
		rec.Resume.FocusCategory = focusCategory
		rec.Resume.LastActivity = time.Now().UTC()
	})
}

func (m *Manager) mutateHolder(sessionID string, mutate func(*Record)) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.InvalidInput("session id is required")
	}
	return m.withFlock(func() error {
		rec, err := m.load()
		if err != nil {
			return err
		}
		if rec == nil {
			return errors.NotFound("launchpad is not locked")
		}
		if rec.SessionID != sessionID {
			return &ConflictError{Holder: rec.SessionID, Remaining: rec.ItemsRemaining}
		}
		mutate(rec)
		return m.save(rec)
	})
}

// Clear releases the lock, refusing while unresolved work remains. Callers
// pass the live unresolved count from the reconstructed view.
func (m *Manager) Clear(sessionID string, unresolved int) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.InvalidInput("session id is required")
	}
	return m.withFlock(func() error {
		rec, err := m.load()
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		if rec.SessionID != sessionID {
			return &ConflictError{Holder: rec.SessionID, Remaining: rec.ItemsRemaining}
		}
		if unresolved > 0 {
			return &UnresolvedError{SessionID: sessionID, Remaining: unresolved}
		}
		if err := os.Remove(m.recordPath); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.MapError(err), "remove lock record")
		}
		slog.Info("Launchpad lock cleared", "session_id", sessionID)
		return nil
	})
}

// ForceClear removes the lock regardless of outstanding work or holder. It
// exists for abandoned sessions; the audit trail is the warn log line.
func (m *Manager) ForceClear() error {
	return m.withFlock(func() error {
		rec, err := m.load()
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		if err := os.Remove(m.recordPath); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.MapError(err), "remove lock record")
		}
		slog.Warn("Launchpad lock force-cleared",
			"session_id", rec.SessionID, "items_remaining", rec.ItemsRemaining)
		return nil
	})
}

// Status returns the current record, or (nil, nil) when unlocked.
func (m *Manager) Status() (*Record, error) {
	var rec *Record
	err := m.withFlock(func() error {
		var err error
		rec, err = m.load()
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Stale reports whether the held lock has seen no activity past the
// configured age. Unlocked is never stale.
func (m *Manager) Stale() (bool, *Record, error) {
	rec, err := m.Status()
	if err != nil || rec == nil {
		return false, nil, err
	}
	last := rec.Resume.LastActivity
	if last.IsZero() {
		last = rec.LockedAt
	}
	return time.Since(last) > m.cfg.StaleAfter, rec, nil
}
