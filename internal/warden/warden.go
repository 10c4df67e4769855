// Package warden is the application facade: it runs classifications, keeps
// the session artifact, folds dispositions into the live view, and enforces
// the launchpad lock around all of it.
package warden

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tabwarden/tabwarden/internal/capture"
	"github.com/tabwarden/tabwarden/internal/classify"
	"github.com/tabwarden/tabwarden/internal/disposition"
	"github.com/tabwarden/tabwarden/internal/errors"
	"github.com/tabwarden/tabwarden/internal/launchpad"
	"github.com/tabwarden/tabwarden/internal/logger"
	"github.com/tabwarden/tabwarden/internal/notify"
	"github.com/tabwarden/tabwarden/internal/store"
)

// Classifier is the slice of the pipeline the warden drives.
type Classifier interface {
	Classify(ctx context.Context, items []capture.Tab, engineID string, opts classify.Options) (*classify.Result, error)
}

// Memory records resolved classifications for future fallback recall.
type Memory interface {
	Remember(ctx context.Context, result *classify.Result) (int, error)
}

type Warden struct {
	classifier Classifier
	artifacts  *store.ArtifactStore
	log        *disposition.Log
	lock       *launchpad.Manager
	memory     Memory
	notifier   *notify.Registry
	engine     string
}

type Options struct {
	Classifier Classifier
	Artifacts  *store.ArtifactStore
	Log        *disposition.Log
	Lock       *launchpad.Manager
	Memory     Memory
	Notifier   *notify.Registry
	Engine     string
}

func New(opts Options) *Warden {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewRegistry()
	}
	return &Warden{
		classifier: opts.Classifier,
		artifacts:  opts.Artifacts,
		log:        opts.Log,
		lock:       opts.Lock,
		memory:     opts.Memory,
		notifier:   notifier,
		engine:     opts.Engine,
	}
}

// Session is the classify outcome handed back to the caller.
type Session struct {
	SessionID string
	Result    *classify.Result
	Lock      *launchpad.Record
}

// Classify runs the pipeline over the captured tabs, persists the artifact,
// and locks the launchpad behind the new session. A held lock from another
// session blocks the capture entirely.
func (w *Warden) Classify(ctx context.Context, items []capture.Tab, opts classify.Options) (*Session, error) {
	if len(items) == 0 {
		return nil, errors.InvalidInput("no items to classify")
	}

	// Check holdership before burning model calls.
	if current, err := w.lock.Status(); err != nil {
		return nil, err
	} else if current != nil {
		return nil, &launchpad.ConflictError{Holder: current.SessionID, Remaining: current.ItemsRemaining}
	}

	sessionID := store.NewSessionID()
	ctx = logger.WithTrace(logger.WithSessionID(ctx, sessionID))
	result, err := w.classifier.Classify(ctx, items, w.engine, opts)
	if err != nil {
		return nil, err
	}

	artifact := &store.Artifact{SessionID: sessionID, CreatedAt: result.Meta.StartedAt, Result: result}
	if err := w.artifacts.Save(artifact); err != nil {
		return nil, err
	}

	if w.memory != nil {
		if stored, err := w.memory.Remember(ctx, result); err != nil {
			slog.Warn("Recall memory update failed", "session_id", sessionID, "error", err)
		} else {
			result.Meta.Diagnostics.RecallConsults = stored
		}
	}

	rec, err := w.lock.Acquire(sessionID, result.TotalItems())
	if err != nil {
		return nil, err
	}

	slog.Info("Session classified and locked",
		"session_id", sessionID,
		"items", result.TotalItems(),
		"classified", result.ClassifiedCount(),
	)
	return &Session{SessionID: sessionID, Result: result, Lock: rec}, nil
}

// View reconstructs the current state of a session.
func (w *Warden) View(sessionID string) (*disposition.View, error) {
	artifact, err := w.artifacts.Load(sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := w.log.Read(sessionID)
	if err != nil {
		return nil, err
	}
	return disposition.Reconstruct(artifact.Result.Groups, entries), nil
}

// Load returns the immutable artifact.
func (w *Warden) Load(sessionID string) (*store.Artifact, error) {
	return w.artifacts.Load(sessionID)
}

// Latest returns the most recent session's artifact.
func (w *Warden) Latest() (*store.Artifact, error) {
	return w.artifacts.Latest()
}

// Sessions lists known session IDs, newest first.
func (w *Warden) Sessions() ([]string, error) {
	return w.artifacts.List()
}

// Dispose appends one disposition entry and returns the refreshed view.
func (w *Warden) Dispose(ctx context.Context, sessionID string, entry disposition.Entry) (*disposition.View, error) {
	return w.DisposeBatch(ctx, sessionID, []disposition.Entry{entry})
}

// DisposeBatch appends entries atomically, refreshes the lock's remaining
// count, and announces completion when the last item resolves.
func (w *Warden) DisposeBatch(ctx context.Context, sessionID string, entries []disposition.Entry) (*disposition.View, error) {
	ctx = logger.WithTrace(logger.WithSessionID(ctx, sessionID))
	artifact, err := w.artifacts.Load(sessionID)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.Action != disposition.ActionUndo && !knownItem(artifact.Result, e.ItemID) {
			return nil, errors.NotFound("item " + e.ItemID + " is not in session " + sessionID)
		}
	}

	if _, err := w.log.AppendBatch(sessionID, entries); err != nil {
		return nil, err
	}

	all, err := w.log.Read(sessionID)
	if err != nil {
		return nil, err
	}
	view := disposition.Reconstruct(artifact.Result.Groups, all)

	if err := w.lock.SetRemaining(sessionID, view.UnresolvedCount); err != nil && !errors.IsCategory(err, errors.ErrNotFound) {
		slog.Warn("Lock remaining-count refresh failed", "session_id", sessionID, "error", err)
	}

	if view.AllResolved {
		subject := "Session fully resolved"
		body := fmt.Sprintf("All %d items of session %s are resolved; the launchpad can be cleared.",
			view.Total, sessionID)
		if err := w.notifier.Announce(ctx, subject, body); err != nil {
			slog.Warn("Completion announcement failed", "session_id", sessionID, "error", err)
		}
	}
	return view, nil
}

func knownItem(result *classify.Result, itemID string) bool {
	if strings.TrimSpace(itemID) == "" {
		return false
	}
	for _, item := range result.Items() {
		if item.ID() == itemID {
			return true
		}
	}
	return false
}

// AcquireLock re-locks the launchpad for an existing session, seeding the
// remaining count from the live view.
func (w *Warden) AcquireLock(sessionID string) (*launchpad.Record, error) {
	view, err := w.View(sessionID)
	if err != nil {
		return nil, err
	}
	return w.lock.Acquire(sessionID, view.UnresolvedCount)
}

// ClearLock releases the launchpad, refusing while the session's view still
// has unresolved items.
func (w *Warden) ClearLock(sessionID string) error {
	view, err := w.View(sessionID)
	if err != nil {
		return err
	}
	return w.lock.Clear(sessionID, view.UnresolvedCount)
}

// ForceClearLock abandons the held session.
func (w *Warden) ForceClearLock() error {
	return w.lock.ForceClear()
}

// LockStatus returns the lock record, or nil when unlocked.
func (w *Warden) LockStatus() (*launchpad.Record, error) {
	return w.lock.Status()
}

// UpdateResume stores resume context on the held lock.
func (w *Warden) UpdateResume(sessionID, goal, focusCategory string) error {
	return w.lock.UpdateResume(sessionID, goal, focusCategory)
}
