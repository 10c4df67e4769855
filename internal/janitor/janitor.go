// Package janitor periodically sweeps for abandoned launchpad locks and
// nudges the user through the notification channels.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tabwarden/tabwarden/internal/errors"
	"github.com/tabwarden/tabwarden/internal/launchpad"
	"github.com/tabwarden/tabwarden/internal/notify"
)

type Janitor struct {
	lock     *launchpad.Manager
	notifier *notify.Registry
	schedule string
	cron     *cron.Cron
}

func New(lock *launchpad.Manager, notifier *notify.Registry, schedule string) *Janitor {
	return &Janitor{lock: lock, notifier: notifier, schedule: schedule}
}

// Start registers the sweep on its cron schedule and begins ticking. An
// unparsable schedule is rejected before anything runs.
func (j *Janitor) Start() error {
	c := cron.New()
	_, err := c.AddFunc(j.schedule, func() {
		if err := j.Sweep(context.Background()); err != nil {
			slog.Error("Janitor sweep failed", "error", err)
		}
	})
	if err != nil {
		return errors.InvalidInput("invalid janitor schedule " + j.schedule + ": " + err.Error())
	}
	j.cron = c
	c.Start()
	slog.Info("Janitor started", "schedule", j.schedule)
	return nil
}

func (j *Janitor) Stop() {
	if j.cron != nil {
		ctx := j.cron.Stop()
		<-ctx.Done()
		slog.Info("Janitor stopped")
	}
}

// Sweep checks the lock once. A stale lock produces a nudge, never an
// automatic force-clear; abandoning a session is always a user decision.
func (j *Janitor) Sweep(ctx context.Context) error {
	stale, rec, err := j.lock.Stale()
	if err != nil {
		return err
	}
	if !stale {
		return nil
	}

	idle := time.Since(rec.Resume.LastActivity)
	if rec.Resume.LastActivity.IsZero() {
		idle = time.Since(rec.LockedAt)
	}
	slog.Warn("Stale launchpad lock detected",
		"session_id", rec.SessionID,
		"items_remaining", rec.ItemsRemaining,
		"idle", idle.Round(time.Minute),
	)

	body := fmt.Sprintf(
		"Session %s has held the launchpad for %s with %d items unresolved. Resume it or run `tabwarden lock clear --force`.",
		rec.SessionID, idle.Round(time.Minute), rec.ItemsRemaining)
	return j.notifier.Announce(ctx, "Stale session lock", body)
}
