package janitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabwarden/tabwarden/internal/errors"
	"github.com/tabwarden/tabwarden/internal/launchpad"
	"github.com/tabwarden/tabwarden/internal/notify"
)

type recordingNotifier struct{ subjects []string }

func (r *recordingNotifier) Name() string { return "recorder" }

func (r *recordingNotifier) Send(_ context.Context, subject, _ string) error {
	r.subjects = append(r.subjects, subject)
	return nil
}

func (r *recordingNotifier) Health(context.Context) error { return nil }

func setup(t *testing.T, staleAfter time.Duration) (*launchpad.Manager, *notify.Registry, *recordingNotifier) {
	t.Helper()
	lock := launchpad.NewManager(t.TempDir(), launchpad.Config{
		FlockRetry:    time.Millisecond,
		FlockMaxRetry: 3,
		StaleAfter:    staleAfter,
	})
	rec := &recordingNotifier{}
	registry := notify.NewRegistry()
	require.NoError(t, registry.Register(rec))
	return lock, registry, rec
}

func TestSweepNoLock(t *testing.T) {
	lock, registry, rec := setup(t, time.Nanosecond)
	j := New(lock, registry, "@every 15m")

	require.NoError(t, j.Sweep(context.Background()))
	assert.Empty(t, rec.subjects)
}

func TestSweepFreshLockIsQuiet(t *testing.T) {
	lock, registry, rec := setup(t, time.Hour)
	_, err := lock.Acquire("s1", 3)
	require.NoError(t, err)

	j := New(lock, registry, "@every 15m")
	require.NoError(t, j.Sweep(context.Background()))
	assert.Empty(t, rec.subjects)
}

func TestSweepStaleLockNudges(t *testing.T) {
	lock, registry, rec := setup(t, time.Nanosecond)
	_, err := lock.Acquire("s1", 3)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	j := New(lock, registry, "@every 15m")
	require.NoError(t, j.Sweep(context.Background()))
	require.Len(t, rec.subjects, 1)
	assert.Equal(t, "Stale session lock", rec.subjects[0])

	// The lock itself is untouched; abandoning is the user's call.
	status, err := lock.Status()
	require.NoError(t, err)
	assert.NotNil(t, status)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	lock, registry, _ := setup(t, time.Hour)
	j := New(lock, registry, "every once in a while")

	err := j.Start()
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestStartStop(t *testing.T) {
	lock, registry, _ := setup(t, time.Hour)
	j := New(lock, registry, "@every 1h")

	require.NoError(t, j.Start())
	j.Stop()
}
