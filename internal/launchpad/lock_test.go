package launchpad

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabwarden/tabwarden/internal/errors"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), Config{FlockRetry: time.Millisecond, FlockMaxRetry: 3})
}

func TestAcquireAndStatus(t *testing.T) {
	m := newManager(t)

	rec, err := m.Acquire("s1", 5)
	require.NoError(t, err)
	assert.Equal(t, "s1", rec.SessionID)
	assert.Equal(t, 5, rec.ItemsRemaining)
	assert.False(t, rec.LockedAt.IsZero())

	status, err := m.Status()
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "s1", status.SessionID)
}

func TestStatusUnlocked(t *testing.T) {
	m := newManager(t)
	status, err := m.Status()
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestAcquireConflictNamesHolder(t *testing.T) {
	m := newManager(t)

	_, err := m.Acquire("s1", 5)
	require.NoError(t, err)

	_, err = m.Acquire("s2", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConflict)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "s1", conflict.Holder)
	assert.Equal(t, 5, conflict.Remaining)
}

func TestAcquireReentrantRefreshesCount(t *testing.T) {
	m := newManager(t)

	first, err := m.Acquire("s1", 5)
	require.NoError(t, err)

	again, err := m.Acquire("s1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, again.ItemsRemaining)
	assert.Equal(t, first.LockedAt, again.LockedAt, "original lock time survives re-acquire")
}

func TestClearRefusesWhilePending(t *testing.T) {
	m := newManager(t)

	_, err := m.Acquire("s1", 5)
	require.NoError(t, err)

	err = m.Clear("s1", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConflict)

	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, 3, unresolved.Remaining)

	status, err := m.Status()
	require.NoError(t, err)
	assert.NotNil(t, status, "refused clear leaves the lock in place")
}

func TestClearWhenResolved(t *testing.T) {
	m := newManager(t)

	_, err := m.Acquire("s1", 5)
	require.NoError(t, err)
	require.NoError(t, m.Clear("s1", 0))

	status, err := m.Status()
	require.NoError(t, err)
	assert.Nil(t, status)

	// Clearing an unlocked launchpad is a no-op.
	assert.NoError(t, m.Clear("s1", 0))
}

func TestClearByNonHolderRejected(t *testing.T) {
	m := newManager(t)

	_, err := m.Acquire("s1", 5)
	require.NoError(t, err)

	err = m.Clear("s2", 0)
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestForceClear(t *testing.T) {
	m := newManager(t)

	_, err := m.Acquire("s1", 5)
	require.NoError(t, err)
	require.NoError(t, m.ForceClear())

	status, err := m.Status()
	require.NoError(t, err)
	assert.Nil(t, status)

	_, err = m.Acquire("s2", 1)
	assert.NoError(t, err)
}

func TestLockSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{FlockRetry: time.Millisecond, FlockMaxRetry: 3}

	m1 := NewManager(dir, cfg)
	_, err := m1.Acquire("s1", 4)
	require.NoError(t, err)

	// A fresh manager over the same directory sees the persisted record.
	m2 := NewManager(dir, cfg)
	_, err = m2.Acquire("s2", 1)
	assert.ErrorIs(t, err, errors.ErrConflict)

	status, err := m2.Status()
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, "s1", status.SessionID)
	assert.Equal(t, 4, status.ItemsRemaining)
}

func TestUpdateResume(t *testing.T) {
	m := newManager(t)

	_, err := m.Acquire("s1", 5)
	require.NoError(t, err)
	require.NoError(t, m.UpdateResume("s1", "ship the fix", "Development"))

	status, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, "ship the fix", status.Resume.Goal)
	assert.Equal(t, "Development", status.Resume.FocusCategory)
	assert.False(t, status.Resume.LastActivity.IsZero())

	err = m.UpdateResume("s2", "steal", "X")
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestSetRemaining(t *testing.T) {
	m := newManager(t)

	_, err := m.Acquire("s1", 5)
	require.NoError(t, err)
	require.NoError(t, m.SetRemaining("s1", 1))

	status, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, status.ItemsRemaining)

	err = m.SetRemaining("missing", 0)
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestSetRemainingUnlocked(t *testing.T) {
	m := newManager(t)
	err := m.SetRemaining("s1", 0)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestStale(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, Config{FlockRetry: time.Millisecond, FlockMaxRetry: 3, StaleAfter: time.Nanosecond})

	stale, _, err := m.Stale()
	require.NoError(t, err)
	assert.False(t, stale, "unlocked is never stale")

	_, err = m.Acquire("s1", 5)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	stale, rec, err := m.Stale()
	require.NoError(t, err)
	assert.True(t, stale)
	require.NotNil(t, rec)
	assert.Equal(t, "s1", rec.SessionID)
}
