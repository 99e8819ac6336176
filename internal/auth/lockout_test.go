// AngelaMos | 2026
// lockout_test.go

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T) (*LockoutGuard, *fakeLoginAttemptRepo, *time.Time) {
	t.Helper()

	repo := newFakeLoginAttemptRepo()
	guard := NewLockoutGuard(repo, 3, 3*time.Minute)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	guard.now = func() time.Time { return now }

	return guard, repo, &now
}

func failTimes(t *testing.T, guard *LockoutGuard, email string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, guard.RecordFailure(context.Background(), email))
	}
}

func TestLockoutGuard_LocksAfterThreshold(t *testing.T) {
	guard, _, _ := newTestGuard(t)
	ctx := context.Background()

	failTimes(t, guard, "ana@example.com", 2)
	assert.NoError(t, guard.CheckNotLocked(ctx, "ana@example.com"))

	failTimes(t, guard, "ana@example.com", 1)

	err := guard.CheckNotLocked(ctx, "ana@example.com")
	require.Error(t, err)

	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, 3, locked.Minutes)
	assert.True(t, errors.Is(err, ErrAccountLocked))
}

func TestLockoutGuard_EscalatesOnRepeatedLockouts(t *testing.T) {
	guard, _, now := newTestGuard(t)
	ctx := context.Background()

	// First lockout lasts the base duration.
	failTimes(t, guard, "ana@example.com", 3)

	var locked *LockedError
	err := guard.CheckNotLocked(ctx, "ana@example.com")
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, 3, locked.Minutes)

	// Wait out the lock, then fail again: the second lockout doubles.
	*now = now.Add(4 * time.Minute)
	require.NoError(t, guard.CheckNotLocked(ctx, "ana@example.com"))

	failTimes(t, guard, "ana@example.com", 3)

	err = guard.CheckNotLocked(ctx, "ana@example.com")
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, 6, locked.Minutes)
}

func TestLockoutGuard_SuccessClearsCounterButNotLevel(t *testing.T) {
	guard, _, now := newTestGuard(t)
	ctx := context.Background()

	failTimes(t, guard, "ana@example.com", 3)
	*now = now.Add(4 * time.Minute)
	require.NoError(t, guard.CheckNotLocked(ctx, "ana@example.com"))

	require.NoError(t, guard.RecordSuccess(ctx, "ana@example.com"))

	// A clean login does not forgive past lockouts: the next one still
	// lasts twice the base duration.
	failTimes(t, guard, "ana@example.com", 3)

	var locked *LockedError
	err := guard.CheckNotLocked(ctx, "ana@example.com")
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, 6, locked.Minutes)
}

func TestLockoutGuard_LapsedLockClearsLazily(t *testing.T) {
	guard, repo, now := newTestGuard(t)
	ctx := context.Background()

	failTimes(t, guard, "ana@example.com", 3)
	*now = now.Add(10 * time.Minute)

	require.NoError(t, guard.CheckNotLocked(ctx, "ana@example.com"))

	attempt, err := repo.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Nil(t, attempt.LockedUntil)
	assert.Zero(t, attempt.FailedAttempts)
	assert.Equal(t, 1, attempt.LockoutLevel)
}

func TestLockoutGuard_RemainingMinutesRoundUp(t *testing.T) {
	guard, _, now := newTestGuard(t)
	ctx := context.Background()

	failTimes(t, guard, "ana@example.com", 3)
	*now = now.Add(2*time.Minute + 30*time.Second)

	var locked *LockedError
	err := guard.CheckNotLocked(ctx, "ana@example.com")
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, 1, locked.Minutes)
}

func TestLockoutGuard_NormalizesEmail(t *testing.T) {
	guard, _, _ := newTestGuard(t)
	ctx := context.Background()

	failTimes(t, guard, "  ANA@Example.COM ", 3)

	err := guard.CheckNotLocked(ctx, "ana@example.com")
	var locked *LockedError
	assert.True(t, errors.As(err, &locked))
}

func TestLockoutGuard_SuccessWithoutHistoryIsNoOp(t *testing.T) {
	guard, repo, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, guard.RecordSuccess(ctx, "nobody@example.com"))
	assert.Empty(t, repo.attempts)
}
