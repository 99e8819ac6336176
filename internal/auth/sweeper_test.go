// AngelaMos | 2026
// sweeper_test.go

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSweeperFixture(t *testing.T) (*Sweeper, *fakeRefreshTokenRepo, *fakeDenylistRepo) {
	t.Helper()

	codec := newTestCodec(t)
	refreshRepo := newFakeRefreshTokenRepo()
	denylistRepo := newFakeDenylistRepo()

	sweeper := NewSweeper(
		NewRefreshTokenStore(refreshRepo, codec),
		NewRevocationRegistry(denylistRepo, codec),
		10*time.Millisecond,
	)

	return sweeper, refreshRepo, denylistRepo
}

func seedExpiredState(
	t *testing.T,
	refreshRepo *fakeRefreshTokenRepo,
	denylistRepo *fakeDenylistRepo,
) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, refreshRepo.Create(ctx, &RefreshToken{
		ID:        "stale",
		UserID:    1,
		Token:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, denylistRepo.Insert(ctx, &RevocationEntry{
		TokenHash: "stale-hash",
		UserID:    1,
		ExpiresAt: time.Now().Add(-time.Hour),
	}))
}

func TestSweeper_SweepRemovesExpiredState(t *testing.T) {
	sweeper, refreshRepo, denylistRepo := newSweeperFixture(t)
	seedExpiredState(t, refreshRepo, denylistRepo)

	sweeper.Sweep(context.Background())

	assert.Equal(t, 0, refreshRepo.count())
	assert.Equal(t, 0, denylistRepo.count())
}

func TestSweeper_StartStopLifecycle(t *testing.T) {
	sweeper, refreshRepo, denylistRepo := newSweeperFixture(t)
	seedExpiredState(t, refreshRepo, denylistRepo)

	sweeper.Start(context.Background())
	// Starting twice must not spawn a second loop.
	sweeper.Start(context.Background())

	assert.Eventually(t, func() bool {
		return refreshRepo.count() == 0 && denylistRepo.count() == 0
	}, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	sweeper.Stop()
}
