// AngelaMos | 2026
// store_test.go

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokenStore_IssueReplacesPreviousToken(t *testing.T) {
	repo := newFakeRefreshTokenRepo()
	store := NewRefreshTokenStore(repo, newTestCodec(t))
	ctx := context.Background()

	first, _, err := store.Issue(ctx, 1, "ana@example.com")
	require.NoError(t, err)

	second, _, err := store.Issue(ctx, 1, "ana@example.com")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// One active session per user: the first token is gone.
	assert.Equal(t, 1, repo.count())

	_, err = store.Verify(ctx, first)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)

	claims, err := store.Verify(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestRefreshTokenStore_IssueKeepsOtherUsersTokens(t *testing.T) {
	repo := newFakeRefreshTokenRepo()
	store := NewRefreshTokenStore(repo, newTestCodec(t))
	ctx := context.Background()

	anaToken, _, err := store.Issue(ctx, 1, "ana@example.com")
	require.NoError(t, err)

	_, _, err = store.Issue(ctx, 2, "luis@example.com")
	require.NoError(t, err)

	_, err = store.Verify(ctx, anaToken)
	assert.NoError(t, err)
}

func TestRefreshTokenStore_VerifyRejectsUnknownToken(t *testing.T) {
	store := NewRefreshTokenStore(newFakeRefreshTokenRepo(), newTestCodec(t))

	codec := newTestCodec(t)
	unknown, _, err := codec.IssueRefresh(1, "ana@example.com")
	require.NoError(t, err)

	// Validly signed but never stored.
	_, err = store.Verify(context.Background(), unknown)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

func TestRefreshTokenStore_VerifyRejectsRevokedToken(t *testing.T) {
	repo := newFakeRefreshTokenRepo()
	store := NewRefreshTokenStore(repo, newTestCodec(t))
	ctx := context.Background()

	token, _, err := store.Issue(ctx, 1, "ana@example.com")
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, token))

	_, err = store.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

func TestRefreshTokenStore_VerifyRejectsExpiredRow(t *testing.T) {
	repo := newFakeRefreshTokenRepo()
	store := NewRefreshTokenStore(repo, newTestCodec(t))
	ctx := context.Background()

	token, _, err := store.Issue(ctx, 1, "ana@example.com")
	require.NoError(t, err)

	repo.mu.Lock()
	repo.tokens[token].ExpiresAt = time.Now().Add(-time.Minute)
	repo.mu.Unlock()

	_, err = store.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

func TestRefreshTokenStore_VerifyRejectsAccessToken(t *testing.T) {
	repo := newFakeRefreshTokenRepo()
	codec := newTestCodec(t)
	store := NewRefreshTokenStore(repo, codec)
	ctx := context.Background()

	// An access token smuggled into the refresh store must not verify.
	accessToken, expiresAt, err := codec.IssueAccess(1, "ana@example.com", "Ana", 0)
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, &RefreshToken{
		ID:        "fake-row",
		UserID:    1,
		Token:     accessToken,
		ExpiresAt: expiresAt,
	}))

	_, err = store.Verify(ctx, accessToken)
	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

func TestRefreshTokenStore_RevokeUnknownTokenIsNoOp(t *testing.T) {
	store := NewRefreshTokenStore(newFakeRefreshTokenRepo(), newTestCodec(t))

	assert.NoError(t, store.Revoke(context.Background(), "never-issued"))
}

func TestRefreshTokenStore_SweepExpired(t *testing.T) {
	repo := newFakeRefreshTokenRepo()
	store := NewRefreshTokenStore(repo, newTestCodec(t))
	ctx := context.Background()

	live, _, err := store.Issue(ctx, 1, "ana@example.com")
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, &RefreshToken{
		ID:        "stale",
		UserID:    2,
		Token:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	removed, err := store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = store.Verify(ctx, live)
	assert.NoError(t, err)
}
