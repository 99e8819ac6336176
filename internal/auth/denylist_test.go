// AngelaMos | 2026
// denylist_test.go

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lromero-dev/casafin/internal/core"
)

func TestRevocationRegistry_AddAndContains(t *testing.T) {
	repo := newFakeDenylistRepo()
	codec := newTestCodec(t)
	registry := NewRevocationRegistry(repo, codec)
	ctx := context.Background()

	token, _, err := codec.IssueAccess(1, "ana@example.com", "Ana", 0)
	require.NoError(t, err)

	assert.False(t, registry.Contains(ctx, token))

	require.NoError(t, registry.Add(ctx, token, 1))
	assert.True(t, registry.Contains(ctx, token))

	// Only the hash reaches storage, never the raw token.
	repo.mu.Lock()
	_, rawStored := repo.entries[token]
	_, hashStored := repo.entries[core.HashToken(token)]
	repo.mu.Unlock()
	assert.False(t, rawStored)
	assert.True(t, hashStored)
}

func TestRevocationRegistry_AddIsIdempotent(t *testing.T) {
	repo := newFakeDenylistRepo()
	codec := newTestCodec(t)
	registry := NewRevocationRegistry(repo, codec)
	ctx := context.Background()

	token, _, err := codec.IssueAccess(1, "ana@example.com", "Ana", 0)
	require.NoError(t, err)

	require.NoError(t, registry.Add(ctx, token, 1))
	require.NoError(t, registry.Add(ctx, token, 1))

	assert.Equal(t, 1, repo.count())
}

func TestRevocationRegistry_AddSkipsUndecodableToken(t *testing.T) {
	repo := newFakeDenylistRepo()
	registry := NewRevocationRegistry(repo, newTestCodec(t))
	ctx := context.Background()

	assert.NoError(t, registry.Add(ctx, "garbage.token.string", 1))
	assert.NoError(t, registry.Add(ctx, "", 1))
	assert.Equal(t, 0, repo.count())
}

func TestRevocationRegistry_ContainsFalseOnStorageError(t *testing.T) {
	repo := newFakeDenylistRepo()
	codec := newTestCodec(t)
	registry := NewRevocationRegistry(repo, codec)
	ctx := context.Background()

	token, _, err := codec.IssueAccess(1, "ana@example.com", "Ana", 0)
	require.NoError(t, err)
	require.NoError(t, registry.Add(ctx, token, 1))

	repo.mu.Lock()
	repo.err = errors.New("connection refused")
	repo.mu.Unlock()

	assert.False(t, registry.Contains(ctx, token))
}

func TestRevocationRegistry_ContainsFalseForEmptyToken(t *testing.T) {
	registry := NewRevocationRegistry(newFakeDenylistRepo(), newTestCodec(t))

	assert.False(t, registry.Contains(context.Background(), ""))
}

func TestRevocationRegistry_SweepExpired(t *testing.T) {
	repo := newFakeDenylistRepo()
	codec := newTestCodec(t)
	registry := NewRevocationRegistry(repo, codec)
	ctx := context.Background()

	token, _, err := codec.IssueAccess(1, "ana@example.com", "Ana", 0)
	require.NoError(t, err)
	require.NoError(t, registry.Add(ctx, token, 1))

	require.NoError(t, repo.Insert(ctx, &RevocationEntry{
		TokenHash:     "stale-hash",
		UserID:        2,
		InvalidatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt:     time.Now().Add(-time.Hour),
	}))

	removed, err := registry.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	// The live entry is untouched.
	assert.True(t, registry.Contains(ctx, token))
}
