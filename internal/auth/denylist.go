// AngelaMos | 2026
// denylist.go

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/lromero-dev/casafin/internal/core"
)

// RevocationRegistry records access tokens that must stop working
// before their natural expiry. Entries are keyed by the SHA-256 hash of
// the token so the raw string never reaches storage.
type RevocationRegistry struct {
	repo  DenylistRepository
	codec *TokenCodec
}

func NewRevocationRegistry(
	repo DenylistRepository,
	codec *TokenCodec,
) *RevocationRegistry {
	return &RevocationRegistry{
		repo:  repo,
		codec: codec,
	}
}

// Add denylists the token until its own expiry. Tokens that fail
// verification are skipped silently: an undecodable token can never
// pass verification later, so there is nothing to revoke.
func (r *RevocationRegistry) Add(
	ctx context.Context,
	tokenString string,
	userID int64,
) error {
	if tokenString == "" {
		return nil
	}

	claims, err := r.codec.Verify(tokenString)
	if err != nil {
		slog.Debug("skipping denylist add for undecodable token",
			slog.Int64("user_id", userID),
		)
		return nil
	}

	entry := &RevocationEntry{
		TokenHash:     core.HashToken(tokenString),
		UserID:        userID,
		InvalidatedAt: time.Now().UTC(),
		ExpiresAt:     claims.ExpiresAt,
	}

	return r.repo.Insert(ctx, entry)
}

// Contains reports whether the token has been denylisted. Storage
// errors are logged and treated as "not denylisted" so that a registry
// outage degrades availability of revocation, not of authentication.
func (r *RevocationRegistry) Contains(
	ctx context.Context,
	tokenString string,
) bool {
	if tokenString == "" {
		return false
	}

	exists, err := r.repo.ExistsByHash(ctx, core.HashToken(tokenString))
	if err != nil {
		slog.Warn("denylist lookup failed",
			slog.String("error", err.Error()),
		)
		return false
	}

	return exists
}

// SweepExpired removes entries for tokens that have outlived their own
// expiry and no longer need tracking.
func (r *RevocationRegistry) SweepExpired(
	ctx context.Context,
) (int64, error) {
	return r.repo.DeleteExpired(ctx, time.Now().UTC())
}

// RemoveAllForUser drops every entry recorded for the user.
func (r *RevocationRegistry) RemoveAllForUser(
	ctx context.Context,
	userID int64,
) error {
	return r.repo.DeleteAllForUser(ctx, userID)
}
