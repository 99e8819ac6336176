// AngelaMos | 2026
// store.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lromero-dev/casafin/internal/core"
)

// RefreshTokenStore persists refresh tokens and enforces the single
// active session per user rule: issuing a new token deletes every
// earlier one for that user.
type RefreshTokenStore struct {
	repo  RefreshTokenRepository
	codec *TokenCodec
}

func NewRefreshTokenStore(
	repo RefreshTokenRepository,
	codec *TokenCodec,
) *RefreshTokenStore {
	return &RefreshTokenStore{
		repo:  repo,
		codec: codec,
	}
}

// Issue mints a refresh token for the user and stores it, replacing any
// token previously held by the same user.
func (s *RefreshTokenStore) Issue(
	ctx context.Context,
	userID int64,
	email string,
) (string, time.Time, error) {
	if err := s.repo.DeleteByUserID(ctx, userID); err != nil {
		return "", time.Time{}, fmt.Errorf("replace refresh token: %w", err)
	}

	tokenString, expiresAt, err := s.codec.IssueRefresh(userID, email)
	if err != nil {
		return "", time.Time{}, err
	}

	token := &RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     tokenString,
		ExpiresAt: expiresAt,
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// Verify checks that the presented refresh token is known, unrevoked,
// unexpired, and still carries a valid refresh-typed signature.
func (s *RefreshTokenStore) Verify(
	ctx context.Context,
	tokenString string,
) (*Claims, error) {
	stored, err := s.repo.FindByToken(ctx, tokenString)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, err
	}

	if !stored.IsValid() {
		return nil, ErrRefreshTokenInvalid
	}

	claims, err := s.codec.Verify(tokenString)
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, ErrRefreshTokenInvalid
	}

	return claims, nil
}

// Revoke marks the token revoked. Revoking an unknown token is a no-op.
func (s *RefreshTokenStore) Revoke(
	ctx context.Context,
	tokenString string,
) error {
	return s.repo.RevokeByToken(ctx, tokenString)
}

// RevokeAll revokes every refresh token held by the user.
func (s *RefreshTokenStore) RevokeAll(
	ctx context.Context,
	userID int64,
) error {
	return s.repo.RevokeAllForUser(ctx, userID)
}

// SweepExpired deletes tokens whose expiry has passed and reports how
// many rows were removed.
func (s *RefreshTokenStore) SweepExpired(
	ctx context.Context,
) (int64, error) {
	return s.repo.DeleteExpired(ctx, time.Now().UTC())
}
