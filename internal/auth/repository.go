// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lromero-dev/casafin/internal/core"
)

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)
	DeleteByUserID(ctx context.Context, userID int64) error
	RevokeByToken(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type DenylistRepository interface {
	Insert(ctx context.Context, entry *RevocationEntry) error
	ExistsByHash(ctx context.Context, tokenHash string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteAllForUser(ctx context.Context, userID int64) error
}

type LoginAttemptRepository interface {
	FindByEmail(ctx context.Context, email string) (*LoginAttempt, error)
	Upsert(ctx context.Context, attempt *LoginAttempt) error
}

type refreshTokenRepository struct {
	db core.DBTX
}

func NewRefreshTokenRepository(db core.DBTX) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(
	ctx context.Context,
	token *RefreshToken,
) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &token.CreatedAt, query,
		token.ID,
		token.UserID,
		token.Token,
		token.ExpiresAt,
		token.Revoked,
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}

	return nil
}

func (r *refreshTokenRepository) FindByToken(
	ctx context.Context,
	tokenString string,
) (*RefreshToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, created_at, revoked
		FROM refresh_tokens
		WHERE token = $1`

	var token RefreshToken
	err := r.db.GetContext(ctx, &token, query, tokenString)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	return &token, nil
}

func (r *refreshTokenRepository) DeleteByUserID(
	ctx context.Context,
	userID int64,
) error {
	query := `DELETE FROM refresh_tokens WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete refresh tokens for user: %w", err)
	}

	return nil
}

func (r *refreshTokenRepository) RevokeByToken(
	ctx context.Context,
	tokenString string,
) error {
	// No row is not an error: revocation must be idempotent from the
	// caller's perspective.
	query := `
		UPDATE refresh_tokens
		SET revoked = true
		WHERE token = $1 AND revoked = false`

	if _, err := r.db.ExecContext(ctx, query, tokenString); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}

func (r *refreshTokenRepository) RevokeAllForUser(
	ctx context.Context,
	userID int64,
) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = true
		WHERE user_id = $1 AND revoked = false`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke all refresh tokens for user: %w", err)
	}

	return nil
}

func (r *refreshTokenRepository) DeleteExpired(
	ctx context.Context,
	now time.Time,
) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}

	return rows, nil
}

type denylistRepository struct {
	db core.DBTX
}

func NewDenylistRepository(db core.DBTX) DenylistRepository {
	return &denylistRepository{db: db}
}

func (r *denylistRepository) Insert(
	ctx context.Context,
	entry *RevocationEntry,
) error {
	// ON CONFLICT DO NOTHING makes re-denylisting the same token a no-op.
	query := `
		INSERT INTO token_denylist (token_hash, user_id, invalidated_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_hash) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		entry.TokenHash,
		entry.UserID,
		entry.InvalidatedAt,
		entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert denylist entry: %w", err)
	}

	return nil
}

func (r *denylistRepository) ExistsByHash(
	ctx context.Context,
	tokenHash string,
) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM token_denylist WHERE token_hash = $1
	)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, tokenHash); err != nil {
		return false, fmt.Errorf("check denylist entry: %w", err)
	}

	return exists, nil
}

func (r *denylistRepository) DeleteExpired(
	ctx context.Context,
	now time.Time,
) (int64, error) {
	query := `DELETE FROM token_denylist WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired denylist entries: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired denylist entries: %w", err)
	}

	return rows, nil
}

func (r *denylistRepository) DeleteAllForUser(
	ctx context.Context,
	userID int64,
) error {
	query := `DELETE FROM token_denylist WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete denylist entries for user: %w", err)
	}

	return nil
}

type loginAttemptRepository struct {
	db core.DBTX
}

func NewLoginAttemptRepository(db core.DBTX) LoginAttemptRepository {
	return &loginAttemptRepository{db: db}
}

func (r *loginAttemptRepository) FindByEmail(
	ctx context.Context,
	email string,
) (*LoginAttempt, error) {
	query := `
		SELECT id, email, failed_attempts, last_attempt, locked_until, lockout_level
		FROM login_attempts
		WHERE email = $1`

	var attempt LoginAttempt
	err := r.db.GetContext(ctx, &attempt, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find login attempt: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find login attempt: %w", err)
	}

	return &attempt, nil
}

func (r *loginAttemptRepository) Upsert(
	ctx context.Context,
	attempt *LoginAttempt,
) error {
	query := `
		INSERT INTO login_attempts (
			email, failed_attempts, last_attempt, locked_until, lockout_level
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			failed_attempts = EXCLUDED.failed_attempts,
			last_attempt = EXCLUDED.last_attempt,
			locked_until = EXCLUDED.locked_until,
			lockout_level = EXCLUDED.lockout_level
		RETURNING id`

	err := r.db.GetContext(ctx, &attempt.ID, query,
		attempt.Email,
		attempt.FailedAttempts,
		attempt.LastAttempt,
		attempt.LockedUntil,
		attempt.LockoutLevel,
	)
	if err != nil {
		return fmt.Errorf("upsert login attempt: %w", err)
	}

	return nil
}
