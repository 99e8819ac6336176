// AngelaMos | 2026
// entity.go

package auth

import (
	"time"
)

// RefreshToken is the single stored refresh credential for a principal.
// Issuing a new one replaces the previous row, so at most one row exists per
// user at any time.
type RefreshToken struct {
	ID        string    `db:"id"`
	UserID    int64     `db:"user_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	Revoked   bool      `db:"revoked"`
}

func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *RefreshToken) IsValid() bool {
	return !t.Revoked && !t.IsExpired()
}

// RevocationEntry records an access token invalidated before its natural
// expiry. Only the SHA-256 digest of the token is stored; ExpiresAt is the
// token's own expiry, after which the entry is prunable.
type RevocationEntry struct {
	ID            int64     `db:"id"`
	TokenHash     string    `db:"token_hash"`
	UserID        int64     `db:"user_id"`
	InvalidatedAt time.Time `db:"invalidated_at"`
	ExpiresAt     time.Time `db:"expires_at"`
}

// LoginAttempt tracks failed authentication attempts per normalized email.
// LockoutLevel only ever grows; rows are never deleted.
type LoginAttempt struct {
	ID             int64      `db:"id"`
	Email          string     `db:"email"`
	FailedAttempts int        `db:"failed_attempts"`
	LastAttempt    time.Time  `db:"last_attempt"`
	LockedUntil    *time.Time `db:"locked_until"`
	LockoutLevel   int        `db:"lockout_level"`
}
