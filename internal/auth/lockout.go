// AngelaMos | 2026
// lockout.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lromero-dev/casafin/internal/core"
)

// maxLockoutShift caps the exponential backoff so the duration cannot
// overflow; 3m << 16 is already over three months.
const maxLockoutShift = 16

// LockoutGuard throttles password guessing per email address. Each
// lockout doubles in length: the first lasts the base duration, the
// next twice that, and so on. The escalation level never decays, only
// the failure counter resets.
type LockoutGuard struct {
	repo        LoginAttemptRepository
	maxAttempts int
	baseLockout time.Duration
	now         func() time.Time
}

func NewLockoutGuard(
	repo LoginAttemptRepository,
	maxAttempts int,
	baseLockout time.Duration,
) *LockoutGuard {
	return &LockoutGuard{
		repo:        repo,
		maxAttempts: maxAttempts,
		baseLockout: baseLockout,
		now:         time.Now,
	}
}

// CheckNotLocked returns a LockedError while an active lock stands. A
// lapsed lock is cleared on the way through; the escalation level is
// kept so the next lock lasts longer.
func (g *LockoutGuard) CheckNotLocked(
	ctx context.Context,
	email string,
) error {
	attempt, err := g.find(ctx, email)
	if err != nil {
		return err
	}
	if attempt == nil || attempt.LockedUntil == nil {
		return nil
	}

	now := g.now()
	if now.Before(*attempt.LockedUntil) {
		remaining := attempt.LockedUntil.Sub(now)
		minutes := int(math.Ceil(remaining.Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		return &LockedError{Minutes: minutes}
	}

	attempt.LockedUntil = nil
	attempt.FailedAttempts = 0
	if err := g.repo.Upsert(ctx, attempt); err != nil {
		return fmt.Errorf("clear lapsed lockout: %w", err)
	}

	return nil
}

// RecordFailure bumps the failure counter and, once the threshold is
// reached, locks the account and escalates the level. The counter
// resets when a lock is placed so the next window starts clean.
func (g *LockoutGuard) RecordFailure(
	ctx context.Context,
	email string,
) error {
	email = normalizeEmail(email)

	attempt, err := g.find(ctx, email)
	if err != nil {
		return err
	}
	if attempt == nil {
		attempt = &LoginAttempt{Email: email}
	}

	now := g.now()
	attempt.FailedAttempts++
	attempt.LastAttempt = now

	if attempt.FailedAttempts >= g.maxAttempts {
		shift := attempt.LockoutLevel
		if shift > maxLockoutShift {
			shift = maxLockoutShift
		}
		duration := g.baseLockout * (1 << shift)
		lockedUntil := now.Add(duration)

		attempt.LockedUntil = &lockedUntil
		attempt.FailedAttempts = 0
		attempt.LockoutLevel++
	}

	if err := g.repo.Upsert(ctx, attempt); err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}

	return nil
}

// RecordSuccess clears the failure counter and any remaining lock. The
// escalation level is deliberately left alone.
func (g *LockoutGuard) RecordSuccess(
	ctx context.Context,
	email string,
) error {
	attempt, err := g.find(ctx, email)
	if err != nil {
		return err
	}
	if attempt == nil {
		return nil
	}

	attempt.FailedAttempts = 0
	attempt.LockedUntil = nil
	attempt.LastAttempt = g.now()
	if err := g.repo.Upsert(ctx, attempt); err != nil {
		return fmt.Errorf("record login success: %w", err)
	}

	return nil
}

func (g *LockoutGuard) find(
	ctx context.Context,
	email string,
) (*LoginAttempt, error) {
	attempt, err := g.repo.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
