// AngelaMos | 2026
// errors.go

package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials covers absent user, inactive user, and wrong
	// password alike; callers must not be able to tell which one occurred.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrAccountLocked = errors.New("account temporarily locked")

	// ErrRefreshTokenInvalid covers unknown, revoked, and expired refresh
	// tokens.
	ErrRefreshTokenInvalid = errors.New("refresh token not found or invalid")

	ErrEmailExists = errors.New("email already registered")
)

// LockedError reports an active lockout. Minutes is the only detail ever
// surfaced to the caller, rounded up so the promise is never shorter than
// the actual remaining window.
type LockedError struct {
	Minutes int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf(
		"account temporarily locked, try again in %d minute(s)",
		e.Minutes,
	)
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}
