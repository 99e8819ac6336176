// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lromero-dev/casafin/internal/core"
)

// UserInfo is the slice of a user account the auth service needs.
type UserInfo struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Active       bool
	TokenVersion int
}

// UserProvider supplies and mutates user accounts on behalf of the
// auth service.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id int64) (*UserInfo, error)
	Create(
		ctx context.Context,
		email string,
		passwordHash string,
		name string,
	) (*UserInfo, error)
	IncrementTokenVersion(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// TokenPair carries a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type Service struct {
	codec        *TokenCodec
	refreshStore *RefreshTokenStore
	denylist     *RevocationRegistry
	lockout      *LockoutGuard
	users        UserProvider
}

func NewService(
	codec *TokenCodec,
	refreshStore *RefreshTokenStore,
	denylist *RevocationRegistry,
	lockout *LockoutGuard,
	users UserProvider,
) *Service {
	return &Service{
		codec:        codec,
		refreshStore: refreshStore,
		denylist:     denylist,
		lockout:      lockout,
		users:        users,
	}
}

// Login authenticates the user and issues a token pair. A missing
// account, a deactivated account, and a wrong password all produce the
// same ErrInvalidCredentials and all count toward lockout, so the
// response never confirms whether an email is registered.
func (s *Service) Login(
	ctx context.Context,
	email string,
	password string,
) (*UserInfo, *TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := s.lockout.CheckNotLocked(ctx, email); err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, nil, err
	}

	var hash *string
	if user != nil && user.Active {
		hash = &user.PasswordHash
	}

	ok, err := core.VerifyPasswordTimingSafe(password, hash)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		if lerr := s.lockout.RecordFailure(ctx, email); lerr != nil {
			slog.Error("failed to record login failure",
				slog.String("error", lerr.Error()),
			)
		}
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.lockout.RecordSuccess(ctx, email); err != nil {
		slog.Error("failed to record login success",
			slog.String("error", err.Error()),
		)
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. The old
// token is consumed: issuing the replacement removes it, and it is
// revoked besides in case a copy of the row survived.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken string,
) (*UserInfo, *TokenPair, error) {
	claims, err := s.refreshStore.Verify(ctx, refreshToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, ErrRefreshTokenInvalid
		}
		return nil, nil, err
	}
	if !user.Active {
		return nil, nil, ErrRefreshTokenInvalid
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.refreshStore.Revoke(ctx, refreshToken); err != nil {
		slog.Warn("failed to revoke consumed refresh token",
			slog.String("error", err.Error()),
		)
	}

	return user, pair, nil
}

// Logout invalidates the presented tokens on a best-effort basis. It
// never fails: a logout request always succeeds from the client's
// point of view, whatever state the tokens are in.
func (s *Service) Logout(
	ctx context.Context,
	accessToken string,
	refreshToken string,
) {
	if accessToken != "" {
		var userID int64
		if claims, err := s.codec.Verify(accessToken); err == nil {
			userID = claims.UserID
		}
		if err := s.denylist.Add(ctx, accessToken, userID); err != nil {
			slog.Warn("failed to denylist access token on logout",
				slog.String("error", err.Error()),
			)
		}
	}

	if refreshToken != "" {
		if err := s.refreshStore.Revoke(ctx, refreshToken); err != nil {
			slog.Warn("failed to revoke refresh token on logout",
				slog.String("error", err.Error()),
			)
		}
	}
}

// Register creates a new account after checking the password policy.
func (s *Service) Register(
	ctx context.Context,
	email string,
	password string,
	name string,
) (*UserInfo, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := core.ValidatePasswordPolicy(password); err != nil {
		return nil, err
	}

	hash, err := core.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, email, hash, name)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	return user, nil
}

// ChangePassword verifies the current password, applies the policy to
// the new one, stores it, and invalidates every outstanding access
// token by bumping the user's token version. The token used to
// authenticate this very request is denylisted so it dies immediately
// rather than on its next version check.
func (s *Service) ChangePassword(
	ctx context.Context,
	userID int64,
	currentPassword string,
	newPassword string,
	accessToken string,
) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := core.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify current password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if err := core.ValidatePasswordPolicy(newPassword); err != nil {
		return err
	}

	hash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return err
	}

	if accessToken != "" {
		if derr := s.denylist.Add(ctx, accessToken, userID); derr != nil {
			slog.Warn("failed to denylist token after password change",
				slog.String("error", derr.Error()),
			)
		}
	}

	return nil
}

// VerifyAccessToken runs the full gauntlet an access token must pass:
// signature and expiry, token type, denylist, account status, and the
// token version stamped at issue time.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	tokenString string,
) (*Claims, error) {
	claims, err := s.codec.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, core.ErrTokenInvalid
	}

	if s.denylist.Contains(ctx, tokenString) {
		return nil, core.ErrTokenRevoked
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrTokenRevoked
		}
		return nil, err
	}
	if !user.Active {
		return nil, core.ErrTokenRevoked
	}
	if claims.TokenVersion != user.TokenVersion {
		return nil, core.ErrTokenRevoked
	}

	return claims, nil
}

// CurrentUser looks up the account behind an authenticated request.
func (s *Service) CurrentUser(
	ctx context.Context,
	userID int64,
) (*UserInfo, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) issuePair(
	ctx context.Context,
	user *UserInfo,
) (*TokenPair, error) {
	accessToken, accessExp, err := s.codec.IssueAccess(
		user.ID,
		user.Email,
		user.Name,
		user.TokenVersion,
	)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExp, err := s.refreshStore.Issue(
		ctx,
		user.ID,
		user.Email,
	)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}
