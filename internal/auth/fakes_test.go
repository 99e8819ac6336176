// AngelaMos | 2026
// fakes_test.go

package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lromero-dev/casafin/internal/core"
)

type fakeRefreshTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
	err    error
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: make(map[string]*RefreshToken)}
}

func (f *fakeRefreshTokenRepo) Create(
	_ context.Context,
	token *RefreshToken,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	stored := *token
	stored.CreatedAt = time.Now()
	f.tokens[token.Token] = &stored
	return nil
}

func (f *fakeRefreshTokenRepo) FindByToken(
	_ context.Context,
	token string,
) (*RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	stored, ok := f.tokens[token]
	if !ok {
		return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeRefreshTokenRepo) DeleteByUserID(
	_ context.Context,
	userID int64,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for key, stored := range f.tokens {
		if stored.UserID == userID {
			delete(f.tokens, key)
		}
	}
	return nil
}

func (f *fakeRefreshTokenRepo) RevokeByToken(
	_ context.Context,
	token string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if stored, ok := f.tokens[token]; ok {
		stored.Revoked = true
	}
	return nil
}

func (f *fakeRefreshTokenRepo) RevokeAllForUser(
	_ context.Context,
	userID int64,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stored := range f.tokens {
		if stored.UserID == userID {
			stored.Revoked = true
		}
	}
	return nil
}

func (f *fakeRefreshTokenRepo) DeleteExpired(
	_ context.Context,
	now time.Time,
) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var removed int64
	for key, stored := range f.tokens {
		if stored.ExpiresAt.Before(now) {
			delete(f.tokens, key)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeRefreshTokenRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

type fakeDenylistRepo struct {
	mu      sync.Mutex
	entries map[string]*RevocationEntry
	err     error
}

func newFakeDenylistRepo() *fakeDenylistRepo {
	return &fakeDenylistRepo{entries: make(map[string]*RevocationEntry)}
}

func (f *fakeDenylistRepo) Insert(
	_ context.Context,
	entry *RevocationEntry,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.entries[entry.TokenHash]; ok {
		return nil
	}
	copied := *entry
	f.entries[entry.TokenHash] = &copied
	return nil
}

func (f *fakeDenylistRepo) ExistsByHash(
	_ context.Context,
	tokenHash string,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.entries[tokenHash]
	return ok, nil
}

func (f *fakeDenylistRepo) DeleteExpired(
	_ context.Context,
	now time.Time,
) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var removed int64
	for key, entry := range f.entries {
		if entry.ExpiresAt.Before(now) {
			delete(f.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeDenylistRepo) DeleteAllForUser(
	_ context.Context,
	userID int64,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, entry := range f.entries {
		if entry.UserID == userID {
			delete(f.entries, key)
		}
	}
	return nil
}

func (f *fakeDenylistRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeLoginAttemptRepo struct {
	mu       sync.Mutex
	attempts map[string]*LoginAttempt
	nextID   int64
}

func newFakeLoginAttemptRepo() *fakeLoginAttemptRepo {
	return &fakeLoginAttemptRepo{attempts: make(map[string]*LoginAttempt)}
}

func (f *fakeLoginAttemptRepo) FindByEmail(
	_ context.Context,
	email string,
) (*LoginAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.attempts[email]
	if !ok {
		return nil, fmt.Errorf("find login attempt: %w", core.ErrNotFound)
	}
	copied := *attempt
	return &copied, nil
}

func (f *fakeLoginAttemptRepo) Upsert(
	_ context.Context,
	attempt *LoginAttempt,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.attempts[attempt.Email]; ok {
		attempt.ID = existing.ID
	} else {
		f.nextID++
		attempt.ID = f.nextID
	}
	copied := *attempt
	f.attempts[attempt.Email] = &copied
	return nil
}

type fakeUserProvider struct {
	mu     sync.Mutex
	users  map[int64]*UserInfo
	nextID int64
}

func newFakeUserProvider() *fakeUserProvider {
	return &fakeUserProvider{users: make(map[int64]*UserInfo)}
}

func (f *fakeUserProvider) add(user UserInfo) *UserInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == 0 {
		f.nextID++
		user.ID = f.nextID
	} else if user.ID > f.nextID {
		f.nextID = user.ID
	}
	f.users[user.ID] = &user
	return &user
}

func (f *fakeUserProvider) GetByEmail(
	_ context.Context,
	email string,
) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
}

func (f *fakeUserProvider) GetByID(
	_ context.Context,
	id int64,
) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserProvider) Create(
	_ context.Context,
	email string,
	passwordHash string,
	name string,
) (*UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return nil, fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
	}
	f.nextID++
	user := &UserInfo{
		ID:           f.nextID,
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Active:       true,
	}
	f.users[user.ID] = user
	copied := *user
	return &copied, nil
}

func (f *fakeUserProvider) IncrementTokenVersion(
	_ context.Context,
	id int64,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return fmt.Errorf("increment token version: %w", core.ErrNotFound)
	}
	user.TokenVersion++
	return nil
}

func (f *fakeUserProvider) UpdatePassword(
	_ context.Context,
	id int64,
	passwordHash string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	user.PasswordHash = passwordHash
	return nil
}
