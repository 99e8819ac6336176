// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lromero-dev/casafin/internal/core"
)

type stubVerifier struct {
	claims *AccessTokenClaims
	err    error
	seen   string
}

func (s *stubVerifier) VerifyAccessToken(
	_ context.Context,
	token string,
) (*AccessTokenClaims, error) {
	s.seen = token
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func TestExtractToken_HeaderBeforeCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	r.AddCookie(&http.Cookie{Name: "access_token", Value: "cookie-token"})

	assert.Equal(t, "header-token", ExtractToken(r))
}

func TestExtractToken_FallsBackToCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "access_token", Value: "cookie-token"})

	assert.Equal(t, "cookie-token", ExtractToken(r))
}

func TestExtractToken_RejectsNonBearerScheme(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	assert.Empty(t, ExtractToken(r))
}

func TestExtractToken_BearerCaseInsensitive(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "bearer lower-token")

	assert.Equal(t, "lower-token", ExtractToken(r))
}

func TestAuthenticator_AttachesIdentity(t *testing.T) {
	verifier := &stubVerifier{
		claims: &AccessTokenClaims{
			UserID: 42,
			Email:  "ana@example.com",
			Name:   "Ana",
		},
	}

	var gotID int64
	var gotOK bool
	var gotEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = GetUserID(r.Context())
		gotEmail = GetUserEmail(r.Context())
		assert.True(t, IsAuthenticated(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer the-token")
	w := httptest.NewRecorder()

	Authenticator(verifier)(next).ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "the-token", verifier.seen)
	assert.True(t, gotOK)
	assert.Equal(t, int64(42), gotID)
	assert.Equal(t, "ana@example.com", gotEmail)
}

func TestAuthenticator_MissingToken(t *testing.T) {
	verifier := &stubVerifier{}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	Authenticator(verifier)(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticator_MapsTokenErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"invalid", core.ErrTokenInvalid},
		{"expired", core.ErrTokenExpired},
		{"revoked", core.ErrTokenRevoked},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verifier := &stubVerifier{err: tc.err}

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run with a bad token")
			})

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer bad-token")
			w := httptest.NewRecorder()

			Authenticator(verifier)(next).ServeHTTP(w, r)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestOptionalAuth_PassesThroughWithoutToken(t *testing.T) {
	verifier := &stubVerifier{err: core.ErrTokenInvalid}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, IsAuthenticated(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	OptionalAuth(verifier)(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}
