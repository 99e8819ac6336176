// AngelaMos | 2026
// codec.go

package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/lromero-dev/casafin/internal/config"
	"github.com/lromero-dev/casafin/internal/core"
)

// pinnedAlgorithm is the only signature algorithm the codec ever accepts.
// The token's self-declared header is checked against it before any
// cryptographic verification happens.
const pinnedAlgorithm = "HS256"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the projection of a successfully verified token. Instances only
// exist on the far side of Verify; there is no way to read claims out of an
// unverified token string.
type Claims struct {
	UserID       int64
	Email        string
	Name         string
	TokenType    TokenType
	TokenVersion int
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

type TokenCodec struct {
	key        jwk.Key
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenCodec(cfg config.AuthConfig) (*TokenCodec, error) {
	if len(cfg.SigningSecret) < config.MinSigningSecretLength {
		return nil, fmt.Errorf(
			"signing secret must be at least %d bytes, got %d",
			config.MinSigningSecretLength,
			len(cfg.SigningSecret),
		)
	}

	key, err := jwk.Import([]byte(cfg.SigningSecret))
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}

	return &TokenCodec{
		key:        key,
		accessTTL:  cfg.AccessTokenExpire,
		refreshTTL: cfg.RefreshTokenExpire,
	}, nil
}

func (c *TokenCodec) AccessTTL() time.Duration {
	return c.accessTTL
}

func (c *TokenCodec) RefreshTTL() time.Duration {
	return c.refreshTTL
}

// IssueAccess mints a signed access token carrying the principal's identity
// and a snapshot of its current token version.
func (c *TokenCodec) IssueAccess(
	userID int64,
	email, name string,
	tokenVersion int,
) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(c.accessTTL)

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Subject(strconv.FormatInt(userID, 10)).
		IssuedAt(now).
		Expiration(expiresAt).
		Claim("email", email).
		Claim("name", name).
		Claim("token_version", tokenVersion).
		Claim("type", string(TokenTypeAccess)).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build access token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), c.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}

	return string(signed), expiresAt, nil
}

// IssueRefresh mints a signed refresh token. Refresh tokens carry no token
// version: the version check applies to access tokens, while refresh tokens
// are gated by their stored row.
func (c *TokenCodec) IssueRefresh(
	userID int64,
	email string,
) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(c.refreshTTL)

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Subject(strconv.FormatInt(userID, 10)).
		IssuedAt(now).
		Expiration(expiresAt).
		Claim("email", email).
		Claim("type", string(TokenTypeRefresh)).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build refresh token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), c.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return string(signed), expiresAt, nil
}

// Verify checks the token's declared algorithm against the pinned one before
// handing it to the JWT library, then validates signature, structure, and
// expiry. Every failure mode collapses into core.ErrTokenInvalid; richer
// distinctions (denylisted, stale version) are layered on by the caller.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	alg, err := peekAlgorithm(tokenString)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	if strings.EqualFold(alg, "none") {
		return nil, fmt.Errorf(
			"verify token: unsigned tokens rejected: %w",
			core.ErrTokenInvalid,
		)
	}

	if alg != pinnedAlgorithm {
		return nil, fmt.Errorf(
			"verify token: algorithm %q not pinned: %w",
			alg,
			core.ErrTokenInvalid,
		)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), c.key),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	return projectClaims(token)
}

// peekAlgorithm reads the alg field out of the JOSE header without trusting
// anything else about the token. The header is the first dot-separated
// segment, base64url-encoded JSON.
func peekAlgorithm(tokenString string) (string, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed token: expected 3 segments, got %d", len(parts))
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode token header: %w", err)
	}

	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return "", fmt.Errorf("parse token header: %w", err)
	}

	if header.Alg == "" {
		return "", fmt.Errorf("token header missing alg")
	}

	return header.Alg, nil
}

func projectClaims(token jwt.Token) (*Claims, error) {
	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf(
			"verify token: non-numeric subject: %w",
			core.ErrTokenInvalid,
		)
	}

	var tokenType string
	if err := token.Get("type", &tokenType); err != nil || tokenType == "" {
		return nil, fmt.Errorf(
			"verify token: missing type claim: %w",
			core.ErrTokenInvalid,
		)
	}

	var email string
	if err := token.Get("email", &email); err != nil {
		return nil, fmt.Errorf(
			"verify token: missing email claim: %w",
			core.ErrTokenInvalid,
		)
	}

	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenType: TokenType(tokenType),
	}

	// name and token_version only appear on access tokens.
	var name string
	if err := token.Get("name", &name); err == nil {
		claims.Name = name
	}

	var versionFloat float64
	if err := token.Get("token_version", &versionFloat); err == nil {
		claims.TokenVersion = int(versionFloat)
	}

	if issuedAt, ok := token.IssuedAt(); ok {
		claims.IssuedAt = issuedAt
	}

	expiresAt, ok := token.Expiration()
	if !ok {
		return nil, fmt.Errorf(
			"verify token: missing expiration: %w",
			core.ErrTokenInvalid,
		)
	}
	claims.ExpiresAt = expiresAt

	return claims, nil
}
