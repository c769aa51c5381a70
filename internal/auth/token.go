package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/securehire-auth/internal/config"
	"github.com/spec-kit/securehire-auth/internal/domain"
)

// Claims describes the JWT payload shared by access and refresh tokens.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies access and refresh tokens.
// The two token classes are separated only by their signing keys.
type TokenCodec struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(tc *TokenCodec) {
		tc.now = now
	}
}

// NewTokenCodec builds a codec from validated auth configuration.
func NewTokenCodec(cfg config.AuthConfig, opts ...CodecOption) (*TokenCodec, error) {
	if err := cfg.Secrets.Validate(); err != nil {
		return nil, err
	}
	refreshTTL := cfg.RefreshTokenTTL()
	if refreshTTL <= 0 {
		return nil, errors.New("refresh token ttl must be positive")
	}

	tc := &TokenCodec{
		accessKey:  []byte(cfg.Secrets.AccessSecret),
		refreshKey: []byte(cfg.Secrets.RefreshSecret),
		accessTTL:  config.AccessTokenTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		// Expiry is evaluated by IsExpired against the codec clock, not by the parser.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc, nil
}

// AccessTTL is the lifetime of access tokens and the access cookie.
func (tc *TokenCodec) AccessTTL() time.Duration { return tc.accessTTL }

// RefreshTTL is the lifetime of refresh tokens and the refresh cookie.
func (tc *TokenCodec) RefreshTTL() time.Duration { return tc.refreshTTL }

// Now returns the codec clock.
func (tc *TokenCodec) Now() time.Time { return tc.now() }

// IssueAccessToken signs a short-lived token with the access key.
func (tc *TokenCodec) IssueAccessToken(p domain.Principal) (string, time.Time, error) {
	return tc.issue(p, tc.accessKey, tc.accessTTL)
}

// IssueRefreshToken signs a long-lived token with the refresh key.
func (tc *TokenCodec) IssueRefreshToken(p domain.Principal) (string, time.Time, error) {
	return tc.issue(p, tc.refreshKey, tc.refreshTTL)
}

// IssuePair issues an access and refresh token for the same principal.
func (tc *TokenCodec) IssuePair(p domain.Principal) (domain.TokenPair, error) {
	access, accessExp, err := tc.IssueAccessToken(p)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := tc.IssueRefreshToken(p)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (tc *TokenCodec) issue(p domain.Principal, key []byte, ttl time.Duration) (string, time.Time, error) {
	if p == nil {
		return "", time.Time{}, errors.New("nil principal")
	}
	issuedAt := tc.now()
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		Role: p.Role(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Credentials().Email,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// VerifyAccess checks the signature against the access key and returns the claims.
// Expiry is not checked; use IsExpired.
func (tc *TokenCodec) VerifyAccess(token string) (*Claims, error) {
	return tc.verify(token, tc.accessKey)
}

// VerifyRefresh checks the signature against the refresh key and returns the claims.
func (tc *TokenCodec) VerifyRefresh(token string) (*Claims, error) {
	return tc.verify(token, tc.refreshKey)
}

func (tc *TokenCodec) verify(tokenStr string, key []byte) (*Claims, error) {
	if tokenStr == "" {
		return nil, domain.ErrMalformedToken
	}

	claims := &Claims{}
	parsed, err := tc.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, domain.ErrMalformedToken
		}
		return nil, domain.ErrSignatureInvalid
	}
	if !parsed.Valid {
		return nil, domain.ErrSignatureInvalid
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, domain.ErrMalformedToken
	}
	role, err := domain.ParseRole(string(claims.Role))
	if err != nil || role != claims.Role {
		return nil, domain.ErrMalformedToken
	}
	return claims, nil
}

// IsExpired reports now >= exp. A token checked exactly at exp is expired.
func (tc *TokenCodec) IsExpired(claims *Claims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return !tc.now().Before(claims.ExpiresAt.Time)
}

// ValidateAccess reports whether an access token belongs to p and is unexpired.
// Signature and parse failures are returned as errors.
func (tc *TokenCodec) ValidateAccess(token string, p domain.Principal) (bool, error) {
	claims, err := tc.VerifyAccess(token)
	if err != nil {
		return false, err
	}
	return tc.matches(claims, p), nil
}

// ValidateRefresh is ValidateAccess for refresh tokens.
func (tc *TokenCodec) ValidateRefresh(token string, p domain.Principal) (bool, error) {
	claims, err := tc.VerifyRefresh(token)
	if err != nil {
		return false, err
	}
	return tc.matches(claims, p), nil
}

func (tc *TokenCodec) matches(claims *Claims, p domain.Principal) bool {
	if p == nil {
		return false
	}
	return claims.Subject == p.Credentials().Email && !tc.IsExpired(claims)
}
