// Package jwtx wraps golang-jwt with the claim shapes and HS256
// signer/verifier used for access and refresh tokens.
package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token TTLs. Access tokens are deliberately short-lived because they
// cannot be revoked before expiry; only the refresh chain can be cut.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the claims embedded in both token kinds: subject (user id),
// jti, iat and exp. Nothing else is asserted.
type Claims struct {
	jwt.RegisteredClaims
}

// NewAccessClaims builds access-token claims for the given subject. The jti
// is freshly generated so two tokens minted within the same clock tick still
// differ.
func NewAccessClaims(subject string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
	}
}

// NewRefreshClaims builds refresh-token claims carrying the caller-provided
// jti, which doubles as the ledger row key.
func NewRefreshClaims(subject, jti string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}
}

// NewJTI returns a unique identifier for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}
