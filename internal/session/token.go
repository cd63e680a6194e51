package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"billed/internal/core"
)

// Claims mirrors the token payload issued by the bills API.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the token payload without verifying the signature.
// This client never holds the API's signing key and the local session is
// not a security boundary. The backend remains the authority; an expired
// or garbled token only means re-login.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}
	return claims, nil
}

// Expired reports whether the token carries an exp claim in the past.
// Tokens without an exp claim never expire locally.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}
