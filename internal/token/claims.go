package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims represents the JWT claims carried by every token.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"typ"`
	// IssuedAtNano is the issue instant with nanosecond precision; the
	// registered iat claim only has second precision, which is too coarse
	// for comparing against revocation cutoffs.
	IssuedAtNano int64          `json:"iat_ns"`
	Extra        map[string]any `json:"ext,omitempty"`
}

// IssuedAtTime returns the precise issue instant.
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAtNano != 0 {
		return time.Unix(0, c.IssuedAtNano)
	}
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// ExpiresAtTime returns the expiry, or the zero time when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// Token is a freshly signed token together with the metadata the issuer
// needs without parsing it back.
type Token struct {
	Raw       string
	ID        string
	Subject   string
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
}
