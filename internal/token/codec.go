package token

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformed        = errors.New("token is malformed")
	ErrSignatureInvalid = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
	ErrWrongKind        = errors.New("token kind mismatch")
)

// Codec signs and verifies HMAC JWTs.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
	parser *jwt.Parser
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock replaces the time source used for issuing and for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec creates a codec for the given secret and HMAC algorithm
// (HS256, HS384 or HS512).  A misconfigured key or algorithm is a startup
// error.
func NewCodec(secret, algorithm string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("signing secret is empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	c := &Codec{secret: []byte(secret), method: method, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	return c, nil
}

// IssueOption adds optional data to an issued token.
type IssueOption func(*Claims)

// WithClaims attaches optional claims under the ext claim.
func WithClaims(extra map[string]any) IssueOption {
	return func(c *Claims) {
		if len(extra) == 0 {
			return
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any, len(extra))
		}
		maps.Copy(c.Extra, extra)
	}
}

// Issue signs a token of the given kind for subject, expiring after ttl.
func (c *Codec) Issue(subject string, kind Kind, ttl time.Duration, opts ...IssueOption) (Token, error) {
	now := c.now()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Kind:         kind,
		IssuedAtNano: now.UnixNano(),
	}
	for _, opt := range opts {
		opt(&claims)
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return Token{}, fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return Token{
		Raw:       signed,
		ID:        claims.ID,
		Subject:   subject,
		Kind:      kind,
		IssuedAt:  now,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks the signature and expiry of raw and returns its claims.
// Expected failures are reported as ErrMalformed, ErrSignatureInvalid or
// ErrExpired so callers can tell a refreshable expiry from garbage.
func (c *Codec) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" || (claims.Kind != KindAccess && claims.Kind != KindRefresh) {
		return nil, fmt.Errorf("%w: missing subject or kind", ErrMalformed)
	}
	return claims, nil
}

// VerifyKind verifies raw and additionally requires the given kind.
func (c *Codec) VerifyKind(raw string, kind Kind) (*Claims, error) {
	claims, err := c.Verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrWrongKind, kind, claims.Kind)
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
