// Package auth turns a bearer credential into an authenticated principal
// and checks the principal's roles.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/sessionauth/internal/model"
	"github.com/iliyamo/sessionauth/internal/revocation"
	"github.com/iliyamo/sessionauth/internal/token"
)

var (
	errRevoked      = errors.New("token revoked")
	errUnknownUser  = errors.New("user missing or inactive")
	errBadSubject   = errors.New("subject is not a user id")
	errNoCredential = errors.New("no bearer token")
)

// UserResolver returns the active user for id, or nil.
type UserResolver interface {
	Resolve(ctx context.Context, id uint64) (*model.User, error)
}

// Verifier checks a raw token's signature and expiry.
type Verifier interface {
	Verify(raw string) (*token.Claims, error)
}

// Authenticator runs the per-request pipeline: extract, verify, check the
// kind, check revocation, resolve the user.  It keeps no per-request state.
type Authenticator struct {
	verifier  Verifier
	store     revocation.Store
	users     UserResolver
	autoError bool
}

// NewAuthenticator creates an Authenticator.  With autoError unset a
// request without credentials yields a nil principal instead of an error.
func NewAuthenticator(verifier Verifier, store revocation.Store, users UserResolver, autoError bool) *Authenticator {
	return &Authenticator{verifier: verifier, store: store, users: users, autoError: autoError}
}

// WithAutoError returns a copy of a with the given missing-credential mode.
func (a *Authenticator) WithAutoError(autoError bool) *Authenticator {
	cp := *a
	cp.autoError = autoError
	return &cp
}

// Authenticate resolves the principal for an Authorization header value.
// Rejections are *model.AuthError; backing store outages wrap
// model.ErrUnavailable.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*model.User, error) {
	raw, ok := BearerToken(header)
	if !ok {
		if !a.autoError {
			return nil, nil
		}
		return nil, model.NewAuthError(model.NoCredentials, errNoCredential)
	}

	claims, err := a.verifier.Verify(raw)
	switch {
	case errors.Is(err, token.ErrExpired):
		return nil, model.NewAuthError(model.TokenExpired, err)
	case err != nil:
		return nil, model.NewAuthError(model.InvalidToken, err)
	}

	if claims.Kind != token.KindAccess {
		return nil, model.NewAuthError(model.InvalidToken,
			fmt.Errorf("%w: got %s", token.ErrWrongKind, claims.Kind))
	}

	revoked, err := revocation.IsTokenRevoked(ctx, a.store, claims.Subject, claims.ID, claims.IssuedAtTime())
	if err != nil {
		return nil, fmt.Errorf("%w: revocation lookup: %v", model.ErrUnavailable, err)
	}
	if revoked {
		return nil, model.NewAuthError(model.InvalidToken, errRevoked)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, model.NewAuthError(model.InvalidToken, errBadSubject)
	}
	u, err := a.users.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, model.NewAuthError(model.InvalidToken, errUnknownUser)
	}
	return u, nil
}

// BearerToken extracts the token from an Authorization header value.  The
// scheme is matched case-insensitively; any other scheme counts as no
// bearer credentials.
func BearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
