// Package service implements the token lifecycle: credential checks,
// login, refresh with sliding renewal and logout.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/iliyamo/sessionauth/internal/metrics"
	"github.com/iliyamo/sessionauth/internal/model"
	"github.com/iliyamo/sessionauth/internal/revocation"
	"github.com/iliyamo/sessionauth/internal/token"
	"github.com/iliyamo/sessionauth/internal/utils"
)

var (
	errTokenRevoked = errors.New("token revoked")
	errUserInactive = errors.New("user missing or inactive")
	errBadSubject   = errors.New("subject is not a user id")
	errBadPassword  = errors.New("password mismatch")
)

// UserResolver returns the active user for id, or nil.
type UserResolver interface {
	Resolve(ctx context.Context, id uint64) (*model.User, error)
}

// CredentialStore looks users up by login name.
type CredentialStore interface {
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// IssuerConfig carries the token lifetimes and the password hash cost.
type IssuerConfig struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	SlidingThreshold time.Duration
	BcryptCost       int
	// Now defaults to time.Now; it must match the codec clock.
	Now func() time.Time
}

// Issuer mints and rotates token pairs.
type Issuer struct {
	codec *token.Codec
	store revocation.Store
	users UserResolver
	creds CredentialStore
	cfg   IssuerConfig
	log   *slog.Logger
}

func NewIssuer(codec *token.Codec, store revocation.Store, users UserResolver, creds CredentialStore, cfg IssuerConfig, log *slog.Logger) *Issuer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Issuer{codec: codec, store: store, users: users, creds: creds, cfg: cfg, log: log}
}

// Authenticate checks a username and password.  Unknown users, wrong
// passwords and inactive users all fail the same way.
func (i *Issuer) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	u, err := i.creds.GetByUsername(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		utils.BurnPasswordCheck(password, i.cfg.BcryptCost)
		return model.User{}, model.NewAuthError(model.AuthenticationFailed, err)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%w: lookup %q: %v", model.ErrUnavailable, username, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, model.NewAuthError(model.AuthenticationFailed, errBadPassword)
	}
	if !u.IsActive {
		return model.User{}, model.NewAuthError(model.AuthenticationFailed, errUserInactive)
	}
	return u, nil
}

// Login issues a fresh access and refresh token for subject.
func (i *Issuer) Login(_ context.Context, subject string, opts ...token.IssueOption) (model.TokenPair, error) {
	access, err := i.codec.Issue(subject, token.KindAccess, i.cfg.AccessTTL, opts...)
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, err := i.codec.Issue(subject, token.KindRefresh, i.cfg.RefreshTTL)
	if err != nil {
		return model.TokenPair{}, err
	}
	metrics.RecordTokenIssued(string(token.KindAccess))
	metrics.RecordTokenIssued(string(token.KindRefresh))
	return model.TokenPair{
		AccessToken:  access.Raw,
		RefreshToken: refresh.Raw,
		TokenType:    model.TokenTypeBearer,
	}, nil
}

// Refresh exchanges a refresh token for a new access token.  When the
// refresh token has less than the sliding threshold left, a new refresh
// token with a full lifetime replaces it and the old one is revoked.
func (i *Issuer) Refresh(ctx context.Context, raw string) (model.RefreshResult, error) {
	claims, err := i.codec.VerifyKind(raw, token.KindRefresh)
	if err != nil {
		return model.RefreshResult{}, model.NewAuthError(model.RefreshInvalid, err)
	}

	revoked, err := revocation.IsTokenRevoked(ctx, i.store, claims.Subject, claims.ID, claims.IssuedAtTime())
	if err != nil {
		return model.RefreshResult{}, fmt.Errorf("%w: revocation lookup: %v", model.ErrUnavailable, err)
	}
	if revoked {
		return model.RefreshResult{}, model.NewAuthError(model.RefreshInvalid, errTokenRevoked)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return model.RefreshResult{}, model.NewAuthError(model.RefreshInvalid, errBadSubject)
	}
	u, err := i.users.Resolve(ctx, id)
	if err != nil {
		return model.RefreshResult{}, err
	}
	if u == nil {
		return model.RefreshResult{}, model.NewAuthError(model.RefreshInvalid, errUserInactive)
	}

	access, err := i.codec.Issue(claims.Subject, token.KindAccess, i.cfg.AccessTTL)
	if err != nil {
		return model.RefreshResult{}, err
	}
	metrics.RecordTokenIssued(string(token.KindAccess))
	res := model.RefreshResult{AccessToken: access.Raw, TokenType: model.TokenTypeBearer}

	if claims.ExpiresAtTime().Sub(i.cfg.Now()) >= i.cfg.SlidingThreshold {
		return res, nil
	}

	renewed, err := i.codec.Issue(claims.Subject, token.KindRefresh, i.cfg.RefreshTTL)
	if err != nil {
		return model.RefreshResult{}, err
	}
	if claims.ID != "" {
		if err := i.store.Revoke(ctx, revocation.TokenID(claims.ID), claims.ExpiresAtTime()); err != nil {
			return model.RefreshResult{}, fmt.Errorf("%w: revoke rotated refresh token: %v", model.ErrUnavailable, err)
		}
		metrics.RecordRevocation("token")
	}
	metrics.RecordTokenIssued(string(token.KindRefresh))
	i.log.Debug("refresh token renewed", "subject", claims.Subject, "old_jti", claims.ID, "new_jti", renewed.ID)
	res.RefreshToken = &renewed.Raw
	return res, nil
}

// Logout revokes every token issued to subject so far.  Tokens issued
// afterwards are unaffected.
func (i *Issuer) Logout(ctx context.Context, subject string) error {
	until := i.cfg.Now().Add(i.cfg.RefreshTTL)
	if err := i.store.Revoke(ctx, revocation.SubjectID(subject), until); err != nil {
		return fmt.Errorf("%w: revoke subject %s: %v", model.ErrUnavailable, subject, err)
	}
	metrics.RecordRevocation("subject")
	i.log.Info("subject logged out", "subject", subject)
	return nil
}
