// Package revocation tracks tokens and subjects that were invalidated
// before their natural expiry.
//
// Identifiers are either a subject ("sub:<id>", revoking every token the
// subject was issued up to that moment) or a single token ("jti:<id>").
// A record only matters until the newest token it could cover expires,
// after which verification would fail on expiry anyway, so every record
// carries an until time and backends are free to drop it afterwards.
package revocation

import (
	"context"
	"time"
)

// Store is implemented by every revocation backend.
type Store interface {
	// Revoke marks id as revoked now, until the given time.
	Revoke(ctx context.Context, id string, until time.Time) error
	// IsRevoked reports whether a token issued at issuedAt is covered by a
	// live revocation record for id.
	IsRevoked(ctx context.Context, id string, issuedAt time.Time) (bool, error)
	// Prune removes records whose until time has passed.
	Prune(ctx context.Context) (int, error)
}

// SubjectID returns the identifier used for wholesale subject revocation.
func SubjectID(subject string) string { return "sub:" + subject }

// TokenID returns the identifier used for single-token revocation.
func TokenID(jti string) string { return "jti:" + jti }

// covers reports whether a record revoked at revokedAt applies to a token
// issued at issuedAt.  Tokens minted after the revocation are not covered.
func covers(revokedAt, issuedAt time.Time) bool {
	return !issuedAt.After(revokedAt)
}

// IsTokenRevoked checks both the token's own record and its subject's
// wholesale record.
func IsTokenRevoked(ctx context.Context, s Store, subject, jti string, issuedAt time.Time) (bool, error) {
	if jti != "" {
		revoked, err := s.IsRevoked(ctx, TokenID(jti), issuedAt)
		if err != nil || revoked {
			return revoked, err
		}
	}
	return s.IsRevoked(ctx, SubjectID(subject), issuedAt)
}
