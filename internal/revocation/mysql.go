package revocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MySQL persists revocation records in the token_revocations table:
//
//	CREATE TABLE token_revocations (
//	    id         VARCHAR(80)  NOT NULL PRIMARY KEY,
//	    revoked_at DATETIME(6)  NOT NULL,
//	    expires_at DATETIME(6)  NOT NULL,
//	    INDEX idx_token_revocations_expires_at (expires_at)
//	);
type MySQL struct {
	DB  *sql.DB
	now func() time.Time
}

// NewMySQL creates a MySQL-backed store.
func NewMySQL(db *sql.DB, now func() time.Time) *MySQL {
	if now == nil {
		now = time.Now
	}
	return &MySQL{DB: db, now: now}
}

// Revoke upserts the record; an existing longer expiry is kept.
func (r *MySQL) Revoke(ctx context.Context, id string, until time.Time) error {
	if id == "" {
		return errors.New("revocation id cannot be empty")
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO token_revocations (id, revoked_at, expires_at) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE revoked_at=VALUES(revoked_at), expires_at=GREATEST(expires_at, VALUES(expires_at))`,
		id, ceilMicro(r.now().UTC()), until.UTC())
	if err != nil {
		return fmt.Errorf("store revocation %s: %w", id, err)
	}
	return nil
}

func (r *MySQL) IsRevoked(ctx context.Context, id string, issuedAt time.Time) (bool, error) {
	var revokedAt, expiresAt time.Time
	err := r.DB.QueryRowContext(ctx,
		"SELECT revoked_at, expires_at FROM token_revocations WHERE id=? LIMIT 1",
		id).Scan(&revokedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query revocation %s: %w", id, err)
	}
	if !r.now().UTC().Before(expiresAt) {
		return false, nil
	}
	return covers(revokedAt, issuedAt), nil
}

func (r *MySQL) Prune(ctx context.Context) (int, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM token_revocations WHERE expires_at <= ?", r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("prune revocations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ceilMicro rounds t up to DATETIME(6) precision so the stored cutoff never
// falls before the real revocation instant.
func ceilMicro(t time.Time) time.Time {
	if tr := t.Truncate(time.Microsecond); tr.Before(t) {
		return tr.Add(time.Microsecond)
	}
	return t
}
