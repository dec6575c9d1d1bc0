package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/sessionauth/internal/model"
	"github.com/iliyamo/sessionauth/internal/utils"
)

// ChangeListener is called after a user row was updated or deleted and
// before the write returns to its caller.
type ChangeListener func(ctx context.Context, id uint64) error

// UserRepo persists users in the `users` and `user_roles` tables.
// Listeners registered with OnChange are notified synchronously on every
// update and delete, which is how the user cache stays coherent.
type UserRepo struct {
	DB        *sql.DB
	listeners []ChangeListener
}

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// OnChange registers a listener.  Not safe to call concurrently with writes;
// register listeners during startup.
func (r *UserRepo) OnChange(l ChangeListener) {
	r.listeners = append(r.listeners, l)
}

func (r *UserRepo) notify(ctx context.Context, id uint64) error {
	var errs []error
	for _, l := range r.listeners {
		if err := l(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: user %d changed but listeners failed: %w", model.ErrUnavailable, id, err)
	}
	return nil
}

const selectUser = `SELECT u.id, u.username, u.password_hash, u.is_active, u.created_at, u.updated_at,
	COALESCE(GROUP_CONCAT(r.role ORDER BY r.role SEPARATOR ','), '')
	FROM users u LEFT JOIN user_roles r ON r.user_id = u.id`

// Create inserts a user with its roles and returns the stored record.
func (r *UserRepo) Create(ctx context.Context, username, password string, roles []string, cost int) (model.User, error) {
	username = normalizeUsername(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, is_active) VALUES (?,?,TRUE)",
		username, hash)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return model.User{}, ErrUsernameExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	roles = normalizeRoles(roles)
	if err := insertRoles(ctx, tx, uint64(id), roles); err != nil {
		return model.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, err
	}

	return model.User{ID: uint64(id), Username: username, PasswordHash: hash, IsActive: true, Roles: roles}, nil
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.getOne(ctx, selectUser+" WHERE u.username = ? GROUP BY u.id LIMIT 1", normalizeUsername(username))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, selectUser+" WHERE u.id = ? GROUP BY u.id LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (model.User, error) {
	var (
		u     model.User
		roles string
	)
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &roles)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.Roles = splitRoles(roles)
	return u, nil
}

// SetActive activates or deactivates a user.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=?, updated_at=NOW() WHERE id=?", active, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return r.notify(ctx, id)
}

// SetRoles replaces the user's role memberships.
func (r *UserRepo) SetRoles(ctx context.Context, id uint64, roles []string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "UPDATE users SET updated_at=NOW() WHERE id=?", id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id=?", id); err != nil {
		return err
	}
	if err := insertRoles(ctx, tx, id, normalizeRoles(roles)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return r.notify(ctx, id)
}

// Delete removes a user; roles go with it through ON DELETE CASCADE.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return r.notify(ctx, id)
}

func insertRoles(ctx context.Context, tx *sql.Tx, id uint64, roles []string) error {
	for _, role := range roles {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role) VALUES (?,?)", id, role); err != nil {
			return err
		}
	}
	return nil
}

// requireRow maps an UPDATE/DELETE that matched nothing to ErrNotFound.
// The DSN sets clientFoundRows so unchanged rows still count.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeUsername(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" && !slices.Contains(out, role) {
			out = append(out, role)
		}
	}
	slices.Sort(out)
	return out
}

func splitRoles(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
