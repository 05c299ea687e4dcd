package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/rbac"
)

const uniqueViolation = "23505"

// Repository defines persistence operations for the auth module.
type Repository interface {
	// FindCredentials fetches the stored credential row for an active
	// username.
	FindCredentials(ctx context.Context, username string) (*credentialRow, error)
	// UpdateLastLogin stamps the user's last_login with the current time.
	UpdateLastLogin(ctx context.Context, userID int64) error
	// UserPermissions loads the user's granted, active permissions.
	UserPermissions(ctx context.Context, userID int64) ([]rbac.Permission, error)
	// CreateUser atomically inserts the user row and its permission
	// grants. Returns ErrUserExists on a username collision.
	CreateUser(ctx context.Context, username, passwordHash, salt string, isAdmin bool, permissionIDs []string) (int64, error)
	// FindUser fetches a user (with permissions) by username,
	// case-insensitively, regardless of active state.
	FindUser(ctx context.Context, username string) (*User, error)
	// ListUsers returns all users ordered by username.
	ListUsers(ctx context.Context) ([]User, error)
	// AdminExists reports whether any admin account is present.
	AdminExists(ctx context.Context) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
	rbac *rbac.Repository
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, rbac: rbac.NewRepository(pool)}
}

// FindCredentials fetches the credential row for an active user.
func (r *PGRepository) FindCredentials(ctx context.Context, username string) (*credentialRow, error) {
	query := `
		SELECT id, username, password_hash, salt, is_admin, is_active, created_at, last_login
		FROM users
		WHERE username = $1 AND is_active = TRUE
	`
	var row credentialRow
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&row.ID, &row.Username, &row.PasswordHash, &row.Salt,
		&row.Admin, &row.Active, &row.CreatedAt, &row.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &row, nil
}

// UpdateLastLogin stamps last_login for the user.
func (r *PGRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, userID)
	return err
}

// UserPermissions joins the user's grants against the permission
// catalog, filtered to active permissions only.
func (r *PGRepository) UserPermissions(ctx context.Context, userID int64) ([]rbac.Permission, error) {
	query := `
		SELECT p.permission_id
		FROM permissions p
		JOIN user_permissions up ON p.permission_id = up.permission_id
		WHERE up.user_id = $1 AND p.is_active = TRUE
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	perms := make([]rbac.Permission, 0, len(ids))
	for _, id := range ids {
		perm, err := r.rbac.GetPermission(ctx, id)
		if err != nil {
			if errors.Is(err, rbac.ErrNotFound) {
				continue
			}
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, nil
}

// CreateUser inserts the user and its grants in one transaction so a
// failure never leaves a partial credential row behind.
func (r *PGRepository) CreateUser(ctx context.Context, username, passwordHash, salt string, isAdmin bool, permissionIDs []string) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("auth: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var userID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, salt, is_admin, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id
	`, username, passwordHash, salt, isAdmin).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrUserExists
		}
		return 0, err
	}

	for _, permID := range permissionIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_permissions (user_id, permission_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, permission_id) DO NOTHING
		`, userID, permID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("auth: commit tx: %w", err)
	}
	return userID, nil
}

// FindUser fetches a user and its permission snapshot by username.
func (r *PGRepository) FindUser(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, is_admin, is_active, created_at, last_login
		FROM users
		WHERE LOWER(username) = LOWER($1)
	`
	var u User
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&u.ID, &u.Username, &u.Admin, &u.Active, &u.CreatedAt, &u.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	perms, err := r.UserPermissions(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Perms = perms
	return &u, nil
}

// ListUsers returns all users with their permission snapshots.
func (r *PGRepository) ListUsers(ctx context.Context) ([]User, error) {
	query := `
		SELECT id, username, is_admin, is_active, created_at, last_login
		FROM users
		ORDER BY username
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Admin, &u.Active, &u.CreatedAt, &u.LastLogin); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range users {
		perms, err := r.UserPermissions(ctx, users[i].ID)
		if err != nil {
			return nil, err
		}
		users[i].Perms = perms
	}
	return users, nil
}

// AdminExists reports whether an admin row is present.
func (r *PGRepository) AdminExists(ctx context.Context) (bool, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE is_admin = TRUE`).Scan(&count)
	return count > 0, err
}

var _ Repository = (*PGRepository)(nil)
