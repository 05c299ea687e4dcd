package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// Repository provides PostgreSQL backed persistence for the permission
// catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const permissionColumns = `permission_id, name, description, category, level, dependencies, is_active, created_at, updated_at`

func scanPermission(row pgx.Row) (Permission, error) {
	var (
		id, name, description, category, level string
		depsRaw                                []byte
		isActive                               bool
		createdAt, updatedAt                   time.Time
	)
	if err := row.Scan(&id, &name, &description, &category, &level, &depsRaw, &isActive, &createdAt, &updatedAt); err != nil {
		return Permission{}, err
	}

	cat, err := ParseCategory(category)
	if err != nil {
		return Permission{}, err
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return Permission{}, err
	}
	var deps []string
	if len(depsRaw) > 0 {
		if err := json.Unmarshal(depsRaw, &deps); err != nil {
			return Permission{}, fmt.Errorf("rbac: decode dependencies for %s: %w", id, err)
		}
	}
	return NewPermission(id, name, description, cat, lvl, deps, isActive, createdAt, updatedAt)
}

// ListPermissions returns the whole catalog ordered by id.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	query := `SELECT ` + permissionColumns + ` FROM permissions ORDER BY permission_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		perm, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}

// GetPermission fetches one catalog entry by its permission id.
func (r *Repository) GetPermission(ctx context.Context, id string) (Permission, error) {
	query := `SELECT ` + permissionColumns + ` FROM permissions WHERE permission_id = $1`
	perm, err := scanPermission(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrNotFound
		}
		return Permission{}, err
	}
	return perm, nil
}

// SeedDefaults inserts the built-in POS permissions, leaving existing
// rows untouched.
func (r *Repository) SeedDefaults(ctx context.Context) error {
	query := `
		INSERT INTO permissions (permission_id, name, description, category, level, dependencies, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (permission_id) DO NOTHING
	`
	for _, perm := range DefaultPermissions() {
		deps, err := json.Marshal(perm.Dependencies())
		if err != nil {
			return err
		}
		if _, err := r.pool.Exec(ctx, query,
			perm.ID, perm.Name, perm.Description,
			string(perm.Category), perm.Level.String(), deps, perm.IsActive,
		); err != nil {
			return fmt.Errorf("rbac: seed %s: %w", perm.ID, err)
		}
	}
	return nil
}
