package auth

import (
	"errors"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/rbac"
)

var (
	// ErrInvalidInput indicates blank credentials; rejected before any
	// store round-trip.
	ErrInvalidInput = errors.New("auth: username and password required")
	// ErrUserNotFound indicates no active credential row for the
	// username. Never surfaced verbatim to terminal clients.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrInvalidCredentials indicates a password mismatch.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrUserExists indicates a username collision on creation.
	ErrUserExists = errors.New("auth: user already exists")
	// ErrThrottled indicates too many recent failed attempts.
	ErrThrottled = errors.New("auth: too many login attempts")
)

// User is a fully loaded account as returned by Authenticate. The
// permission set is the snapshot taken at login; it is not re-checked
// against concurrent revocation.
type User struct {
	ID        int64
	Username  string
	Admin     bool
	Active    bool
	Perms     []rbac.Permission
	CreatedAt time.Time
	LastLogin *time.Time
}

// IsAdmin implements rbac.Principal.
func (u *User) IsAdmin() bool { return u.Admin }

// IsActive implements rbac.Principal.
func (u *User) IsActive() bool { return u.Active }

// Permissions implements rbac.Principal.
func (u *User) Permissions() []rbac.Permission { return u.Perms }

// PermissionIDs returns the ids of the granted permissions.
func (u *User) PermissionIDs() []string {
	ids := make([]string, 0, len(u.Perms))
	for _, p := range u.Perms {
		ids = append(ids, p.ID)
	}
	return ids
}

var _ rbac.Principal = (*User)(nil)

// credentialRow is the stored credential record for one username.
type credentialRow struct {
	ID           int64
	Username     string
	PasswordHash string
	Salt         string
	Admin        bool
	Active       bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}
