package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	throttle *Throttle
	logger   *slog.Logger
}

// NewService constructs a new Service. throttle may be nil to disable
// login throttling.
func NewService(repo Repository, throttle *Throttle, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, throttle: throttle, logger: logger}
}

// Authenticate verifies username/password credentials and returns the
// fully loaded user. The returned user carries the permission snapshot
// taken now; the plaintext password and stored hash are never exposed
// to callers. Failure reasons are distinguished by sentinel error for
// server-side logging only; clients get one generic reply.
func (s *Service) Authenticate(ctx context.Context, username, password, remoteAddr string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidInput
	}

	if s.throttle != nil {
		blocked, err := s.throttle.Blocked(ctx, username, remoteAddr)
		if err != nil {
			s.logger.Warn("login throttle unavailable", slog.Any("error", err))
		} else if blocked {
			s.logger.Warn("login throttled", slog.String("username", username), slog.String("remote", remoteAddr))
			return nil, ErrThrottled
		}
	}

	row, err := s.repo.FindCredentials(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.recordFailure(ctx, username, remoteAddr)
			s.logger.Info("login failed: unknown user", slog.String("username", username))
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !VerifyPassword(password, row.PasswordHash, row.Salt) {
		s.recordFailure(ctx, username, remoteAddr)
		s.logger.Info("login failed: bad password", slog.String("username", username))
		return nil, ErrInvalidCredentials
	}

	// Best effort: a failed stamp must not fail the login.
	if err := s.repo.UpdateLastLogin(ctx, row.ID); err != nil {
		s.logger.Warn("update last_login", slog.String("username", username), slog.Any("error", err))
	}

	perms, err := s.repo.UserPermissions(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, username, remoteAddr); err != nil {
			s.logger.Warn("login throttle reset", slog.Any("error", err))
		}
	}

	return &User{
		ID:        row.ID,
		Username:  row.Username,
		Admin:     row.Admin,
		Active:    row.Active,
		Perms:     perms,
		CreatedAt: row.CreatedAt,
		LastLogin: row.LastLogin,
	}, nil
}

func (s *Service) recordFailure(ctx context.Context, username, remoteAddr string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.RecordFailure(ctx, username, remoteAddr); err != nil {
		s.logger.Warn("login throttle record", slog.Any("error", err))
	}
}

// CreateUser creates an account with a freshly generated salt and the
// given permission grants, atomically.
func (s *Service) CreateUser(ctx context.Context, username, password string, isAdmin bool, permissionIDs []string) error {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return ErrInvalidInput
	}
	salt, err := GenerateSalt()
	if err != nil {
		return err
	}
	hash, err := HashPassword(password, salt)
	if err != nil {
		return err
	}
	if _, err := s.repo.CreateUser(ctx, username, hash, salt, isAdmin, permissionIDs); err != nil {
		return err
	}
	s.logger.Info("user created", slog.String("username", username), slog.Bool("admin", isAdmin))
	return nil
}

// EnsureAdminUser creates the default admin account when no admin row
// exists yet.
func (s *Service) EnsureAdminUser(ctx context.Context, password string) error {
	exists, err := s.repo.AdminExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.CreateUser(ctx, "admin", password, true, nil); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil
		}
		return err
	}
	s.logger.Info("default admin user created")
	return nil
}

// LookupUser fetches a user and its permission snapshot by username,
// case-insensitively.
func (s *Service) LookupUser(ctx context.Context, username string) (*User, error) {
	return s.repo.FindUser(ctx, username)
}

// Users returns all accounts.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}
