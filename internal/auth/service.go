package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Logger is the logging surface the service needs. *slog.Logger and
// logging.Logger both satisfy it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// rehasher is implemented by hashers that can tell when a stored hash is
// out of date.
type rehasher interface {
	NeedsRehash(encoded string) bool
}

// ServiceConfig wires the identity store's collaborators.
type ServiceConfig struct {
	Users       UserRepository
	Hasher      Hasher
	Issuer      SessionIssuer
	Revocations RevocationStore

	// MinPasswordLength applies to registration and password changes.
	// Zero disables the check; any non-empty password is accepted.
	MinPasswordLength int
}

// Service is the identity store: accounts, credentials and sessions.
type Service struct {
	users       UserRepository
	hasher      Hasher
	issuer      SessionIssuer
	revocations RevocationStore
	minPassword int
	logger      Logger
	now         func() time.Time
}

// NewService builds a Service. A nil revocation store falls back to an
// in-memory one.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		users:       cfg.Users,
		hasher:      cfg.Hasher,
		issuer:      cfg.Issuer,
		revocations: cfg.Revocations,
		minPassword: cfg.MinPasswordLength,
		logger:      noopLogger{},
		now:         time.Now,
	}
	if s.revocations == nil {
		s.revocations = NewMemoryRevocationStore()
	}
	return s
}

// SetLogger replaces the no-op logger.
func (s *Service) SetLogger(l Logger) {
	if l != nil {
		s.logger = l
	}
}

// Register creates an operator account and opens a session for it.
func (s *Service) Register(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, invalidInput("username and password are required")
	}
	if !IsValidUsername(username) {
		return nil, invalidInput("username must be 1-150 letters, digits or @.+-_ characters")
	}
	if len(password) < s.minPassword {
		return nil, invalidInput("password must be at least %d characters", s.minPassword)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &User{Username: username, PasswordHash: hash, Role: RoleOperator}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return s.openSession(user)
}

// Authenticate checks credentials and opens a session. Legacy hashes are
// rewritten with the current hasher after a successful match.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, invalidInput("username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredential
	}

	s.upgradeHash(ctx, user, password)
	return s.openSession(user)
}

func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	rh, ok := s.hasher.(rehasher)
	if !ok || !rh.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.Warn("storing upgraded password hash failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
	s.logger.Info("password hash upgraded", "user_id", user.ID)
}

func (s *Service) openSession(user *User) (*Session, error) {
	token, claims, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// ChangeRole sets a user's role. Owner only.
func (s *Service) ChangeRole(ctx context.Context, actorRole Role, targetUserID, newRole string) (*User, error) {
	if !CanChangeRole(actorRole) {
		return nil, forbidden(ActionChangeRole)
	}
	role, err := ParseRole(newRole)
	if err != nil {
		return nil, err
	}
	if targetUserID == "" {
		return nil, ErrUserNotFound
	}

	user, err := s.users.UpdateRole(ctx, targetUserID, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user role changed", "user_id", user.ID, "role", string(user.Role))
	return user, nil
}

// DeleteUser removes a user together with their devices and data. Owner only.
func (s *Service) DeleteUser(ctx context.Context, actorRole Role, targetUserID string) error {
	if !CanDeleteUser(actorRole) {
		return forbidden(ActionDeleteUser)
	}
	if err := s.users.Delete(ctx, targetUserID); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", targetUserID)
	return nil
}

// ListUsers returns every account in registration order. Owner only.
func (s *Service) ListUsers(ctx context.Context, actorRole Role) ([]User, error) {
	if !CanListUsers(actorRole) {
		return nil, forbidden(ActionListUsers)
	}
	return s.users.List(ctx)
}

// GetUser returns one account. Manager or above.
func (s *Service) GetUser(ctx context.Context, actorRole Role, targetUserID string) (*User, error) {
	if !CanGetUser(actorRole) {
		return nil, forbidden(ActionGetUser)
	}
	return s.users.GetByID(ctx, targetUserID)
}

// LookupUsername resolves a username without an authorization check. It
// backs owner resolution in the device registry.
func (s *Service) LookupUsername(ctx context.Context, username string) (*User, error) {
	return s.users.GetByUsername(ctx, username)
}

// ChangePassword replaces the actor's own password after re-checking the
// current one.
func (s *Service) ChangePassword(ctx context.Context, actorID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return invalidInput("current and new password are required")
	}
	if len(newPassword) < s.minPassword {
		return invalidInput("password must be at least %d characters", s.minPassword)
	}

	user, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	ok, err := s.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return ErrInvalidCredential
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	s.logger.Info("password changed", "user_id", user.ID)
	return nil
}

// Logout revokes token until it would have expired.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return err
	}
	s.logger.Info("session revoked", "user_id", claims.Subject)
	return nil
}

// Resolve maps a bearer token to the current user row. The role on the
// returned user is whatever the store holds now, not what it was when the
// token was issued. A token whose user has been deleted is invalid.
func (s *Service) Resolve(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrTokenInvalid)
		}
		return nil, err
	}
	return user, nil
}
