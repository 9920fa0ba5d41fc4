package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/apilogin/auth-api/internal/core/domain"
	"github.com/apilogin/auth-api/internal/core/ports"
)

// Deps groups the collaborators of AuthService.
type Deps struct {
	Store    ports.CredentialStore
	Hasher   ports.PasswordHasher
	Tokens   ports.TokenService
	Codes    ports.CodeGenerator
	Notifier ports.Notifier
	// Roles resolves role names for the admin gate. Defaults to Store.
	Roles ports.RoleLookup
	// AdminRoleName defaults to domain.RoleAdministrator.
	AdminRoleName string
}

// AuthService implements registration, login, password recovery and account management.
// It holds no per-request state.
type AuthService struct {
	store     ports.CredentialStore
	hasher    ports.PasswordHasher
	tokens    ports.TokenService
	codes     ports.CodeGenerator
	notifier  ports.Notifier
	roles     ports.RoleLookup
	adminRole string
	log       zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewAuthService(deps Deps, log zerolog.Logger) *AuthService {
	s := &AuthService{
		store:     deps.Store,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		codes:     deps.Codes,
		notifier:  deps.Notifier,
		roles:     deps.Roles,
		adminRole: deps.AdminRoleName,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	if s.roles == nil {
		s.roles = deps.Store
	}
	if s.adminRole == "" {
		s.adminRole = domain.RoleAdministrator
	}
	return s
}

// Register creates an account with the named role. The conflict check, role
// resolution and insert share one transaction.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.RoleName = strings.TrimSpace(in.RoleName)
	if in.Username == "" || in.Email == "" || in.Password == "" || in.RoleName == "" {
		return nil, domain.ErrMissingFields
	}

	now := s.now()
	user := &domain.User{
		ID:        s.newID(),
		Username:  in.Username,
		Email:     in.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, repo ports.UserRepository) error {
		usernameTaken, emailTaken, err := repo.FindConflicts(ctx, in.Username, in.Email)
		if err != nil {
			return err
		}
		if usernameTaken {
			return domain.ErrUsernameTaken
		}
		if emailTaken {
			return domain.ErrEmailTaken
		}

		role, err := repo.FindRoleByName(ctx, in.RoleName)
		if err != nil {
			return err
		}
		user.RoleID = role.ID

		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash

		return repo.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Int64("role_id", user.RoleID).Msg("user registered")
	return user, nil
}

// Login verifies credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", domain.ErrMissingFields
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrInvalidUser
		}
		return "", fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", domain.ErrInvalidPassword
	}

	token, err := s.tokens.Sign(domain.Claims{
		UserID:   user.ID,
		Username: user.Username,
		RoleID:   user.RoleID,
	})
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	return token, nil
}

// ChangePassword replaces the password of the authenticated user.
func (s *AuthService) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if userID == "" || newPassword == "" {
		return domain.ErrMissingFields
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, userID, hash, s.now()); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.log.Info().Str("user_id", userID).Msg("password changed")
	return nil
}

// DeleteUser removes an account. Deleting a missing user is not an error.
func (s *AuthService) DeleteUser(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrMissingFields
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.Info().Str("user_id", userID).Msg("user deleted")
	return nil
}

// AssignRole points a user at another role.
func (s *AuthService) AssignRole(ctx context.Context, userID string, roleID int64) error {
	userID = strings.TrimSpace(userID)
	if userID == "" || roleID <= 0 {
		return domain.ErrMissingFields
	}
	if err := s.store.AssignRole(ctx, userID, roleID, s.now()); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	s.log.Info().Str("user_id", userID).Int64("role_id", roleID).Msg("role assigned")
	return nil
}

// ListUsers returns every user with its role name, in storage order.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []domain.UserSummary{}
	}
	return users, nil
}

// AdminRoleID resolves the id of the administrator role. It is looked up on
// every call so role changes in storage apply without a restart.
func (s *AuthService) AdminRoleID(ctx context.Context) (int64, error) {
	role, err := s.roles.FindRoleByName(ctx, s.adminRole)
	if err != nil {
		return 0, fmt.Errorf("resolve admin role: %w", err)
	}
	return role.ID, nil
}

// BootstrapAdmin describes the administrator created on an empty deployment.
type BootstrapAdmin struct {
	Username string
	Email    string
	Password string
}

// EnsureAdmin registers the bootstrap administrator unless a user with that
// username already exists. Incomplete credentials disable the bootstrap.
func (s *AuthService) EnsureAdmin(ctx context.Context, admin BootstrapAdmin) error {
	if admin.Username == "" || admin.Email == "" || admin.Password == "" {
		return nil
	}

	existing, err := s.store.FindByUsername(ctx, admin.Username)
	switch {
	case err == nil:
		s.log.Debug().Str("user_id", existing.ID).Msg("bootstrap admin already exists")
		return nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return fmt.Errorf("ensure admin: %w", err)
	}

	user, err := s.Register(ctx, ports.RegisterInput{
		Username: admin.Username,
		Email:    admin.Email,
		Password: admin.Password,
		RoleName: s.adminRole,
	})
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("bootstrap admin created")
	return nil
}
