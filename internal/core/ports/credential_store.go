package ports

import (
	"context"
	"errors"
	"time"

	"github.com/apilogin/auth-api/internal/core/domain"
)

// ErrResetTokenTaken is returned by SetResetToken when another user already
// holds the same live code.
var ErrResetTokenTaken = errors.New("reset token already in use")

// UserRepository is the set of credential persistence operations. Implementations
// bound to a transaction run every call inside that transaction.
type UserRepository interface {
	// FindConflicts reports, in one lookup, whether username or email is taken.
	FindConflicts(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)
	CreateUser(ctx context.Context, user *domain.User) error

	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByResetToken(ctx context.Context, code string) (*domain.User, error)

	UpdatePassword(ctx context.Context, userID, hash string, at time.Time) error
	SetResetToken(ctx context.Context, userID, code string, expires, at time.Time) error
	ClearResetToken(ctx context.Context, userID string, at time.Time) error
	// ConsumeResetToken overwrites the hash and clears the reset state only while
	// the user still holds code. It returns false when no row matched.
	ConsumeResetToken(ctx context.Context, userID, code, hash string, at time.Time) (bool, error)

	DeleteUser(ctx context.Context, userID string) error
	AssignRole(ctx context.Context, userID string, roleID int64, at time.Time) error
	ListUsers(ctx context.Context) ([]domain.UserSummary, error)

	RoleLookup
}

// RoleLookup resolves roles by name.
type RoleLookup interface {
	FindRoleByName(ctx context.Context, name string) (*domain.Role, error)
}

// CredentialStore is the durable owner of users and roles.
type CredentialStore interface {
	UserRepository
	// WithTx runs fn inside a single transaction: committed when fn returns nil,
	// rolled back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error
}
