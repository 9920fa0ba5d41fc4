package ports

import (
	"context"

	"github.com/apilogin/auth-api/internal/core/domain"
)

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	RoleName string
}

// AuthService is the authentication and account management surface used by the HTTP layer.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	ChangePassword(ctx context.Context, userID, newPassword string) error
	RecoverPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, code, newPassword string) error
	DeleteUser(ctx context.Context, userID string) error
	AssignRole(ctx context.Context, userID string, roleID int64) error
	ListUsers(ctx context.Context) ([]domain.UserSummary, error)
	AdminRoleID(ctx context.Context) (int64, error)
}
