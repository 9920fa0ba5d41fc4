package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/apilogin/auth-api/internal/core/domain"
)

// AdminRoleResolver yields the role id allowed through IsAdmin.
type AdminRoleResolver interface {
	AdminRoleID(ctx context.Context) (int64, error)
}

// IsAdmin lets the request through only when the caller's role is the admin
// role. It must be mounted after VerifyToken.
func IsAdmin(roles AdminRoleResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := Claims(c)
			if !ok {
				return domain.ErrTokenMissing
			}

			adminID, err := roles.AdminRoleID(c.Request().Context())
			if err != nil {
				return err
			}
			if claims.RoleID != adminID {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
