// Package middleware holds the bearer-token and admin gates.
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/apilogin/auth-api/internal/core/domain"
	"github.com/apilogin/auth-api/internal/core/ports"
)

// Context keys set by VerifyToken.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextRoleID   = "role_id"
	ContextClaims   = "claims"
)

// VerifyToken validates the bearer token and injects its claims into context.
// A missing or malformed header is 401; a token that fails verification is 403.
func VerifyToken(tokens ports.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return domain.ErrTokenMissing
			}

			claims, err := tokens.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				return err
			}

			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextUsername, claims.Username)
			c.Set(ContextRoleID, claims.RoleID)
			c.Set(ContextClaims, claims)

			return next(c)
		}
	}
}

// Claims returns the claims injected by VerifyToken, if any.
func Claims(c echo.Context) (*domain.Claims, bool) {
	claims, ok := c.Get(ContextClaims).(*domain.Claims)
	return claims, ok && claims != nil
}
