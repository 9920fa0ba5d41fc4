package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/apilogin/auth-api/internal/api/middleware"
	"github.com/apilogin/auth-api/internal/core/domain"
)

// ctxUserID returns the user id asserted by the verified token. The id never
// comes from the request body.
func ctxUserID(c echo.Context) (string, error) {
	claims, ok := middleware.Claims(c)
	if !ok || claims.UserID == "" {
		return "", domain.ErrTokenMissing
	}
	return claims.UserID, nil
}
