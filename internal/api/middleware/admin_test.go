package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/apilogin/auth-api/internal/core/domain"
)

type stubResolver struct {
	id    int64
	err   error
	calls int
}

func (r *stubResolver) AdminRoleID(context.Context) (int64, error) {
	r.calls++
	return r.id, r.err
}

func adminContext(claims *domain.Claims) echo.Context {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if claims != nil {
		c.Set(ContextClaims, claims)
	}
	return c
}

func TestIsAdmin_Allowed(t *testing.T) {
	roles := &stubResolver{id: 1}
	called := false

	err := IsAdmin(roles)(func(echo.Context) error {
		called = true
		return nil
	})(adminContext(&domain.Claims{UserID: "u-1", RoleID: 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
}

func TestIsAdmin_Forbidden(t *testing.T) {
	roles := &stubResolver{id: 1}

	err := IsAdmin(roles)(func(echo.Context) error {
		t.Fatalf("next must not run")
		return nil
	})(adminContext(&domain.Claims{UserID: "u-1", RoleID: 2}))
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestIsAdmin_WithoutClaims(t *testing.T) {
	roles := &stubResolver{id: 1}

	err := IsAdmin(roles)(func(echo.Context) error { return nil })(adminContext(nil))
	if !errors.Is(err, domain.ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
	if roles.calls != 0 {
		t.Fatalf("expected no role lookup without claims")
	}
}

func TestIsAdmin_LookupFailure(t *testing.T) {
	boom := errors.New("db down")
	roles := &stubResolver{err: boom}

	err := IsAdmin(roles)(func(echo.Context) error { return nil })(adminContext(&domain.Claims{RoleID: 1}))
	if !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}
