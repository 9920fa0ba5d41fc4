package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/apilogin/auth-api/internal/core/domain"
	"github.com/apilogin/auth-api/internal/pkg/token"
)

func newTokens(t *testing.T, now time.Time) *token.Service {
	t.Helper()
	svc, err := token.NewService("secret", time.Hour, token.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return svc
}

func TestVerifyToken_ValidToken(t *testing.T) {
	now := time.Now()
	tokens := newTokens(t, now)
	signed, err := tokens.Sign(domain.Claims{UserID: "u-1", Username: "alice", RoleID: 2})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := VerifyToken(tokens)(func(c echo.Context) error {
		called = true
		if c.Get(ContextUserID) != "u-1" {
			t.Fatalf("user_id not set")
		}
		if c.Get(ContextUsername) != "alice" {
			t.Fatalf("username not set")
		}
		if c.Get(ContextRoleID) != int64(2) {
			t.Fatalf("role_id not set")
		}
		claims, ok := Claims(c)
		if !ok || claims.UserID != "u-1" {
			t.Fatalf("claims not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
}

func TestVerifyToken_MissingOrMalformedHeader(t *testing.T) {
	tokens := newTokens(t, time.Now())
	e := echo.New()

	for _, header := range []string{"", "Bearer", "Bearer ", "Token abc", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		c := e.NewContext(req, httptest.NewRecorder())

		err := VerifyToken(tokens)(func(echo.Context) error {
			t.Fatalf("next must not run for header %q", header)
			return nil
		})(c)
		if !errors.Is(err, domain.ErrTokenMissing) {
			t.Fatalf("header %q: expected ErrTokenMissing, got %v", header, err)
		}
	}
}

func TestVerifyToken_InvalidToken(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	expired, err := newTokens(t, issued).Sign(domain.Claims{UserID: "u-1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	e := echo.New()
	for _, raw := range []string{"garbage", expired} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		c := e.NewContext(req, httptest.NewRecorder())

		err := VerifyToken(newTokens(t, time.Now()))(func(echo.Context) error {
			t.Fatalf("next must not run")
			return nil
		})(c)
		if !errors.Is(err, domain.ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid, got %v", err)
		}
	}
}
