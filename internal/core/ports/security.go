package ports

import (
	"context"

	"github.com/apilogin/auth-api/internal/core/domain"
)

// PasswordHasher performs one-way salted hashing.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenService issues and verifies signed bearer tokens.
type TokenService interface {
	Sign(claims domain.Claims) (string, error)
	Verify(token string) (*domain.Claims, error)
}

// CodeGenerator produces password recovery codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// Message is an outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Notifier delivers messages to users.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
