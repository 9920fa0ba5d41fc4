package domain

import "time"

const (
	// RoleAdministrator is the default name of the role allowed through the admin gate.
	RoleAdministrator = "Administrator"
	RoleUser          = "User"

	// TokenTTL is the fixed lifetime of an issued bearer token.
	TokenTTL = time.Hour
	// ResetCodeTTL is how long a recovery code stays valid after issuance.
	ResetCodeTTL = 5 * time.Minute
)

// Role is a named permission group referenced by users.
type Role struct {
	ID   int64  `json:"role_id"`
	Name string `json:"role_name"`
}

// User models an account. PasswordHash and the reset state never leave the service.
type User struct {
	ID           string     `json:"user_id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	RoleID       int64      `json:"role_id"`
	ResetToken   *string    `json:"-"`
	ResetExpires *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ResetExpired reports whether the user's reset code is no longer usable at now.
// A user without a pending code is treated as expired.
func (u *User) ResetExpired(now time.Time) bool {
	if u.ResetToken == nil || u.ResetExpires == nil {
		return true
	}
	return !now.Before(*u.ResetExpires)
}

// UserSummary is the admin listing projection of a user joined with its role.
type UserSummary struct {
	ID        string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	RoleName  string    `json:"role_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
