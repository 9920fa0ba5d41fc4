package domain

import "time"

// Claims is the identity asserted by a verified bearer token.
type Claims struct {
	UserID    string
	Username  string
	RoleID    int64
	IssuedAt  time.Time
	ExpiresAt time.Time
}
