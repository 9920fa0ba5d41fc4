package domain

import (
	"testing"
	"time"
)

func TestUser_ResetExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	code := "123456"
	later := now.Add(time.Minute)
	earlier := now.Add(-time.Second)

	cases := []struct {
		name string
		user User
		want bool
	}{
		{"no pending code", User{}, true},
		{"code without expiry", User{ResetToken: &code}, true},
		{"live code", User{ResetToken: &code, ResetExpires: &later}, false},
		{"expired code", User{ResetToken: &code, ResetExpires: &earlier}, true},
		{"expires exactly now", User{ResetToken: &code, ResetExpires: &now}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.ResetExpired(now); got != tc.want {
				t.Fatalf("ResetExpired() = %v, want %v", got, tc.want)
			}
		})
	}
}
