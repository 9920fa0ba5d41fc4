package domain

import "errors"

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindConflict        Kind = "conflict"
	KindNotFound        Kind = "not_found"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindDelivery        Kind = "delivery"
	KindUnexpected      Kind = "unexpected"
)

// Error is a classified, user-presentable failure.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	ErrMissingFields   = newError(KindValidation, "all fields are required")
	ErrPasswordTooLong = newError(KindValidation, "password must not exceed 72 bytes")

	ErrUsernameTaken = newError(KindConflict, "username already exists")
	ErrEmailTaken    = newError(KindConflict, "email already exists")

	ErrRoleNotFound  = newError(KindNotFound, "role not found")
	ErrUserNotFound  = newError(KindNotFound, "user not found")
	ErrEmailNotFound = newError(KindNotFound, "email not found")

	ErrInvalidUser      = newError(KindUnauthenticated, "invalid user")
	ErrInvalidPassword  = newError(KindUnauthenticated, "invalid password")
	ErrResetCodeInvalid = newError(KindUnauthenticated, "invalid reset code")
	ErrResetCodeExpired = newError(KindUnauthenticated, "reset code expired")
	ErrTokenMissing     = newError(KindUnauthenticated, "access denied")

	ErrTokenInvalid = newError(KindForbidden, "invalid token")
	ErrForbidden    = newError(KindForbidden, "access denied")

	ErrDelivery = newError(KindDelivery, "failed to send email")
)

// KindOf returns the kind of the first *Error in err's chain, or KindUnexpected.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnexpected
}
