package authsvc

import (
	"context"
	"errors"

	"github.com/ichigozero/todokit/usersvc"
)

type contextKey string

const PrincipalContextKey contextKey = "Principal"

// WithPrincipal stores the authenticated user in ctx.
func WithPrincipal(ctx context.Context, u usersvc.User) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, u)
}

func PrincipalFromContext(ctx context.Context) (usersvc.User, bool) {
	u, ok := ctx.Value(PrincipalContextKey).(usersvc.User)
	return u, ok
}

// Session is returned by signup and signin.
type Session struct {
	UserID string
	Email  string
	Token  string
}

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidToken       = errors.New("invalid or expired credentials")
	ErrPrincipalNotFound  = errors.New("principal no longer exists")
	ErrForbidden          = errors.New("not authorized for this resource")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrTokenMalformed          = errors.New("token is malformed")
	ErrTokenExpired            = errors.New("token is expired")
	ErrTokenSignature          = errors.New("token signature is invalid")
	ErrUnexpectedSigningMethod = errors.New("unexpected signing method")
	ErrUnsupportedAlgorithm    = errors.New("unsupported signing algorithm")
)
