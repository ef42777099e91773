package usersvc

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ichigozero/todokit/validation"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRepository is the identity store. Insert must report a duplicate
// email as ErrEmailExists.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	Insert(ctx context.Context, user User) (User, error)
}

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
	MaxEmailLength    = 255
)

// ValidateCredentials checks a signup email and password. Signin does not
// call it so that a weak legacy password still reports invalid credentials.
func ValidateCredentials(email, password string) error {
	errs := validation.Errors{}

	switch {
	case email == "":
		errs.Add("email", "must not be empty")
	case len(email) > MaxEmailLength:
		errs.Add("email", "must be at most 255 characters")
	default:
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			errs.Add("email", "must be a valid email address")
		}
	}

	switch {
	case utf8.RuneCountInString(password) < MinPasswordLength:
		errs.Add("password", "must be at least 8 characters")
	case len(password) > MaxPasswordLength:
		errs.Add("password", "must be at most 72 bytes")
	default:
		var upper, lower, digit bool
		for _, r := range password {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsLower(r):
				lower = true
			case unicode.IsDigit(r):
				digit = true
			}
		}
		if !upper || !lower || !digit {
			errs.Add("password", "must contain an upper-case letter, a lower-case letter and a digit")
		}
	}

	return errs.Err()
}

// NormalizeEmail strips surrounding whitespace. Case is preserved.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)
