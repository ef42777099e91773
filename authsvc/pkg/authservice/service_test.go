package authservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/usersvc"
	usergorm "github.com/ichigozero/todokit/usersvc/db/gorm"
	"github.com/ichigozero/todokit/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (Service, usersvc.UserRepository, Tokenizer) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, usergorm.Migrate(db))

	users := usergorm.NewUserRepository(db)
	tk, err := NewTokenizer(testSecret, "HS256")
	require.NoError(t, err)

	svc := New(users, NewHasher(bcrypt.MinCost), tk, time.Hour, log.NewNopLogger())
	return svc, users, tk
}

func TestSignup(t *testing.T) {
	ctx := context.Background()
	svc, users, tk := newTestService(t)

	s, err := svc.Signup(ctx, " a@x.com ", "Abc12345")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", s.Email)
	assert.NotEmpty(t, s.UserID)

	claims, err := tk.Verify(s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.UserID, claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)

	stored, err := users.FindByID(ctx, s.UserID)
	require.NoError(t, err)
	assert.NotEqual(t, "Abc12345", stored.PasswordHash)
	assert.False(t, stored.CreatedAt.IsZero())

	_, err = svc.Signup(ctx, "a@x.com", "Other9876")
	assert.ErrorIs(t, err, usersvc.ErrEmailExists)
}

func TestSignupValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Signup(context.Background(), "not-an-email", "short")

	var errs validation.Errors
	require.True(t, errors.As(err, &errs))
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
}

func TestSignin(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	created, err := svc.Signup(ctx, "a@x.com", "Abc12345")
	require.NoError(t, err)

	s, err := svc.Signin(ctx, "a@x.com", "Abc12345")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, s.UserID)
	assert.NotEmpty(t, s.Token)

	_, err = svc.Signin(ctx, "a@x.com", "Wrong1234")
	assert.ErrorIs(t, err, authsvc.ErrInvalidCredentials)

	_, err = svc.Signin(ctx, "nobody@x.com", "Abc12345")
	assert.ErrorIs(t, err, authsvc.ErrInvalidCredentials)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _, tk := newTestService(t)

	s, err := svc.Signup(ctx, "a@x.com", "Abc12345")
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.UserID, u.ID)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, authsvc.ErrMissingCredentials)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, authsvc.ErrInvalidToken)

	ghost, err := tk.Issue("5b0d1a4e-3c2f-4e6a-9d8b-7f6e5d4c3b2a", nil, time.Hour)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, authsvc.ErrPrincipalNotFound)
}
