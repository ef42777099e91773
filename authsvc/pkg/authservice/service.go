package authservice

import (
	"context"
	"errors"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/usersvc"
)

type Service interface {
	Signup(ctx context.Context, email, password string) (authsvc.Session, error)
	Signin(ctx context.Context, email, password string) (authsvc.Session, error)
	// Authenticate verifies token and resolves its subject to a user.
	Authenticate(ctx context.Context, token string) (usersvc.User, error)
}

func New(users usersvc.UserRepository, h Hasher, t Tokenizer, ttl time.Duration, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(users, h, t, ttl)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	users     usersvc.UserRepository
	hasher    Hasher
	tokenizer Tokenizer
	ttl       time.Duration
	now       func() time.Time

	// dummyDigest is compared against on unknown emails so signin takes
	// about as long whether or not the account exists.
	dummyDigest string
}

func NewBasicService(users usersvc.UserRepository, h Hasher, t Tokenizer, ttl time.Duration) Service {
	dummy, _ := h.Hash(uuid.New().String())

	return &basicService{
		users:       users,
		hasher:      h,
		tokenizer:   t,
		ttl:         ttl,
		now:         func() time.Time { return time.Now().UTC() },
		dummyDigest: dummy,
	}
}

func (s *basicService) Signup(ctx context.Context, email, password string) (authsvc.Session, error) {
	email = usersvc.NormalizeEmail(email)
	if err := usersvc.ValidateCredentials(email, password); err != nil {
		return authsvc.Session{}, err
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return authsvc.Session{}, err
	}

	user, err := s.users.Insert(ctx, usersvc.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: digest,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return authsvc.Session{}, err
	}

	return s.session(user)
}

func (s *basicService) Signin(ctx context.Context, email, password string) (authsvc.Session, error) {
	email = usersvc.NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, usersvc.ErrUserNotFound) {
		s.hasher.Verify(password, s.dummyDigest)
		return authsvc.Session{}, authsvc.ErrInvalidCredentials
	}
	if err != nil {
		return authsvc.Session{}, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return authsvc.Session{}, authsvc.ErrInvalidCredentials
	}

	return s.session(user)
}

func (s *basicService) Authenticate(ctx context.Context, token string) (usersvc.User, error) {
	if token == "" {
		return usersvc.User{}, authsvc.ErrMissingCredentials
	}

	claims, err := s.tokenizer.Verify(token)
	if err != nil {
		return usersvc.User{}, authsvc.ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, usersvc.ErrUserNotFound) {
		return usersvc.User{}, authsvc.ErrPrincipalNotFound
	}
	if err != nil {
		return usersvc.User{}, err
	}

	return user, nil
}

func (s *basicService) session(u usersvc.User) (authsvc.Session, error) {
	token, err := s.tokenizer.Issue(u.ID, map[string]interface{}{"email": u.Email}, s.ttl)
	if err != nil {
		return authsvc.Session{}, err
	}

	return authsvc.Session{UserID: u.ID, Email: u.Email, Token: token}, nil
}
