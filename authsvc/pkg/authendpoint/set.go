package authendpoint

import (
	"context"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/authsvc/pkg/authservice"
)

type Set struct {
	SignupEndpoint endpoint.Endpoint
	SigninEndpoint endpoint.Endpoint
}

func New(svc authservice.Service, logger log.Logger) Set {
	var signupEndpoint endpoint.Endpoint
	{
		signupEndpoint = MakeSignupEndpoint(svc)
		signupEndpoint = LoggingMiddleware(log.With(logger, "method", "Signup"))(signupEndpoint)
	}

	var signinEndpoint endpoint.Endpoint
	{
		signinEndpoint = MakeSigninEndpoint(svc)
		signinEndpoint = LoggingMiddleware(log.With(logger, "method", "Signin"))(signinEndpoint)
	}

	return Set{
		SignupEndpoint: signupEndpoint,
		SigninEndpoint: signinEndpoint,
	}
}

func (s Set) Signup(ctx context.Context, email, password string) (authsvc.Session, error) {
	response, err := s.SignupEndpoint(ctx, SignupRequest{Email: email, Password: password})
	if err != nil {
		return authsvc.Session{}, err
	}

	resp := response.(SignupResponse)
	return resp.session(), resp.Err
}

func (s Set) Signin(ctx context.Context, email, password string) (authsvc.Session, error) {
	response, err := s.SigninEndpoint(ctx, SigninRequest{Email: email, Password: password})
	if err != nil {
		return authsvc.Session{}, err
	}

	resp := response.(SigninResponse)
	return resp.session(), resp.Err
}

func MakeSignupEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(SignupRequest)
		session, err := s.Signup(ctx, req.Email, req.Password)

		return SignupResponse{sessionResponse: newSessionResponse(session), Err: err}, nil
	}
}

func MakeSigninEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(SigninRequest)
		session, err := s.Signin(ctx, req.Email, req.Password)

		return SigninResponse{sessionResponse: newSessionResponse(session), Err: err}, nil
	}
}

var (
	_ endpoint.Failer = SignupResponse{}
	_ endpoint.Failer = SigninResponse{}
)

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Token string `json:"token"`
}

func newSessionResponse(s authsvc.Session) sessionResponse {
	return sessionResponse{ID: s.UserID, Email: s.Email, Token: s.Token}
}

func (r sessionResponse) session() authsvc.Session {
	return authsvc.Session{UserID: r.ID, Email: r.Email, Token: r.Token}
}

type SignupResponse struct {
	sessionResponse
	Err error `json:"-"`
}

func (r SignupResponse) Failed() error { return r.Err }

func (r SignupResponse) StatusCode() int { return http.StatusCreated }

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninResponse struct {
	sessionResponse
	Err error `json:"-"`
}

func (r SigninResponse) Failed() error { return r.Err }
