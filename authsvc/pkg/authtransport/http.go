package authtransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/todokit/apierror"
	"github.com/ichigozero/todokit/authsvc/pkg/authendpoint"
	"github.com/ichigozero/todokit/validation"
	"github.com/sony/gobreaker"
)

// NewHTTPHandler serves signup and signin relative to the /auth prefix it
// is mounted under.
func NewHTTPHandler(endpoints authendpoint.Set, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(apierror.EncodeError),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
	}

	signupHandler := httptransport.NewServer(
		endpoints.SignupEndpoint,
		decodeHTTPSignupRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	signinHandler := httptransport.NewServer(
		endpoints.SigninEndpoint,
		decodeHTTPSigninRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	r := mux.NewRouter()

	r.Methods("POST").Path("/signup").Handler(signupHandler)
	r.Methods("POST").Path("/register").Handler(signupHandler)
	r.Methods("POST").Path("/signin").Handler(signinHandler)
	r.Methods("POST").Path("/login").Handler(signinHandler)
	r.NotFoundHandler = apierror.NotFoundHandler()
	r.MethodNotAllowedHandler = apierror.MethodNotAllowedHandler()

	return r
}

// NewHTTPClient returns an authendpoint.Set backed by a remote instance.
// instance may carry a path prefix such as /api.
func NewHTTPClient(instance string, logger log.Logger) (authendpoint.Set, error) {
	// Quickly sanitize the instance string.
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return authendpoint.Set{}, err
	}

	var options []httptransport.ClientOption

	var signupEndpoint endpoint.Endpoint
	{
		signupEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/auth/signup"),
			encodeHTTPGenericRequest,
			decodeHTTPSignupResponse,
			options...,
		).Endpoint()
		signupEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Signup",
			Timeout: 30 * time.Second,
		}))(signupEndpoint)
	}

	var signinEndpoint endpoint.Endpoint
	{
		signinEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/auth/signin"),
			encodeHTTPGenericRequest,
			decodeHTTPSigninResponse,
			options...,
		).Endpoint()
		signinEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Signin",
			Timeout: 30 * time.Second,
		}))(signinEndpoint)
	}

	return authendpoint.Set{
		SignupEndpoint: signupEndpoint,
		SigninEndpoint: signinEndpoint,
	}, nil
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = strings.TrimSuffix(base.Path, "/") + path
	return &next
}


// decodeJSONBody decodes the request body into v. An empty body leaves v
// untouched.
func decodeJSONBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return validation.Errors{"body": "must be a valid JSON document"}
}

func decodeHTTPSignupRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.SignupRequest
	err := decodeJSONBody(r, &req)
	return req, err
}

func decodeHTTPSigninRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.SigninRequest
	err := decodeJSONBody(r, &req)
	return req, err
}

func decodeHTTPSignupResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, apierror.DecodeError(r)
	}
	if r.StatusCode != http.StatusCreated {
		return authendpoint.SignupResponse{Err: apierror.DecodeError(r)}, nil
	}
	var resp authendpoint.SignupResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPSigninResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, apierror.DecodeError(r)
	}
	if r.StatusCode != http.StatusOK {
		return authendpoint.SigninResponse{Err: apierror.DecodeError(r)}, nil
	}
	var resp authendpoint.SigninResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

// encodeHTTPGenericRequest is a transport/http.EncodeRequestFunc that
// JSON-encodes any request to the request body. Primarily useful in a client.
func encodeHTTPGenericRequest(_ context.Context, r *http.Request, request interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request); err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.Body = ioutil.NopCloser(&buf)
	return nil
}

// encodeHTTPGenericResponse is a transport/http.EncodeResponseFunc that encodes
// the response as JSON to the response writer. Primarily useful in a server.
func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		apierror.EncodeError(ctx, f.Failed(), w)
		return nil
	}
	return httptransport.EncodeJSONResponse(ctx, w, response)
}
