// Package apierror maps domain errors to HTTP responses and back.
package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/tasksvc"
	"github.com/ichigozero/todokit/usersvc"
	"github.com/ichigozero/todokit/validation"
)

// Body is the JSON error document. Detail is set for validation errors only.
type Body struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

var (
	// ErrNotFound is reported for unknown routes.
	ErrNotFound = errors.New("resource not found")
	// ErrMethodNotAllowed is reported for a known route hit with the wrong method.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// StatusCode is the status an error is reported with.
func StatusCode(err error) int {
	var errs validation.Errors
	switch {
	case errors.As(err, &errs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, usersvc.ErrEmailExists):
		return http.StatusBadRequest
	case errors.Is(err, authsvc.ErrMissingCredentials),
		errors.Is(err, authsvc.ErrInvalidToken),
		errors.Is(err, authsvc.ErrPrincipalNotFound),
		errors.Is(err, authsvc.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, authsvc.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, tasksvc.ErrTaskNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return http.StatusInternalServerError
}

// NewBody builds the error document for err. Unexpected errors are not
// echoed to the client.
func NewBody(err error) Body {
	code := StatusCode(err)
	b := Body{Error: http.StatusText(code), Message: err.Error()}

	var errs validation.Errors
	if errors.As(err, &errs) {
		b.Message = "request validation failed"
		b.Detail = errs
	}
	if code == http.StatusInternalServerError {
		b.Message = "internal server error"
	}
	return b
}

// EncodeError is a transport/http.ErrorEncoder.
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	code := StatusCode(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewBody(err))
}

// NotFoundHandler is a mux.Router NotFoundHandler.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		EncodeError(r.Context(), ErrNotFound, w)
	})
}

// MethodNotAllowedHandler is a mux.Router MethodNotAllowedHandler.
func MethodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		EncodeError(r.Context(), ErrMethodNotAllowed, w)
	})
}

// StatusError is returned by HTTP clients for a non-success response.
type StatusError struct {
	Code int
	Body Body
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Code, e.Body.Error, e.Body.Message)
}

// DecodeError reads the error document from r.
func DecodeError(r *http.Response) error {
	se := &StatusError{Code: r.StatusCode}
	if err := json.NewDecoder(r.Body).Decode(&se.Body); err != nil {
		se.Body = Body{Error: http.StatusText(r.StatusCode), Message: r.Status}
	}
	return se
}
