package tasktransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/todokit/apierror"
	"github.com/ichigozero/todokit/authsvc/pkg/authservice"
	"github.com/ichigozero/todokit/authsvc/pkg/authtransport"
	"github.com/ichigozero/todokit/tasksvc"
	"github.com/ichigozero/todokit/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/todokit/validation"
	"github.com/sony/gobreaker"
)

// NewHTTPHandler serves the task routes. Every route requires a bearer
// token whose subject owns the {owner} path segment.
func NewHTTPHandler(endpoints taskendpoint.Set, auth authservice.Service, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(apierror.EncodeError),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
		httptransport.ServerBefore(kitjwt.HTTPToContext()),
	}

	endpoints = endpoints.Wrap(func(next endpoint.Endpoint) endpoint.Endpoint {
		next = rejectMalformed(next)
		next = authtransport.NewOwnerGuard()(next)
		next = authtransport.NewAuthenticater(auth)(next)
		return next
	})

	createTaskHandler := httptransport.NewServer(
		endpoints.CreateTaskEndpoint,
		decodeHTTPCreateTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	tasksHandler := httptransport.NewServer(
		endpoints.TasksEndpoint,
		decodeHTTPTasksRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	taskHandler := httptransport.NewServer(
		endpoints.TaskEndpoint,
		decodeHTTPTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	updateTaskHandler := httptransport.NewServer(
		endpoints.UpdateTaskEndpoint,
		decodeHTTPUpdateTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	toggleTaskHandler := httptransport.NewServer(
		endpoints.ToggleTaskEndpoint,
		decodeHTTPToggleTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	deleteTaskHandler := httptransport.NewServer(
		endpoints.DeleteTaskEndpoint,
		decodeHTTPDeleteTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	r := mux.NewRouter()

	r.Methods("POST").Path("/{owner}/tasks").Handler(createTaskHandler)
	r.Methods("GET").Path("/{owner}/tasks").Handler(tasksHandler)
	r.Methods("GET").Path("/{owner}/tasks/{task_id}").Handler(taskHandler)
	r.Methods("PUT", "PATCH").Path("/{owner}/tasks/{task_id}").Handler(updateTaskHandler)
	r.Methods("PATCH").Path("/{owner}/tasks/{task_id}/complete").Handler(toggleTaskHandler)
	r.Methods("DELETE").Path("/{owner}/tasks/{task_id}").Handler(deleteTaskHandler)
	r.NotFoundHandler = apierror.NotFoundHandler()
	r.MethodNotAllowedHandler = apierror.MethodNotAllowedHandler()

	return r
}

// NewHTTPClient returns a taskendpoint.Set backed by a remote instance. The
// set satisfies taskservice.Service. The bearer token is taken from
// kitjwt.JWTTokenContextKey in the context of each call.
func NewHTTPClient(instance string, logger log.Logger) (taskendpoint.Set, error) {
	// Quickly sanitize the instance string.
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return taskendpoint.Set{}, err
	}

	options := []httptransport.ClientOption{
		httptransport.ClientBefore(kitjwt.ContextToHTTP()),
	}

	breaker := func(name string) endpoint.Middleware {
		return circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 30 * time.Second,
		}))
	}

	var createTaskEndpoint endpoint.Endpoint
	{
		createTaskEndpoint = httptransport.NewClient(
			"POST",
			u,
			encodeHTTPCreateTaskRequest,
			decodeHTTPCreateTaskResponse,
			options...,
		).Endpoint()
		createTaskEndpoint = breaker("CreateTask")(createTaskEndpoint)
	}

	var tasksEndpoint endpoint.Endpoint
	{
		tasksEndpoint = httptransport.NewClient(
			"GET",
			u,
			encodeHTTPTasksRequest,
			decodeHTTPTasksResponse,
			options...,
		).Endpoint()
		tasksEndpoint = breaker("Tasks")(tasksEndpoint)
	}

	var taskEndpoint endpoint.Endpoint
	{
		taskEndpoint = httptransport.NewClient(
			"GET",
			u,
			encodeHTTPTaskRequest,
			decodeHTTPTaskResponse,
			options...,
		).Endpoint()
		taskEndpoint = breaker("Task")(taskEndpoint)
	}

	var updateTaskEndpoint endpoint.Endpoint
	{
		updateTaskEndpoint = httptransport.NewClient(
			"PATCH",
			u,
			encodeHTTPUpdateTaskRequest,
			decodeHTTPUpdateTaskResponse,
			options...,
		).Endpoint()
		updateTaskEndpoint = breaker("UpdateTask")(updateTaskEndpoint)
	}

	var toggleTaskEndpoint endpoint.Endpoint
	{
		toggleTaskEndpoint = httptransport.NewClient(
			"PATCH",
			u,
			encodeHTTPToggleTaskRequest,
			decodeHTTPToggleTaskResponse,
			options...,
		).Endpoint()
		toggleTaskEndpoint = breaker("ToggleTask")(toggleTaskEndpoint)
	}

	var deleteTaskEndpoint endpoint.Endpoint
	{
		deleteTaskEndpoint = httptransport.NewClient(
			"DELETE",
			u,
			encodeHTTPDeleteTaskRequest,
			decodeHTTPDeleteTaskResponse,
			options...,
		).Endpoint()
		deleteTaskEndpoint = breaker("DeleteTask")(deleteTaskEndpoint)
	}

	return taskendpoint.Set{
		CreateTaskEndpoint: createTaskEndpoint,
		TasksEndpoint:      tasksEndpoint,
		TaskEndpoint:       taskEndpoint,
		UpdateTaskEndpoint: updateTaskEndpoint,
		ToggleTaskEndpoint: toggleTaskEndpoint,
		DeleteTaskEndpoint: deleteTaskEndpoint,
	}, nil
}

// malformedRequest stands in for a request whose body or query could not
// be decoded. Decoding runs before the endpoint, so the error is carried
// past the authenticater and owner guard and reported by rejectMalformed.
type malformedRequest struct {
	ownerID string
	err     error
}

func (r malformedRequest) Owner() string { return r.ownerID }

func rejectMalformed(next endpoint.Endpoint) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		if m, ok := request.(malformedRequest); ok {
			return nil, m.err
		}
		return next(ctx, request)
	}
}

// ErrBadRouting is returned when an expected path variable is missing.
// It always indicates programmer error.
var ErrBadRouting = errors.New("inconsistent mapping between route and handler (programmer error)")

func pathVars(r *http.Request, names ...string) ([]string, error) {
	vars := mux.Vars(r)
	values := make([]string, len(names))
	for i, name := range names {
		v, ok := vars[name]
		if !ok {
			return nil, ErrBadRouting
		}
		values[i] = v
	}
	return values, nil
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

func decodeHTTPCreateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars, err := pathVars(r, "owner")
	if err != nil {
		return nil, err
	}

	var req taskendpoint.CreateTaskRequest
	if err := decodeJSONBody(r, &req); err != nil {
		return malformedRequest{ownerID: vars[0], err: err}, nil
	}
	req.OwnerID = vars[0]

	return req, nil
}

// decodeHTTPTasksRequest accepts the status filter either as status or as
// the boolean completed parameter.
func decodeHTTPTasksRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars, err := pathVars(r, "owner")
	if err != nil {
		return nil, err
	}

	req := taskendpoint.TasksRequest{OwnerID: vars[0]}
	q := r.URL.Query()
	errs := validation.Errors{}

	if v, ok := q["status"]; ok {
		s, err := tasksvc.ParseStatus(v[0])
		if err != nil {
			errs.Add("status", err.Error())
		} else {
			req.Status = &s
		}
	}

	if v, ok := q["completed"]; ok {
		completed, err := strconv.ParseBool(v[0])
		switch {
		case err != nil:
			errs.Add("completed", "must be true or false")
		case req.Status != nil && *req.Status != tasksvc.StatusOf(completed):
			errs.Add("completed", "conflicts with status")
		default:
			s := tasksvc.StatusOf(completed)
			req.Status = &s
		}
	}

	if err := errs.Err(); err != nil {
		return malformedRequest{ownerID: vars[0], err: err}, nil
	}
	return req, nil
}

func decodeHTTPTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars, err := pathVars(r, "owner", "task_id")
	if err != nil {
		return nil, err
	}

	return taskendpoint.TaskRequest{
		OwnerID: vars[0],
		TaskID:  vars[1],
	}, nil
}

func decodeHTTPUpdateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars, err := pathVars(r, "owner", "task_id")
	if err != nil {
		return nil, err
	}

	var req taskendpoint.UpdateTaskRequest
	if err := decodeJSONBody(r, &req); err != nil {
		return malformedRequest{ownerID: vars[0], err: err}, nil
	}
	req.OwnerID = vars[0]
	req.TaskID = vars[1]

	return req, nil
}

func decodeHTTPToggleTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars, err := pathVars(r, "owner", "task_id")
	if err != nil {
		return nil, err
	}

	return taskendpoint.ToggleTaskRequest{
		OwnerID: vars[0],
		TaskID:  vars[1],
	}, nil
}

func decodeHTTPDeleteTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	vars, err := pathVars(r, "owner", "task_id")
	if err != nil {
		return nil, err
	}

	return taskendpoint.DeleteTaskRequest{
		OwnerID: vars[0],
		TaskID:  vars[1],
	}, nil
}

// setPath appends the given segments to the base path the client was
// created with.
func setPath(r *http.Request, segments ...string) {
	r.URL.Path = strings.TrimSuffix(r.URL.Path, "/") + "/" + strings.Join(segments, "/")
}

func encodeHTTPCreateTaskRequest(ctx context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.CreateTaskRequest)
	setPath(r, req.OwnerID, "tasks")
	return encodeHTTPGenericRequest(ctx, r, req)
}

func encodeHTTPTasksRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.TasksRequest)
	setPath(r, req.OwnerID, "tasks")
	if req.Status != nil {
		r.URL.RawQuery = url.Values{"status": {string(*req.Status)}}.Encode()
	}
	return nil
}

func encodeHTTPTaskRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.TaskRequest)
	setPath(r, req.OwnerID, "tasks", req.TaskID)
	return nil
}

func encodeHTTPUpdateTaskRequest(ctx context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.UpdateTaskRequest)
	setPath(r, req.OwnerID, "tasks", req.TaskID)
	return encodeHTTPGenericRequest(ctx, r, req)
}

func encodeHTTPToggleTaskRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.ToggleTaskRequest)
	setPath(r, req.OwnerID, "tasks", req.TaskID, "complete")
	return nil
}

func encodeHTTPDeleteTaskRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.DeleteTaskRequest)
	setPath(r, req.OwnerID, "tasks", req.TaskID)
	return nil
}

func decodeHTTPCreateTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, apierror.DecodeError(r)
	}
	if r.StatusCode != http.StatusCreated {
		return taskendpoint.CreateTaskResponse{Err: apierror.DecodeError(r)}, nil
	}
	var resp taskendpoint.CreateTaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPTasksResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, apierror.DecodeError(r)
	}
	if r.StatusCode != http.StatusOK {
		return taskendpoint.TasksResponse{Err: apierror.DecodeError(r)}, nil
	}
	var resp taskendpoint.TasksResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, apierror.DecodeError(r)
	}
	if r.StatusCode != http.StatusOK {
		return taskendpoint.TaskResponse{Err: apierror.DecodeError(r)}, nil
	}
	var resp taskendpoint.TaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPUpdateTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, apierror.DecodeError(r)
	}
	if r.StatusCode != http.StatusOK {
		return taskendpoint.UpdateTaskResponse{Err: apierror.DecodeError(r)}, nil
	}
	var resp taskendpoint.UpdateTaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPToggleTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, apierror.DecodeError(r)
	}
	if r.StatusCode != http.StatusOK {
		return taskendpoint.ToggleTaskResponse{Err: apierror.DecodeError(r)}, nil
	}
	var resp taskendpoint.ToggleTaskResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPDeleteTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, apierror.DecodeError(r)
	}
	if r.StatusCode != http.StatusNoContent {
		return taskendpoint.DeleteTaskResponse{Err: apierror.DecodeError(r)}, nil
	}
	return taskendpoint.DeleteTaskResponse{}, nil
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
