package taskendpoint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/tasksvc"
	"github.com/ichigozero/todokit/tasksvc/pkg/taskservice"
	"github.com/ichigozero/todokit/validation"
)

type Set struct {
	CreateTaskEndpoint endpoint.Endpoint
	TasksEndpoint      endpoint.Endpoint
	TaskEndpoint       endpoint.Endpoint
	UpdateTaskEndpoint endpoint.Endpoint
	ToggleTaskEndpoint endpoint.Endpoint
	DeleteTaskEndpoint endpoint.Endpoint
}

func New(svc taskservice.Service, logger log.Logger) Set {
	var createTaskEndpoint endpoint.Endpoint
	{
		createTaskEndpoint = MakeCreateTaskEndpoint(svc)
		createTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "CreateTask"))(createTaskEndpoint)
	}
	var tasksEndpoint endpoint.Endpoint
	{
		tasksEndpoint = MakeTasksEndpoint(svc)
		tasksEndpoint = LoggingMiddleware(log.With(logger, "method", "Tasks"))(tasksEndpoint)
	}
	var taskEndpoint endpoint.Endpoint
	{
		taskEndpoint = MakeTaskEndpoint(svc)
		taskEndpoint = LoggingMiddleware(log.With(logger, "method", "Task"))(taskEndpoint)
	}

	var updateTaskEndpoint endpoint.Endpoint
	{
		updateTaskEndpoint = MakeUpdateTaskEndpoint(svc)
		updateTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "UpdateTask"))(updateTaskEndpoint)
	}

	var toggleTaskEndpoint endpoint.Endpoint
	{
		toggleTaskEndpoint = MakeToggleTaskEndpoint(svc)
		toggleTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "ToggleTask"))(toggleTaskEndpoint)
	}

	var deleteTaskEndpoint endpoint.Endpoint
	{
		deleteTaskEndpoint = MakeDeleteTaskEndpoint(svc)
		deleteTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "DeleteTask"))(deleteTaskEndpoint)
	}

	return Set{
		CreateTaskEndpoint: createTaskEndpoint,
		TasksEndpoint:      tasksEndpoint,
		TaskEndpoint:       taskEndpoint,
		UpdateTaskEndpoint: updateTaskEndpoint,
		ToggleTaskEndpoint: toggleTaskEndpoint,
		DeleteTaskEndpoint: deleteTaskEndpoint,
	}
}

// Wrap applies mw to every endpoint of the set.
func (s Set) Wrap(mw endpoint.Middleware) Set {
	return Set{
		CreateTaskEndpoint: mw(s.CreateTaskEndpoint),
		TasksEndpoint:      mw(s.TasksEndpoint),
		TaskEndpoint:       mw(s.TaskEndpoint),
		UpdateTaskEndpoint: mw(s.UpdateTaskEndpoint),
		ToggleTaskEndpoint: mw(s.ToggleTaskEndpoint),
		DeleteTaskEndpoint: mw(s.DeleteTaskEndpoint),
	}
}

func (s Set) CreateTask(ctx context.Context, ownerID string, d tasksvc.Draft) (tasksvc.Task, error) {
	resp, err := s.CreateTaskEndpoint(ctx, CreateTaskRequest{OwnerID: ownerID, Title: d.Title, Description: d.Description})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(CreateTaskResponse)
	return response.Task, response.Err
}

func (s Set) Tasks(ctx context.Context, ownerID string, status *tasksvc.Status) ([]tasksvc.Task, error) {
	resp, err := s.TasksEndpoint(ctx, TasksRequest{OwnerID: ownerID, Status: status})
	if err != nil {
		return nil, err
	}
	response := resp.(TasksResponse)
	return response.Tasks, response.Err
}

func (s Set) Task(ctx context.Context, ownerID, taskID string) (tasksvc.Task, error) {
	resp, err := s.TaskEndpoint(ctx, TaskRequest{OwnerID: ownerID, TaskID: taskID})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(TaskResponse)
	return response.Task, response.Err
}

func (s Set) UpdateTask(ctx context.Context, ownerID, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	req := UpdateTaskRequest{
		OwnerID:     ownerID,
		TaskID:      taskID,
		Title:       p.Title,
		Description: p.Description,
	}
	if p.Status != nil {
		status := string(*p.Status)
		req.Status = &status
	}

	resp, err := s.UpdateTaskEndpoint(ctx, req)
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(UpdateTaskResponse)
	return response.Task, response.Err
}

func (s Set) ToggleTask(ctx context.Context, ownerID, taskID string) (tasksvc.Task, error) {
	resp, err := s.ToggleTaskEndpoint(ctx, ToggleTaskRequest{OwnerID: ownerID, TaskID: taskID})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(ToggleTaskResponse)
	return response.Task, response.Err
}

func (s Set) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	resp, err := s.DeleteTaskEndpoint(ctx, DeleteTaskRequest{OwnerID: ownerID, TaskID: taskID})
	if err != nil {
		return err
	}
	response := resp.(DeleteTaskResponse)
	return response.Err
}

func MakeCreateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		ownerID, err := principal(ctx)
		if err != nil {
			return CreateTaskResponse{Err: err}, nil
		}

		req := request.(CreateTaskRequest)
		t, err := s.CreateTask(ctx, ownerID, tasksvc.Draft{Title: req.Title, Description: req.Description})
		return CreateTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeTasksEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		ownerID, err := principal(ctx)
		if err != nil {
			return TasksResponse{Err: err}, nil
		}

		req := request.(TasksRequest)
		t, err := s.Tasks(ctx, ownerID, req.Status)
		return TasksResponse{Tasks: t, Err: err}, nil
	}
}

func MakeTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		ownerID, err := principal(ctx)
		if err != nil {
			return TaskResponse{Err: err}, nil
		}

		req := request.(TaskRequest)
		t, err := s.Task(ctx, ownerID, req.TaskID)
		return TaskResponse{Task: t, Err: err}, nil
	}
}

func MakeUpdateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		ownerID, err := principal(ctx)
		if err != nil {
			return UpdateTaskResponse{Err: err}, nil
		}

		req := request.(UpdateTaskRequest)
		p, err := req.patch()
		if err != nil {
			return UpdateTaskResponse{Err: err}, nil
		}

		t, err := s.UpdateTask(ctx, ownerID, req.TaskID, p)
		return UpdateTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeToggleTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		ownerID, err := principal(ctx)
		if err != nil {
			return ToggleTaskResponse{Err: err}, nil
		}

		req := request.(ToggleTaskRequest)
		t, err := s.ToggleTask(ctx, ownerID, req.TaskID)
		return ToggleTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeDeleteTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		ownerID, err := principal(ctx)
		if err != nil {
			return DeleteTaskResponse{Err: err}, nil
		}

		req := request.(DeleteTaskRequest)
		err = s.DeleteTask(ctx, ownerID, req.TaskID)
		return DeleteTaskResponse{Err: err}, nil
	}
}

// principal is the owner every task operation is scoped to. It is never
// read from the request.
func principal(ctx context.Context) (string, error) {
	u, ok := authsvc.PrincipalFromContext(ctx)
	if !ok || u.ID == "" {
		return "", authsvc.ErrMissingCredentials
	}
	return u.ID, nil
}

var _ taskservice.Service = Set{}

var (
	_ endpoint.Failer = CreateTaskResponse{}
	_ endpoint.Failer = TasksResponse{}
	_ endpoint.Failer = TaskResponse{}
	_ endpoint.Failer = UpdateTaskResponse{}
	_ endpoint.Failer = ToggleTaskResponse{}
	_ endpoint.Failer = DeleteTaskResponse{}
)

type CreateTaskRequest struct {
	OwnerID     string `json:"-"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (r CreateTaskRequest) Owner() string { return r.OwnerID }

type CreateTaskResponse struct {
	Task tasksvc.Task
	Err  error
}

func (r CreateTaskResponse) Failed() error { return r.Err }

func (r CreateTaskResponse) StatusCode() int { return http.StatusCreated }

func (r CreateTaskResponse) MarshalJSON() ([]byte, error) { return json.Marshal(r.Task) }

func (r *CreateTaskResponse) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &r.Task) }

type TasksRequest struct {
	OwnerID string
	Status  *tasksvc.Status
}

func (r TasksRequest) Owner() string { return r.OwnerID }

// TasksResponse is encoded as a bare JSON array.
type TasksResponse struct {
	Tasks []tasksvc.Task
	Err   error
}

func (r TasksResponse) Failed() error { return r.Err }

func (r TasksResponse) MarshalJSON() ([]byte, error) {
	if r.Tasks == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Tasks)
}

func (r *TasksResponse) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &r.Tasks) }

type TaskRequest struct {
	OwnerID string
	TaskID  string
}

func (r TaskRequest) Owner() string { return r.OwnerID }

type TaskResponse struct {
	Task tasksvc.Task
	Err  error
}

func (r TaskResponse) Failed() error { return r.Err }

func (r TaskResponse) MarshalJSON() ([]byte, error) { return json.Marshal(r.Task) }

func (r *TaskResponse) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &r.Task) }

// UpdateTaskRequest carries only the fields present in the request body.
// Completed is the boolean form of Status.
type UpdateTaskRequest struct {
	OwnerID     string  `json:"-"`
	TaskID      string  `json:"-"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

func (r UpdateTaskRequest) Owner() string { return r.OwnerID }

func (r UpdateTaskRequest) patch() (tasksvc.Patch, error) {
	p := tasksvc.Patch{Title: r.Title, Description: r.Description}

	if r.Status != nil {
		s, err := tasksvc.ParseStatus(*r.Status)
		if err != nil {
			return tasksvc.Patch{}, invalid("status", err)
		}
		p.Status = &s
	}

	if r.Completed != nil {
		s := tasksvc.StatusOf(*r.Completed)
		if p.Status != nil && *p.Status != s {
			return tasksvc.Patch{}, invalid("completed", errConflictingStatus)
		}
		p.Status = &s
	}

	return p, nil
}

var errConflictingStatus = errors.New("conflicts with status")

func invalid(field string, err error) error {
	return validation.Errors{field: err.Error()}
}

type UpdateTaskResponse struct {
	Task tasksvc.Task
	Err  error
}

func (r UpdateTaskResponse) Failed() error { return r.Err }

func (r UpdateTaskResponse) MarshalJSON() ([]byte, error) { return json.Marshal(r.Task) }

func (r *UpdateTaskResponse) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &r.Task) }

type ToggleTaskRequest struct {
	OwnerID string
	TaskID  string
}

func (r ToggleTaskRequest) Owner() string { return r.OwnerID }

type ToggleTaskResponse struct {
	Task tasksvc.Task
	Err  error
}

func (r ToggleTaskResponse) Failed() error { return r.Err }

func (r ToggleTaskResponse) MarshalJSON() ([]byte, error) { return json.Marshal(r.Task) }

func (r *ToggleTaskResponse) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &r.Task) }

type DeleteTaskRequest struct {
	OwnerID string
	TaskID  string
}

func (r DeleteTaskRequest) Owner() string { return r.OwnerID }

type DeleteTaskResponse struct {
	Err error
}

func (r DeleteTaskResponse) Failed() error { return r.Err }

func (r DeleteTaskResponse) StatusCode() int { return http.StatusNoContent }
