package taskservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"github.com/ichigozero/todokit/tasksvc"
)

// Service operates on the tasks of one owner. Callers must have checked
// that the principal is ownerID before calling.
type Service interface {
	CreateTask(ctx context.Context, ownerID string, d tasksvc.Draft) (tasksvc.Task, error)
	Tasks(ctx context.Context, ownerID string, status *tasksvc.Status) ([]tasksvc.Task, error)
	Task(ctx context.Context, ownerID, taskID string) (tasksvc.Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID string, p tasksvc.Patch) (tasksvc.Task, error)
	ToggleTask(ctx context.Context, ownerID, taskID string) (tasksvc.Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) error
}

func New(t tasksvc.TaskRepository, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(t)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	tasks tasksvc.TaskRepository
	now   func() time.Time
}

func NewBasicService(t tasksvc.TaskRepository) Service {
	return basicService{
		tasks: t,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s basicService) CreateTask(ctx context.Context, ownerID string, d tasksvc.Draft) (tasksvc.Task, error) {
	task, err := tasksvc.NewTask(uuid.New().String(), ownerID, d, s.now())
	if err != nil {
		return tasksvc.Task{}, err
	}
	return s.tasks.Insert(ctx, task)
}

func (s basicService) Tasks(ctx context.Context, ownerID string, status *tasksvc.Status) ([]tasksvc.Task, error) {
	return s.tasks.ListByOwner(ctx, ownerID, status)
}

func (s basicService) Task(ctx context.Context, ownerID, taskID string) (tasksvc.Task, error) {
	return s.tasks.Find(ctx, ownerID, taskID)
}

func (s basicService) UpdateTask(ctx context.Context, ownerID, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	now := s.now()
	return s.tasks.Update(ctx, ownerID, taskID, func(t *tasksvc.Task) error {
		return t.Apply(p, now)
	})
}

func (s basicService) ToggleTask(ctx context.Context, ownerID, taskID string) (tasksvc.Task, error) {
	return s.tasks.Toggle(ctx, ownerID, taskID, s.now())
}

func (s basicService) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	return s.tasks.Delete(ctx, ownerID, taskID)
}
