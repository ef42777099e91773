package taskservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/ichigozero/todokit/tasksvc"
)

type Middleware func(Service) Service

func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) CreateTask(ctx context.Context, ownerID string, d tasksvc.Draft) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "CreateTask",
			"user_id", ownerID,
			"task_id", t.ID,
			"title", d.Title,
			"err", err,
		)
	}()
	return mw.next.CreateTask(ctx, ownerID, d)
}

func (mw loggingMiddleware) Tasks(ctx context.Context, ownerID string, status *tasksvc.Status) (t []tasksvc.Task, err error) {
	defer func() {
		filter := "any"
		if status != nil {
			filter = string(*status)
		}
		mw.logger.Log(
			"method", "Tasks",
			"user_id", ownerID,
			"status", filter,
			"count", len(t),
			"err", err,
		)
	}()
	return mw.next.Tasks(ctx, ownerID, status)
}

func (mw loggingMiddleware) Task(ctx context.Context, ownerID, taskID string) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Task",
			"user_id", ownerID,
			"task_id", taskID,
			"err", err,
		)
	}()
	return mw.next.Task(ctx, ownerID, taskID)
}

func (mw loggingMiddleware) UpdateTask(ctx context.Context, ownerID, taskID string, p tasksvc.Patch) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "UpdateTask",
			"user_id", ownerID,
			"task_id", taskID,
			"status", t.Status,
			"err", err,
		)
	}()
	return mw.next.UpdateTask(ctx, ownerID, taskID, p)
}

func (mw loggingMiddleware) ToggleTask(ctx context.Context, ownerID, taskID string) (t tasksvc.Task, err error) {
	defer func() {
		mw.logger.Log(
			"method", "ToggleTask",
			"user_id", ownerID,
			"task_id", taskID,
			"status", t.Status,
			"err", err,
		)
	}()
	return mw.next.ToggleTask(ctx, ownerID, taskID)
}

func (mw loggingMiddleware) DeleteTask(ctx context.Context, ownerID, taskID string) (err error) {
	defer func() {
		mw.logger.Log(
			"method", "DeleteTask",
			"user_id", ownerID,
			"task_id", taskID,
			"err", err,
		)
	}()
	return mw.next.DeleteTask(ctx, ownerID, taskID)
}

func InstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{counter, latency, next}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw instrumentingMiddleware) observe(method string, begin time.Time) {
	mw.requestCount.With("method", method).Add(1)
	mw.requestLatency.With("method", method).Observe(time.Since(begin).Seconds())
}

func (mw instrumentingMiddleware) CreateTask(ctx context.Context, ownerID string, d tasksvc.Draft) (tasksvc.Task, error) {
	defer mw.observe("create_task", time.Now())
	return mw.next.CreateTask(ctx, ownerID, d)
}

func (mw instrumentingMiddleware) Tasks(ctx context.Context, ownerID string, status *tasksvc.Status) ([]tasksvc.Task, error) {
	defer mw.observe("tasks", time.Now())
	return mw.next.Tasks(ctx, ownerID, status)
}

func (mw instrumentingMiddleware) Task(ctx context.Context, ownerID, taskID string) (tasksvc.Task, error) {
	defer mw.observe("task", time.Now())
	return mw.next.Task(ctx, ownerID, taskID)
}

func (mw instrumentingMiddleware) UpdateTask(ctx context.Context, ownerID, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	defer mw.observe("update_task", time.Now())
	return mw.next.UpdateTask(ctx, ownerID, taskID, p)
}

func (mw instrumentingMiddleware) ToggleTask(ctx context.Context, ownerID, taskID string) (tasksvc.Task, error) {
	defer mw.observe("toggle_task", time.Now())
	return mw.next.ToggleTask(ctx, ownerID, taskID)
}

func (mw instrumentingMiddleware) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	defer mw.observe("delete_task", time.Now())
	return mw.next.DeleteTask(ctx, ownerID, taskID)
}
