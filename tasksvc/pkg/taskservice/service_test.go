package taskservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ichigozero/todokit/tasksvc"
	taskgorm "github.com/ichigozero/todokit/tasksvc/db/gorm"
	"github.com/ichigozero/todokit/usersvc"
	usergorm "github.com/ichigozero/todokit/usersvc/db/gorm"
	"github.com/ichigozero/todokit/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const owner = "8c7e2b1a-0f3d-4a5e-9b6c-1d2e3f4a5b6c"

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T) (Service, *clock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, usergorm.Migrate(db))
	require.NoError(t, taskgorm.Migrate(db))

	_, err = usergorm.NewUserRepository(db).Insert(context.Background(), usersvc.User{
		ID: owner, Email: "a@x.com", PasswordHash: "digest", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	c := &clock{t: time.Date(2026, 1, 14, 9, 30, 0, 0, time.UTC)}
	svc := NewBasicService(taskgorm.NewTaskRepository(db)).(basicService)
	svc.now = c.now
	return svc, c
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	svc, c := newTestService(t)

	task, err := svc.CreateTask(ctx, owner, tasksvc.Draft{Title: " x "})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "x", task.Title)
	assert.Equal(t, owner, task.OwnerID)
	assert.Equal(t, tasksvc.StatusPending, task.Status)
	assert.Equal(t, c.t, task.CreatedAt)
	assert.Equal(t, c.t, task.UpdatedAt)

	_, err = svc.CreateTask(ctx, owner, tasksvc.Draft{Title: "   "})
	var errs validation.Errors
	assert.True(t, errors.As(err, &errs))
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	svc, c := newTestService(t)

	created, err := svc.CreateTask(ctx, owner, tasksvc.Draft{Title: "x", Description: "d"})
	require.NoError(t, err)

	c.t = c.t.Add(time.Hour)
	updated, err := svc.UpdateTask(ctx, owner, created.ID, tasksvc.Patch{})
	require.NoError(t, err)
	assert.Equal(t, created.Title, updated.Title)
	assert.Equal(t, created.Description, updated.Description)
	assert.Equal(t, created.Status, updated.Status)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.Equal(t, c.t, updated.UpdatedAt)

	completed := tasksvc.StatusCompleted
	updated, err = svc.UpdateTask(ctx, owner, created.ID, tasksvc.Patch{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, tasksvc.StatusCompleted, updated.Status)

	bogus := tasksvc.Status("archived")
	_, err = svc.UpdateTask(ctx, owner, created.ID, tasksvc.Patch{Status: &bogus})
	var errs validation.Errors
	assert.True(t, errors.As(err, &errs))

	got, err := svc.Task(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, tasksvc.StatusCompleted, got.Status)

	_, err = svc.UpdateTask(ctx, owner, "missing", tasksvc.Patch{})
	assert.ErrorIs(t, err, tasksvc.ErrTaskNotFound)
}

func TestToggleTwiceRestores(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.CreateTask(ctx, owner, tasksvc.Draft{Title: "x"})
	require.NoError(t, err)

	once, err := svc.ToggleTask(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, tasksvc.StatusCompleted, once.Status)

	twice, err := svc.ToggleTask(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Status, twice.Status)
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.CreateTask(ctx, owner, tasksvc.Draft{Title: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, owner, created.ID))

	_, err = svc.Task(ctx, owner, created.ID)
	assert.ErrorIs(t, err, tasksvc.ErrTaskNotFound)
	assert.ErrorIs(t, svc.DeleteTask(ctx, owner, created.ID), tasksvc.ErrTaskNotFound)
}

func TestTasks(t *testing.T) {
	ctx := context.Background()
	svc, c := newTestService(t)

	first, err := svc.CreateTask(ctx, owner, tasksvc.Draft{Title: "first"})
	require.NoError(t, err)
	c.t = c.t.Add(time.Minute)
	second, err := svc.CreateTask(ctx, owner, tasksvc.Draft{Title: "second"})
	require.NoError(t, err)
	_, err = svc.ToggleTask(ctx, owner, first.ID)
	require.NoError(t, err)

	all, err := svc.Tasks(ctx, owner, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	pending := tasksvc.StatusPending
	open, err := svc.Tasks(ctx, owner, &pending)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	none, err := svc.Tasks(ctx, "someone-else", nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
