package gorm

import (
	"context"
	"testing"
	"time"

	"github.com/ichigozero/todokit/usersvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	libgorm "gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *libgorm.DB {
	t.Helper()

	db, err := libgorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), &libgorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))
	now := time.Now().UTC()

	in := usersvc.User{
		ID:           "3f1c2a9e-4a55-4c39-9d64-5b8f9e0d1a11",
		Email:        "Alice@x.com",
		PasswordHash: "$2a$10$digest",
		CreatedAt:    now,
	}

	created, err := repo.Insert(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, in.ID, created.ID)

	byEmail, err := repo.FindByEmail(ctx, "Alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, in.ID, byEmail.ID)
	assert.Equal(t, in.PasswordHash, byEmail.PasswordHash)
	assert.True(t, in.CreatedAt.Equal(byEmail.CreatedAt))

	byID, err := repo.FindByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice@x.com", byID.Email)

	_, err = repo.FindByEmail(ctx, "bob@x.com")
	assert.ErrorIs(t, err, usersvc.ErrUserNotFound)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, usersvc.ErrUserNotFound)
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	_, err := repo.Insert(ctx, usersvc.User{ID: "u-1", Email: "a@x.com", PasswordHash: "h1", CreatedAt: time.Now()})
	require.NoError(t, err)

	_, err = repo.Insert(ctx, usersvc.User{ID: "u-2", Email: "a@x.com", PasswordHash: "h2", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, usersvc.ErrEmailExists)
}
