package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/ichigozero/todokit/usersvc"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/mattn/go-sqlite3"
	libgorm "gorm.io/gorm"
)

type user struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Email        string    `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (user) TableName() string { return "users" }

func (u user) toDomain() usersvc.User {
	return usersvc.User{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

// Migrate creates or updates the users table. It must run before the tasks
// table is migrated.
func Migrate(db *libgorm.DB) error {
	return db.AutoMigrate(&user{})
}

type userRepository struct {
	db *libgorm.DB
}

func NewUserRepository(db *libgorm.DB) usersvc.UserRepository {
	return &userRepository{db}
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (usersvc.User, error) {
	var u user
	result := r.db.WithContext(ctx).Where("email = ?", email).First(&u)

	return u.toDomain(), translate(result.Error)
}

func (r *userRepository) FindByID(ctx context.Context, id string) (usersvc.User, error) {
	var u user
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&u)

	return u.toDomain(), translate(result.Error)
}

func (r *userRepository) Insert(ctx context.Context, in usersvc.User) (usersvc.User, error) {
	u := user{
		ID:           in.ID,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    in.CreatedAt,
	}
	result := r.db.WithContext(ctx).Create(&u)
	if result.Error != nil {
		return usersvc.User{}, translate(result.Error)
	}

	return u.toDomain(), nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, libgorm.ErrRecordNotFound) {
		return usersvc.ErrUserNotFound
	}
	if isUniqueViolation(err) {
		return usersvc.ErrEmailExists
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	return false
}
