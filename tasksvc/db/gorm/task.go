package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/ichigozero/todokit/tasksvc"
	stdgorm "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type task struct {
	ID          string    `gorm:"primaryKey;size:36"`
	UserID      string    `gorm:"size:36;not null;index"`
	User        owner     `gorm:"constraint:OnDelete:CASCADE"`
	Title       string    `gorm:"size:255;not null"`
	Description string    `gorm:"size:2000"`
	Status      string    `gorm:"size:50;not null;default:pending"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (task) TableName() string { return "tasks" }

// owner only exists to declare the foreign key; the users table belongs to
// the identity store.
type owner struct {
	ID string `gorm:"primaryKey;size:36"`
}

func (owner) TableName() string { return "users" }

func fromDomain(t tasksvc.Task) task {
	return task{
		ID:          t.ID,
		UserID:      t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (t task) toDomain() tasksvc.Task {
	return tasksvc.Task{
		ID:          t.ID,
		OwnerID:     t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      tasksvc.Status(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// Migrate creates or updates the tasks table.
func Migrate(db *stdgorm.DB) error {
	return db.AutoMigrate(&task{})
}

type taskRepository struct {
	db *stdgorm.DB
}

func NewTaskRepository(db *stdgorm.DB) tasksvc.TaskRepository {
	return &taskRepository{db}
}

func (r taskRepository) Insert(ctx context.Context, in tasksvc.Task) (tasksvc.Task, error) {
	t := fromDomain(in)
	result := r.db.WithContext(ctx).Omit(clause.Associations).Create(&t)
	if result.Error != nil {
		return tasksvc.Task{}, result.Error
	}

	return t.toDomain(), nil
}

func (r taskRepository) Find(ctx context.Context, ownerID, taskID string) (tasksvc.Task, error) {
	return find(r.db.WithContext(ctx), ownerID, taskID)
}

func (r taskRepository) ListByOwner(ctx context.Context, ownerID string, status *tasksvc.Status) ([]tasksvc.Task, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if status != nil {
		q = q.Where("status = ?", string(*status))
	}

	var rows []task
	result := q.Order("created_at DESC").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	tasks := make([]tasksvc.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toDomain())
	}
	return tasks, nil
}

func (r taskRepository) Update(ctx context.Context, ownerID, taskID string, mutate func(*tasksvc.Task) error) (tasksvc.Task, error) {
	var updated tasksvc.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *stdgorm.DB) error {
		t, err := find(tx, ownerID, taskID)
		if err != nil {
			return err
		}

		if err := mutate(&t); err != nil {
			return err
		}

		result := tx.Model(&task{}).
			Where("id = ? AND user_id = ?", taskID, ownerID).
			Updates(map[string]interface{}{
				"title":       t.Title,
				"description": t.Description,
				"status":      string(t.Status),
				"updated_at":  t.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}

		updated = t
		return nil
	})

	return updated, err
}

func (r taskRepository) Toggle(ctx context.Context, ownerID, taskID string, at time.Time) (tasksvc.Task, error) {
	var toggled tasksvc.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *stdgorm.DB) error {
		result := tx.Model(&task{}).
			Where("id = ? AND user_id = ?", taskID, ownerID).
			Updates(map[string]interface{}{
				"status": stdgorm.Expr(
					"CASE WHEN status = ? THEN ? ELSE ? END",
					string(tasksvc.StatusCompleted),
					string(tasksvc.StatusPending),
					string(tasksvc.StatusCompleted),
				),
				"updated_at": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return tasksvc.ErrTaskNotFound
		}

		t, err := find(tx, ownerID, taskID)
		if err != nil {
			return err
		}

		toggled = t
		return nil
	})

	return toggled, err
}

func (r taskRepository) Delete(ctx context.Context, ownerID, taskID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", taskID, ownerID).
		Delete(&task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tasksvc.ErrTaskNotFound
	}

	return nil
}

func find(db *stdgorm.DB, ownerID, taskID string) (tasksvc.Task, error) {
	var t task
	result := db.Where("id = ? AND user_id = ?", taskID, ownerID).First(&t)
	if errors.Is(result.Error, stdgorm.ErrRecordNotFound) {
		return tasksvc.Task{}, tasksvc.ErrTaskNotFound
	}
	if result.Error != nil {
		return tasksvc.Task{}, result.Error
	}

	return t.toDomain(), nil
}
