package tasksvc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ichigozero/todokit/validation"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// ParseStatus accepts only the enumerated values.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusCompleted:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// StatusOf translates the legacy boolean completion flag.
func StatusOf(completed bool) Status {
	if completed {
		return StatusCompleted
	}
	return StatusPending
}

func (s Status) Toggle() Status {
	if s == StatusCompleted {
		return StatusPending
	}
	return StatusCompleted
}

type Task struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (t Task) Completed() bool { return t.Status == StatusCompleted }

// MarshalJSON adds the derived completed flag for clients of the boolean
// representation.
func (t Task) MarshalJSON() ([]byte, error) {
	type task Task
	return json.Marshal(struct {
		task
		Completed bool `json:"completed"`
	}{task(t), t.Completed()})
}

// Draft is the client input accepted on creation. Owner, status and
// timestamps are never taken from it.
type Draft struct {
	Title       string
	Description string
}

// Patch is a sparse update. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Status      *Status
}

const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 2000
)

// NewTask applies the creation rules to d.
func NewTask(id, ownerID string, d Draft, now time.Time) (Task, error) {
	errs := validation.Errors{}
	title := checkTitle(errs, d.Title)
	checkDescription(errs, d.Description)
	if err := errs.Err(); err != nil {
		return Task{}, err
	}

	return Task{
		ID:          id,
		OwnerID:     ownerID,
		Title:       title,
		Description: d.Description,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Apply merges p into t. Nothing is changed when p is invalid; otherwise
// UpdatedAt is set to now even if p is empty.
func (t *Task) Apply(p Patch, now time.Time) error {
	errs := validation.Errors{}

	var title string
	if p.Title != nil {
		title = checkTitle(errs, *p.Title)
	}
	if p.Description != nil {
		checkDescription(errs, *p.Description)
	}
	if p.Status != nil {
		if _, err := ParseStatus(string(*p.Status)); err != nil {
			errs.Add("status", err.Error())
		}
	}
	if err := errs.Err(); err != nil {
		return err
	}

	if p.Title != nil {
		t.Title = title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	t.UpdatedAt = now

	return nil
}

func checkTitle(errs validation.Errors, title string) string {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		errs.Add("title", "must not be empty")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		errs.Add("title", "must be at most 255 characters")
	}
	return title
}

func checkDescription(errs validation.Errors, description string) {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		errs.Add("description", "must be at most 2000 characters")
	}
}

// TaskRepository is the task store. Every method is scoped to ownerID and
// reports a task owned by someone else as ErrTaskNotFound.
type TaskRepository interface {
	Insert(ctx context.Context, task Task) (Task, error)
	Find(ctx context.Context, ownerID, taskID string) (Task, error)
	ListByOwner(ctx context.Context, ownerID string, status *Status) ([]Task, error)
	// Update loads the task, passes it to mutate and saves the result in a
	// single transaction. A mutate error aborts the update.
	Update(ctx context.Context, ownerID, taskID string, mutate func(*Task) error) (Task, error)
	// Toggle flips the status in one conditional statement.
	Toggle(ctx context.Context, ownerID, taskID string, at time.Time) (Task, error)
	Delete(ctx context.Context, ownerID, taskID string) error
}

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrInvalidStatus = errors.New("status must be one of pending, completed")
)
