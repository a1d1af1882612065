package testutil

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"taskboard/internal/model"
)

// NewUser persists a user and returns it.
func NewUser(t *testing.T, db *gorm.DB, name string, admin bool) model.User {
	t.Helper()
	user := model.User{Name: name, PasswordHash: "x", IsAdmin: admin}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

// TaskOption mutates a task fixture before it is persisted.
type TaskOption func(*model.Task)

func WithDate(d time.Time) TaskOption {
	return func(t *model.Task) { t.Date = &d }
}

func WithRecurrence(pattern string) TaskOption {
	return func(t *model.Task) { t.Recurrence = pattern }
}

func WithVisibility(v string) TaskOption {
	return func(t *model.Task) { t.Visibility = v }
}

func WithAssignee(id uint) TaskOption {
	return func(t *model.Task) { t.AssigneeID = &id }
}

func WithParent(id uint) TaskOption {
	return func(t *model.Task) { t.ParentID = &id }
}

func WithCompleted(at time.Time) TaskOption {
	return func(t *model.Task) {
		t.Completed = true
		t.CompletedAt = &at
	}
}

func WithTimeOfDay(hhmm string) TaskOption {
	return func(t *model.Task) { t.TimeOfDay = hhmm }
}

// NewTask persists a task created by the given user and returns it.
func NewTask(t *testing.T, db *gorm.DB, creator model.User, text string, opts ...TaskOption) model.Task {
	t.Helper()
	task := model.Task{
		Text:       text,
		OwnerID:    creator.ID,
		CreatorID:  creator.ID,
		Visibility: model.VisibilityAll,
	}
	for _, opt := range opts {
		opt(&task)
	}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("create task %q: %v", text, err)
	}
	return task
}
