package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// ChecklistService manages sub-items of a task. Reading follows the task's
// visibility; mutation is admin-only, like the task itself.
type ChecklistService struct {
	items *repository.ChecklistRepository
	tasks *TaskService
}

func NewChecklistService(items *repository.ChecklistRepository, tasks *TaskService) *ChecklistService {
	return &ChecklistService{items: items, tasks: tasks}
}

// ListForTask returns the checklist of a task the actor may read.
func (s *ChecklistService) ListForTask(ctx context.Context, actor model.User, taskID uint) ([]model.ChecklistItem, error) {
	if _, err := s.tasks.Get(ctx, actor, taskID); err != nil {
		return nil, err
	}
	return s.items.ListByTask(ctx, taskID)
}

// Add appends an item to a task's checklist.
func (s *ChecklistService) Add(ctx context.Context, actor model.User, taskID uint, text string) (*model.ChecklistItem, error) {
	task, err := s.tasks.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(actor) {
		return nil, ErrForbidden
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}
	item := model.ChecklistItem{TaskID: task.ID, Text: text}
	if err := s.items.Create(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// SetCompleted toggles an item.
func (s *ChecklistService) SetCompleted(ctx context.Context, actor model.User, itemID uint, done bool) (*model.ChecklistItem, error) {
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(actor) {
		return nil, ErrForbidden
	}
	item.Completed = done
	if err := s.items.Save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes an item.
func (s *ChecklistService) Delete(ctx context.Context, actor model.User, itemID uint) error {
	if _, err := s.loadItem(ctx, itemID); err != nil {
		return err
	}
	if !CanEdit(actor) {
		return ErrForbidden
	}
	return s.items.Delete(ctx, itemID)
}

func (s *ChecklistService) loadItem(ctx context.Context, id uint) (*model.ChecklistItem, error) {
	item, err := s.items.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}
