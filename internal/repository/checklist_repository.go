package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskboard/internal/model"
)

// ChecklistRepository handles CRUD for task checklist items.
type ChecklistRepository struct {
	db *gorm.DB
}

func NewChecklistRepository(db *gorm.DB) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

func (r *ChecklistRepository) Create(ctx context.Context, item *model.ChecklistItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("create checklist item: %w", err)
	}
	return nil
}

func (r *ChecklistRepository) FindByID(ctx context.Context, id uint) (*model.ChecklistItem, error) {
	var item model.ChecklistItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *ChecklistRepository) ListByTask(ctx context.Context, taskID uint) ([]model.ChecklistItem, error) {
	var items []model.ChecklistItem
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list checklist items: %w", err)
	}
	return items, nil
}

func (r *ChecklistRepository) Save(ctx context.Context, item *model.ChecklistItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("save checklist item: %w", err)
	}
	return nil
}

func (r *ChecklistRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.ChecklistItem{}, id).Error; err != nil {
		return fmt.Errorf("delete checklist item: %w", err)
	}
	return nil
}
