package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskboard/internal/model"
)

// RequestRepository handles completion and account requests.
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// GetOrCreateCompletion returns the requester's pending request for a task,
// creating it when absent.
func (r *RequestRepository) GetOrCreateCompletion(ctx context.Context, taskID, requesterID uint) (*model.CompletionRequest, error) {
	var req model.CompletionRequest
	db := r.db.WithContext(ctx)
	err := db.Where("task_id = ? AND requester_id = ? AND status = ?",
		taskID, requesterID, model.RequestPending).First(&req).Error
	switch {
	case err == nil:
		return &req, nil
	case err == gorm.ErrRecordNotFound:
		req = model.CompletionRequest{TaskID: taskID, RequesterID: requesterID, Status: model.RequestPending}
		if err := db.Create(&req).Error; err != nil {
			return nil, fmt.Errorf("create completion request: %w", err)
		}
		return &req, nil
	default:
		return nil, fmt.Errorf("find completion request: %w", err)
	}
}

func (r *RequestRepository) FindCompletionByID(ctx context.Context, id uint) (*model.CompletionRequest, error) {
	var req model.CompletionRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepository) ListPendingCompletions(ctx context.Context) ([]model.CompletionRequest, error) {
	var reqs []model.CompletionRequest
	if err := r.db.WithContext(ctx).Where("status = ?", model.RequestPending).
		Order("created_at ASC").Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("list completion requests: %w", err)
	}
	return reqs, nil
}

// ResolveCompletion updates the request status and, on approval, marks the
// task complete, both in one transaction.
func (r *RequestRepository) ResolveCompletion(ctx context.Context, reqID uint, status string, resolverID uint, completedAt time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.CompletionRequest
		if err := tx.First(&req, reqID).Error; err != nil {
			return err
		}
		if err := tx.Model(&req).Updates(map[string]interface{}{
			"status":      status,
			"resolved_by": resolverID,
		}).Error; err != nil {
			return err
		}
		if status != model.RequestApproved {
			return nil
		}
		return tx.Model(&model.Task{}).Where("id = ?", req.TaskID).Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": completedAt,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("resolve completion request: %w", err)
	}
	return nil
}

func (r *RequestRepository) CreateAccount(ctx context.Context, req *model.AccountRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("create account request: %w", err)
	}
	return nil
}

func (r *RequestRepository) FindAccountByID(ctx context.Context, id uint) (*model.AccountRequest, error) {
	var req model.AccountRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepository) FindPendingAccountByName(ctx context.Context, name string) (*model.AccountRequest, error) {
	var req model.AccountRequest
	if err := r.db.WithContext(ctx).Where("name = ? AND status = ?", name, model.RequestPending).
		First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepository) ListPendingAccounts(ctx context.Context) ([]model.AccountRequest, error) {
	var reqs []model.AccountRequest
	if err := r.db.WithContext(ctx).Where("status = ?", model.RequestPending).
		Order("created_at ASC").Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("list account requests: %w", err)
	}
	return reqs, nil
}

// ResolveAccount updates the request and, on approval, creates the user in
// the same transaction. The created user is returned on approval.
func (r *RequestRepository) ResolveAccount(ctx context.Context, reqID uint, status string, resolverID uint) (*model.User, error) {
	var created *model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.AccountRequest
		if err := tx.First(&req, reqID).Error; err != nil {
			return err
		}
		if err := tx.Model(&req).Updates(map[string]interface{}{
			"status":      status,
			"resolved_by": resolverID,
		}).Error; err != nil {
			return err
		}
		if status != model.RequestApproved {
			return nil
		}
		user := model.User{Name: req.Name, PasswordHash: req.PasswordHash}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		created = &user
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve account request: %w", err)
	}
	return created, nil
}
