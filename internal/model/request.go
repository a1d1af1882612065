package model

import "time"

// Request statuses, shared by CompletionRequest and AccountRequest.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// CompletionRequest is a regular user's ask to mark a task complete.
// An admin resolves it; approval flips the task's completion flag.
type CompletionRequest struct {
	ID          uint   `gorm:"primaryKey"`
	TaskID      uint   `gorm:"index"`
	RequesterID uint   `gorm:"index"`
	Status      string `gorm:"default:pending"`
	ResolvedBy  *uint
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AccountRequest is a pending signup. An admin approving it creates the
// User; the stored hash is carried over so the password is never kept in
// clear anywhere.
type AccountRequest struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"index"`
	PasswordHash string
	Status       string `gorm:"default:pending"`
	ResolvedBy   *uint
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
