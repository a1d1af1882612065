package model

import "time"

// ChecklistItem is a sub-item of a task. Items follow the task's
// visibility and are removed together with it.
type ChecklistItem struct {
	ID        uint   `gorm:"primaryKey"`
	TaskID    uint   `gorm:"index"`
	Text      string `gorm:"not null"`
	Completed bool   `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
