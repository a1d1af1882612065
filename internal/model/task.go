package model

import "time"

// Visibility tiers. Who can actually read a task also depends on the
// creator's and assignee's roles; see service.CanView.
const (
	VisibilityAll     = "all"
	VisibilityAdmins  = "admins"
	VisibilityPrivate = "private"
)

// Task is either a parent (ParentID unset; Recurrence, if any, drives
// instance generation) or an instance (ParentID set, pointing to a parent).
// Instances copy the parent's text/time/visibility/assignee at sync time
// but own their date and completion state. The (parent_id, date) unique
// index makes duplicate materialization a store-level no-op.
type Task struct {
	ID          uint       `gorm:"primaryKey"`
	Text        string     `gorm:"not null"`
	Date        *time.Time `gorm:"uniqueIndex:idx_task_parent_date"`
	TimeOfDay   string     // "HH:MM", empty when unset
	Completed   bool       `gorm:"default:false"`
	CompletedAt *time.Time
	OwnerID     uint   `gorm:"index"`
	CreatorID   uint   `gorm:"index"`
	AssigneeID  *uint  `gorm:"index"`
	Visibility  string `gorm:"default:all"`
	Recurrence  string // empty, or one of the recurrence package patterns
	ParentID    *uint  `gorm:"index;uniqueIndex:idx_task_parent_date"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Checklist []ChecklistItem `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// IsInstance reports whether the task is a materialized occurrence of a
// recurring parent.
func (t *Task) IsInstance() bool { return t.ParentID != nil }

// IsRecurringParent reports whether the task can spawn instances.
func (t *Task) IsRecurringParent() bool {
	return t.ParentID == nil && t.Recurrence != "" && t.Date != nil
}
