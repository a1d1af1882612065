package model

import "time"

// User is an account on the shared board. Admins may edit any task;
// regular users are limited to creating tasks and completion requests.
type User struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"uniqueIndex"`
	PasswordHash   string
	IsAdmin        bool  `gorm:"default:false"`
	TelegramChatID int64 // 0 when the user never linked a chat
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
