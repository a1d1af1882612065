package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"taskboard/internal/model"
	"taskboard/internal/recurrence"
	"taskboard/internal/repository"
)

// ReminderService builds daily digests of a user's visible pending tasks.
type ReminderService struct {
	tasks *repository.TaskRepository
	users *repository.UserRepository
	clock Clock
}

func NewReminderService(tasks *repository.TaskRepository, users *repository.UserRepository, clock Clock) *ReminderService {
	return &ReminderService{tasks: tasks, users: users, clock: clock}
}

// DailySummary renders the user's overdue and due-today tasks. The text is
// HTML-safe for Telegram's HTML parse mode.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	tasks, err := s.tasks.List(ctx, VisibleScope(user), false)
	if err != nil {
		return "", err
	}
	today := recurrence.DateOnly(now)

	var overdue, due []model.Task
	for _, task := range tasks {
		if task.Date == nil {
			continue
		}
		d := recurrence.DateOnly(*task.Date)
		switch {
		case d.Before(today):
			overdue = append(overdue, task)
		case d.Equal(today):
			due = append(due, task)
		}
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("<b>Tasks for %s</b>\n", today.Format("02.01.2006")))

	builder.WriteString("\n<b>Overdue</b>\n")
	if len(overdue) == 0 {
		builder.WriteString("— nothing overdue\n")
	} else {
		for _, task := range overdue {
			builder.WriteString(formatDigestLine(task))
		}
	}

	builder.WriteString("\n<b>Due today</b>\n")
	if len(due) == 0 {
		builder.WriteString("— nothing due today\n")
	} else {
		for _, task := range due {
			builder.WriteString(formatDigestLine(task))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// Broadcast sends the digest to every user with a linked chat. Per-user
// failures are logged and skipped.
func (s *ReminderService) Broadcast(ctx context.Context, send func(chatID int64, text string) error) error {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if user.TelegramChatID == 0 {
			continue
		}
		text, err := s.DailySummary(ctx, user, now)
		if err != nil {
			log.Printf("[warn] build digest for user %d: %v", user.ID, err)
			continue
		}
		if err := send(user.TelegramChatID, text); err != nil {
			log.Printf("[warn] send digest to user %d: %v", user.ID, err)
		}
	}
	return nil
}

func formatDigestLine(task model.Task) string {
	var sb strings.Builder
	sb.WriteString("• ")
	sb.WriteString(html.EscapeString(strings.TrimSpace(task.Text)))
	if task.TimeOfDay != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", task.TimeOfDay))
	}
	if task.Date != nil {
		sb.WriteString(fmt.Sprintf(" — %s", task.Date.Format("2006-01-02")))
	}
	sb.WriteByte('\n')
	return sb.String()
}
