package service

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"taskboard/internal/repository"
	"taskboard/internal/testutil"
)

// fakeClock pins "now" for deterministic horizon math.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type testEnv struct {
	db    *gorm.DB
	clock *fakeClock

	users    *repository.UserRepository
	tasks    *repository.TaskRepository
	items    *repository.ChecklistRepository
	reqs     *repository.RequestRepository
	sessions *repository.SessionRepository

	sync        *SyncService
	taskSvc     *TaskService
	checklists  *ChecklistService
	auth        *AuthService
	maintenance *MaintenanceService
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	clock := &fakeClock{now: now}

	env := &testEnv{
		db:       db,
		clock:    clock,
		users:    repository.NewUserRepository(db),
		tasks:    repository.NewTaskRepository(db),
		items:    repository.NewChecklistRepository(db),
		reqs:     repository.NewRequestRepository(db),
		sessions: repository.NewSessionRepository(db),
	}
	env.sync = NewSyncService(env.tasks, clock)
	env.taskSvc = NewTaskService(env.tasks, env.users, env.reqs, env.sync, clock)
	env.checklists = NewChecklistService(env.items, env.taskSvc)
	env.auth = NewAuthService(env.users, env.reqs, env.sessions, clock, 24*time.Hour)
	env.maintenance = NewMaintenanceService(env.tasks, env.sessions, env.sync, clock)
	return env
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
