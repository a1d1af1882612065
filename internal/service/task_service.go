package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/recurrence"
	"taskboard/internal/repository"
)

// DeleteScope selects how much of a recurring family a delete removes.
type DeleteScope string

const (
	DeleteSingle DeleteScope = "single"
	DeleteAll    DeleteScope = "all"
)

// TaskInput carries the fields a caller may set when creating a task.
type TaskInput struct {
	Text       string
	Date       *time.Time
	TimeOfDay  string
	Visibility string
	AssigneeID *uint
	Recurrence string
}

// TaskUpdate is a partial edit. Nil pointers mean "unchanged". Completed
// set together with other fields is rejected; a toggle is its own call.
type TaskUpdate struct {
	Completed  *bool
	Text       *string
	Date       *time.Time
	TimeOfDay  *string
	Visibility *string
	AssigneeID *uint
	Unassign   bool
	Recurrence *string
}

func (u TaskUpdate) hasFieldEdit() bool {
	return u.Text != nil || u.Date != nil || u.TimeOfDay != nil ||
		u.Visibility != nil || u.AssigneeID != nil || u.Unassign || u.Recurrence != nil
}

// TaskService exposes the task operations consumed by the API layer.
// Every read backfills recurrence instances first, then filters through
// the visibility scope, then orders.
type TaskService struct {
	tasks *repository.TaskRepository
	users *repository.UserRepository
	reqs  *repository.RequestRepository
	sync  *SyncService
	clock Clock
}

func NewTaskService(tasks *repository.TaskRepository, users *repository.UserRepository, reqs *repository.RequestRepository, sync *SyncService, clock Clock) *TaskService {
	return &TaskService{tasks: tasks, users: users, reqs: reqs, sync: sync, clock: clock}
}

// List returns the actor's visible tasks. completed=false yields pending
// tasks ordered by date, time and creation; completed=true yields completed
// ones ordered by completion time, newest first.
func (s *TaskService) List(ctx context.Context, actor model.User, completed bool) ([]model.Task, error) {
	if err := s.sync.SyncAll(ctx, s.sync.DefaultHorizon()); err != nil {
		return nil, err
	}
	return s.tasks.List(ctx, VisibleScope(actor), completed)
}

// ListByDate returns the actor's visible pending tasks on a specific date.
func (s *TaskService) ListByDate(ctx context.Context, actor model.User, date time.Time) ([]model.Task, error) {
	if err := s.sync.SyncAll(ctx, s.sync.DefaultHorizon()); err != nil {
		return nil, err
	}
	return s.tasks.ListByDate(ctx, VisibleScope(actor), recurrence.DateOnly(date))
}

// ListDates returns the dates bearing visible pending tasks. With a month
// hint only that calendar month is reported.
func (s *TaskService) ListDates(ctx context.Context, actor model.User, monthHint *time.Time) ([]time.Time, error) {
	if err := s.sync.SyncAll(ctx, s.sync.DefaultHorizon()); err != nil {
		return nil, err
	}
	var from, to *time.Time
	if monthHint != nil {
		y, m, _ := monthHint.Date()
		first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		from, to = &first, &last
	}
	dates, err := s.tasks.PendingDates(ctx, VisibleScope(actor), from, to)
	if err != nil {
		return nil, err
	}
	for i := range dates {
		dates[i] = recurrence.DateOnly(dates[i])
	}
	return dates, nil
}

// Get returns a single task if the actor may read it.
func (s *TaskService) Get(ctx context.Context, actor model.User, id uint) (*model.Task, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkView(ctx, actor, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Create validates, normalizes and stores a new parent task. Recurring
// dated parents are synchronized eagerly to the default horizon.
func (s *TaskService) Create(ctx context.Context, actor model.User, input TaskInput) (*model.Task, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}
	if input.Recurrence != "" && !recurrence.Known(input.Recurrence) {
		return nil, fmt.Errorf("%w: unknown recurrence %q", ErrValidation, input.Recurrence)
	}
	if input.Visibility != "" && !KnownVisibility(input.Visibility) {
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrValidation, input.Visibility)
	}
	if err := validateTimeOfDay(input.TimeOfDay); err != nil {
		return nil, err
	}

	assignee, err := s.resolveAssignee(ctx, input.AssigneeID)
	if err != nil {
		return nil, err
	}
	visibility, assigneeID := NormalizeAccess(actor, input.Visibility, assignee)

	task := model.Task{
		Text:       text,
		TimeOfDay:  input.TimeOfDay,
		OwnerID:    actor.ID,
		CreatorID:  actor.ID,
		AssigneeID: assigneeID,
		Visibility: visibility,
		Recurrence: input.Recurrence,
	}
	if input.Date != nil {
		d := recurrence.DateOnly(*input.Date)
		task.Date = &d
	}
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	if task.IsRecurringParent() {
		if err := s.sync.SyncParent(ctx, &task, s.sync.DefaultHorizon()); err != nil {
			return nil, err
		}
	}
	return &task, nil
}

// Update applies an admin edit. Completion toggles touch only the target
// row. A recurrence or start-date change on a parent drops its future
// incomplete instances and regenerates them; other field edits propagate to
// the whole family; a date edit on an instance moves that instance alone.
func (s *TaskService) Update(ctx context.Context, actor model.User, id uint, upd TaskUpdate) (*model.Task, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanEdit(actor) {
		return nil, ErrForbidden
	}

	if upd.Completed != nil {
		if upd.hasFieldEdit() {
			return nil, fmt.Errorf("%w: completion toggle cannot be combined with field edits", ErrValidation)
		}
		return s.setCompleted(ctx, task, *upd.Completed)
	}

	if task.IsInstance() {
		return s.updateInstance(ctx, task, upd)
	}
	return s.updateParent(ctx, task, upd)
}

func (s *TaskService) setCompleted(ctx context.Context, task *model.Task, done bool) (*model.Task, error) {
	task.Completed = done
	if done {
		now := s.clock.Now()
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
	if err := s.tasks.UpdateFields(ctx, task.ID, map[string]interface{}{
		"completed":    task.Completed,
		"completed_at": task.CompletedAt,
	}); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) updateInstance(ctx context.Context, task *model.Task, upd TaskUpdate) (*model.Task, error) {
	if upd.Recurrence != nil {
		return nil, fmt.Errorf("%w: recurrence can only change on the parent task", ErrValidation)
	}
	// Validate every field before the first write so a rejected update
	// leaves no partial state behind.
	fields, err := s.sharedFieldUpdates(ctx, task, upd)
	if err != nil {
		return nil, err
	}
	// A date edit is scoped to this one occurrence.
	if upd.Date != nil {
		d := recurrence.DateOnly(*upd.Date)
		if err := s.tasks.UpdateFields(ctx, task.ID, map[string]interface{}{"date": d}); err != nil {
			return nil, err
		}
		task.Date = &d
	}
	// Remaining fields propagate through the family, as if edited on the
	// parent.
	if len(fields) > 0 {
		if err := s.tasks.UpdateFamilyFields(ctx, *task.ParentID, fields); err != nil {
			return nil, err
		}
	}
	return s.tasks.FindByID(ctx, task.ID)
}

func (s *TaskService) updateParent(ctx context.Context, task *model.Task, upd TaskUpdate) (*model.Task, error) {
	if upd.Recurrence != nil && *upd.Recurrence != "" && !recurrence.Known(*upd.Recurrence) {
		return nil, fmt.Errorf("%w: unknown recurrence %q", ErrValidation, *upd.Recurrence)
	}
	// Validate every field before the first write so a rejected update
	// leaves no partial state behind.
	fields, err := s.sharedFieldUpdates(ctx, task, upd)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := s.tasks.UpdateFamilyFields(ctx, task.ID, fields); err != nil {
			return nil, err
		}
	}

	recChanged := upd.Recurrence != nil && *upd.Recurrence != task.Recurrence
	dateChanged := upd.Date != nil && !sameDate(task.Date, upd.Date)
	if !recChanged && !dateChanged {
		return s.tasks.FindByID(ctx, task.ID)
	}

	own := map[string]interface{}{}
	if recChanged {
		own["recurrence"] = *upd.Recurrence
	}
	if dateChanged {
		d := recurrence.DateOnly(*upd.Date)
		own["date"] = d
	}
	if err := s.tasks.UpdateFields(ctx, task.ID, own); err != nil {
		return nil, err
	}

	// The schedule changed: future incomplete instances are stale. Drop and
	// regenerate them; past and completed ones stay untouched.
	today := recurrence.DateOnly(s.clock.Now())
	if err := s.tasks.DeleteFutureIncompleteInstances(ctx, task.ID, today); err != nil {
		return nil, err
	}
	fresh, err := s.tasks.FindByID(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if err := s.sync.SyncParent(ctx, fresh, s.sync.DefaultHorizon()); err != nil {
		return nil, err
	}
	return fresh, nil
}

// sharedFieldUpdates collects the non-date, non-recurrence edits that apply
// to a parent and all its instances uniformly, re-running write-time
// normalization when assignment or visibility moves.
func (s *TaskService) sharedFieldUpdates(ctx context.Context, task *model.Task, upd TaskUpdate) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if upd.Text != nil {
		text := strings.TrimSpace(*upd.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: text is required", ErrValidation)
		}
		fields["text"] = text
	}
	if upd.TimeOfDay != nil {
		if err := validateTimeOfDay(*upd.TimeOfDay); err != nil {
			return nil, err
		}
		fields["time_of_day"] = *upd.TimeOfDay
	}

	if upd.AssigneeID == nil && !upd.Unassign && upd.Visibility == nil {
		return fields, nil
	}

	requested := task.Visibility
	if upd.Visibility != nil {
		if !KnownVisibility(*upd.Visibility) {
			return nil, fmt.Errorf("%w: unknown visibility %q", ErrValidation, *upd.Visibility)
		}
		requested = *upd.Visibility
	}

	assigneeID := task.AssigneeID
	if upd.Unassign {
		assigneeID = nil
	}
	if upd.AssigneeID != nil {
		assigneeID = upd.AssigneeID
	}
	assignee, err := s.resolveAssignee(ctx, assigneeID)
	if err != nil {
		return nil, err
	}

	creator, err := s.users.FindByID(ctx, task.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("load creator: %w", err)
	}
	visibility, normalizedID := NormalizeAccess(*creator, requested, assignee)
	fields["visibility"] = visibility
	fields["assignee_id"] = normalizedID
	return fields, nil
}

// Delete removes a task. DeleteSingle removes one row: an instance, or a
// standalone parent. Deleting a recurring parent, or any delete with
// DeleteAll, removes the whole family, so instances are never orphaned.
func (s *TaskService) Delete(ctx context.Context, actor model.User, id uint, scope DeleteScope) error {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return err
	}
	if !CanEdit(actor) {
		return ErrForbidden
	}

	parentID := task.ID
	if task.ParentID != nil {
		parentID = *task.ParentID
	}
	switch scope {
	case DeleteSingle:
		if task.IsInstance() || !task.IsRecurringParent() {
			return s.tasks.Delete(ctx, task.ID)
		}
		return s.tasks.DeleteFamily(ctx, parentID)
	case DeleteAll:
		return s.tasks.DeleteFamily(ctx, parentID)
	default:
		return fmt.Errorf("%w: unknown delete scope %q", ErrValidation, scope)
	}
}

// RequestCompletion records a regular user's ask to complete a task. It is
// idempotent per (task, requester) while pending.
func (s *TaskService) RequestCompletion(ctx context.Context, actor model.User, taskID uint) (*model.CompletionRequest, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.checkView(ctx, actor, task); err != nil {
		return nil, err
	}
	if task.Completed {
		return nil, fmt.Errorf("%w: task is already completed", ErrValidation)
	}
	return s.reqs.GetOrCreateCompletion(ctx, task.ID, actor.ID)
}

// ListCompletionRequests returns pending requests, admin only.
func (s *TaskService) ListCompletionRequests(ctx context.Context, actor model.User) ([]model.CompletionRequest, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	return s.reqs.ListPendingCompletions(ctx)
}

// ResolveCompletion approves or rejects a pending request. Approval marks
// the task complete in the same transaction.
func (s *TaskService) ResolveCompletion(ctx context.Context, actor model.User, requestID uint, approve bool) error {
	req, err := s.reqs.FindCompletionByID(ctx, requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !actor.IsAdmin {
		return ErrForbidden
	}
	if req.Status != model.RequestPending {
		return fmt.Errorf("%w: request already resolved", ErrValidation)
	}
	status := model.RequestRejected
	if approve {
		status = model.RequestApproved
	}
	return s.reqs.ResolveCompletion(ctx, req.ID, status, actor.ID, s.clock.Now())
}

func (s *TaskService) loadTask(ctx context.Context, id uint) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// checkView loads the creator/assignee roles and applies CanView. The
// entity exists here, so a negative answer is ErrForbidden, not ErrNotFound.
func (s *TaskService) checkView(ctx context.Context, actor model.User, task *model.Task) error {
	creator, err := s.users.FindByID(ctx, task.CreatorID)
	if err != nil {
		return fmt.Errorf("load creator: %w", err)
	}
	var assignee *model.User
	if task.AssigneeID != nil {
		assignee, err = s.users.FindByID(ctx, *task.AssigneeID)
		if err != nil {
			return fmt.Errorf("load assignee: %w", err)
		}
	}
	if !CanView(actor, *task, *creator, assignee) {
		return ErrForbidden
	}
	return nil
}

// resolveAssignee rejects references to nonexistent users before any write.
func (s *TaskService) resolveAssignee(ctx context.Context, id *uint) (*model.User, error) {
	if id == nil {
		return nil, nil
	}
	user, err := s.users.FindByID(ctx, *id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: assignee %d does not exist", ErrValidation, *id)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func validateTimeOfDay(v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse("15:04", v); err != nil {
		return fmt.Errorf("%w: time must be HH:MM", ErrValidation)
	}
	return nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return recurrence.DateOnly(*a).Equal(recurrence.DateOnly(*b))
}
