package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/model"
	"taskboard/internal/recurrence"
	"taskboard/internal/testutil"
)

func TestCreate_RegularAuthorIsNormalized(t *testing.T) {
	env := newTestEnv(t, day(2024, time.March, 1))
	user := testutil.NewUser(t, env.db, "user", false)

	task, err := env.taskSvc.Create(context.Background(), user, TaskInput{
		Text:       "buy milk",
		Visibility: model.VisibilityPrivate, // ignored for regular authors
	})
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityAll, task.Visibility)
	require.NotNil(t, task.AssigneeID)
	assert.Equal(t, user.ID, *task.AssigneeID)
	assert.Equal(t, user.ID, task.CreatorID)
	assert.Equal(t, user.ID, task.OwnerID)
}

func TestCreate_Validation(t *testing.T) {
	env := newTestEnv(t, day(2024, time.March, 1))
	admin := testutil.NewUser(t, env.db, "admin", true)
	ctx := context.Background()

	_, err := env.taskSvc.Create(ctx, admin, TaskInput{Text: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.taskSvc.Create(ctx, admin, TaskInput{Text: "x", Recurrence: "hourly"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.taskSvc.Create(ctx, admin, TaskInput{Text: "x", Visibility: "everyone"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.taskSvc.Create(ctx, admin, TaskInput{Text: "x", TimeOfDay: "25:99"})
	assert.ErrorIs(t, err, ErrValidation)

	missing := uint(9999)
	_, err = env.taskSvc.Create(ctx, admin, TaskInput{Text: "x", AssigneeID: &missing})
	assert.ErrorIs(t, err, ErrValidation, "nonexistent assignee must be rejected before any write")

	var count int64
	require.NoError(t, env.db.Model(&model.Task{}).Count(&count).Error)
	assert.Zero(t, count, "failed creates must not leave rows behind")
}

func TestCreate_RecurringParentIsSyncedEagerly(t *testing.T) {
	now := day(2024, time.January, 15)
	env := newTestEnv(t, now)
	admin := testutil.NewUser(t, env.db, "admin", true)

	start := day(2024, time.January, 31)
	task, err := env.taskSvc.Create(context.Background(), admin, TaskInput{
		Text:       "pay rent",
		Date:       &start,
		Recurrence: recurrence.Monthly,
	})
	require.NoError(t, err)

	horizon := recurrence.DateOnly(now).AddDate(0, 0, DefaultHorizonDays)
	want := recurrence.Expand(start, recurrence.Monthly, horizon)
	assert.Equal(t, want, instanceDates(t, env, task.ID))
}

func TestList_BackfillsThenOrders(t *testing.T) {
	now := day(2024, time.June, 1)
	env := newTestEnv(t, now)
	admin := testutil.NewUser(t, env.db, "admin", true)
	ctx := context.Background()

	// Inserted straight through the repository, so only List's lazy
	// backfill can materialize the instances.
	parent := testutil.NewTask(t, env.db, admin, "recurring",
		testutil.WithDate(day(2024, time.June, 3)), testutil.WithRecurrence(recurrence.Weekly))

	testutil.NewTask(t, env.db, admin, "late", testutil.WithDate(day(2024, time.June, 2)), testutil.WithTimeOfDay("18:00"))
	testutil.NewTask(t, env.db, admin, "early", testutil.WithDate(day(2024, time.June, 2)), testutil.WithTimeOfDay("07:00"))
	testutil.NewTask(t, env.db, admin, "dateless")

	tasks, err := env.taskSvc.List(ctx, admin, false)
	require.NoError(t, err)
	require.NotEmpty(t, tasks)

	assert.NotEmpty(t, instanceDates(t, env, parent.ID), "listing must backfill recurring parents")

	assert.Equal(t, "early", tasks[0].Text)
	assert.Equal(t, "late", tasks[1].Text)
	assert.Equal(t, "dateless", tasks[len(tasks)-1].Text, "dateless tasks sort last")

	for i := 1; i < len(tasks)-1; i++ {
		if tasks[i-1].Date != nil && tasks[i].Date != nil {
			assert.False(t, tasks[i].Date.Before(*tasks[i-1].Date), "pending order must be date ascending")
		}
	}
}

func TestList_CompletedOrderedByCompletionDesc(t *testing.T) {
	env := newTestEnv(t, day(2024, time.June, 10))
	admin := testutil.NewUser(t, env.db, "admin", true)

	testutil.NewTask(t, env.db, admin, "first done", testutil.WithCompleted(day(2024, time.June, 1)))
	testutil.NewTask(t, env.db, admin, "last done", testutil.WithCompleted(day(2024, time.June, 9)))

	tasks, err := env.taskSvc.List(context.Background(), admin, true)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "last done", tasks[0].Text)
	assert.Equal(t, "first done", tasks[1].Text)
}

func TestListByDateAndListDates(t *testing.T) {
	env := newTestEnv(t, day(2024, time.June, 1))
	admin := testutil.NewUser(t, env.db, "admin", true)
	ctx := context.Background()

	testutil.NewTask(t, env.db, admin, "a", testutil.WithDate(day(2024, time.June, 5)))
	testutil.NewTask(t, env.db, admin, "b", testutil.WithDate(day(2024, time.June, 5)))
	testutil.NewTask(t, env.db, admin, "c", testutil.WithDate(day(2024, time.July, 2)))
	testutil.NewTask(t, env.db, admin, "done", testutil.WithDate(day(2024, time.June, 5)),
		testutil.WithCompleted(day(2024, time.June, 5)))

	byDate, err := env.taskSvc.ListByDate(ctx, admin, day(2024, time.June, 5))
	require.NoError(t, err)
	assert.Len(t, byDate, 2, "completed tasks are excluded from by-date listings")

	all, err := env.taskSvc.ListDates(ctx, admin, nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, time.June, 5), day(2024, time.July, 2)}, all)

	hint := day(2024, time.June, 15)
	june, err := env.taskSvc.ListDates(ctx, admin, &hint)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, time.June, 5)}, june)
}

func TestUpdate_AuthorizationAndPrecedence(t *testing.T) {
	env := newTestEnv(t, day(2024, time.June, 1))
	admin := testutil.NewUser(t, env.db, "admin", true)
	user := testutil.NewUser(t, env.db, "user", false)
	task := testutil.NewTask(t, env.db, admin, "locked")
	ctx := context.Background()

	text := "nope"
	_, err := env.taskSvc.Update(ctx, user, task.ID, TaskUpdate{Text: &text})
	assert.ErrorIs(t, err, ErrForbidden, "regular users never mutate tasks directly")

	_, err = env.taskSvc.Update(ctx, user, 9999, TaskUpdate{Text: &text})
	assert.ErrorIs(t, err, ErrNotFound, "not-found takes precedence over forbidden")
}

func TestUpdate_CompletionToggle(t *testing.T) {
	now := day(2024, time.June, 1)
	env := newTestEnv(t, now)
	admin := testutil.NewUser(t, env.db, "admin", true)
	task := testutil.NewTask(t, env.db, admin, "toggle me")
	ctx := context.Background()

	done := true
	updated, err := env.taskSvc.Update(ctx, admin, task.ID, TaskUpdate{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, now, *updated.CompletedAt)

	undone := false
	updated, err = env.taskSvc.Update(ctx, admin, task.ID, TaskUpdate{Completed: &undone})
	require.NoError(t, err)
	assert.False(t, updated.Completed)
	assert.Nil(t, updated.CompletedAt)

	text := "both"
	_, err = env.taskSvc.Update(ctx, admin, task.ID, TaskUpdate{Completed: &done, Text: &text})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdate_TextPropagatesToWholeFamily(t *testing.T) {
	env := newTestEnv(t, day(2024, time.June, 1))
	admin := testutil.NewUser(t, env.db, "admin", true)
	ctx := context.Background()

	parent, err := env.taskSvc.Create(ctx, admin, TaskInput{
		Text: "old text", Date: timePtr(day(2024, time.June, 3)), Recurrence: recurrence.Weekly,
	})
	require.NoError(t, err)

	text := "new text"
	_, err = env.taskSvc.Update(ctx, admin, parent.ID, TaskUpdate{Text: &text})
	require.NoError(t, err)

	instances, err := env.tasks.Instances(ctx, parent.ID)
	require.NoError(t, err)
	require.NotEmpty(t, instances)
	for _, inst := range instances {
		assert.Equal(t, "new text", inst.Text)
	}
	reloaded, err := env.tasks.FindByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "new text", reloaded.Text)
}

func TestUpdate_InstanceDateMovesOnlyThatInstance(t *testing.T) {
	env := newTestEnv(t, day(2024, time.June, 1))
	admin := testutil.NewUser(t, env.db, "admin", true)
	ctx := context.Background()

	parent, err := env.taskSvc.Create(ctx, admin, TaskInput{
		Text: "series", Date: timePtr(day(2024, time.June, 3)), Recurrence: recurrence.Weekly,
	})
	require.NoError(t, err)
	instances, err := env.tasks.Instances(ctx, parent.ID)
	require.NoError(t, err)
	require.True(t, len(instances) > 2)

	target := instances[1]
	moved := day(2024, time.June, 11)
	updated, err := env.taskSvc.Update(ctx, admin, target.ID, TaskUpdate{Date: &moved})
	require.NoError(t, err)
	require.NotNil(t, updated.Date)
	assert.Equal(t, moved, recurrence.DateOnly(*updated.Date))

	other, err := env.tasks.FindByID(ctx, instances[2].ID)
	require.NoError(t, err)
	assert.Equal(t, recurrence.DateOnly(*instances[2].Date), recurrence.DateOnly(*other.Date),
		"sibling instances must keep their dates")

	rec := recurrence.Monthly
	_, err = env.taskSvc.Update(ctx, admin, target.ID, TaskUpdate{Recurrence: &rec})
	assert.ErrorIs(t, err, ErrValidation, "recurrence edits belong on the parent")
}

func TestUpdate_RecurrenceChangeRegeneratesFuture(t *testing.T) {
	now := day(2024, time.June, 1)
	env := newTestEnv(t, now)
	admin := testutil.NewUser(t, env.db, "admin", true)
	ctx := context.Background()

	parent, err := env.taskSvc.Create(ctx, admin, TaskInput{
		Text: "series", Date: timePtr(day(2024, time.May, 1)), Recurrence: recurrence.Weekly,
	})
	require.NoError(t, err)

	// A completed future instance must survive the regeneration.
	instances, err := env.tasks.Instances(ctx, parent.ID)
	require.NoError(t, err)
	var keeper *model.Task
	for i := range instances {
		if instances[i].Date.After(now) {
			keeper = &instances[i]
			break
		}
	}
	require.NotNil(t, keeper)
	require.NoError(t, env.db.Model(keeper).Updates(map[string]interface{}{
		"completed": true, "completed_at": now,
	}).Error)

	rec := recurrence.Monthly
	_, err = env.taskSvc.Update(ctx, admin, parent.ID, TaskUpdate{Recurrence: &rec})
	require.NoError(t, err)

	after, err := env.tasks.Instances(ctx, parent.ID)
	require.NoError(t, err)

	var keptCompleted bool
	for _, inst := range after {
		if inst.ID == keeper.ID {
			keptCompleted = true
			continue
		}
		d := recurrence.DateOnly(*inst.Date)
		if d.After(now) {
			// Regenerated occurrences follow the monthly pattern: always on
			// the parent's day-of-month.
			assert.Equal(t, 1, d.Day(), "future instance %s should be monthly", d)
		}
	}
	assert.True(t, keptCompleted, "completed future instances are never invalidated")

	// Past instances (before "now") keep the old weekly spacing.
	first := recurrence.DateOnly(*after[0].Date)
	assert.Equal(t, day(2024, time.May, 1), first)
}

func TestUpdate_RejectedEditLeavesNoPartialState(t *testing.T) {
	env := newTestEnv(t, day(2024, time.June, 1))
	admin := testutil.NewUser(t, env.db, "admin", true)
	ctx := context.Background()

	parent, err := env.taskSvc.Create(ctx, admin, TaskInput{
		Text: "old text", Date: timePtr(day(2024, time.June, 3)), Recurrence: recurrence.Weekly,
	})
	require.NoError(t, err)

	// A bad recurrence sinks the whole edit, including the text change.
	text := "new text"
	badRec := "hourly"
	_, err = env.taskSvc.Update(ctx, admin, parent.ID, TaskUpdate{Text: &text, Recurrence: &badRec})
	require.ErrorIs(t, err, ErrValidation)
	reloaded, err := env.tasks.FindByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "old text", reloaded.Text)

	// Same on an instance: a bad time keeps the date edit from landing.
	instances, err := env.tasks.Instances(ctx, parent.ID)
	require.NoError(t, err)
	require.NotEmpty(t, instances)
	target := instances[0]
	moved := day(2024, time.December, 25)
	badTime := "25:99"
	_, err = env.taskSvc.Update(ctx, admin, target.ID, TaskUpdate{Date: &moved, TimeOfDay: &badTime})
	require.ErrorIs(t, err, ErrValidation)
	fresh, err := env.tasks.FindByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, recurrence.DateOnly(*target.Date), recurrence.DateOnly(*fresh.Date))

	// A nonexistent assignee combined with a text edit is also all-or-nothing.
	missing := uint(9999)
	_, err = env.taskSvc.Update(ctx, admin, parent.ID, TaskUpdate{Text: &text, AssigneeID: &missing})
	require.ErrorIs(t, err, ErrValidation)
	reloaded, err = env.tasks.FindByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "old text", reloaded.Text)
}

func TestDelete_Scopes(t *testing.T) {
	env := newTestEnv(t, day(2024, time.June, 1))
	admin := testutil.NewUser(t, env.db, "admin", true)
	user := testutil.NewUser(t, env.db, "user", false)
	ctx := context.Background()

	parent, err := env.taskSvc.Create(ctx, admin, TaskInput{
		Text: "series", Date: timePtr(day(2024, time.June, 3)), Recurrence: recurrence.Weekly,
	})
	require.NoError(t, err)
	instances, err := env.tasks.Instances(ctx, parent.ID)
	require.NoError(t, err)
	require.True(t, len(instances) > 1)

	assert.ErrorIs(t, env.taskSvc.Delete(ctx, user, parent.ID, DeleteSingle), ErrForbidden)

	// Single scope on an instance removes just that occurrence.
	require.NoError(t, env.taskSvc.Delete(ctx, admin, instances[0].ID, DeleteSingle))
	remaining, err := env.tasks.Instances(ctx, parent.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, len(instances)-1)

	// All scope from any family member removes everything.
	require.NoError(t, env.taskSvc.Delete(ctx, admin, remaining[0].ID, DeleteAll))
	_, err = env.taskSvc.Get(ctx, admin, parent.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	remaining, err = env.tasks.Instances(ctx, parent.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// A standalone task is a single row either way.
	plain := testutil.NewTask(t, env.db, admin, "plain")
	require.NoError(t, env.taskSvc.Delete(ctx, admin, plain.ID, DeleteSingle))
	_, err = env.taskSvc.Get(ctx, admin, plain.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompletionRequestFlow(t *testing.T) {
	now := day(2024, time.June, 1)
	env := newTestEnv(t, now)
	admin := testutil.NewUser(t, env.db, "admin", true)
	user := testutil.NewUser(t, env.db, "user", false)
	ctx := context.Background()

	task, err := env.taskSvc.Create(ctx, user, TaskInput{Text: "chore"})
	require.NoError(t, err)

	req, err := env.taskSvc.RequestCompletion(ctx, user, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, req.Status)

	again, err := env.taskSvc.RequestCompletion(ctx, user, task.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, again.ID, "pending requests are deduplicated")

	_, err = env.taskSvc.ListCompletionRequests(ctx, user)
	assert.ErrorIs(t, err, ErrForbidden)

	pending, err := env.taskSvc.ListCompletionRequests(ctx, admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	assert.ErrorIs(t, env.taskSvc.ResolveCompletion(ctx, user, req.ID, true), ErrForbidden)

	require.NoError(t, env.taskSvc.ResolveCompletion(ctx, admin, req.ID, true))
	done, err := env.taskSvc.Get(ctx, admin, task.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed, "approval completes the task")
	require.NotNil(t, done.CompletedAt)

	err = env.taskSvc.ResolveCompletion(ctx, admin, req.ID, false)
	assert.ErrorIs(t, err, ErrValidation, "a resolved request stays resolved")

	err = env.taskSvc.ResolveCompletion(ctx, admin, 9999, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequestCompletion_VisibilityGate(t *testing.T) {
	env := newTestEnv(t, day(2024, time.June, 1))
	admin := testutil.NewUser(t, env.db, "admin", true)
	outsider := testutil.NewUser(t, env.db, "outsider", false)
	ctx := context.Background()

	hidden := testutil.NewTask(t, env.db, admin, "secret", testutil.WithVisibility(model.VisibilityPrivate))

	_, err := env.taskSvc.RequestCompletion(ctx, outsider, hidden.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.taskSvc.RequestCompletion(ctx, outsider, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func timePtr(t time.Time) *time.Time { return &t }
