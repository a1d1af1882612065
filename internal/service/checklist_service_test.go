package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/model"
	"taskboard/internal/testutil"
)

func TestChecklist_AdminLifecycle(t *testing.T) {
	env := newTestEnv(t, day(2024, time.June, 1))
	admin := testutil.NewUser(t, env.db, "admin", true)
	task := testutil.NewTask(t, env.db, admin, "pack for trip")
	ctx := context.Background()

	first, err := env.checklists.Add(ctx, admin, task.ID, "  passport ")
	require.NoError(t, err)
	assert.Equal(t, "passport", first.Text)

	_, err = env.checklists.Add(ctx, admin, task.ID, "charger")
	require.NoError(t, err)

	items, err := env.checklists.ListForTask(ctx, admin, task.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	done, err := env.checklists.SetCompleted(ctx, admin, first.ID, true)
	require.NoError(t, err)
	assert.True(t, done.Completed)

	require.NoError(t, env.checklists.Delete(ctx, admin, first.ID))
	items, err = env.checklists.ListForTask(ctx, admin, task.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = env.checklists.Add(ctx, admin, task.ID, "   ")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.checklists.Add(ctx, admin, 9999, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChecklist_FollowsTaskVisibilityAndRole(t *testing.T) {
	env := newTestEnv(t, day(2024, time.June, 1))
	admin := testutil.NewUser(t, env.db, "admin", true)
	outsider := testutil.NewUser(t, env.db, "outsider", false)
	hidden := testutil.NewTask(t, env.db, admin, "secret", testutil.WithVisibility(model.VisibilityPrivate))
	ctx := context.Background()

	item, err := env.checklists.Add(ctx, admin, hidden.ID, "step one")
	require.NoError(t, err)

	_, err = env.checklists.ListForTask(ctx, outsider, hidden.ID)
	assert.ErrorIs(t, err, ErrForbidden, "reading follows the task's visibility")

	_, err = env.checklists.Add(ctx, outsider, hidden.ID, "sneak in")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.checklists.SetCompleted(ctx, outsider, item.ID, true)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, env.checklists.Delete(ctx, outsider, item.ID), ErrForbidden)
}
