package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/model"
	"taskboard/internal/testutil"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func instanceOn(parent model.Task, d time.Time) model.Task {
	parentID := parent.ID
	return model.Task{
		Text:       parent.Text,
		Date:       &d,
		OwnerID:    parent.OwnerID,
		CreatorID:  parent.CreatorID,
		Visibility: parent.Visibility,
		ParentID:   &parentID,
	}
}

func TestCreateInstances_IgnoresConflictingDates(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	admin := testutil.NewUser(t, db, "admin", true)
	parent := testutil.NewTask(t, db, admin, "series", testutil.WithDate(date(2024, time.June, 1)))

	first := []model.Task{
		instanceOn(parent, date(2024, time.June, 1)),
		instanceOn(parent, date(2024, time.June, 8)),
	}
	require.NoError(t, repo.CreateInstances(ctx, first))

	// Overlapping batch, as two racing synchronizations would produce.
	second := []model.Task{
		instanceOn(parent, date(2024, time.June, 8)),
		instanceOn(parent, date(2024, time.June, 15)),
	}
	require.NoError(t, repo.CreateInstances(ctx, second))

	dates, err := repo.InstanceDates(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, dates, 3, "conflicting dates must not produce duplicates")
}

func TestLatestMaterializedDate(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	admin := testutil.NewUser(t, db, "admin", true)

	undated := testutil.NewTask(t, db, admin, "undated")
	latest, err := repo.LatestMaterializedDate(ctx, undated.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	parent := testutil.NewTask(t, db, admin, "series", testutil.WithDate(date(2024, time.June, 1)))
	latest, err = repo.LatestMaterializedDate(ctx, parent.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, date(2024, time.June, 1), latest.UTC())

	require.NoError(t, repo.CreateInstances(ctx, []model.Task{
		instanceOn(parent, date(2024, time.June, 8)),
		instanceOn(parent, date(2024, time.June, 15)),
	}))
	latest, err = repo.LatestMaterializedDate(ctx, parent.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, date(2024, time.June, 15), latest.UTC())
}

func TestDeleteInstancesBefore_SparesParents(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	admin := testutil.NewUser(t, db, "admin", true)
	parent := testutil.NewTask(t, db, admin, "series", testutil.WithDate(date(2024, time.January, 1)))

	require.NoError(t, repo.CreateInstances(ctx, []model.Task{
		instanceOn(parent, date(2024, time.January, 1)),
		instanceOn(parent, date(2024, time.February, 1)),
		instanceOn(parent, date(2024, time.June, 1)),
	}))

	n, err := repo.DeleteInstancesBefore(ctx, date(2024, time.March, 1))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	dates, err := repo.InstanceDates(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, dates, 1)

	// The parent is older than the cutoff but must survive.
	_, err = repo.FindByID(ctx, parent.ID)
	require.NoError(t, err)
}

func TestDeleteFamily_RemovesDependentRows(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	admin := testutil.NewUser(t, db, "admin", true)
	user := testutil.NewUser(t, db, "user", false)
	parent := testutil.NewTask(t, db, admin, "series", testutil.WithDate(date(2024, time.June, 1)))

	require.NoError(t, repo.CreateInstances(ctx, []model.Task{
		instanceOn(parent, date(2024, time.June, 8)),
	}))
	instances, err := repo.Instances(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, instances, 1)

	item := model.ChecklistItem{TaskID: instances[0].ID, Text: "step"}
	require.NoError(t, db.Create(&item).Error)
	req := model.CompletionRequest{TaskID: instances[0].ID, RequesterID: user.ID, Status: model.RequestPending}
	require.NoError(t, db.Create(&req).Error)

	require.NoError(t, repo.DeleteFamily(ctx, parent.ID))

	var tasks, items, reqs int64
	require.NoError(t, db.Model(&model.Task{}).Count(&tasks).Error)
	require.NoError(t, db.Model(&model.ChecklistItem{}).Count(&items).Error)
	require.NoError(t, db.Model(&model.CompletionRequest{}).Count(&reqs).Error)
	assert.Zero(t, tasks)
	assert.Zero(t, items)
	assert.Zero(t, reqs)
}
