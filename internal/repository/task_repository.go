package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboard/internal/model"
)

// Scope narrows a task query, typically to the rows an actor may see.
type Scope func(*gorm.DB) *gorm.DB

// TaskRepository handles CRUD and range queries for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// UpdateFields applies a partial update to a single task.
func (r *TaskRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	return nil
}

// UpdateFamilyFields applies a partial update to a parent and all of its
// instances uniformly.
func (r *TaskRepository) UpdateFamilyFields(ctx context.Context, parentID uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? OR parent_id = ?", parentID, parentID).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("update task family %d: %w", parentID, err)
	}
	return nil
}

// ListRecurringParents returns every dated parent carrying a recurrence tag.
func (r *TaskRepository) ListRecurringParents(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("parent_id IS NULL AND recurrence <> '' AND date IS NOT NULL").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list recurring parents: %w", err)
	}
	return tasks, nil
}

// Instances returns the materialized occurrences of a parent, date ascending.
func (r *TaskRepository) Instances(ctx context.Context, parentID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("parent_id = ?", parentID).
		Order("date ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	return tasks, nil
}

// InstanceDates returns the set of dates that already hold an instance of
// the parent.
func (r *TaskRepository) InstanceDates(ctx context.Context, parentID uint) ([]time.Time, error) {
	var dates []time.Time
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("parent_id = ? AND date IS NOT NULL", parentID).
		Order("date ASC").Pluck("date", &dates).Error; err != nil {
		return nil, fmt.Errorf("list instance dates: %w", err)
	}
	return dates, nil
}

// LatestMaterializedDate returns the newest date across a parent and its
// instances, or nil when neither carries a date.
func (r *TaskRepository) LatestMaterializedDate(ctx context.Context, parentID uint) (*time.Time, error) {
	var latest sql.NullTime
	row := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? OR parent_id = ?", parentID, parentID).
		Select("MAX(date)").Row()
	if err := row.Scan(&latest); err != nil {
		return nil, fmt.Errorf("latest materialized date: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	t := latest.Time.UTC()
	return &t, nil
}

// CreateInstances inserts materialized occurrences in one transaction.
// Conflicts on the (parent_id, date) unique index are ignored, so a
// concurrent synchronization of the same parent cannot produce duplicates.
func (r *TaskRepository) CreateInstances(ctx context.Context, instances []model.Task) error {
	if len(instances) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "parent_id"}, {Name: "date"}},
			DoNothing: true,
		}).Create(&instances).Error
	})
	if err != nil {
		return fmt.Errorf("create instances: %w", err)
	}
	return nil
}

// DeleteFutureIncompleteInstances drops instances of a parent dated strictly
// after the given date that have not been completed. Used when a parent's
// recurrence or start date changes and the future must be regenerated.
func (r *TaskRepository) DeleteFutureIncompleteInstances(ctx context.Context, parentID uint, after time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&model.Task{}).
			Where("parent_id = ? AND date > ? AND completed = ?", parentID, after, false).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		return deleteTaskRows(tx, ids)
	})
	if err != nil {
		return fmt.Errorf("delete future instances: %w", err)
	}
	return nil
}

// DeleteInstancesBefore prunes instances dated before the cutoff. Parents
// are never touched.
func (r *TaskRepository) DeleteInstancesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&model.Task{}).
			Where("parent_id IS NOT NULL AND date < ?", cutoff).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		deleted = int64(len(ids))
		return deleteTaskRows(tx, ids)
	})
	if err != nil {
		return 0, fmt.Errorf("prune instances: %w", err)
	}
	return deleted, nil
}

// Delete removes a single task row and its checklist items.
func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteTaskRows(tx, []uint{id})
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// DeleteFamily removes a parent together with all of its instances.
func (r *TaskRepository) DeleteFamily(ctx context.Context, parentID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&model.Task{}).
			Where("id = ? OR parent_id = ?", parentID, parentID).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		return deleteTaskRows(tx, ids)
	})
	if err != nil {
		return fmt.Errorf("delete task family: %w", err)
	}
	return nil
}

func deleteTaskRows(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("task_id IN ?", ids).Delete(&model.ChecklistItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("task_id IN ?", ids).Delete(&model.CompletionRequest{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&model.Task{}).Error
}

// List returns tasks within the scope. Pending tasks come back ordered by
// date, time and creation; completed ones by completion time, newest first.
func (r *TaskRepository) List(ctx context.Context, scope Scope, completed bool) ([]model.Task, error) {
	var tasks []model.Task
	q := scope(r.db.WithContext(ctx).Model(&model.Task{})).
		Select("tasks.*").
		Where("tasks.completed = ?", completed)
	if completed {
		q = q.Order("tasks.completed_at DESC")
	} else {
		q = q.Order("tasks.date IS NULL, tasks.date ASC, tasks.time_of_day ASC, tasks.created_at ASC")
	}
	if err := q.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListByDate returns pending tasks on a specific date within the scope.
func (r *TaskRepository) ListByDate(ctx context.Context, scope Scope, date time.Time) ([]model.Task, error) {
	var tasks []model.Task
	q := scope(r.db.WithContext(ctx).Model(&model.Task{})).
		Select("tasks.*").
		Where("tasks.completed = ? AND tasks.date = ?", false, date).
		Order("tasks.time_of_day ASC, tasks.created_at ASC")
	if err := q.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks by date: %w", err)
	}
	return tasks, nil
}

// PendingDates returns the distinct dates bearing pending tasks within the
// scope, optionally bounded to [from, to].
func (r *TaskRepository) PendingDates(ctx context.Context, scope Scope, from, to *time.Time) ([]time.Time, error) {
	var dates []time.Time
	q := scope(r.db.WithContext(ctx).Model(&model.Task{})).
		Where("tasks.completed = ? AND tasks.date IS NOT NULL", false)
	if from != nil {
		q = q.Where("tasks.date >= ?", *from)
	}
	if to != nil {
		q = q.Where("tasks.date <= ?", *to)
	}
	if err := q.Distinct().Order("tasks.date ASC").Pluck("tasks.date", &dates).Error; err != nil {
		return nil, fmt.Errorf("list pending dates: %w", err)
	}
	return dates, nil
}
