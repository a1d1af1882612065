package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/recurrence"
	"taskboard/internal/repository"
)

// DefaultHorizonDays is how far ahead instances are guaranteed to exist.
const DefaultHorizonDays = 365

// SyncService materializes recurrence instances up to a horizon. It is
// called lazily before listing reads and eagerly by the maintenance pass;
// both paths are idempotent because generation restarts from the latest
// materialized date and the store ignores duplicate (parent, date) inserts.
type SyncService struct {
	tasks *repository.TaskRepository
	clock Clock
}

func NewSyncService(tasks *repository.TaskRepository, clock Clock) *SyncService {
	return &SyncService{tasks: tasks, clock: clock}
}

// DefaultHorizon is now + 365 days.
func (s *SyncService) DefaultHorizon() time.Time {
	return recurrence.DateOnly(s.clock.Now()).AddDate(0, 0, DefaultHorizonDays)
}

// Sync ensures every recurrence date of the parent from its start date
// through the horizon exists as an instance. A missing parent is a no-op.
func (s *SyncService) Sync(ctx context.Context, parentID uint, horizon time.Time) error {
	parent, err := s.tasks.FindByID(ctx, parentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.SyncParent(ctx, parent, horizon)
}

// SyncParent is Sync for an already-loaded parent. Tasks that are not
// dated recurring parents are left alone.
func (s *SyncService) SyncParent(ctx context.Context, parent *model.Task, horizon time.Time) error {
	if !parent.IsRecurringParent() {
		return nil
	}
	start := recurrence.DateOnly(*parent.Date)

	existing, err := s.tasks.InstanceDates(ctx, parent.ID)
	if err != nil {
		return err
	}
	existingSet := make(map[string]struct{}, len(existing))
	latest := start
	for _, d := range existing {
		d = recurrence.DateOnly(d)
		existingSet[d.Format(time.DateOnly)] = struct{}{}
		if d.After(latest) {
			latest = d
		}
	}

	// Generation starts at the parent's own date when nothing newer is
	// materialized; otherwise strictly after the latest instance, so dates
	// pruned by retention are never re-created. Occurrences always derive
	// from the parent's original day-of-month, never from a clamped one.
	var candidates []time.Time
	if latest.After(start) {
		candidates = recurrence.After(start, parent.Recurrence, latest, horizon)
	} else {
		candidates = recurrence.Expand(start, parent.Recurrence, horizon)
	}

	var instances []model.Task
	for _, d := range candidates {
		if _, ok := existingSet[d.Format(time.DateOnly)]; ok {
			continue
		}
		d := d
		parentID := parent.ID
		instances = append(instances, model.Task{
			Text:       parent.Text,
			Date:       &d,
			TimeOfDay:  parent.TimeOfDay,
			OwnerID:    parent.OwnerID,
			CreatorID:  parent.CreatorID,
			AssigneeID: parent.AssigneeID,
			Visibility: parent.Visibility,
			Recurrence: parent.Recurrence,
			ParentID:   &parentID,
		})
	}
	return s.tasks.CreateInstances(ctx, instances)
}

// SyncAll backfills every recurring parent up to the horizon.
func (s *SyncService) SyncAll(ctx context.Context, horizon time.Time) error {
	parents, err := s.tasks.ListRecurringParents(ctx)
	if err != nil {
		return err
	}
	for i := range parents {
		if err := s.SyncParent(ctx, &parents[i], horizon); err != nil {
			return err
		}
	}
	return nil
}
