package service

import (
	"context"
	"log"
	"time"

	"taskboard/internal/recurrence"
	"taskboard/internal/repository"
)

// Maintenance cadence constants: instances older than the retention window
// are pruned, and parents whose materialized horizon has shrunk below the
// extension threshold are topped back up to the default horizon.
const (
	RetentionDays    = 90
	ExtendWithinDays = 30
)

// MaintenanceService is the periodic pass behind the weekly schedule. A run
// never reports errors to its caller: it logs, stops the current pass and
// lets the next scheduled run retry from the top.
type MaintenanceService struct {
	tasks    *repository.TaskRepository
	sessions *repository.SessionRepository
	sync     *SyncService
	clock    Clock
}

func NewMaintenanceService(tasks *repository.TaskRepository, sessions *repository.SessionRepository, sync *SyncService, clock Clock) *MaintenanceService {
	return &MaintenanceService{tasks: tasks, sessions: sessions, sync: sync, clock: clock}
}

// RunOnce prunes stale instances, extends recurrence horizons and drops
// expired sessions.
func (s *MaintenanceService) RunOnce(ctx context.Context) {
	now := s.clock.Now()

	cutoff := recurrence.DateOnly(now).AddDate(0, 0, -RetentionDays)
	pruned, err := s.tasks.DeleteInstancesBefore(ctx, cutoff)
	if err != nil {
		log.Printf("[warn] maintenance: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("[info] maintenance: pruned %d instances older than %s", pruned, cutoff.Format(time.DateOnly))
	}

	if err := s.extendHorizons(ctx, now); err != nil {
		log.Printf("[warn] maintenance: %v", err)
		return
	}

	dropped, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		log.Printf("[warn] maintenance: %v", err)
		return
	}
	if dropped > 0 {
		log.Printf("[info] maintenance: dropped %d expired sessions", dropped)
	}
}

// extendHorizons re-syncs every recurring parent whose latest materialized
// date is within the extension threshold of now.
func (s *MaintenanceService) extendHorizons(ctx context.Context, now time.Time) error {
	parents, err := s.tasks.ListRecurringParents(ctx)
	if err != nil {
		return err
	}
	soon := recurrence.DateOnly(now).AddDate(0, 0, ExtendWithinDays)
	horizon := recurrence.DateOnly(now).AddDate(0, 0, DefaultHorizonDays)
	for i := range parents {
		latest, err := s.tasks.LatestMaterializedDate(ctx, parents[i].ID)
		if err != nil {
			return err
		}
		if latest != nil && recurrence.DateOnly(*latest).After(soon) {
			continue
		}
		if err := s.sync.SyncParent(ctx, &parents[i], horizon); err != nil {
			return err
		}
	}
	return nil
}
