package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/schedule"
)

type scheduleRepository struct {
	db *table[schedule.Schedule]
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db.schedule}
}

var scheduleOrderings = map[string]func(a, b schedule.Schedule) int{
	"starts_at":  func(a, b schedule.Schedule) int { return cmpTime(a.StartsAt, b.StartsAt) },
	"ends_at":    func(a, b schedule.Schedule) int { return cmpTime(a.EndsAt, b.EndsAt) },
	"status":     func(a, b schedule.Schedule) int { return cmpString(a.Status, b.Status) },
	"room":       func(a, b schedule.Schedule) int { return cmpString(a.Room, b.Room) },
	"created_at": func(a, b schedule.Schedule) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"updated_at": func(a, b schedule.Schedule) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
}

func (repo *scheduleRepository) CreateSchedule(_ context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = uuid.New().String()
	repo.db.rows[s.ID] = &s
	return s, nil
}

func (repo *scheduleRepository) QuerySchedules(_ context.Context, filter *schedule.QueryFilter, ordering []core.DBOrdering) ([]schedule.Schedule, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	schedules := repo.db.all(func(s *schedule.Schedule) bool {
		if filter == nil {
			return true
		}
		if filter.CenterID != "" && s.CenterID != filter.CenterID {
			return false
		}
		if filter.ChildID != "" && s.ChildID != filter.ChildID {
			return false
		}
		if filter.ChildIDs != nil && !core.StringsContain(filter.ChildIDs, s.ChildID) {
			return false
		}
		if filter.TherapistID != "" && s.TherapistID != filter.TherapistID {
			return false
		}
		if len(filter.Statuses) > 0 && !core.StringsContain(filter.Statuses, s.Status) {
			return false
		}
		return inRange(s.StartsAt, filter.From, filter.To)
	})
	orderBy(schedules, ordering, scheduleOrderings, scheduleOrderings["starts_at"])
	return schedules, nil
}

func (repo *scheduleRepository) GetSchedule(_ context.Context, centerID, id string) (schedule.Schedule, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.rows[id]; ok && (centerID == "" || s.CenterID == centerID) {
		return *s, nil
	}
	return schedule.Schedule{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) UpdateSchedule(_ context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[s.ID]; !ok {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	repo.db.rows[s.ID] = &s
	return s, nil
}

func (repo *scheduleRepository) DeleteSchedule(_ context.Context, centerID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if s, ok := repo.db.rows[id]; ok && s.CenterID == centerID {
		delete(repo.db.rows, id)
		return nil
	}
	return schedule.ErrNotFound
}

func (repo *scheduleRepository) HasOverlap(_ context.Context, therapistID string, start, end time.Time, excludedID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.rows {
		if s.ID != excludedID && s.TherapistID == therapistID && s.Status == schedule.StatusScheduled && s.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (repo *scheduleRepository) AutoComplete(_ context.Context, centerID string, now time.Time) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, s := range repo.db.rows {
		if s.Status != schedule.StatusScheduled || s.EndsAt.After(now) || (centerID != "" && s.CenterID != centerID) {
			continue
		}
		s.Status = schedule.StatusCompleted
		s.CompletedAt = now
		s.UpdatedAt = now
		cnt++
	}
	return cnt, nil
}
