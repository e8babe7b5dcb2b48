package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/counseling"
)

type counselingRepository struct {
	db *table[counseling.Log]
}

var _ counseling.Repository = (*counselingRepository)(nil) // interface compliance check

func NewCounselingRepository(db *DB) counseling.Repository {
	return &counselingRepository{db: db.counseling}
}

var counselingOrderings = map[string]func(a, b counseling.Log) int{
	"session_date": func(a, b counseling.Log) int { return cmpTime(a.SessionDate, b.SessionDate) },
	"created_at":   func(a, b counseling.Log) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"updated_at":   func(a, b counseling.Log) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
}

func (repo *counselingRepository) CreateLog(_ context.Context, l counseling.Log) (counseling.Log, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	l.ID = uuid.New().String()
	repo.db.rows[l.ID] = &l
	return l, nil
}

func (repo *counselingRepository) QueryLogs(_ context.Context, filter *counseling.QueryFilter, ordering []core.DBOrdering) ([]counseling.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	logs := repo.db.all(func(l *counseling.Log) bool {
		if filter == nil {
			return true
		}
		if filter.CenterID != "" && l.CenterID != filter.CenterID {
			return false
		}
		if filter.ChildID != "" && l.ChildID != filter.ChildID {
			return false
		}
		if filter.ChildIDs != nil && !core.StringsContain(filter.ChildIDs, l.ChildID) {
			return false
		}
		if filter.TherapistID != "" && l.TherapistID != filter.TherapistID {
			return false
		}
		if filter.SharedOnly && !l.SharedWithParent {
			return false
		}
		return inRange(l.SessionDate, filter.From, filter.To)
	})
	orderBy(logs, ordering, counselingOrderings, counselingOrderings["session_date"])
	return logs, nil
}

func (repo *counselingRepository) GetLog(_ context.Context, centerID, id string) (counseling.Log, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if l, ok := repo.db.rows[id]; ok && (centerID == "" || l.CenterID == centerID) {
		return *l, nil
	}
	return counseling.Log{}, counseling.ErrNotFound
}

func (repo *counselingRepository) UpdateLog(_ context.Context, l counseling.Log) (counseling.Log, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[l.ID]; !ok {
		return counseling.Log{}, counseling.ErrNotFound
	}
	repo.db.rows[l.ID] = &l
	return l, nil
}

func (repo *counselingRepository) DeleteLog(_ context.Context, centerID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if l, ok := repo.db.rows[id]; ok && l.CenterID == centerID {
		delete(repo.db.rows, id)
		return nil
	}
	return counseling.ErrNotFound
}
