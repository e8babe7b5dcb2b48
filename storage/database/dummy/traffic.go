package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/kidcare/core/traffic"
)

type visitRepository struct {
	db *table[traffic.Visit]
}

var _ traffic.Repository = (*visitRepository)(nil) // interface compliance check

func NewVisitRepository(db *DB) traffic.Repository {
	return &visitRepository{db: db.visit}
}

func (repo *visitRepository) CreateVisit(_ context.Context, v traffic.Visit) (traffic.Visit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	v.ID = uuid.New().String()
	repo.db.rows[v.ID] = &v
	return v, nil
}

func (repo *visitRepository) QueryVisits(_ context.Context, filter *traffic.QueryFilter) ([]traffic.Visit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	visits := repo.db.all(func(v *traffic.Visit) bool {
		if filter == nil {
			return true
		}
		if filter.CenterID != "" && v.CenterID != filter.CenterID {
			return false
		}
		return inRange(v.CreatedAt, filter.From, filter.To)
	})
	orderBy(visits, nil, nil, func(a, b traffic.Visit) int { return cmpTime(a.CreatedAt, b.CreatedAt) })
	return visits, nil
}
