package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/child"
)

type childRepository struct {
	db *table[child.Child]
}

var _ child.Repository = (*childRepository)(nil) // interface compliance check

func NewChildRepository(db *DB) child.Repository {
	return &childRepository{db: db.child}
}

var childOrderings = map[string]func(a, b child.Child) int{
	"name":       func(a, b child.Child) int { return cmpString(a.Name, b.Name) },
	"birth_date": func(a, b child.Child) int { return cmpTime(a.BirthDate, b.BirthDate) },
	"is_active":  func(a, b child.Child) int { return cmpBool(a.IsActive, b.IsActive) },
	"created_at": func(a, b child.Child) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"updated_at": func(a, b child.Child) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
}

func (repo *childRepository) CreateChild(_ context.Context, c child.Child) (child.Child, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	repo.db.rows[c.ID] = &c
	return c, nil
}

func (repo *childRepository) QueryChildren(_ context.Context, filter *child.QueryFilter, ordering []core.DBOrdering) ([]child.Child, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	children := repo.db.all(func(c *child.Child) bool {
		if filter == nil {
			return true
		}
		if filter.CenterID != "" && c.CenterID != filter.CenterID {
			return false
		}
		if filter.ParentID != "" && c.ParentID != filter.ParentID {
			return false
		}
		if filter.Search != "" && !containsFold(c.Name, filter.Search) {
			return false
		}
		return filter.IsActive == nil || c.IsActive == *filter.IsActive
	})
	orderBy(children, ordering, childOrderings, childOrderings["name"])
	return children, nil
}

func (repo *childRepository) GetChild(_ context.Context, centerID, id string) (child.Child, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.rows[id]; ok && (centerID == "" || c.CenterID == centerID) {
		return *c, nil
	}
	return child.Child{}, child.ErrNotFound
}

func (repo *childRepository) UpdateChild(_ context.Context, c child.Child) (child.Child, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[c.ID]; !ok {
		return child.Child{}, child.ErrNotFound
	}
	repo.db.rows[c.ID] = &c
	return c, nil
}

func (repo *childRepository) DeleteChild(_ context.Context, centerID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if c, ok := repo.db.rows[id]; ok && c.CenterID == centerID {
		delete(repo.db.rows, id)
		return nil
	}
	return child.ErrNotFound
}
