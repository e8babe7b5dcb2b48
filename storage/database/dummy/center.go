package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/center"
)

type centerRepository struct {
	db *table[center.Center]
}

var _ center.Repository = (*centerRepository)(nil) // interface compliance check

func NewCenterRepository(db *DB) center.Repository {
	return &centerRepository{db: db.center}
}

var centerOrderings = map[string]func(a, b center.Center) int{
	"name":       func(a, b center.Center) int { return cmpString(a.Name, b.Name) },
	"slug":       func(a, b center.Center) int { return cmpString(a.Slug, b.Slug) },
	"is_active":  func(a, b center.Center) int { return cmpBool(a.IsActive, b.IsActive) },
	"created_at": func(a, b center.Center) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"updated_at": func(a, b center.Center) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
}

func (repo *centerRepository) CheckUniqueness(_ context.Context, slug, domain string, excluded ...center.Center) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.rows {
		var skip bool
		for _, ex := range excluded {
			skip = skip || ex.ID == c.ID
		}
		if skip {
			continue
		}
		if c.Slug == slug {
			return center.ErrSlugExists
		}
		if domain != "" && c.CustomDomain == domain {
			return center.ErrDomainExists
		}
	}
	return nil
}

func (repo *centerRepository) CreateCenter(_ context.Context, c center.Center) (center.Center, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	repo.db.rows[c.ID] = &c
	return c, nil
}

func (repo *centerRepository) QueryCenters(_ context.Context, filter *center.QueryFilter, ordering []core.DBOrdering) ([]center.Center, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	centers := repo.db.all(func(c *center.Center) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !(containsFold(c.Name, filter.Search) || containsFold(c.Slug, filter.Search)) {
			return false
		}
		return filter.IsActive == nil || c.IsActive == *filter.IsActive
	})
	orderBy(centers, ordering, centerOrderings, centerOrderings["name"])
	return centers, nil
}

func (repo *centerRepository) GetCenter(_ context.Context, filter center.GetFilter) (center.Center, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if c, ok := repo.db.rows[filter.ID]; ok {
			return *c, nil
		}
		return center.Center{}, center.ErrNotFound
	}
	for _, c := range repo.db.rows {
		if (filter.Slug != "" && c.Slug == filter.Slug) || (filter.Slug == "" && filter.Domain != "" && c.CustomDomain == filter.Domain) {
			return *c, nil
		}
	}
	return center.Center{}, center.ErrNotFound
}

func (repo *centerRepository) UpdateCenter(_ context.Context, c center.Center) (center.Center, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[c.ID]; !ok {
		return center.Center{}, center.ErrNotFound
	}
	repo.db.rows[c.ID] = &c
	return c, nil
}
