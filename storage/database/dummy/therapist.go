package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/therapist"
)

type therapistRepository struct {
	db *table[therapist.Therapist]
}

var _ therapist.Repository = (*therapistRepository)(nil) // interface compliance check

func NewTherapistRepository(db *DB) therapist.Repository {
	return &therapistRepository{db: db.therapist}
}

var therapistOrderings = map[string]func(a, b therapist.Therapist) int{
	"name":       func(a, b therapist.Therapist) int { return cmpString(a.Name, b.Name) },
	"title":      func(a, b therapist.Therapist) int { return cmpString(a.Title, b.Title) },
	"is_public":  func(a, b therapist.Therapist) int { return cmpBool(a.IsPublic, b.IsPublic) },
	"is_active":  func(a, b therapist.Therapist) int { return cmpBool(a.IsActive, b.IsActive) },
	"created_at": func(a, b therapist.Therapist) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"updated_at": func(a, b therapist.Therapist) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
}

func (repo *therapistRepository) CreateTherapist(_ context.Context, t therapist.Therapist) (therapist.Therapist, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = uuid.New().String()
	t.Specialties = copyStrings(t.Specialties)
	repo.db.rows[t.ID] = &t
	return t, nil
}

func (repo *therapistRepository) QueryTherapists(_ context.Context, filter *therapist.QueryFilter, ordering []core.DBOrdering) ([]therapist.Therapist, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	therapists := repo.db.all(func(t *therapist.Therapist) bool {
		if filter == nil {
			return true
		}
		if filter.CenterID != "" && t.CenterID != filter.CenterID {
			return false
		}
		if filter.Search != "" && !(containsFold(t.Name, filter.Search) || containsFold(t.Title, filter.Search)) {
			return false
		}
		if filter.IsPublic != nil && t.IsPublic != *filter.IsPublic {
			return false
		}
		return filter.IsActive == nil || t.IsActive == *filter.IsActive
	})
	orderBy(therapists, ordering, therapistOrderings, therapistOrderings["name"])
	return therapists, nil
}

func (repo *therapistRepository) GetTherapist(_ context.Context, centerID, id string) (therapist.Therapist, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.rows[id]; ok && (centerID == "" || t.CenterID == centerID) {
		return *t, nil
	}
	return therapist.Therapist{}, therapist.ErrNotFound
}

func (repo *therapistRepository) UpdateTherapist(_ context.Context, t therapist.Therapist) (therapist.Therapist, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[t.ID]; !ok {
		return therapist.Therapist{}, therapist.ErrNotFound
	}
	t.Specialties = copyStrings(t.Specialties)
	repo.db.rows[t.ID] = &t
	return t, nil
}

func (repo *therapistRepository) DeleteTherapist(_ context.Context, centerID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if t, ok := repo.db.rows[id]; ok && t.CenterID == centerID {
		delete(repo.db.rows, id)
		return nil
	}
	return therapist.ErrNotFound
}
