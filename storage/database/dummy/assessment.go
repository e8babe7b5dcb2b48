package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/assessment"
)

type assessmentRepository struct {
	db *table[assessment.Assessment]
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *DB) assessment.Repository {
	return &assessmentRepository{db: db.assessment}
}

var assessmentOrderings = map[string]func(a, b assessment.Assessment) int{
	"assessed_at": func(a, b assessment.Assessment) int { return cmpTime(a.AssessedAt, b.AssessedAt) },
	"area":        func(a, b assessment.Assessment) int { return cmpString(a.Area, b.Area) },
	"score":       func(a, b assessment.Assessment) int { return cmpInt(a.Score, b.Score) },
	"created_at":  func(a, b assessment.Assessment) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func (repo *assessmentRepository) CreateAssessment(_ context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = uuid.New().String()
	repo.db.rows[a.ID] = &a
	return a, nil
}

func (repo *assessmentRepository) QueryAssessments(_ context.Context, filter *assessment.QueryFilter, ordering []core.DBOrdering) ([]assessment.Assessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	assessments := repo.db.all(func(a *assessment.Assessment) bool {
		if filter == nil {
			return true
		}
		if filter.CenterID != "" && a.CenterID != filter.CenterID {
			return false
		}
		if filter.ChildID != "" && a.ChildID != filter.ChildID {
			return false
		}
		if filter.ChildIDs != nil && !core.StringsContain(filter.ChildIDs, a.ChildID) {
			return false
		}
		if filter.TherapistID != "" && a.TherapistID != filter.TherapistID {
			return false
		}
		if filter.Area != "" && a.Area != filter.Area {
			return false
		}
		return inRange(a.AssessedAt, filter.From, filter.To)
	})
	orderBy(assessments, ordering, assessmentOrderings, assessmentOrderings["assessed_at"])
	return assessments, nil
}

func (repo *assessmentRepository) GetAssessment(_ context.Context, centerID, id string) (assessment.Assessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.rows[id]; ok && (centerID == "" || a.CenterID == centerID) {
		return *a, nil
	}
	return assessment.Assessment{}, assessment.ErrNotFound
}

func (repo *assessmentRepository) UpdateAssessment(_ context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[a.ID]; !ok {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	repo.db.rows[a.ID] = &a
	return a, nil
}

func (repo *assessmentRepository) DeleteAssessment(_ context.Context, centerID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if a, ok := repo.db.rows[id]; ok && a.CenterID == centerID {
		delete(repo.db.rows, id)
		return nil
	}
	return assessment.ErrNotFound
}
