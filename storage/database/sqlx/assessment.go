package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/assessment"
)

const assessmentColumns = "id, center_id, child_id, therapist_id, assessed_at, area, score, notes, created_at"

type assessmentRow struct {
	ID          string    `db:"id"`
	CenterID    string    `db:"center_id"`
	ChildID     string    `db:"child_id"`
	TherapistID string    `db:"therapist_id"`
	AssessedAt  time.Time `db:"assessed_at"`
	Area        string    `db:"area"`
	Score       int       `db:"score"`
	Notes       string    `db:"notes"`
	CreatedAt   time.Time `db:"created_at"`
}

func toAssessmentRow(a assessment.Assessment) assessmentRow {
	return assessmentRow{
		ID:          a.ID,
		CenterID:    a.CenterID,
		ChildID:     a.ChildID,
		TherapistID: a.TherapistID,
		AssessedAt:  a.AssessedAt.UTC(),
		Area:        a.Area,
		Score:       a.Score,
		Notes:       a.Notes,
		CreatedAt:   a.CreatedAt.UTC(),
	}
}

func (r assessmentRow) toAssessment() assessment.Assessment {
	return assessment.Assessment{
		ID:          r.ID,
		CenterID:    r.CenterID,
		ChildID:     r.ChildID,
		TherapistID: r.TherapistID,
		AssessedAt:  r.AssessedAt.UTC(),
		Area:        r.Area,
		Score:       r.Score,
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type assessmentRepository struct {
	exec core.DBExecutor
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(exec core.DBExecutor) assessment.Repository {
	return &assessmentRepository{exec: exec}
}

func (repo *assessmentRepository) CreateAssessment(ctx context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	a.ID = newID()
	q := `INSERT INTO development_assessments (` + assessmentColumns + `)
		VALUES (:id, :center_id, :child_id, :therapist_id, :assessed_at, :area, :score, :notes, :created_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, toAssessmentRow(a)); err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "inserting assessment")
	}
	return a, nil
}

func (repo *assessmentRepository) QueryAssessments(ctx context.Context, filter *assessment.QueryFilter, ordering []core.DBOrdering) ([]assessment.Assessment, error) {
	var where whereClause
	if filter != nil {
		if filter.CenterID != "" {
			where.and("center_id = ?", filter.CenterID)
		}
		if filter.ChildID != "" {
			where.and("child_id = ?", filter.ChildID)
		}
		if filter.ChildIDs != nil {
			where.and("child_id = ANY(?)", pq.Array(filter.ChildIDs))
		}
		if filter.TherapistID != "" {
			where.and("therapist_id = ?", filter.TherapistID)
		}
		if filter.Area != "" {
			where.and("area = ?", filter.Area)
		}
		where.andRange("assessed_at", filter.From, filter.To)
	}

	var rows []assessmentRow
	q := "SELECT " + assessmentColumns + " FROM development_assessments" + where.String() + core.OrderByClause(ordering, "assessed_at DESC")
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}

	assessments := make([]assessment.Assessment, 0, len(rows))
	for _, r := range rows {
		assessments = append(assessments, r.toAssessment())
	}
	return assessments, nil
}

func (repo *assessmentRepository) GetAssessment(ctx context.Context, centerID, id string) (assessment.Assessment, error) {
	if !isUUID(id) {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	var where whereClause
	where.and("id = ?", id)
	if centerID != "" {
		where.and("center_id = ?", centerID)
	}

	var row assessmentRow
	q := "SELECT " + assessmentColumns + " FROM development_assessments" + where.String()
	if err := repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), where.args...); err != nil {
		return assessment.Assessment{}, trapNoRowsErr(err, assessment.ErrNotFound, "finding assessment")
	}
	return row.toAssessment(), nil
}

func (repo *assessmentRepository) UpdateAssessment(ctx context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	q := `UPDATE development_assessments SET
		therapist_id = :therapist_id, assessed_at = :assessed_at, area = :area, score = :score, notes = :notes
		WHERE id = :id AND center_id = :center_id`
	res, err := repo.exec.NamedExecContext(ctx, q, toAssessmentRow(a))
	if err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "updating assessment")
	}
	if err = checkAffected(res, assessment.ErrNotFound, "updating assessment"); err != nil {
		return assessment.Assessment{}, err
	}
	return a, nil
}

func (repo *assessmentRepository) DeleteAssessment(ctx context.Context, centerID, id string) error {
	if !isUUID(id) {
		return assessment.ErrNotFound
	}
	q := repo.exec.Rebind("DELETE FROM development_assessments WHERE id = ? AND center_id = ?")
	res, err := repo.exec.ExecContext(ctx, q, id, centerID)
	if err != nil {
		return errors.Wrap(err, "deleting assessment")
	}
	return checkAffected(res, assessment.ErrNotFound, "deleting assessment")
}
