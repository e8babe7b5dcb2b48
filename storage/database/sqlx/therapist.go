package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/therapist"
)

const therapistColumns = "id, center_id, user_id, name, title, specialties, bio, photo_url, is_public, is_active, created_at, updated_at"

type therapistRow struct {
	ID          string         `db:"id"`
	CenterID    string         `db:"center_id"`
	UserID      null.String    `db:"user_id"`
	Name        string         `db:"name"`
	Title       string         `db:"title"`
	Specialties pq.StringArray `db:"specialties"`
	Bio         string         `db:"bio"`
	PhotoURL    string         `db:"photo_url"`
	IsPublic    bool           `db:"is_public"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func toTherapistRow(t therapist.Therapist) therapistRow {
	specs := t.Specialties
	if specs == nil {
		specs = []string{}
	}
	return therapistRow{
		ID:          t.ID,
		CenterID:    t.CenterID,
		UserID:      nullString(t.UserID),
		Name:        t.Name,
		Title:       t.Title,
		Specialties: specs,
		Bio:         t.Bio,
		PhotoURL:    t.PhotoURL,
		IsPublic:    t.IsPublic,
		IsActive:    t.IsActive,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
}

func (r therapistRow) toTherapist() therapist.Therapist {
	return therapist.Therapist{
		ID:          r.ID,
		CenterID:    r.CenterID,
		UserID:      r.UserID.String,
		Name:        r.Name,
		Title:       r.Title,
		Specialties: r.Specialties,
		Bio:         r.Bio,
		PhotoURL:    r.PhotoURL,
		IsPublic:    r.IsPublic,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type therapistRepository struct {
	exec core.DBExecutor
}

var _ therapist.Repository = (*therapistRepository)(nil) // interface compliance check

func NewTherapistRepository(exec core.DBExecutor) therapist.Repository {
	return &therapistRepository{exec: exec}
}

func (repo *therapistRepository) CreateTherapist(ctx context.Context, t therapist.Therapist) (therapist.Therapist, error) {
	t.ID = newID()
	q := `INSERT INTO therapists (` + therapistColumns + `)
		VALUES (:id, :center_id, :user_id, :name, :title, :specialties, :bio, :photo_url, :is_public, :is_active, :created_at, :updated_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, toTherapistRow(t)); err != nil {
		return therapist.Therapist{}, errors.Wrap(err, "inserting therapist")
	}
	return t, nil
}

func (repo *therapistRepository) QueryTherapists(ctx context.Context, filter *therapist.QueryFilter, ordering []core.DBOrdering) ([]therapist.Therapist, error) {
	var where whereClause
	if filter != nil {
		if filter.CenterID != "" {
			where.and("center_id = ?", filter.CenterID)
		}
		if filter.Search != "" {
			val := likePattern(filter.Search)
			where.and("(name ILIKE ? OR title ILIKE ?)", val, val)
		}
		if filter.IsPublic != nil {
			where.and("is_public = ?", *filter.IsPublic)
		}
		if filter.IsActive != nil {
			where.and("is_active = ?", *filter.IsActive)
		}
	}

	var rows []therapistRow
	q := "SELECT " + therapistColumns + " FROM therapists" + where.String() + core.OrderByClause(ordering, "name ASC")
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying therapists")
	}

	therapists := make([]therapist.Therapist, 0, len(rows))
	for _, r := range rows {
		therapists = append(therapists, r.toTherapist())
	}
	return therapists, nil
}

func (repo *therapistRepository) GetTherapist(ctx context.Context, centerID, id string) (therapist.Therapist, error) {
	if !isUUID(id) {
		return therapist.Therapist{}, therapist.ErrNotFound
	}
	var where whereClause
	where.and("id = ?", id)
	if centerID != "" {
		where.and("center_id = ?", centerID)
	}

	var row therapistRow
	q := "SELECT " + therapistColumns + " FROM therapists" + where.String()
	if err := repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), where.args...); err != nil {
		return therapist.Therapist{}, trapNoRowsErr(err, therapist.ErrNotFound, "finding therapist")
	}
	return row.toTherapist(), nil
}

func (repo *therapistRepository) UpdateTherapist(ctx context.Context, t therapist.Therapist) (therapist.Therapist, error) {
	q := `UPDATE therapists SET
		user_id = :user_id, name = :name, title = :title, specialties = :specialties, bio = :bio,
		photo_url = :photo_url, is_public = :is_public, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id AND center_id = :center_id`
	res, err := repo.exec.NamedExecContext(ctx, q, toTherapistRow(t))
	if err != nil {
		return therapist.Therapist{}, errors.Wrap(err, "updating therapist")
	}
	if err = checkAffected(res, therapist.ErrNotFound, "updating therapist"); err != nil {
		return therapist.Therapist{}, err
	}
	return t, nil
}

func (repo *therapistRepository) DeleteTherapist(ctx context.Context, centerID, id string) error {
	if !isUUID(id) {
		return therapist.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind("DELETE FROM therapists WHERE id = ? AND center_id = ?"), id, centerID)
	if err != nil {
		return errors.Wrap(err, "deleting therapist")
	}
	return checkAffected(res, therapist.ErrNotFound, "deleting therapist")
}
