package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/child"
)

const childColumns = "id, center_id, parent_id, name, birth_date, gender, diagnosis, notes, is_active, created_at, updated_at"

type childRow struct {
	ID        string      `db:"id"`
	CenterID  string      `db:"center_id"`
	ParentID  null.String `db:"parent_id"`
	Name      string      `db:"name"`
	BirthDate time.Time   `db:"birth_date"`
	Gender    string      `db:"gender"`
	Diagnosis string      `db:"diagnosis"`
	Notes     string      `db:"notes"`
	IsActive  bool        `db:"is_active"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func toChildRow(c child.Child) childRow {
	return childRow{
		ID:        c.ID,
		CenterID:  c.CenterID,
		ParentID:  nullString(c.ParentID),
		Name:      c.Name,
		BirthDate: c.BirthDate.UTC(),
		Gender:    c.Gender,
		Diagnosis: c.Diagnosis,
		Notes:     c.Notes,
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func (r childRow) toChild() child.Child {
	return child.Child{
		ID:        r.ID,
		CenterID:  r.CenterID,
		ParentID:  r.ParentID.String,
		Name:      r.Name,
		BirthDate: r.BirthDate.UTC(),
		Gender:    r.Gender,
		Diagnosis: r.Diagnosis,
		Notes:     r.Notes,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type childRepository struct {
	exec core.DBExecutor
}

var _ child.Repository = (*childRepository)(nil) // interface compliance check

func NewChildRepository(exec core.DBExecutor) child.Repository {
	return &childRepository{exec: exec}
}

func (repo *childRepository) CreateChild(ctx context.Context, c child.Child) (child.Child, error) {
	c.ID = newID()
	q := `INSERT INTO children (` + childColumns + `)
		VALUES (:id, :center_id, :parent_id, :name, :birth_date, :gender, :diagnosis, :notes, :is_active, :created_at, :updated_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, toChildRow(c)); err != nil {
		return child.Child{}, errors.Wrap(err, "inserting child")
	}
	return c, nil
}

func (repo *childRepository) QueryChildren(ctx context.Context, filter *child.QueryFilter, ordering []core.DBOrdering) ([]child.Child, error) {
	var where whereClause
	if filter != nil {
		if filter.CenterID != "" {
			where.and("center_id = ?", filter.CenterID)
		}
		if filter.ParentID != "" {
			where.and("parent_id = ?", filter.ParentID)
		}
		if filter.Search != "" {
			where.and("name ILIKE ?", likePattern(filter.Search))
		}
		if filter.IsActive != nil {
			where.and("is_active = ?", *filter.IsActive)
		}
	}

	var rows []childRow
	q := "SELECT " + childColumns + " FROM children" + where.String() + core.OrderByClause(ordering, "name ASC")
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying children")
	}

	children := make([]child.Child, 0, len(rows))
	for _, r := range rows {
		children = append(children, r.toChild())
	}
	return children, nil
}

func (repo *childRepository) GetChild(ctx context.Context, centerID, id string) (child.Child, error) {
	if !isUUID(id) {
		return child.Child{}, child.ErrNotFound
	}
	var where whereClause
	where.and("id = ?", id)
	if centerID != "" {
		where.and("center_id = ?", centerID)
	}

	var row childRow
	q := "SELECT " + childColumns + " FROM children" + where.String()
	if err := repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), where.args...); err != nil {
		return child.Child{}, trapNoRowsErr(err, child.ErrNotFound, "finding child")
	}
	return row.toChild(), nil
}

func (repo *childRepository) UpdateChild(ctx context.Context, c child.Child) (child.Child, error) {
	q := `UPDATE children SET
		parent_id = :parent_id, name = :name, birth_date = :birth_date, gender = :gender,
		diagnosis = :diagnosis, notes = :notes, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id AND center_id = :center_id`
	res, err := repo.exec.NamedExecContext(ctx, q, toChildRow(c))
	if err != nil {
		return child.Child{}, errors.Wrap(err, "updating child")
	}
	if err = checkAffected(res, child.ErrNotFound, "updating child"); err != nil {
		return child.Child{}, err
	}
	return c, nil
}

func (repo *childRepository) DeleteChild(ctx context.Context, centerID, id string) error {
	if !isUUID(id) {
		return child.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind("DELETE FROM children WHERE id = ? AND center_id = ?"), id, centerID)
	if err != nil {
		return errors.Wrap(err, "deleting child")
	}
	return checkAffected(res, child.ErrNotFound, "deleting child")
}
