package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/counseling"
)

const counselingColumns = `id, center_id, child_id, therapist_id, schedule_id, session_date, summary, content,
	homework_for_parent, shared_with_parent, created_at, updated_at`

type counselingRow struct {
	ID                string      `db:"id"`
	CenterID          string      `db:"center_id"`
	ChildID           string      `db:"child_id"`
	TherapistID       string      `db:"therapist_id"`
	ScheduleID        null.String `db:"schedule_id"`
	SessionDate       time.Time   `db:"session_date"`
	Summary           string      `db:"summary"`
	Content           string      `db:"content"`
	HomeworkForParent string      `db:"homework_for_parent"`
	SharedWithParent  bool        `db:"shared_with_parent"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

func toCounselingRow(l counseling.Log) counselingRow {
	return counselingRow{
		ID:                l.ID,
		CenterID:          l.CenterID,
		ChildID:           l.ChildID,
		TherapistID:       l.TherapistID,
		ScheduleID:        nullString(l.ScheduleID),
		SessionDate:       l.SessionDate.UTC(),
		Summary:           l.Summary,
		Content:           l.Content,
		HomeworkForParent: l.HomeworkForParent,
		SharedWithParent:  l.SharedWithParent,
		CreatedAt:         l.CreatedAt.UTC(),
		UpdatedAt:         l.UpdatedAt.UTC(),
	}
}

func (r counselingRow) toLog() counseling.Log {
	return counseling.Log{
		ID:                r.ID,
		CenterID:          r.CenterID,
		ChildID:           r.ChildID,
		TherapistID:       r.TherapistID,
		ScheduleID:        r.ScheduleID.String,
		SessionDate:       r.SessionDate.UTC(),
		Summary:           r.Summary,
		Content:           r.Content,
		HomeworkForParent: r.HomeworkForParent,
		SharedWithParent:  r.SharedWithParent,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

type counselingRepository struct {
	exec core.DBExecutor
}

var _ counseling.Repository = (*counselingRepository)(nil) // interface compliance check

func NewCounselingRepository(exec core.DBExecutor) counseling.Repository {
	return &counselingRepository{exec: exec}
}

func (repo *counselingRepository) CreateLog(ctx context.Context, l counseling.Log) (counseling.Log, error) {
	l.ID = newID()
	q := `INSERT INTO counseling_logs (` + counselingColumns + `)
		VALUES (:id, :center_id, :child_id, :therapist_id, :schedule_id, :session_date, :summary, :content,
		:homework_for_parent, :shared_with_parent, :created_at, :updated_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, toCounselingRow(l)); err != nil {
		return counseling.Log{}, errors.Wrap(err, "inserting counseling log")
	}
	return l, nil
}

func (repo *counselingRepository) QueryLogs(ctx context.Context, filter *counseling.QueryFilter, ordering []core.DBOrdering) ([]counseling.Log, error) {
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
		if filter.SharedOnly {
			where.and("shared_with_parent")
		}
		where.andRange("session_date", filter.From, filter.To)
	}

	var rows []counselingRow
	q := "SELECT " + counselingColumns + " FROM counseling_logs" + where.String() + core.OrderByClause(ordering, "session_date DESC")
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying counseling logs")
	}

	logs := make([]counseling.Log, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, r.toLog())
	}
	return logs, nil
}

func (repo *counselingRepository) GetLog(ctx context.Context, centerID, id string) (counseling.Log, error) {
	if !isUUID(id) {
		return counseling.Log{}, counseling.ErrNotFound
	}
	var where whereClause
	where.and("id = ?", id)
	if centerID != "" {
		where.and("center_id = ?", centerID)
	}

	var row counselingRow
	q := "SELECT " + counselingColumns + " FROM counseling_logs" + where.String()
	if err := repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), where.args...); err != nil {
		return counseling.Log{}, trapNoRowsErr(err, counseling.ErrNotFound, "finding counseling log")
	}
	return row.toLog(), nil
}

func (repo *counselingRepository) UpdateLog(ctx context.Context, l counseling.Log) (counseling.Log, error) {
	q := `UPDATE counseling_logs SET
		therapist_id = :therapist_id, schedule_id = :schedule_id, session_date = :session_date, summary = :summary,
		content = :content, homework_for_parent = :homework_for_parent, shared_with_parent = :shared_with_parent,
		updated_at = :updated_at
		WHERE id = :id AND center_id = :center_id`
	res, err := repo.exec.NamedExecContext(ctx, q, toCounselingRow(l))
	if err != nil {
		return counseling.Log{}, errors.Wrap(err, "updating counseling log")
	}
	if err = checkAffected(res, counseling.ErrNotFound, "updating counseling log"); err != nil {
		return counseling.Log{}, err
	}
	return l, nil
}

func (repo *counselingRepository) DeleteLog(ctx context.Context, centerID, id string) error {
	if !isUUID(id) {
		return counseling.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind("DELETE FROM counseling_logs WHERE id = ? AND center_id = ?"), id, centerID)
	if err != nil {
		return errors.Wrap(err, "deleting counseling log")
	}
	return checkAffected(res, counseling.ErrNotFound, "deleting counseling log")
}
