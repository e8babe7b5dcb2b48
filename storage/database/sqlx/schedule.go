package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/schedule"
)

const scheduleColumns = "id, center_id, child_id, therapist_id, starts_at, ends_at, status, room, notes, completed_at, created_at, updated_at"

type scheduleRow struct {
	ID          string    `db:"id"`
	CenterID    string    `db:"center_id"`
	ChildID     string    `db:"child_id"`
	TherapistID string    `db:"therapist_id"`
	StartsAt    time.Time `db:"starts_at"`
	EndsAt      time.Time `db:"ends_at"`
	Status      string    `db:"status"`
	Room        string    `db:"room"`
	Notes       string    `db:"notes"`
	CompletedAt null.Time `db:"completed_at"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func toScheduleRow(s schedule.Schedule) scheduleRow {
	return scheduleRow{
		ID:          s.ID,
		CenterID:    s.CenterID,
		ChildID:     s.ChildID,
		TherapistID: s.TherapistID,
		StartsAt:    s.StartsAt.UTC(),
		EndsAt:      s.EndsAt.UTC(),
		Status:      s.Status,
		Room:        s.Room,
		Notes:       s.Notes,
		CompletedAt: nullTime(s.CompletedAt),
		CreatedAt:   s.CreatedAt.UTC(),
		UpdatedAt:   s.UpdatedAt.UTC(),
	}
}

func (r scheduleRow) toSchedule() schedule.Schedule {
	s := schedule.Schedule{
		ID:          r.ID,
		CenterID:    r.CenterID,
		ChildID:     r.ChildID,
		TherapistID: r.TherapistID,
		StartsAt:    r.StartsAt.UTC(),
		EndsAt:      r.EndsAt.UTC(),
		Status:      r.Status,
		Room:        r.Room,
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.CompletedAt.Valid {
		s.CompletedAt = r.CompletedAt.Time.UTC()
	}
	return s
}

type scheduleRepository struct {
	exec core.DBExecutor
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(exec core.DBExecutor) schedule.Repository {
	return &scheduleRepository{exec: exec}
}

func (repo *scheduleRepository) CreateSchedule(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	s.ID = newID()
	q := `INSERT INTO schedules (` + scheduleColumns + `)
		VALUES (:id, :center_id, :child_id, :therapist_id, :starts_at, :ends_at, :status, :room, :notes, :completed_at, :created_at, :updated_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, toScheduleRow(s)); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "inserting schedule")
	}
	return s, nil
}

func (repo *scheduleRepository) QuerySchedules(ctx context.Context, filter *schedule.QueryFilter, ordering []core.DBOrdering) ([]schedule.Schedule, error) {
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
		if len(filter.Statuses) > 0 {
			where.and("status = ANY(?)", pq.Array(filter.Statuses))
		}
		where.andRange("starts_at", filter.From, filter.To)
	}

	var rows []scheduleRow
	q := "SELECT " + scheduleColumns + " FROM schedules" + where.String() + core.OrderByClause(ordering, "starts_at ASC")
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}

	schedules := make([]schedule.Schedule, 0, len(rows))
	for _, r := range rows {
		schedules = append(schedules, r.toSchedule())
	}
	return schedules, nil
}

func (repo *scheduleRepository) GetSchedule(ctx context.Context, centerID, id string) (schedule.Schedule, error) {
	if !isUUID(id) {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	var where whereClause
	where.and("id = ?", id)
	if centerID != "" {
		where.and("center_id = ?", centerID)
	}

	var row scheduleRow
	q := "SELECT " + scheduleColumns + " FROM schedules" + where.String()
	if err := repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), where.args...); err != nil {
		return schedule.Schedule{}, trapNoRowsErr(err, schedule.ErrNotFound, "finding schedule")
	}
	return row.toSchedule(), nil
}

func (repo *scheduleRepository) UpdateSchedule(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	q := `UPDATE schedules SET
		child_id = :child_id, therapist_id = :therapist_id, starts_at = :starts_at, ends_at = :ends_at,
		status = :status, room = :room, notes = :notes, completed_at = :completed_at, updated_at = :updated_at
		WHERE id = :id AND center_id = :center_id`
	res, err := repo.exec.NamedExecContext(ctx, q, toScheduleRow(s))
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "updating schedule")
	}
	if err = checkAffected(res, schedule.ErrNotFound, "updating schedule"); err != nil {
		return schedule.Schedule{}, err
	}
	return s, nil
}

func (repo *scheduleRepository) DeleteSchedule(ctx context.Context, centerID, id string) error {
	if !isUUID(id) {
		return schedule.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind("DELETE FROM schedules WHERE id = ? AND center_id = ?"), id, centerID)
	if err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return checkAffected(res, schedule.ErrNotFound, "deleting schedule")
}

func (repo *scheduleRepository) HasOverlap(ctx context.Context, therapistID string, start, end time.Time, excludedID string) (bool, error) {
	var where whereClause
	where.and("therapist_id = ?", therapistID)
	where.and("status = ?", schedule.StatusScheduled)
	where.and("starts_at < ? AND ends_at > ?", end.UTC(), start.UTC())
	if isUUID(excludedID) {
		where.and("id <> ?", excludedID)
	}

	var exists bool
	q := "SELECT EXISTS (SELECT 1 FROM schedules" + where.String() + ")"
	if err := repo.exec.GetContext(ctx, &exists, repo.exec.Rebind(q), where.args...); err != nil {
		return false, errors.Wrap(err, "checking schedule overlap")
	}
	return exists, nil
}

func (repo *scheduleRepository) AutoComplete(ctx context.Context, centerID string, now time.Time) (int, error) {
	now = now.UTC()
	q := "UPDATE schedules SET status = ?, completed_at = ?, updated_at = ? WHERE status = ? AND ends_at <= ?"
	args := []interface{}{schedule.StatusCompleted, now, now, schedule.StatusScheduled, now}
	if centerID != "" {
		q += " AND center_id = ?"
		args = append(args, centerID)
	}

	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "completing schedules")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "completing schedules")
	}
	return int(cnt), nil
}
