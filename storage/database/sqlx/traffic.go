package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/traffic"
)

const visitColumns = `id, center_id, path, referrer, referrer_host, utm_source, utm_medium, utm_campaign,
	category, source_name, session_id, user_agent, created_at`

type visitRow struct {
	ID           string    `db:"id"`
	CenterID     string    `db:"center_id"`
	Path         string    `db:"path"`
	Referrer     string    `db:"referrer"`
	ReferrerHost string    `db:"referrer_host"`
	UTMSource    string    `db:"utm_source"`
	UTMMedium    string    `db:"utm_medium"`
	UTMCampaign  string    `db:"utm_campaign"`
	Category     string    `db:"category"`
	SourceName   string    `db:"source_name"`
	SessionID    string    `db:"session_id"`
	UserAgent    string    `db:"user_agent"`
	CreatedAt    time.Time `db:"created_at"`
}

func toVisitRow(v traffic.Visit) visitRow {
	return visitRow{
		ID:           v.ID,
		CenterID:     v.CenterID,
		Path:         v.Path,
		Referrer:     v.Referrer,
		ReferrerHost: v.ReferrerHost,
		UTMSource:    v.UTMSource,
		UTMMedium:    v.UTMMedium,
		UTMCampaign:  v.UTMCampaign,
		Category:     v.Category,
		SourceName:   v.SourceName,
		SessionID:    v.SessionID,
		UserAgent:    v.UserAgent,
		CreatedAt:    v.CreatedAt.UTC(),
	}
}

func (r visitRow) toVisit() traffic.Visit {
	return traffic.Visit{
		ID:           r.ID,
		CenterID:     r.CenterID,
		Path:         r.Path,
		Referrer:     r.Referrer,
		ReferrerHost: r.ReferrerHost,
		UTMSource:    r.UTMSource,
		UTMMedium:    r.UTMMedium,
		UTMCampaign:  r.UTMCampaign,
		Category:     r.Category,
		SourceName:   r.SourceName,
		SessionID:    r.SessionID,
		UserAgent:    r.UserAgent,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type visitRepository struct {
	exec core.DBExecutor
}

var _ traffic.Repository = (*visitRepository)(nil) // interface compliance check

func NewVisitRepository(exec core.DBExecutor) traffic.Repository {
	return &visitRepository{exec: exec}
}

func (repo *visitRepository) CreateVisit(ctx context.Context, v traffic.Visit) (traffic.Visit, error) {
	v.ID = newID()
	q := `INSERT INTO site_visits (` + visitColumns + `)
		VALUES (:id, :center_id, :path, :referrer, :referrer_host, :utm_source, :utm_medium, :utm_campaign,
		:category, :source_name, :session_id, :user_agent, :created_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, toVisitRow(v)); err != nil {
		return traffic.Visit{}, errors.Wrap(err, "inserting visit")
	}
	return v, nil
}

func (repo *visitRepository) QueryVisits(ctx context.Context, filter *traffic.QueryFilter) ([]traffic.Visit, error) {
	var where whereClause
	if filter != nil {
		if filter.CenterID != "" {
			where.and("center_id = ?", filter.CenterID)
		}
		where.andRange("created_at", filter.From, filter.To)
	}

	var rows []visitRow
	q := "SELECT " + visitColumns + " FROM site_visits" + where.String() + " ORDER BY created_at ASC"
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying visits")
	}

	visits := make([]traffic.Visit, 0, len(rows))
	for _, r := range rows {
		visits = append(visits, r.toVisit())
	}
	return visits, nil
}
