package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/push"
)

const subscriptionColumns = "id, center_id, user_id, endpoint, p256dh, auth, user_agent, created_at, updated_at"

type subscriptionRow struct {
	ID        string    `db:"id"`
	CenterID  string    `db:"center_id"`
	UserID    string    `db:"user_id"`
	Endpoint  string    `db:"endpoint"`
	P256dh    string    `db:"p256dh"`
	Auth      string    `db:"auth"`
	UserAgent string    `db:"user_agent"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r subscriptionRow) toSubscription() push.Subscription {
	return push.Subscription{
		ID:        r.ID,
		CenterID:  r.CenterID,
		UserID:    r.UserID,
		Endpoint:  r.Endpoint,
		P256dh:    r.P256dh,
		Auth:      r.Auth,
		UserAgent: r.UserAgent,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type pushRepository struct {
	exec core.DBExecutor
}

var _ push.Repository = (*pushRepository)(nil) // interface compliance check

func NewPushRepository(exec core.DBExecutor) push.Repository {
	return &pushRepository{exec: exec}
}

func (repo *pushRepository) UpsertSubscription(ctx context.Context, s push.Subscription) (push.Subscription, error) {
	row := subscriptionRow{
		ID:        newID(),
		CenterID:  s.CenterID,
		UserID:    s.UserID,
		Endpoint:  s.Endpoint,
		P256dh:    s.P256dh,
		Auth:      s.Auth,
		UserAgent: s.UserAgent,
		CreatedAt: s.CreatedAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
	}
	q := `INSERT INTO push_subscriptions (` + subscriptionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (endpoint) DO UPDATE SET
			center_id = EXCLUDED.center_id, user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth, user_agent = EXCLUDED.user_agent, updated_at = EXCLUDED.updated_at
		RETURNING ` + subscriptionColumns

	var saved subscriptionRow
	err := repo.exec.GetContext(ctx, &saved, repo.exec.Rebind(q),
		row.ID, row.CenterID, row.UserID, row.Endpoint, row.P256dh, row.Auth, row.UserAgent, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return push.Subscription{}, errors.Wrap(err, "upserting push subscription")
	}
	return saved.toSubscription(), nil
}

func (repo *pushRepository) GetSubscription(ctx context.Context, endpoint string) (push.Subscription, error) {
	var row subscriptionRow
	q := repo.exec.Rebind("SELECT " + subscriptionColumns + " FROM push_subscriptions WHERE endpoint = ?")
	if err := repo.exec.GetContext(ctx, &row, q, endpoint); err != nil {
		return push.Subscription{}, trapNoRowsErr(err, push.ErrNotFound, "finding push subscription")
	}
	return row.toSubscription(), nil
}

func (repo *pushRepository) QuerySubscriptions(ctx context.Context, filter *push.QueryFilter) ([]push.Subscription, error) {
	var where whereClause
	if filter != nil {
		if filter.CenterID != "" {
			where.and("center_id = ?", filter.CenterID)
		}
		if filter.UserID != "" {
			where.and("user_id = ?", filter.UserID)
		}
	}

	var rows []subscriptionRow
	q := "SELECT " + subscriptionColumns + " FROM push_subscriptions" + where.String() + " ORDER BY created_at ASC"
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying push subscriptions")
	}

	subs := make([]push.Subscription, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.toSubscription())
	}
	return subs, nil
}

func (repo *pushRepository) DeleteSubscription(ctx context.Context, endpoint string) error {
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind("DELETE FROM push_subscriptions WHERE endpoint = ?"), endpoint)
	if err != nil {
		return errors.Wrap(err, "deleting push subscription")
	}
	return checkAffected(res, push.ErrNotFound, "deleting push subscription")
}
