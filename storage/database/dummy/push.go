package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/kidcare/core/push"
)

// pushRepository rows are keyed by endpoint.
type pushRepository struct {
	db *table[push.Subscription]
}

var _ push.Repository = (*pushRepository)(nil) // interface compliance check

func NewPushRepository(db *DB) push.Repository {
	return &pushRepository{db: db.push}
}

func (repo *pushRepository) UpsertSubscription(_ context.Context, s push.Subscription) (push.Subscription, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if existing, ok := repo.db.rows[s.Endpoint]; ok {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
	} else if s.ID == "" {
		s.ID = uuid.New().String()
	}
	repo.db.rows[s.Endpoint] = &s
	return s, nil
}

func (repo *pushRepository) GetSubscription(_ context.Context, endpoint string) (push.Subscription, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.rows[endpoint]; ok {
		return *s, nil
	}
	return push.Subscription{}, push.ErrNotFound
}

func (repo *pushRepository) QuerySubscriptions(_ context.Context, filter *push.QueryFilter) ([]push.Subscription, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := repo.db.all(func(s *push.Subscription) bool {
		if filter == nil {
			return true
		}
		if filter.CenterID != "" && s.CenterID != filter.CenterID {
			return false
		}
		return filter.UserID == "" || s.UserID == filter.UserID
	})
	orderBy(subs, nil, nil, func(a, b push.Subscription) int { return cmpTime(a.CreatedAt, b.CreatedAt) })
	return subs, nil
}

func (repo *pushRepository) DeleteSubscription(_ context.Context, endpoint string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[endpoint]; !ok {
		return push.ErrNotFound
	}
	delete(repo.db.rows, endpoint)
	return nil
}
