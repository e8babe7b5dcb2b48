// Package push stores the Web Push subscriptions of users.
package push

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kidcare/core"
)

var (
	NowFunc = time.Now // mockable

	ErrNotFound = errors.New("subscription not found")
)

type Subscription struct {
	ID        string    `json:"id"`
	CenterID  string    `json:"center_id"`
	UserID    string    `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewSubscription mirrors the browser's PushSubscription JSON.
type NewSubscription struct {
	CenterID  string `json:"-"`
	UserID    string `json:"-"`
	UserAgent string `json:"-"`
	Endpoint  string `json:"endpoint" validate:"required,url,max=2000"`
	Keys      struct {
		P256dh string `json:"p256dh" validate:"required,max=200"`
		Auth   string `json:"auth" validate:"required,max=100"`
	} `json:"keys"`
}

func (ns *NewSubscription) Validate(validate *validator.Validate) error {
	ns.Endpoint = core.CleanString(ns.Endpoint)
	ns.Keys.P256dh = core.CleanString(ns.Keys.P256dh)
	ns.Keys.Auth = core.CleanString(ns.Keys.Auth)
	return validate.Struct(ns)
}

type QueryFilter struct {
	CenterID string
	UserID   string
}

type (
	Repository interface {
		// UpsertSubscription creates the Subscription, or replaces the one with the same endpoint.
		UpsertSubscription(ctx context.Context, s Subscription) (Subscription, error)
		GetSubscription(ctx context.Context, endpoint string) (Subscription, error)
		QuerySubscriptions(ctx context.Context, filter *QueryFilter) ([]Subscription, error)
		DeleteSubscription(ctx context.Context, endpoint string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Subscribe stores a subscription. An existing endpoint is re-bound to the current user.
func (svc *Service) Subscribe(ctx context.Context, ns NewSubscription) (Subscription, error) {
	now := NowFunc().UTC()
	sub := Subscription{
		CenterID:  ns.CenterID,
		UserID:    ns.UserID,
		Endpoint:  ns.Endpoint,
		P256dh:    ns.Keys.P256dh,
		Auth:      ns.Keys.Auth,
		UserAgent: ns.UserAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := svc.repo.GetSubscription(ctx, ns.Endpoint); err == nil {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else if err != ErrNotFound {
		return Subscription{}, err
	}
	return svc.repo.UpsertSubscription(ctx, sub)
}

// Unsubscribe deletes the subscription of `userID` with `endpoint`.
func (svc *Service) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	sub, err := svc.repo.GetSubscription(ctx, core.CleanString(endpoint))
	if err != nil {
		return err
	}
	if sub.UserID != userID {
		return ErrNotFound
	}
	return svc.repo.DeleteSubscription(ctx, sub.Endpoint)
}

func (svc *Service) ListForUser(ctx context.Context, userID string) ([]Subscription, error) {
	return svc.repo.QuerySubscriptions(ctx, &QueryFilter{UserID: userID})
}

func (svc *Service) ListForCenter(ctx context.Context, centerID string) ([]Subscription, error) {
	return svc.repo.QuerySubscriptions(ctx, &QueryFilter{CenterID: centerID})
}
