package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/payment"
)

type paymentRepository struct {
	db *table[payment.Payment]
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db.payment}
}

var paymentOrderings = map[string]func(a, b payment.Payment) int{
	"amount":     func(a, b payment.Payment) int { return a.Amount.Cmp(b.Amount) },
	"status":     func(a, b payment.Payment) int { return cmpString(a.Status, b.Status) },
	"due_date":   func(a, b payment.Payment) int { return cmpTime(a.DueDate, b.DueDate) },
	"paid_at":    func(a, b payment.Payment) int { return cmpTime(a.PaidAt, b.PaidAt) },
	"created_at": func(a, b payment.Payment) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"updated_at": func(a, b payment.Payment) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = uuid.New().String()
	repo.db.rows[p.ID] = &p
	return p, nil
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payments := repo.db.all(func(p *payment.Payment) bool {
		if filter == nil {
			return true
		}
		if filter.CenterID != "" && p.CenterID != filter.CenterID {
			return false
		}
		if filter.ChildID != "" && p.ChildID != filter.ChildID {
			return false
		}
		if filter.PayerID != "" && p.PayerID != filter.PayerID {
			return false
		}
		if len(filter.Statuses) > 0 && !core.StringsContain(filter.Statuses, p.Status) {
			return false
		}
		if !filter.DueBefore.IsZero() && (p.DueDate.IsZero() || !p.DueDate.Before(filter.DueBefore)) {
			return false
		}
		return inRange(p.CreatedAt, filter.From, filter.To)
	})
	orderBy(payments, ordering, paymentOrderings, paymentOrderings["created_at"])
	return payments, nil
}

func (repo *paymentRepository) GetPayment(_ context.Context, centerID, id string) (payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.rows[id]; ok && (centerID == "" || p.CenterID == centerID) {
		return *p, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) UpdatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[p.ID]; !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	repo.db.rows[p.ID] = &p
	return p, nil
}

func (repo *paymentRepository) DeletePayment(_ context.Context, centerID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if p, ok := repo.db.rows[id]; ok && p.CenterID == centerID {
		delete(repo.db.rows, id)
		return nil
	}
	return payment.ErrNotFound
}
