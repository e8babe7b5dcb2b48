package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/payment"
)

const paymentColumns = "id, center_id, child_id, payer_id, amount, currency, method, status, description, due_date, paid_at, created_at, updated_at"

type paymentRow struct {
	ID          string          `db:"id"`
	CenterID    string          `db:"center_id"`
	ChildID     string          `db:"child_id"`
	PayerID     null.String     `db:"payer_id"`
	Amount      decimal.Decimal `db:"amount"`
	Currency    string          `db:"currency"`
	Method      string          `db:"method"`
	Status      string          `db:"status"`
	Description string          `db:"description"`
	DueDate     null.Time       `db:"due_date"`
	PaidAt      null.Time       `db:"paid_at"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func toPaymentRow(p payment.Payment) paymentRow {
	return paymentRow{
		ID:          p.ID,
		CenterID:    p.CenterID,
		ChildID:     p.ChildID,
		PayerID:     nullString(p.PayerID),
		Amount:      p.Amount,
		Currency:    p.Currency,
		Method:      p.Method,
		Status:      p.Status,
		Description: p.Description,
		DueDate:     nullTime(p.DueDate),
		PaidAt:      nullTime(p.PaidAt),
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
}

func (r paymentRow) toPayment() payment.Payment {
	p := payment.Payment{
		ID:          r.ID,
		CenterID:    r.CenterID,
		ChildID:     r.ChildID,
		PayerID:     r.PayerID.String,
		Amount:      r.Amount,
		Currency:    r.Currency,
		Method:      r.Method,
		Status:      r.Status,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.DueDate.Valid {
		p.DueDate = r.DueDate.Time.UTC()
	}
	if r.PaidAt.Valid {
		p.PaidAt = r.PaidAt.Time.UTC()
	}
	return p
}

type paymentRepository struct {
	exec core.DBExecutor
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(exec core.DBExecutor) payment.Repository {
	return &paymentRepository{exec: exec}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	p.ID = newID()
	q := `INSERT INTO payments (` + paymentColumns + `)
		VALUES (:id, :center_id, :child_id, :payer_id, :amount, :currency, :method, :status, :description,
		:due_date, :paid_at, :created_at, :updated_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, toPaymentRow(p)); err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering) ([]payment.Payment, error) {
	var where whereClause
	if filter != nil {
		if filter.CenterID != "" {
			where.and("center_id = ?", filter.CenterID)
		}
		if filter.ChildID != "" {
			where.and("child_id = ?", filter.ChildID)
		}
		if filter.PayerID != "" {
			where.and("payer_id = ?", filter.PayerID)
		}
		if len(filter.Statuses) > 0 {
			where.and("status = ANY(?)", pq.Array(filter.Statuses))
		}
		if !filter.DueBefore.IsZero() {
			where.and("due_date < ?", filter.DueBefore.UTC())
		}
		where.andRange("created_at", filter.From, filter.To)
	}

	var rows []paymentRow
	q := "SELECT " + paymentColumns + " FROM payments" + where.String() + core.OrderByClause(ordering, "created_at DESC")
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}

	payments := make([]payment.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.toPayment())
	}
	return payments, nil
}

func (repo *paymentRepository) GetPayment(ctx context.Context, centerID, id string) (payment.Payment, error) {
	if !isUUID(id) {
		return payment.Payment{}, payment.ErrNotFound
	}
	var where whereClause
	where.and("id = ?", id)
	if centerID != "" {
		where.and("center_id = ?", centerID)
	}

	var row paymentRow
	q := "SELECT " + paymentColumns + " FROM payments" + where.String()
	if err := repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), where.args...); err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "finding payment")
	}
	return row.toPayment(), nil
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	q := `UPDATE payments SET
		payer_id = :payer_id, amount = :amount, currency = :currency, method = :method, status = :status,
		description = :description, due_date = :due_date, paid_at = :paid_at, updated_at = :updated_at
		WHERE id = :id AND center_id = :center_id`
	res, err := repo.exec.NamedExecContext(ctx, q, toPaymentRow(p))
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "updating payment")
	}
	if err = checkAffected(res, payment.ErrNotFound, "updating payment"); err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}

func (repo *paymentRepository) DeletePayment(ctx context.Context, centerID, id string) error {
	if !isUUID(id) {
		return payment.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind("DELETE FROM payments WHERE id = ? AND center_id = ?"), id, centerID)
	if err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	return checkAffected(res, payment.ErrNotFound, "deleting payment")
}
