package payment

import (
	"context"
	"errors"
	"net/mail"
	"sort"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/child"
	"github.com/trezcool/kidcare/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound      = errors.New("payment not found")
	ErrNotPending    = errors.New("only pending payments can be changed")
	ErrNotPaid       = errors.New("only paid payments can be refunded")
	ErrNotCancelable = errors.New("only pending payments can be cancelled")
	ErrPayerNotFound = errors.New("payer not found")
)

// OrderingFields lists the fields Payments may be ordered by.
var OrderingFields = []string{"amount", "status", "due_date", "paid_at", "created_at", "updated_at"}

type (
	Repository interface {
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		QueryPayments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
		// GetPayment returns ErrNotFound if no Payment with `id` exists in center `centerID`.
		GetPayment(ctx context.Context, centerID, id string) (Payment, error)
		UpdatePayment(ctx context.Context, p Payment) (Payment, error)
		DeletePayment(ctx context.Context, centerID, id string) error
	}

	ChildFinder interface {
		GetChild(ctx context.Context, centerID, id string) (child.Child, error)
	}

	UserFinder interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo     Repository
		children ChildFinder
		users    UserFinder
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

func NewService(repo Repository, children ChildFinder, users UserFinder, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, children: children, users: users, mailSvc: mailSvc, logger: logger}
}

// Create bills a child. The payer defaults to the child's parent.
func (svc *Service) Create(ctx context.Context, np NewPayment) (Payment, error) {
	kid, err := svc.children.GetChild(ctx, np.CenterID, np.ChildID)
	if err != nil {
		if err == child.ErrNotFound {
			return Payment{}, core.NewFieldError("child_id", err)
		}
		return Payment{}, pkgerrors.Wrap(err, "finding child")
	}
	payerID := np.PayerID
	if payerID == "" {
		payerID = kid.ParentID
	} else if err = svc.checkPayer(ctx, np.CenterID, payerID); err != nil {
		return Payment{}, err
	}

	now := NowFunc().UTC()
	return svc.repo.CreatePayment(ctx, Payment{
		CenterID:    np.CenterID,
		ChildID:     np.ChildID,
		PayerID:     payerID,
		Amount:      np.Amount,
		Currency:    np.Currency,
		Status:      StatusPending,
		Description: np.Description,
		DueDate:     np.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// checkPayer returns a field error unless user `payerID` belongs to center `centerID`.
func (svc *Service) checkPayer(ctx context.Context, centerID, payerID string) error {
	payer, err := svc.users.GetByID(ctx, payerID)
	switch {
	case err == user.ErrNotFound, err == nil && payer.CenterID != centerID:
		return core.NewFieldError("payer_id", ErrPayerNotFound)
	case err != nil:
		return pkgerrors.Wrap(err, "finding payer")
	}
	return nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error) {
	ordering = core.CleanOrderings(ordering, OrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	return svc.repo.QueryPayments(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, centerID, id string) (Payment, error) {
	return svc.repo.GetPayment(ctx, centerID, id)
}

// Update modifies a pending Payment.
func (svc *Service) Update(ctx context.Context, p Payment, up UpdatePayment) (Payment, error) {
	if p.Status != StatusPending {
		return Payment{}, core.NewFieldError("status", ErrNotPending)
	}
	if up.PayerID != nil {
		if *up.PayerID != "" {
			if err := svc.checkPayer(ctx, p.CenterID, *up.PayerID); err != nil {
				return Payment{}, err
			}
		}
		p.PayerID = *up.PayerID
	}
	if up.Amount != nil {
		p.Amount = *up.Amount
	}
	if up.Description != nil {
		p.Description = *up.Description
	}
	if up.DueDate != nil {
		p.DueDate = *up.DueDate
	}
	p.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdatePayment(ctx, p)
}

// MarkPaid settles a pending Payment and e-mails a receipt to the payer.
func (svc *Service) MarkPaid(ctx context.Context, centerName string, p Payment, mp MarkPaid) (Payment, error) {
	if p.Status != StatusPending {
		return Payment{}, core.NewFieldError("status", ErrNotPending)
	}
	p.Status = StatusPaid
	p.Method = mp.Method
	p.PaidAt = mp.PaidAt
	p.UpdatedAt = NowFunc().UTC()

	p, err := svc.repo.UpdatePayment(ctx, p)
	if err != nil {
		return Payment{}, pkgerrors.Wrap(err, "updating payment")
	}
	svc.sendReceipt(ctx, centerName, p)
	return p, nil
}

func (svc *Service) sendReceipt(ctx context.Context, centerName string, p Payment) {
	if p.PayerID == "" {
		return
	}
	payer, err := svc.users.GetByID(ctx, p.PayerID)
	if err != nil {
		svc.logger.Error("payment.sendReceipt: finding payer", err)
		return
	}
	if payer.Email == "" {
		return
	}
	var childName string
	if kid, err := svc.children.GetChild(ctx, p.CenterID, p.ChildID); err == nil {
		childName = kid.Name
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: payer.Name, Address: payer.Email}},
		Subject:      "Payment Receipt",
		TemplateName: "payment_receipt",
		TemplateData: map[string]string{
			"CenterName":  centerName,
			"ChildName":   childName,
			"Description": p.Description,
			"Amount":      p.Amount.StringFixedBank(2),
			"Currency":    p.Currency,
			"Method":      p.Method,
			"PaidAt":      p.PaidAt.Format("2006-01-02 15:04"),
		},
		Tags: map[string]string{"center_id": p.CenterID, "payment_id": p.ID},
	})
}

// Refund refunds a paid Payment.
func (svc *Service) Refund(ctx context.Context, p Payment) (Payment, error) {
	if p.Status != StatusPaid {
		return Payment{}, core.NewFieldError("status", ErrNotPaid)
	}
	p.Status = StatusRefunded
	p.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdatePayment(ctx, p)
}

// Cancel cancels a pending Payment.
func (svc *Service) Cancel(ctx context.Context, p Payment) (Payment, error) {
	if p.Status != StatusPending {
		return Payment{}, core.NewFieldError("status", ErrNotCancelable)
	}
	p.Status = StatusCancelled
	p.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdatePayment(ctx, p)
}

func (svc *Service) Delete(ctx context.Context, centerID, id string) error {
	return svc.repo.DeletePayment(ctx, centerID, id)
}

// Overdue lists the pending Payments of a center (or payer) whose due date has passed.
func (svc *Service) Overdue(ctx context.Context, centerID, payerID string, now time.Time) ([]Payment, error) {
	return svc.repo.QueryPayments(
		ctx,
		&QueryFilter{CenterID: centerID, PayerID: payerID, Statuses: []string{StatusPending}, DueBefore: now.UTC()},
		[]core.DBOrdering{{Field: "due_date", Ascending: true}},
	)
}

// Summary totals the Payments of a center created in [from, to). Paid amounts are also grouped by month of payment.
func (svc *Service) Summary(ctx context.Context, centerID string, from, to time.Time) (Summary, error) {
	payments, err := svc.repo.QueryPayments(ctx, &QueryFilter{CenterID: centerID, From: from, To: to}, nil)
	if err != nil {
		return Summary{}, pkgerrors.Wrap(err, "querying payments")
	}
	return summarize(payments, from, to), nil
}

func summarize(payments []Payment, from, to time.Time) Summary {
	sum := Summary{
		From:     from,
		To:       to,
		Currency: DefaultCurrency,
		Paid:     decimal.Zero,
		Pending:  decimal.Zero,
		Refunded: decimal.Zero,
		Monthly:  []MonthlyTotal{},
	}
	monthly := make(map[string]decimal.Decimal)

	for i, p := range payments {
		if i == 0 {
			sum.Currency = p.Currency
		}
		switch p.Status {
		case StatusPaid:
			sum.Paid = sum.Paid.Add(p.Amount)
			sum.PaidCount++
			month := p.PaidAt.UTC().Format("2006-01")
			monthly[month] = monthly[month].Add(p.Amount)
		case StatusPending:
			sum.Pending = sum.Pending.Add(p.Amount)
			sum.PendingCount++
		case StatusRefunded:
			sum.Refunded = sum.Refunded.Add(p.Amount)
			sum.RefundedCount++
		}
	}

	for month, paid := range monthly {
		sum.Monthly = append(sum.Monthly, MonthlyTotal{Month: month, Paid: paid})
	}
	sort.Slice(sum.Monthly, func(i, j int) bool { return sum.Monthly[i].Month < sum.Monthly[j].Month })
	return sum
}
