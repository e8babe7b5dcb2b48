package payment

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/kidcare/core"
)

const DefaultCurrency = "KRW"

// Methods
const (
	MethodCard     = "card"
	MethodCash     = "cash"
	MethodTransfer = "transfer"
	MethodVoucher  = "voucher"

	methodTag = "payment_method"
)

// Statuses
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusRefunded  = "refunded"
	StatusCancelled = "cancelled"
)

var (
	Methods  = []string{MethodCard, MethodCash, MethodTransfer, MethodVoucher}
	Statuses = []string{StatusPending, StatusPaid, StatusRefunded, StatusCancelled}
)

// InitValidators registers the Payment validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOfValidation(validate, translator, methodTag, Methods)
}

type Payment struct {
	ID          string          `json:"id"`
	CenterID    string          `json:"center_id"`
	ChildID     string          `json:"child_id"`
	PayerID     string          `json:"payer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Method      string          `json:"method"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
	DueDate     time.Time       `json:"due_date"`
	PaidAt      time.Time       `json:"paid_at"`    // UTC
	CreatedAt   time.Time       `json:"created_at"` // UTC
	UpdatedAt   time.Time       `json:"updated_at"` // UTC
}

// IsOverdue reports whether p is still pending past its due date.
func (p Payment) IsOverdue(now time.Time) bool {
	return p.Status == StatusPending && !p.DueDate.IsZero() && p.DueDate.Before(now)
}

type NewPayment struct {
	CenterID    string          `json:"-"`
	ChildID     string          `json:"child_id" validate:"required,uuid"`
	PayerID     string          `json:"payer_id" validate:"omitempty,uuid"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"omitempty,len=3,alpha"`
	Description string          `json:"description" validate:"max=200"`
	DueDate     time.Time       `json:"due_date"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.Currency = core.CleanString(np.Currency)
	if np.Currency == "" {
		np.Currency = DefaultCurrency
	}
	np.Description = core.CleanString(np.Description)
	if err := validate.Struct(np); err != nil {
		return err
	}
	return checkAmount(np.Amount)
}

type UpdatePayment struct {
	PayerID     *string          `json:"payer_id" validate:"omitempty,uuid"`
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description" validate:"omitempty,max=200"`
	DueDate     *time.Time       `json:"due_date"`
}

func (up *UpdatePayment) Validate(validate *validator.Validate) error {
	if up.Description != nil {
		*up.Description = core.CleanString(*up.Description)
	}
	if err := validate.Struct(up); err != nil {
		return err
	}
	if up.Amount != nil {
		return checkAmount(*up.Amount)
	}
	return nil
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "amount must be greater than 0"})
	}
	return nil
}

type MarkPaid struct {
	Method string    `json:"method" validate:"required,payment_method"`
	PaidAt time.Time `json:"paid_at"`
}

func (mp *MarkPaid) Validate(validate *validator.Validate) error {
	mp.Method = core.CleanString(mp.Method, true /* lower */)
	if mp.PaidAt.IsZero() {
		mp.PaidAt = NowFunc()
	}
	mp.PaidAt = mp.PaidAt.UTC()
	return validate.Struct(mp)
}

// QueryFilter selects Payments. From & To bound CreatedAt as [From, To).
type QueryFilter struct {
	CenterID  string
	ChildID   string
	PayerID   string
	Statuses  []string
	DueBefore time.Time
	From      time.Time
	To        time.Time
}

type (
	MonthlyTotal struct {
		Month string          `json:"month"` // YYYY-MM
		Paid  decimal.Decimal `json:"paid"`
	}

	Summary struct {
		From          time.Time       `json:"from"`
		To            time.Time       `json:"to"`
		Currency      string          `json:"currency"`
		Paid          decimal.Decimal `json:"paid"`
		Pending       decimal.Decimal `json:"pending"`
		Refunded      decimal.Decimal `json:"refunded"`
		PaidCount     int             `json:"paid_count"`
		PendingCount  int             `json:"pending_count"`
		RefundedCount int             `json:"refunded_count"`
		Monthly       []MonthlyTotal  `json:"monthly"`
	}
)
