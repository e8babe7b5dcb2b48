package schedule

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kidcare/core"
)

// Statuses
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"

	statusTag = "schedule_status"
)

var Statuses = []string{StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow}

// InitValidators registers the Schedule validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOfValidation(validate, translator, statusTag, Statuses)
}

// Schedule is a therapy session of a child with a therapist.
type Schedule struct {
	ID          string    `json:"id"`
	CenterID    string    `json:"center_id"`
	ChildID     string    `json:"child_id"`
	TherapistID string    `json:"therapist_id"`
	StartsAt    time.Time `json:"starts_at"` // UTC
	EndsAt      time.Time `json:"ends_at"`   // UTC
	Status      string    `json:"status"`
	Room        string    `json:"room"`
	Notes       string    `json:"notes"`
	CompletedAt time.Time `json:"completed_at"` // UTC
	CreatedAt   time.Time `json:"created_at"`   // UTC
	UpdatedAt   time.Time `json:"updated_at"`   // UTC
}

// Overlaps reports whether s and [start, end) share any instant.
func (s Schedule) Overlaps(start, end time.Time) bool {
	return s.StartsAt.Before(end) && start.Before(s.EndsAt)
}

type NewSchedule struct {
	CenterID    string    `json:"-"`
	ChildID     string    `json:"child_id" validate:"required,uuid"`
	TherapistID string    `json:"therapist_id" validate:"required,uuid"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Room        string    `json:"room" validate:"max=50"`
	Notes       string    `json:"notes"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.Room = core.CleanString(ns.Room)
	ns.StartsAt = ns.StartsAt.UTC()
	ns.EndsAt = ns.EndsAt.UTC()
	return validate.Struct(ns)
}

// UpdateSchedule defines what information may be provided to reschedule an existing Schedule.
type UpdateSchedule struct {
	ChildID     *string    `json:"child_id" validate:"omitempty,uuid"`
	TherapistID *string    `json:"therapist_id" validate:"omitempty,uuid"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Room        *string    `json:"room" validate:"omitempty,max=50"`
	Notes       *string    `json:"notes"`
}

func (us *UpdateSchedule) Validate(validate *validator.Validate) error {
	if us.Room != nil {
		*us.Room = core.CleanString(*us.Room)
	}
	return validate.Struct(us)
}

type SetStatus struct {
	Status string `json:"status" validate:"required,schedule_status"`
}

func (ss *SetStatus) Validate(validate *validator.Validate) error {
	ss.Status = core.CleanString(ss.Status, true /* lower */)
	return validate.Struct(ss)
}

// QueryFilter selects Schedules. From & To bound StartsAt as [From, To).
type QueryFilter struct {
	CenterID    string
	ChildID     string
	ChildIDs    []string // restricts to these children when non-nil (parents)
	TherapistID string
	Statuses    []string
	From        time.Time
	To          time.Time
}
