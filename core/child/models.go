package child

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kidcare/core"
)

const (
	GenderFemale = "female"
	GenderMale   = "male"
	GenderOther  = "other"

	genderTag = "gender"
)

var Genders = []string{GenderFemale, GenderMale, GenderOther}

// InitValidators registers the Child validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOfValidation(validate, translator, genderTag, Genders)
}

type Child struct {
	ID        string    `json:"id"`
	CenterID  string    `json:"center_id"`
	ParentID  string    `json:"parent_id"`
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birth_date"`
	Gender    string    `json:"gender"`
	Diagnosis string    `json:"diagnosis"`
	Notes     string    `json:"notes"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// AgeMonths returns the age of `c` in whole months at `at`.
func (c Child) AgeMonths(at time.Time) int {
	if c.BirthDate.IsZero() || at.Before(c.BirthDate) {
		return 0
	}
	by, bm, bd := c.BirthDate.Date()
	y, m, d := at.In(c.BirthDate.Location()).Date()
	months := (y-by)*12 + int(m-bm)
	if d < bd {
		months--
	}
	return months
}

type NewChild struct {
	CenterID  string    `json:"-"`
	ParentID  string    `json:"parent_id" validate:"omitempty,uuid"`
	Name      string    `json:"name" validate:"required,max=100"`
	BirthDate time.Time `json:"birth_date" validate:"required"`
	Gender    string    `json:"gender" validate:"omitempty,gender"`
	Diagnosis string    `json:"diagnosis"`
	Notes     string    `json:"notes"`
}

func (nc *NewChild) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Gender = core.CleanString(nc.Gender, true /* lower */)
	if err := validate.Struct(nc); err != nil {
		return err
	}
	return checkBirthDate(nc.BirthDate)
}

// UpdateChild defines what information may be provided to modify an existing Child.
type UpdateChild struct {
	ParentID  *string    `json:"parent_id" validate:"omitempty,uuid"`
	Name      *string    `json:"name" validate:"omitempty,min=1,max=100"`
	BirthDate *time.Time `json:"birth_date"`
	Gender    *string    `json:"gender" validate:"omitempty,gender"`
	Diagnosis *string    `json:"diagnosis"`
	Notes     *string    `json:"notes"`
	IsActive  *bool      `json:"is_active"`
}

func (uc *UpdateChild) Validate(validate *validator.Validate) error {
	if uc.Name != nil {
		*uc.Name = core.CleanString(*uc.Name)
	}
	if uc.Gender != nil {
		*uc.Gender = core.CleanString(*uc.Gender, true /* lower */)
	}
	if err := validate.Struct(uc); err != nil {
		return err
	}
	if uc.BirthDate != nil {
		return checkBirthDate(*uc.BirthDate)
	}
	return nil
}

func checkBirthDate(bd time.Time) error {
	if bd.After(NowFunc()) {
		return core.NewValidationError(nil, core.FieldError{Field: "birth_date", Error: "birth date cannot be in the future"})
	}
	return nil
}

type QueryFilter struct {
	CenterID string
	ParentID string
	Search   string
	IsActive *bool
}
