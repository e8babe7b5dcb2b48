package assessment

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kidcare/core"
)

// Development areas
const (
	AreaGrossMotor = "gross_motor"
	AreaFineMotor  = "fine_motor"
	AreaLanguage   = "language"
	AreaCognitive  = "cognitive"
	AreaSocial     = "social"
	AreaSelfCare   = "self_care"

	areaTag = "assessment_area"
)

var Areas = []string{AreaGrossMotor, AreaFineMotor, AreaLanguage, AreaCognitive, AreaSocial, AreaSelfCare}

// InitValidators registers the Assessment validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOfValidation(validate, translator, areaTag, Areas)
}

// Assessment is a scored observation of a child in one development area.
type Assessment struct {
	ID          string    `json:"id"`
	CenterID    string    `json:"center_id"`
	ChildID     string    `json:"child_id"`
	TherapistID string    `json:"therapist_id"`
	AssessedAt  time.Time `json:"assessed_at"`
	Area        string    `json:"area"`
	Score       int       `json:"score"` // 0 - 100
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type NewAssessment struct {
	CenterID    string    `json:"-"`
	ChildID     string    `json:"child_id" validate:"required,uuid"`
	TherapistID string    `json:"therapist_id" validate:"required,uuid"`
	AssessedAt  time.Time `json:"assessed_at"`
	Area        string    `json:"area" validate:"required,assessment_area"`
	Score       int       `json:"score" validate:"min=0,max=100"`
	Notes       string    `json:"notes"`
}

func (na *NewAssessment) Validate(validate *validator.Validate) error {
	na.Area = core.CleanString(na.Area, true /* lower */)
	if na.AssessedAt.IsZero() {
		na.AssessedAt = NowFunc()
	}
	na.AssessedAt = na.AssessedAt.UTC()
	return validate.Struct(na)
}

type UpdateAssessment struct {
	AssessedAt *time.Time `json:"assessed_at"`
	Area       *string    `json:"area" validate:"omitempty,assessment_area"`
	Score      *int       `json:"score" validate:"omitempty,min=0,max=100"`
	Notes      *string    `json:"notes"`
}

func (ua *UpdateAssessment) Validate(validate *validator.Validate) error {
	if ua.Area != nil {
		*ua.Area = core.CleanString(*ua.Area, true /* lower */)
	}
	return validate.Struct(ua)
}

// QueryFilter selects Assessments. From & To bound AssessedAt as [From, To).
type QueryFilter struct {
	CenterID    string
	ChildID     string
	ChildIDs    []string // restricts to these children when non-nil (parents)
	TherapistID string
	Area        string
	From        time.Time
	To          time.Time
}

// AreaProgress is the evolution of a child in a development area.
type AreaProgress struct {
	Area       string    `json:"area"`
	Latest     int       `json:"latest"`
	LatestAt   time.Time `json:"latest_at"`
	Previous   *int      `json:"previous"`
	PreviousAt time.Time `json:"previous_at,omitempty"`
	Delta      *int      `json:"delta"`
	Count      int       `json:"count"`
}
