// Package counseling manages the logs therapists write after each session.
package counseling

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/child"
	"github.com/trezcool/kidcare/core/therapist"
)

var (
	NowFunc = time.Now // mockable

	ErrNotFound = errors.New("counseling log not found")
)

// OrderingFields lists the fields Logs may be ordered by.
var OrderingFields = []string{"session_date", "created_at", "updated_at"}

type Log struct {
	ID                string    `json:"id"`
	CenterID          string    `json:"center_id"`
	ChildID           string    `json:"child_id"`
	TherapistID       string    `json:"therapist_id"`
	ScheduleID        string    `json:"schedule_id"`
	SessionDate       time.Time `json:"session_date"`
	Summary           string    `json:"summary"`
	Content           string    `json:"content"`
	HomeworkForParent string    `json:"homework_for_parent"`
	SharedWithParent  bool      `json:"shared_with_parent"`
	CreatedAt         time.Time `json:"created_at"` // UTC
	UpdatedAt         time.Time `json:"updated_at"` // UTC
}

type NewLog struct {
	CenterID          string    `json:"-"`
	ChildID           string    `json:"child_id" validate:"required,uuid"`
	TherapistID       string    `json:"therapist_id" validate:"required,uuid"`
	ScheduleID        string    `json:"schedule_id" validate:"omitempty,uuid"`
	SessionDate       time.Time `json:"session_date" validate:"required"`
	Summary           string    `json:"summary" validate:"required,max=500"`
	Content           string    `json:"content"`
	HomeworkForParent string    `json:"homework_for_parent"`
	SharedWithParent  bool      `json:"shared_with_parent"`
}

func (nl *NewLog) Validate(validate *validator.Validate) error {
	nl.Summary = core.CleanString(nl.Summary)
	return validate.Struct(nl)
}

type UpdateLog struct {
	SessionDate       *time.Time `json:"session_date"`
	Summary           *string    `json:"summary" validate:"omitempty,min=1,max=500"`
	Content           *string    `json:"content"`
	HomeworkForParent *string    `json:"homework_for_parent"`
	SharedWithParent  *bool      `json:"shared_with_parent"`
}

func (ul *UpdateLog) Validate(validate *validator.Validate) error {
	if ul.Summary != nil {
		*ul.Summary = core.CleanString(*ul.Summary)
	}
	return validate.Struct(ul)
}

// QueryFilter selects Logs. From & To bound SessionDate as [From, To).
type QueryFilter struct {
	CenterID    string
	ChildID     string
	ChildIDs    []string // restricts to these children when non-nil (parents)
	TherapistID string
	SharedOnly  bool
	From        time.Time
	To          time.Time
}

type (
	Repository interface {
		CreateLog(ctx context.Context, l Log) (Log, error)
		QueryLogs(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Log, error)
		// GetLog returns ErrNotFound if no Log with `id` exists in center `centerID`.
		GetLog(ctx context.Context, centerID, id string) (Log, error)
		UpdateLog(ctx context.Context, l Log) (Log, error)
		DeleteLog(ctx context.Context, centerID, id string) error
	}

	ChildFinder interface {
		GetChild(ctx context.Context, centerID, id string) (child.Child, error)
	}

	TherapistFinder interface {
		GetTherapist(ctx context.Context, centerID, id string) (therapist.Therapist, error)
	}

	Service struct {
		repo       Repository
		children   ChildFinder
		therapists TherapistFinder
	}
)

func NewService(repo Repository, children ChildFinder, therapists TherapistFinder) *Service {
	return &Service{repo: repo, children: children, therapists: therapists}
}

func (svc *Service) Create(ctx context.Context, nl NewLog) (Log, error) {
	if _, err := svc.children.GetChild(ctx, nl.CenterID, nl.ChildID); err != nil {
		if err == child.ErrNotFound {
			return Log{}, core.NewFieldError("child_id", err)
		}
		return Log{}, pkgerrors.Wrap(err, "finding child")
	}
	if _, err := svc.therapists.GetTherapist(ctx, nl.CenterID, nl.TherapistID); err != nil {
		if err == therapist.ErrNotFound {
			return Log{}, core.NewFieldError("therapist_id", err)
		}
		return Log{}, pkgerrors.Wrap(err, "finding therapist")
	}

	now := NowFunc().UTC()
	return svc.repo.CreateLog(ctx, Log{
		CenterID:          nl.CenterID,
		ChildID:           nl.ChildID,
		TherapistID:       nl.TherapistID,
		ScheduleID:        nl.ScheduleID,
		SessionDate:       nl.SessionDate.UTC(),
		Summary:           nl.Summary,
		Content:           nl.Content,
		HomeworkForParent: nl.HomeworkForParent,
		SharedWithParent:  nl.SharedWithParent,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Log, error) {
	ordering = core.CleanOrderings(ordering, OrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "session_date"}}
	}
	return svc.repo.QueryLogs(ctx, filter, ordering)
}

// QueryForParent lists the shared Logs of the children in `childIDs`.
func (svc *Service) QueryForParent(ctx context.Context, centerID string, childIDs []string) ([]Log, error) {
	if childIDs == nil {
		childIDs = []string{}
	}
	return svc.Query(ctx, &QueryFilter{CenterID: centerID, ChildIDs: childIDs, SharedOnly: true}, nil)
}

func (svc *Service) Get(ctx context.Context, centerID, id string) (Log, error) {
	return svc.repo.GetLog(ctx, centerID, id)
}

func (svc *Service) Update(ctx context.Context, l Log, ul UpdateLog) (Log, error) {
	if ul.SessionDate != nil {
		l.SessionDate = ul.SessionDate.UTC()
	}
	if ul.Summary != nil && *ul.Summary != "" {
		l.Summary = *ul.Summary
	}
	if ul.Content != nil {
		l.Content = *ul.Content
	}
	if ul.HomeworkForParent != nil {
		l.HomeworkForParent = *ul.HomeworkForParent
	}
	if ul.SharedWithParent != nil {
		l.SharedWithParent = *ul.SharedWithParent
	}
	l.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateLog(ctx, l)
}

func (svc *Service) Delete(ctx context.Context, centerID, id string) error {
	return svc.repo.DeleteLog(ctx, centerID, id)
}
