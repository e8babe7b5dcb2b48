package schedule

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/child"
	"github.com/trezcool/kidcare/core/therapist"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("schedule not found")
	ErrOverlap  = errors.New("the therapist already has a session at this time")
	errEndsAt   = errors.New("must be after starts_at")
)

// OrderingFields lists the fields Schedules may be ordered by.
var OrderingFields = []string{"starts_at", "ends_at", "status", "room", "created_at", "updated_at"}

type (
	Repository interface {
		CreateSchedule(ctx context.Context, s Schedule) (Schedule, error)
		// QuerySchedules applies AND operation on available QueryFilter fields.
		QuerySchedules(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Schedule, error)
		// GetSchedule returns ErrNotFound if no Schedule with `id` exists in center `centerID`.
		GetSchedule(ctx context.Context, centerID, id string) (Schedule, error)
		UpdateSchedule(ctx context.Context, s Schedule) (Schedule, error)
		DeleteSchedule(ctx context.Context, centerID, id string) error
		// HasOverlap reports whether the therapist holds a `scheduled` session (other than `excludedID`)
		// overlapping [start, end).
		HasOverlap(ctx context.Context, therapistID string, start, end time.Time, excludedID string) (bool, error)
		// AutoComplete marks every `scheduled` session that ended at or before `now` as completed,
		// in center `centerID` or in all centers if empty. Returns the number of sessions completed.
		AutoComplete(ctx context.Context, centerID string, now time.Time) (int, error)
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

// checkMembers checks that the child & therapist belong to the center.
func (svc *Service) checkMembers(ctx context.Context, centerID, childID, therapistID string) error {
	if _, err := svc.children.GetChild(ctx, centerID, childID); err != nil {
		if err == child.ErrNotFound {
			return core.NewFieldError("child_id", err)
		}
		return pkgerrors.Wrap(err, "finding child")
	}
	if _, err := svc.therapists.GetTherapist(ctx, centerID, therapistID); err != nil {
		if err == therapist.ErrNotFound {
			return core.NewFieldError("therapist_id", err)
		}
		return pkgerrors.Wrap(err, "finding therapist")
	}
	return nil
}

func (svc *Service) checkOverlap(ctx context.Context, s Schedule) error {
	overlap, err := svc.repo.HasOverlap(ctx, s.TherapistID, s.StartsAt, s.EndsAt, s.ID)
	if err != nil {
		return pkgerrors.Wrap(err, "checking overlap")
	}
	if overlap {
		return core.NewFieldError("starts_at", ErrOverlap)
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewSchedule) (Schedule, error) {
	if err := svc.checkMembers(ctx, ns.CenterID, ns.ChildID, ns.TherapistID); err != nil {
		return Schedule{}, err
	}

	now := NowFunc().UTC()
	s := Schedule{
		CenterID:    ns.CenterID,
		ChildID:     ns.ChildID,
		TherapistID: ns.TherapistID,
		StartsAt:    ns.StartsAt,
		EndsAt:      ns.EndsAt,
		Status:      StatusScheduled,
		Room:        ns.Room,
		Notes:       ns.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := svc.checkOverlap(ctx, s); err != nil {
		return Schedule{}, err
	}
	return svc.repo.CreateSchedule(ctx, s)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Schedule, error) {
	ordering = core.CleanOrderings(ordering, OrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "starts_at", Ascending: true}}
	}
	return svc.repo.QuerySchedules(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, centerID, id string) (Schedule, error) {
	return svc.repo.GetSchedule(ctx, centerID, id)
}

// Update reschedules s.
func (svc *Service) Update(ctx context.Context, s Schedule, us UpdateSchedule) (Schedule, error) {
	if us.ChildID != nil {
		s.ChildID = *us.ChildID
	}
	if us.TherapistID != nil {
		s.TherapistID = *us.TherapistID
	}
	if us.StartsAt != nil {
		s.StartsAt = us.StartsAt.UTC()
	}
	if us.EndsAt != nil {
		s.EndsAt = us.EndsAt.UTC()
	}
	if us.Room != nil {
		s.Room = *us.Room
	}
	if us.Notes != nil {
		s.Notes = *us.Notes
	}

	if !s.EndsAt.After(s.StartsAt) {
		return Schedule{}, core.NewFieldError("ends_at", errEndsAt)
	}
	if err := svc.checkMembers(ctx, s.CenterID, s.ChildID, s.TherapistID); err != nil {
		return Schedule{}, err
	}
	if s.Status == StatusScheduled {
		if err := svc.checkOverlap(ctx, s); err != nil {
			return Schedule{}, err
		}
	}
	s.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateSchedule(ctx, s)
}

// SetStatus transitions s to `status`. Completed sessions get their completion time.
func (svc *Service) SetStatus(ctx context.Context, s Schedule, status string) (Schedule, error) {
	if s.Status == status {
		return s, nil
	}
	now := NowFunc().UTC()
	if status == StatusScheduled {
		if err := svc.checkOverlap(ctx, s); err != nil {
			return Schedule{}, err
		}
	}
	s.Status = status
	s.CompletedAt = time.Time{}
	if status == StatusCompleted {
		s.CompletedAt = now
	}
	s.UpdatedAt = now
	return svc.repo.UpdateSchedule(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, centerID, id string) error {
	return svc.repo.DeleteSchedule(ctx, centerID, id)
}

// AutoComplete completes the past due sessions of center `centerID` (all centers if empty).
func (svc *Service) AutoComplete(ctx context.Context, centerID string, now time.Time) (int, error) {
	n, err := svc.repo.AutoComplete(ctx, centerID, now.UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(err, "auto-completing schedules")
	}
	return n, nil
}
