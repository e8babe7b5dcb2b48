package assessment

import (
	"context"
	"errors"
	"sort"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/child"
	"github.com/trezcool/kidcare/core/therapist"
)

var (
	NowFunc = time.Now // mockable

	ErrNotFound = errors.New("assessment not found")
)

// OrderingFields lists the fields Assessments may be ordered by.
var OrderingFields = []string{"assessed_at", "area", "score", "created_at"}

type (
	Repository interface {
		CreateAssessment(ctx context.Context, a Assessment) (Assessment, error)
		QueryAssessments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Assessment, error)
		// GetAssessment returns ErrNotFound if no Assessment with `id` exists in center `centerID`.
		GetAssessment(ctx context.Context, centerID, id string) (Assessment, error)
		UpdateAssessment(ctx context.Context, a Assessment) (Assessment, error)
		DeleteAssessment(ctx context.Context, centerID, id string) error
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

func (svc *Service) Create(ctx context.Context, na NewAssessment) (Assessment, error) {
	if _, err := svc.children.GetChild(ctx, na.CenterID, na.ChildID); err != nil {
		if err == child.ErrNotFound {
			return Assessment{}, core.NewFieldError("child_id", err)
		}
		return Assessment{}, pkgerrors.Wrap(err, "finding child")
	}
	if _, err := svc.therapists.GetTherapist(ctx, na.CenterID, na.TherapistID); err != nil {
		if err == therapist.ErrNotFound {
			return Assessment{}, core.NewFieldError("therapist_id", err)
		}
		return Assessment{}, pkgerrors.Wrap(err, "finding therapist")
	}

	return svc.repo.CreateAssessment(ctx, Assessment{
		CenterID:    na.CenterID,
		ChildID:     na.ChildID,
		TherapistID: na.TherapistID,
		AssessedAt:  na.AssessedAt,
		Area:        na.Area,
		Score:       na.Score,
		Notes:       na.Notes,
		CreatedAt:   NowFunc().UTC(),
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Assessment, error) {
	ordering = core.CleanOrderings(ordering, OrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "assessed_at"}}
	}
	return svc.repo.QueryAssessments(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, centerID, id string) (Assessment, error) {
	return svc.repo.GetAssessment(ctx, centerID, id)
}

func (svc *Service) Update(ctx context.Context, a Assessment, ua UpdateAssessment) (Assessment, error) {
	if ua.AssessedAt != nil {
		a.AssessedAt = ua.AssessedAt.UTC()
	}
	if ua.Area != nil && *ua.Area != "" {
		a.Area = *ua.Area
	}
	if ua.Score != nil {
		a.Score = *ua.Score
	}
	if ua.Notes != nil {
		a.Notes = *ua.Notes
	}
	return svc.repo.UpdateAssessment(ctx, a)
}

func (svc *Service) Delete(ctx context.Context, centerID, id string) error {
	return svc.repo.DeleteAssessment(ctx, centerID, id)
}

// Progress returns, for each assessed area, the latest score of the child compared to the previous one.
func (svc *Service) Progress(ctx context.Context, centerID, childID string) ([]AreaProgress, error) {
	assessments, err := svc.repo.QueryAssessments(
		ctx,
		&QueryFilter{CenterID: centerID, ChildID: childID},
		[]core.DBOrdering{{Field: "assessed_at"}}, // newest first
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying assessments")
	}
	return computeProgress(assessments), nil
}

func computeProgress(assessments []Assessment) []AreaProgress {
	sorted := make([]Assessment, len(assessments))
	copy(sorted, assessments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].AssessedAt.After(sorted[j].AssessedAt) })

	byArea := make(map[string]*AreaProgress)
	for _, a := range sorted {
		p, ok := byArea[a.Area]
		if !ok {
			byArea[a.Area] = &AreaProgress{Area: a.Area, Latest: a.Score, LatestAt: a.AssessedAt, Count: 1}
			continue
		}
		if p.Previous == nil {
			prev, delta := a.Score, p.Latest-a.Score
			p.Previous, p.PreviousAt, p.Delta = &prev, a.AssessedAt, &delta
		}
		p.Count++
	}

	progress := make([]AreaProgress, 0, len(byArea))
	for _, p := range byArea {
		progress = append(progress, *p)
	}
	sort.Slice(progress, func(i, j int) bool { return progress[i].Area < progress[j].Area })
	return progress
}
