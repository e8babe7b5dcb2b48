package child

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/kidcare/core"
)

var (
	NowFunc = time.Now // mockable

	ErrNotFound = errors.New("child not found")
)

// OrderingFields lists the fields Children may be ordered by.
var OrderingFields = []string{"name", "birth_date", "is_active", "created_at", "updated_at"}

type (
	Repository interface {
		CreateChild(ctx context.Context, c Child) (Child, error)
		// QueryChildren applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Child.Name.
		QueryChildren(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Child, error)
		// GetChild returns ErrNotFound if no Child with `id` exists in center `centerID`.
		GetChild(ctx context.Context, centerID, id string) (Child, error)
		UpdateChild(ctx context.Context, c Child) (Child, error)
		DeleteChild(ctx context.Context, centerID, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewChild) (Child, error) {
	now := NowFunc().UTC()
	return svc.repo.CreateChild(ctx, Child{
		CenterID:  nc.CenterID,
		ParentID:  nc.ParentID,
		Name:      nc.Name,
		BirthDate: nc.BirthDate,
		Gender:    nc.Gender,
		Diagnosis: nc.Diagnosis,
		Notes:     nc.Notes,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Child, error) {
	return svc.repo.QueryChildren(ctx, filter, core.CleanOrderings(ordering, OrderingFields...))
}

// IDsOfParent returns the IDs of the children of parent `parentID`.
func (svc *Service) IDsOfParent(ctx context.Context, centerID, parentID string) ([]string, error) {
	children, err := svc.repo.QueryChildren(ctx, &QueryFilter{CenterID: centerID, ParentID: parentID}, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (svc *Service) Get(ctx context.Context, centerID, id string) (Child, error) {
	return svc.repo.GetChild(ctx, centerID, id)
}

// GetForParent returns ErrNotFound unless the Child belongs to `parentID`.
func (svc *Service) GetForParent(ctx context.Context, centerID, parentID, id string) (Child, error) {
	c, err := svc.repo.GetChild(ctx, centerID, id)
	if err != nil {
		return Child{}, err
	}
	if c.ParentID != parentID {
		return Child{}, ErrNotFound
	}
	return c, nil
}

func (svc *Service) Update(ctx context.Context, c Child, uc UpdateChild) (Child, error) {
	if uc.ParentID != nil {
		c.ParentID = *uc.ParentID
	}
	if uc.Name != nil && *uc.Name != "" {
		c.Name = *uc.Name
	}
	if uc.BirthDate != nil {
		c.BirthDate = *uc.BirthDate
	}
	if uc.Gender != nil {
		c.Gender = *uc.Gender
	}
	if uc.Diagnosis != nil {
		c.Diagnosis = *uc.Diagnosis
	}
	if uc.Notes != nil {
		c.Notes = *uc.Notes
	}
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	}
	c.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateChild(ctx, c)
}

func (svc *Service) Delete(ctx context.Context, centerID, id string) error {
	return svc.repo.DeleteChild(ctx, centerID, id)
}
