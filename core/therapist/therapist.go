// Package therapist manages the public & internal profiles of a center's therapists.
package therapist

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kidcare/core"
)

var (
	NowFunc = time.Now // mockable

	ErrNotFound = errors.New("therapist not found")
)

// OrderingFields lists the fields Therapists may be ordered by.
var OrderingFields = []string{"name", "title", "is_public", "is_active", "created_at", "updated_at"}

type Therapist struct {
	ID          string    `json:"id"`
	CenterID    string    `json:"center_id"`
	UserID      string    `json:"user_id"` // optional login account
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Specialties []string  `json:"specialties"`
	Bio         string    `json:"bio"`
	PhotoURL    string    `json:"photo_url"`
	IsPublic    bool      `json:"is_public"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type NewTherapist struct {
	CenterID    string   `json:"-"`
	UserID      string   `json:"user_id" validate:"omitempty,uuid"`
	Name        string   `json:"name" validate:"required,max=100"`
	Title       string   `json:"title" validate:"max=100"`
	Specialties []string `json:"specialties" validate:"omitempty,dive,required,max=50"`
	Bio         string   `json:"bio"`
	PhotoURL    string   `json:"photo_url" validate:"omitempty,url"`
	IsPublic    bool     `json:"is_public"`
}

func (nt *NewTherapist) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Title = core.CleanString(nt.Title)
	nt.PhotoURL = core.CleanString(nt.PhotoURL)
	nt.Specialties = cleanSpecialties(nt.Specialties)
	return validate.Struct(nt)
}

// UpdateTherapist defines what information may be provided to modify an existing Therapist.
type UpdateTherapist struct {
	UserID      *string  `json:"user_id" validate:"omitempty,uuid"`
	Name        *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Title       *string  `json:"title" validate:"omitempty,max=100"`
	Specialties []string `json:"specialties" validate:"omitempty,dive,required,max=50"`
	Bio         *string  `json:"bio"`
	PhotoURL    *string  `json:"photo_url" validate:"omitempty,url"`
	IsPublic    *bool    `json:"is_public"`
	IsActive    *bool    `json:"is_active"`
}

func (ut *UpdateTherapist) Validate(validate *validator.Validate) error {
	if ut.Name != nil {
		*ut.Name = core.CleanString(*ut.Name)
	}
	if ut.Specialties != nil {
		ut.Specialties = cleanSpecialties(ut.Specialties)
	}
	return validate.Struct(ut)
}

func cleanSpecialties(specs []string) []string {
	cleaned := make([]string, 0, len(specs))
	for _, s := range specs {
		if s = core.CleanString(s); s != "" && !core.StringsContain(cleaned, s) {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}

type QueryFilter struct {
	CenterID string
	Search   string
	IsPublic *bool
	IsActive *bool
}

type (
	Repository interface {
		CreateTherapist(ctx context.Context, t Therapist) (Therapist, error)
		// QueryTherapists applies AND operation on available QueryFilter fields.
		QueryTherapists(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Therapist, error)
		// GetTherapist returns ErrNotFound if no Therapist with `id` exists in center `centerID`.
		GetTherapist(ctx context.Context, centerID, id string) (Therapist, error)
		UpdateTherapist(ctx context.Context, t Therapist) (Therapist, error)
		DeleteTherapist(ctx context.Context, centerID, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nt NewTherapist) (Therapist, error) {
	now := NowFunc().UTC()
	return svc.repo.CreateTherapist(ctx, Therapist{
		CenterID:    nt.CenterID,
		UserID:      nt.UserID,
		Name:        nt.Name,
		Title:       nt.Title,
		Specialties: nt.Specialties,
		Bio:         nt.Bio,
		PhotoURL:    nt.PhotoURL,
		IsPublic:    nt.IsPublic,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Therapist, error) {
	return svc.repo.QueryTherapists(ctx, filter, core.CleanOrderings(ordering, OrderingFields...))
}

// QueryPublic lists the profiles shown on the center's public site.
func (svc *Service) QueryPublic(ctx context.Context, centerID string) ([]Therapist, error) {
	yes := true
	return svc.repo.QueryTherapists(
		ctx,
		&QueryFilter{CenterID: centerID, IsPublic: &yes, IsActive: &yes},
		[]core.DBOrdering{{Field: "name", Ascending: true}},
	)
}

func (svc *Service) Get(ctx context.Context, centerID, id string) (Therapist, error) {
	return svc.repo.GetTherapist(ctx, centerID, id)
}

func (svc *Service) Update(ctx context.Context, t Therapist, ut UpdateTherapist) (Therapist, error) {
	if ut.UserID != nil {
		t.UserID = *ut.UserID
	}
	if ut.Name != nil && *ut.Name != "" {
		t.Name = *ut.Name
	}
	if ut.Title != nil {
		t.Title = core.CleanString(*ut.Title)
	}
	if ut.Specialties != nil {
		t.Specialties = ut.Specialties
	}
	if ut.Bio != nil {
		t.Bio = *ut.Bio
	}
	if ut.PhotoURL != nil {
		t.PhotoURL = core.CleanString(*ut.PhotoURL)
	}
	if ut.IsPublic != nil {
		t.IsPublic = *ut.IsPublic
	}
	if ut.IsActive != nil {
		t.IsActive = *ut.IsActive
	}
	t.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateTherapist(ctx, t)
}

func (svc *Service) Delete(ctx context.Context, centerID, id string) error {
	return svc.repo.DeleteTherapist(ctx, centerID, id)
}
