package center

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/kidcare/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound       = errors.New("center not found")
	ErrCenterInactive = errors.New("center unavailable")
	ErrSlugExists     = errors.New("a center with this slug already exists")
	ErrDomainExists   = errors.New("a center with this domain already exists")
)

// OrderingFields lists the fields Centers may be ordered by.
var OrderingFields = []string{"name", "slug", "is_active", "created_at", "updated_at"}

type (
	Repository interface {
		// CheckUniqueness returns ErrSlugExists or ErrDomainExists if any other Center
		// (excluding `excluded`) has the same slug or the same non-empty custom domain.
		CheckUniqueness(ctx context.Context, slug, domain string, excluded ...Center) error
		CreateCenter(ctx context.Context, c Center) (Center, error)
		QueryCenters(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Center, error)
		GetCenter(ctx context.Context, filter GetFilter) (Center, error)
		UpdateCenter(ctx context.Context, c Center) (Center, error)
	}

	Service struct {
		repo       Repository
		baseDomain string
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, baseDomain: NormalizeHost(conf.Tenancy.BaseDomain)}
}

func (svc *Service) CheckUniqueness(ctx context.Context, slug, domain string, excl ...Center) error {
	if err := svc.repo.CheckUniqueness(ctx, slug, domain, excl...); err != nil {
		var field string
		switch err {
		case ErrSlugExists:
			field = "slug"
		case ErrDomainExists:
			field = "custom_domain"
		default:
			return pkgerrors.Wrap(err, "checking uniqueness")
		}
		return core.NewFieldError(field, err)
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nc NewCenter) (Center, error) {
	now := NowFunc().UTC()
	return svc.repo.CreateCenter(ctx, Center{
		Slug:         nc.Slug,
		Name:         nc.Name,
		CustomDomain: nc.CustomDomain,
		Phone:        nc.Phone,
		Email:        nc.Email,
		Address:      nc.Address,
		Description:  nc.Description,
		BlogRSSURL:   nc.BlogRSSURL,
		Branding:     nc.Branding,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Center, error) {
	return svc.repo.QueryCenters(ctx, filter, core.CleanOrderings(ordering, OrderingFields...))
}

func (svc *Service) Get(ctx context.Context, filter GetFilter) (Center, error) {
	return svc.repo.GetCenter(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Center, error) {
	return svc.repo.GetCenter(ctx, GetFilter{ID: id})
}

func (svc *Service) GetBySlug(ctx context.Context, slug string) (Center, error) {
	return svc.repo.GetCenter(ctx, GetFilter{Slug: core.CleanString(slug, true /* lower */)})
}

// Update applies a (validated) UpdateCenter to c.
func (svc *Service) Update(ctx context.Context, c Center, uc UpdateCenter) (Center, error) {
	if uc.Name != nil && *uc.Name != "" {
		c.Name = *uc.Name
	}
	if uc.Slug != nil && *uc.Slug != "" {
		c.Slug = *uc.Slug
	}
	if uc.CustomDomain != nil {
		c.CustomDomain = *uc.CustomDomain
	}
	if uc.Phone != nil {
		c.Phone = *uc.Phone
	}
	if uc.Email != nil {
		c.Email = *uc.Email
	}
	if uc.Address != nil {
		c.Address = *uc.Address
	}
	if uc.Description != nil {
		c.Description = *uc.Description
	}
	if uc.BlogRSSURL != nil {
		c.BlogRSSURL = *uc.BlogRSSURL
	}
	if uc.Branding != nil {
		c.Branding = *uc.Branding
	}
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	}
	c.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateCenter(ctx, c)
}

// Deactivate soft deletes a Center.
func (svc *Service) Deactivate(ctx context.Context, c Center) (Center, error) {
	c.IsActive = false
	c.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateCenter(ctx, c)
}

// Resolve finds the Center a request is addressed to.
// An explicit `header` value is a slug; otherwise `host` is matched against custom domains,
// then against `<slug>.<baseDomain>`.
func (svc *Service) Resolve(ctx context.Context, host, header string) (Center, error) {
	var (
		c   Center
		err error
	)
	if slug := core.CleanString(header, true /* lower */); slug != "" {
		c, err = svc.repo.GetCenter(ctx, GetFilter{Slug: slug})
	} else {
		c, err = svc.resolveHost(ctx, NormalizeHost(host))
	}
	if err != nil {
		return Center{}, err
	}
	if !c.IsActive {
		return Center{}, ErrCenterInactive
	}
	return c, nil
}

func (svc *Service) resolveHost(ctx context.Context, host string) (Center, error) {
	if host == "" {
		return Center{}, ErrNotFound
	}

	c, err := svc.repo.GetCenter(ctx, GetFilter{Domain: host})
	if err == nil || err != ErrNotFound {
		return c, err
	}

	if svc.baseDomain == "" || !strings.HasSuffix(host, "."+svc.baseDomain) {
		return Center{}, ErrNotFound
	}
	slug := strings.TrimSuffix(host, "."+svc.baseDomain)
	if !core.SlugRegex.MatchString(slug) {
		return Center{}, ErrNotFound
	}
	return svc.repo.GetCenter(ctx, GetFilter{Slug: slug})
}

// URL returns the public base URL of a Center.
func URL(c Center, baseDomain string) string {
	if c.CustomDomain != "" {
		return "https://" + c.CustomDomain
	}
	return "https://" + c.Slug + "." + NormalizeHost(baseDomain)
}

// URL returns the public base URL of c.
func (svc *Service) URL(c Center) string {
	return URL(c, svc.baseDomain)
}
