package center

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kidcare/core"
)

type Center struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	CustomDomain string    `json:"custom_domain"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	Description  string    `json:"description"`
	BlogRSSURL   string    `json:"blog_rss_url"`
	Branding     Branding  `json:"branding"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

type Branding struct {
	Preset         string `json:"preset"`
	PrimaryColor   string `json:"primary_color" validate:"omitempty,hexcolor_"`
	SecondaryColor string `json:"secondary_color" validate:"omitempty,hexcolor_"`
	LogoURL        string `json:"logo_url" validate:"omitempty,url"`
	FaviconURL     string `json:"favicon_url" validate:"omitempty,url"`
}

// NewCenter contains information needed to create a new Center.
type NewCenter struct {
	Name         string   `json:"name" validate:"required"`
	Slug         string   `json:"slug" validate:"required,max=63,slug"`
	CustomDomain string   `json:"custom_domain" validate:"omitempty,fqdn"`
	Phone        string   `json:"phone" validate:"omitempty,max=30"`
	Email        string   `json:"email" validate:"omitempty,email"`
	Address      string   `json:"address"`
	Description  string   `json:"description"`
	BlogRSSURL   string   `json:"blog_rss_url" validate:"omitempty,url"`
	Branding     Branding `json:"branding"`
}

// Validate cleans nc (deriving the slug from the name when empty) then validates it.
func (nc *NewCenter) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	if nc.Slug == "" {
		nc.Slug = core.Slugify(nc.Name)
	}
	nc.CustomDomain = NormalizeHost(nc.CustomDomain)
	nc.Email = core.CleanString(nc.Email, true /* lower */)
	nc.Phone = core.CleanString(nc.Phone)
	nc.BlogRSSURL = core.CleanString(nc.BlogRSSURL)
	cleanBranding(&nc.Branding)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nc.Slug, nc.CustomDomain)
}

// UpdateCenter defines what information may be provided to modify an existing Center.
// Nil fields are left untouched.
type UpdateCenter struct {
	Name         *string   `json:"name" validate:"omitempty,min=1"`
	Slug         *string   `json:"slug" validate:"omitempty,max=63,slug"`
	CustomDomain *string   `json:"custom_domain" validate:"omitempty,fqdn"`
	Phone        *string   `json:"phone" validate:"omitempty,max=30"`
	Email        *string   `json:"email" validate:"omitempty,email"`
	Address      *string   `json:"address"`
	Description  *string   `json:"description"`
	BlogRSSURL   *string   `json:"blog_rss_url" validate:"omitempty,url"`
	Branding     *Branding `json:"branding"`
	IsActive     *bool     `json:"is_active"`
}

func (uc *UpdateCenter) Validate(ctx context.Context, orig Center, validate *validator.Validate, svc *Service) error {
	cleanPtr(uc.Name, false)
	cleanPtr(uc.Slug, true)
	cleanPtr(uc.Phone, false)
	cleanPtr(uc.Email, true)
	cleanPtr(uc.BlogRSSURL, false)
	if uc.CustomDomain != nil {
		*uc.CustomDomain = NormalizeHost(*uc.CustomDomain)
	}
	if uc.Branding != nil {
		cleanBranding(uc.Branding)
	}

	if err := validate.Struct(uc); err != nil {
		return err
	}

	slug, domain := orig.Slug, orig.CustomDomain
	if uc.Slug != nil && *uc.Slug != "" {
		slug = *uc.Slug
	}
	if uc.CustomDomain != nil {
		domain = *uc.CustomDomain
	}
	return svc.CheckUniqueness(ctx, slug, domain, orig)
}

func cleanPtr(s *string, lower bool) {
	if s != nil {
		*s = core.CleanString(*s, lower)
	}
}

func cleanBranding(b *Branding) {
	b.Preset = core.CleanString(b.Preset, true /* lower */)
	b.PrimaryColor = core.CleanString(b.PrimaryColor, true /* lower */)
	b.SecondaryColor = core.CleanString(b.SecondaryColor, true /* lower */)
	b.LogoURL = core.CleanString(b.LogoURL)
	b.FaviconURL = core.CleanString(b.FaviconURL)
}

type QueryFilter struct {
	Search   string // name or slug
	IsActive *bool
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single Center. The first non-empty field wins.
type GetFilter struct {
	ID     string
	Slug   string
	Domain string
}

// NormalizeHost lowers `host` and strips its port, trailing dot & leading "www.".
func NormalizeHost(host string) string {
	host = core.CleanString(host, true /* lower */)
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}
