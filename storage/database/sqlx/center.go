package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/center"
)

const centerColumns = `id, slug, name, custom_domain, phone, email, address, description, blog_rss_url,
	branding_preset, primary_color, secondary_color, logo_url, favicon_url, is_active, created_at, updated_at`

type centerRow struct {
	ID             string      `db:"id"`
	Slug           string      `db:"slug"`
	Name           string      `db:"name"`
	CustomDomain   null.String `db:"custom_domain"`
	Phone          string      `db:"phone"`
	Email          string      `db:"email"`
	Address        string      `db:"address"`
	Description    string      `db:"description"`
	BlogRSSURL     string      `db:"blog_rss_url"`
	BrandingPreset string      `db:"branding_preset"`
	PrimaryColor   string      `db:"primary_color"`
	SecondaryColor string      `db:"secondary_color"`
	LogoURL        string      `db:"logo_url"`
	FaviconURL     string      `db:"favicon_url"`
	IsActive       bool        `db:"is_active"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

func toCenterRow(c center.Center) centerRow {
	return centerRow{
		ID:             c.ID,
		Slug:           c.Slug,
		Name:           c.Name,
		CustomDomain:   nullString(c.CustomDomain),
		Phone:          c.Phone,
		Email:          c.Email,
		Address:        c.Address,
		Description:    c.Description,
		BlogRSSURL:     c.BlogRSSURL,
		BrandingPreset: c.Branding.Preset,
		PrimaryColor:   c.Branding.PrimaryColor,
		SecondaryColor: c.Branding.SecondaryColor,
		LogoURL:        c.Branding.LogoURL,
		FaviconURL:     c.Branding.FaviconURL,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt.UTC(),
		UpdatedAt:      c.UpdatedAt.UTC(),
	}
}

func (r centerRow) toCenter() center.Center {
	return center.Center{
		ID:           r.ID,
		Slug:         r.Slug,
		Name:         r.Name,
		CustomDomain: r.CustomDomain.String,
		Phone:        r.Phone,
		Email:        r.Email,
		Address:      r.Address,
		Description:  r.Description,
		BlogRSSURL:   r.BlogRSSURL,
		Branding: center.Branding{
			Preset:         r.BrandingPreset,
			PrimaryColor:   r.PrimaryColor,
			SecondaryColor: r.SecondaryColor,
			LogoURL:        r.LogoURL,
			FaviconURL:     r.FaviconURL,
		},
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type centerRepository struct {
	exec core.DBExecutor
}

var _ center.Repository = (*centerRepository)(nil) // interface compliance check

func NewCenterRepository(exec core.DBExecutor) center.Repository {
	return &centerRepository{exec: exec}
}

func (repo *centerRepository) CheckUniqueness(ctx context.Context, slug, domain string, excluded ...center.Center) error {
	exclude := func(w *whereClause) {
		for _, c := range excluded {
			if isUUID(c.ID) {
				w.and("id <> ?", c.ID)
			}
		}
	}
	count := func(w *whereClause) (int, error) {
		var cnt int
		q := repo.exec.Rebind("SELECT COUNT(*) FROM centers" + w.String())
		if err := repo.exec.GetContext(ctx, &cnt, q, w.args...); err != nil {
			return 0, errors.Wrap(err, "checking center uniqueness")
		}
		return cnt, nil
	}

	var w whereClause
	w.and("slug = ?", slug)
	exclude(&w)
	cnt, err := count(&w)
	if err != nil {
		return err
	}
	if cnt > 0 {
		return center.ErrSlugExists
	}

	if domain == "" {
		return nil
	}
	w = whereClause{}
	w.and("custom_domain = ?", domain)
	exclude(&w)
	if cnt, err = count(&w); err != nil {
		return err
	}
	if cnt > 0 {
		return center.ErrDomainExists
	}
	return nil
}

func (repo *centerRepository) CreateCenter(ctx context.Context, c center.Center) (center.Center, error) {
	c.ID = newID()
	q := `INSERT INTO centers (` + centerColumns + `)
		VALUES (:id, :slug, :name, :custom_domain, :phone, :email, :address, :description, :blog_rss_url,
		:branding_preset, :primary_color, :secondary_color, :logo_url, :favicon_url, :is_active, :created_at, :updated_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, toCenterRow(c)); err != nil {
		return center.Center{}, errors.Wrap(err, "inserting center")
	}
	return c, nil
}

func (repo *centerRepository) QueryCenters(ctx context.Context, filter *center.QueryFilter, ordering []core.DBOrdering) ([]center.Center, error) {
	var where whereClause
	if filter != nil {
		if filter.Search != "" {
			val := likePattern(filter.Search)
			where.and("(name ILIKE ? OR slug ILIKE ?)", val, val)
		}
		if filter.IsActive != nil {
			where.and("is_active = ?", *filter.IsActive)
		}
	}

	var rows []centerRow
	q := "SELECT " + centerColumns + " FROM centers" + where.String() + core.OrderByClause(ordering, "name ASC")
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), where.args...); err != nil {
		return nil, errors.Wrap(err, "querying centers")
	}

	centers := make([]center.Center, 0, len(rows))
	for _, r := range rows {
		centers = append(centers, r.toCenter())
	}
	return centers, nil
}

func (repo *centerRepository) GetCenter(ctx context.Context, filter center.GetFilter) (center.Center, error) {
	var where whereClause
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return center.Center{}, center.ErrNotFound
		}
		where.and("id = ?", filter.ID)
	case filter.Slug != "":
		where.and("slug = ?", filter.Slug)
	case filter.Domain != "":
		where.and("custom_domain = ?", filter.Domain)
	default:
		return center.Center{}, center.ErrNotFound
	}

	var row centerRow
	q := "SELECT " + centerColumns + " FROM centers" + where.String() + " LIMIT 1"
	if err := repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), where.args...); err != nil {
		return center.Center{}, trapNoRowsErr(err, center.ErrNotFound, "finding center")
	}
	return row.toCenter(), nil
}

func (repo *centerRepository) UpdateCenter(ctx context.Context, c center.Center) (center.Center, error) {
	q := `UPDATE centers SET
		slug = :slug, name = :name, custom_domain = :custom_domain, phone = :phone, email = :email,
		address = :address, description = :description, blog_rss_url = :blog_rss_url,
		branding_preset = :branding_preset, primary_color = :primary_color, secondary_color = :secondary_color,
		logo_url = :logo_url, favicon_url = :favicon_url, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.exec.NamedExecContext(ctx, q, toCenterRow(c))
	if err != nil {
		return center.Center{}, errors.Wrap(err, "updating center")
	}
	if err = checkAffected(res, center.ErrNotFound, "updating center"); err != nil {
		return center.Center{}, err
	}
	return c, nil
}
