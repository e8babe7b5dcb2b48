package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core/blog"
	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/therapist"
	"github.com/trezcool/kidcare/core/traffic"
)

type (
	// PublicCenter is what the public site knows of its center.
	PublicCenter struct {
		ID          string          `json:"id"`
		Slug        string          `json:"slug"`
		Name        string          `json:"name"`
		URL         string          `json:"url"`
		Phone       string          `json:"phone"`
		Email       string          `json:"email"`
		Address     string          `json:"address"`
		Description string          `json:"description"`
		HasBlog     bool            `json:"has_blog"`
		Branding    center.Branding `json:"branding"`
	}

	PublicTherapist struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Title       string    `json:"title"`
		Specialties []string  `json:"specialties"`
		Bio         string    `json:"bio"`
		PhotoURL    string    `json:"photo_url"`
		UpdatedAt   time.Time `json:"updated_at"`
	}
)

type publicApi struct {
	centers    *center.Service
	therapists *therapist.Service
	traffic    *traffic.Service
	blog       *blog.Fetcher
	validate   *validator.Validate
}

// registerPublicAPI registers the endpoints of the center public sites. The center is required.
func registerPublicAPI(g *echo.Group, deps ServerDeps) {
	api := publicApi{
		centers:    deps.Centers,
		therapists: deps.Therapists,
		traffic:    deps.Traffic,
		blog:       deps.Blog,
		validate:   deps.Validate,
	}

	g.GET("/center", api.center)
	g.GET("/therapists", api.queryTherapists)
	g.GET("/therapists/:id", api.retrieveTherapist)
	g.GET("/blog", api.blogPosts)
	g.POST("/visits", api.recordVisit)
}

func (api *publicApi) center(ctx echo.Context) error {
	c, err := mustContextCenter(ctx)
	if err != nil {
		return err
	}
	branding, err := center.ResolveBranding(c.Branding)
	if err != nil {
		return errors.Wrap(err, "resolving branding")
	}
	return ctx.JSON(http.StatusOK, PublicCenter{
		ID:          c.ID,
		Slug:        c.Slug,
		Name:        c.Name,
		URL:         api.centers.URL(c),
		Phone:       c.Phone,
		Email:       c.Email,
		Address:     c.Address,
		Description: c.Description,
		HasBlog:     c.BlogRSSURL != "",
		Branding:    branding,
	})
}

func toPublicTherapist(t therapist.Therapist) PublicTherapist {
	specs := t.Specialties
	if specs == nil {
		specs = []string{}
	}
	return PublicTherapist{
		ID:          t.ID,
		Name:        t.Name,
		Title:       t.Title,
		Specialties: specs,
		Bio:         t.Bio,
		PhotoURL:    t.PhotoURL,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (api *publicApi) queryTherapists(ctx echo.Context) error {
	c, err := mustContextCenter(ctx)
	if err != nil {
		return err
	}
	therapists, err := api.therapists.QueryPublic(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "querying public therapists")
	}
	profiles := make([]PublicTherapist, 0, len(therapists))
	for _, t := range therapists {
		profiles = append(profiles, toPublicTherapist(t))
	}
	return ctx.JSON(http.StatusOK, profiles)
}

func (api *publicApi) retrieveTherapist(ctx echo.Context) error {
	c, err := mustContextCenter(ctx)
	if err != nil {
		return err
	}
	t, err := api.therapists.Get(ctx.Request().Context(), c.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding therapist")
	}
	if !t.IsPublic || !t.IsActive {
		return errors.Wrap(therapist.ErrNotFound, "finding therapist")
	}
	return ctx.JSON(http.StatusOK, toPublicTherapist(t))
}

func (api *publicApi) blogPosts(ctx echo.Context) error {
	c, err := mustContextCenter(ctx)
	if err != nil {
		return err
	}
	posts, err := api.blog.Fetch(ctx.Request().Context(), c.BlogRSSURL)
	if err != nil {
		if err == blog.ErrNoFeed {
			return err
		}
		ctx.Logger().Warnf("fetching blog of center %s: %v", c.Slug, err)
		return errFeedUnavailable
	}
	if posts == nil {
		posts = []blog.Post{}
	}
	return ctx.JSON(http.StatusOK, posts)
}

func (api *publicApi) recordVisit(ctx echo.Context) error {
	c, err := mustContextCenter(ctx)
	if err != nil {
		return err
	}
	var data traffic.NewVisit
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVisit")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	req := ctx.Request()
	data.CenterID = c.ID
	data.SiteHost = req.Host
	data.UserAgent = req.UserAgent()

	if _, err = api.traffic.RecordVisit(req.Context(), data); err != nil {
		return errors.Wrap(err, "recording visit")
	}
	return ctx.NoContent(http.StatusNoContent)
}
