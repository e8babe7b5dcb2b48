package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/seo"
	"github.com/trezcool/kidcare/core/therapist"
	"github.com/trezcool/kidcare/core/user"
)

type seoApi struct {
	centers    *center.Service
	therapists *therapist.Service
	pinger     *seo.Pinger
}

func newSEOApi(deps ServerDeps) seoApi {
	return seoApi{centers: deps.Centers, therapists: deps.Therapists, pinger: deps.Pinger}
}

// registerSEORoutes serves the crawler files of the center sites.
func registerSEORoutes(app *echo.Echo, requireCenter echo.MiddlewareFunc, deps ServerDeps) {
	api := newSEOApi(deps)
	app.GET("/sitemap.xml", api.sitemap, requireCenter)
	app.GET("/robots.txt", api.robots, requireCenter)
	app.GET("/:file", api.indexNowKey)
}

func registerPingAPI(g *echo.Group, deps ServerDeps) {
	api := newSEOApi(deps)
	g.POST("/ping", api.ping, roleMiddleware(user.RoleAdmin))
}

func (api seoApi) entries(ctx echo.Context, c center.Center) ([]seo.Entry, error) {
	therapists, err := api.therapists.QueryPublic(ctx.Request().Context(), c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying public therapists")
	}
	return seo.CenterEntries(c, therapists), nil
}

func (api seoApi) sitemap(ctx echo.Context) error {
	c, err := mustContextCenter(ctx)
	if err != nil {
		return err
	}
	entries, err := api.entries(ctx, c)
	if err != nil {
		return err
	}
	data, err := seo.BuildSitemap(api.centers.URL(c), entries)
	if err != nil {
		return errors.Wrap(err, "building sitemap")
	}
	return ctx.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, data)
}

func (api seoApi) robots(ctx echo.Context) error {
	c, err := mustContextCenter(ctx)
	if err != nil {
		return err
	}
	return ctx.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, seo.Robots(api.centers.URL(c)))
}

// indexNowKey serves `/<key>.txt`, proving the ownership of the site to IndexNow.
func (api seoApi) indexNowKey(ctx echo.Context) error {
	key := api.pinger.Key()
	if key == "" || ctx.Param("file") != key+".txt" {
		return echo.ErrNotFound
	}
	return ctx.String(http.StatusOK, key)
}

type PingRequest struct {
	Paths []string `json:"paths"`
}

// ping notifies search engines of the changes of the center site.
// Without `paths`, every page of the sitemap is submitted.
func (api seoApi) ping(ctx echo.Context) error {
	centerID, err := requireScope(ctx)
	if err != nil {
		return err
	}
	var data PingRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PingRequest")
	}

	c, ok := getContextCenter(ctx)
	if !ok || c.ID != centerID {
		if c, err = api.centers.GetByID(ctx.Request().Context(), centerID); err != nil {
			return errors.Wrap(err, "finding center")
		}
	}
	baseURL := api.centers.URL(c)

	var urls []string
	if len(data.Paths) == 0 {
		entries, err := api.entries(ctx, c)
		if err != nil {
			return err
		}
		for _, e := range entries {
			urls = append(urls, seo.Loc(baseURL, e.Path))
		}
	} else {
		for _, p := range data.Paths {
			if p = strings.TrimSpace(p); p != "" {
				urls = append(urls, seo.Loc(baseURL, p))
			}
		}
	}

	results := api.pinger.Ping(ctx.Request().Context(), seo.Loc(baseURL, "/sitemap.xml"), urls)
	return ctx.JSON(http.StatusOK, results)
}
