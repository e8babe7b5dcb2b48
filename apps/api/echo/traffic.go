package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core/traffic"
	"github.com/trezcool/kidcare/core/user"
)

type trafficApi struct {
	svc *traffic.Service
}

func registerTrafficAPI(g *echo.Group, deps ServerDeps) {
	api := trafficApi{svc: deps.Traffic}
	g.GET("/stats", api.stats, roleMiddleware(user.RoleAdmin))
}

func (api *trafficApi) stats(ctx echo.Context) error {
	centerID, err := requireScope(ctx)
	if err != nil {
		return err
	}
	from, to, err := queryRange(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.Stats(ctx.Request().Context(), centerID, from, to)
	if err != nil {
		return errors.Wrap(err, "computing traffic stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}
