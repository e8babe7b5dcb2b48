package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core/push"
	"github.com/trezcool/kidcare/core/user"
)

type pushApi struct {
	svc      *push.Service
	auth     authenticator
	validate *validator.Validate
}

func registerPushAPI(g *echo.Group, auth authenticator, deps ServerDeps) {
	api := pushApi{svc: deps.Push, auth: auth, validate: deps.Validate}

	g.GET("/subscriptions", api.query)
	g.POST("/subscriptions", api.subscribe)
	g.DELETE("/subscriptions", api.unsubscribe)
	g.GET("/subscriptions/center", api.queryCenter, roleMiddleware(user.RoleAdmin))
}

func (api *pushApi) subscribe(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data push.NewSubscription
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubscription")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	data.CenterID = usr.CenterID
	data.UserID = usr.ID
	data.UserAgent = ctx.Request().UserAgent()

	sub, err := api.svc.Subscribe(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "subscribing")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *pushApi) unsubscribe(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	endpoint := ctx.QueryParam("endpoint")
	if endpoint == "" {
		return invalidParam("endpoint", "this field is required", nil)
	}
	if err = api.svc.Unsubscribe(ctx.Request().Context(), claims.Subject, endpoint); err != nil {
		return errors.Wrap(err, "unsubscribing")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *pushApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	subs, err := api.svc.ListForUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying subscriptions")
	}
	if subs == nil {
		subs = []push.Subscription{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *pushApi) queryCenter(ctx echo.Context) error {
	centerID, err := requireScope(ctx)
	if err != nil {
		return err
	}
	subs, err := api.svc.ListForCenter(ctx.Request().Context(), centerID)
	if err != nil {
		return errors.Wrap(err, "querying subscriptions")
	}
	if subs == nil {
		subs = []push.Subscription{}
	}
	return ctx.JSON(http.StatusOK, subs)
}
