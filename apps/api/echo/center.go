package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core/center"
)

type centerApi struct {
	svc      *center.Service
	validate *validator.Validate
}

// registerCenterAPI registers the platform operators' endpoints.
func registerCenterAPI(g *echo.Group, deps ServerDeps) {
	api := centerApi{svc: deps.Centers, validate: deps.Validate}

	g.POST("", api.create)
	g.GET("", api.query)
	g.GET("/presets", api.queryPresets)
	g.GET("/:id", api.retrieve, api.objectMiddleware)
	g.PUT("/:id", api.update, api.objectMiddleware)
	g.DELETE("/:id", api.deactivate, api.objectMiddleware)
}

func (api *centerApi) create(ctx echo.Context) error {
	var data center.NewCenter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCenter")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}
	c, err := api.svc.Create(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "creating center")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *centerApi) query(ctx echo.Context) error {
	filter := &center.QueryFilter{Search: ctx.QueryParam("search")}
	var err error
	if filter.IsActive, err = queryBool(ctx, "is_active"); err != nil {
		return err
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	centers, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying centers")
	}
	if centers == nil {
		centers = []center.Center{}
	}
	return ctx.JSON(http.StatusOK, centers)
}

func (api *centerApi) queryPresets(ctx echo.Context) error {
	presets, err := center.Presets()
	if err != nil {
		return errors.Wrap(err, "loading branding presets")
	}
	return ctx.JSON(http.StatusOK, presets)
}

func (api *centerApi) retrieve(ctx echo.Context) error {
	c, ok := ctx.Get(contextObjectKey).(center.Center)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *centerApi) update(ctx echo.Context) error {
	c, ok := ctx.Get(contextObjectKey).(center.Center)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data center.UpdateCenter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCenter")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, c, api.validate, api.svc); err != nil {
		return err
	}
	c, err := api.svc.Update(reqCtx, c, data)
	if err != nil {
		return errors.Wrap(err, "updating center")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *centerApi) deactivate(ctx echo.Context) error {
	c, ok := ctx.Get(contextObjectKey).(center.Center)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if _, err := api.svc.Deactivate(ctx.Request().Context(), c); err != nil {
		return errors.Wrap(err, "deactivating center")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *centerApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if err == center.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding center by ID")
		}
		ctx.Set(contextObjectKey, c)
		return next(ctx)
	}
}
