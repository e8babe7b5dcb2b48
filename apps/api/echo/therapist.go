package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core/therapist"
	"github.com/trezcool/kidcare/core/user"
)

type therapistApi struct {
	svc      *therapist.Service
	validate *validator.Validate
}

func registerTherapistAPI(g *echo.Group, deps ServerDeps) {
	api := therapistApi{svc: deps.Therapists, validate: deps.Validate}
	staff := roleMiddleware(user.StaffRoles...)
	admin := roleMiddleware(user.RoleAdmin)

	g.GET("", api.query, staff)
	g.POST("", api.create, admin)
	g.GET("/:id", api.retrieve, staff, api.objectMiddleware)
	g.PUT("/:id", api.update, admin, api.objectMiddleware)
	g.DELETE("/:id", api.destroy, admin, api.objectMiddleware)
}

func (api *therapistApi) create(ctx echo.Context) error {
	centerID, err := requireScope(ctx)
	if err != nil {
		return err
	}
	var data therapist.NewTherapist
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTherapist")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	data.CenterID = centerID

	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating therapist")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *therapistApi) query(ctx echo.Context) error {
	filter := &therapist.QueryFilter{CenterID: scopeCenterID(ctx), Search: ctx.QueryParam("search")}
	var err error
	if filter.IsPublic, err = queryBool(ctx, "is_public"); err != nil {
		return err
	}
	if filter.IsActive, err = queryBool(ctx, "is_active"); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	therapists, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying therapists")
	}
	if therapists == nil {
		therapists = []therapist.Therapist{}
	}
	return ctx.JSON(http.StatusOK, therapists)
}

func (api *therapistApi) retrieve(ctx echo.Context) error {
	t, ok := ctx.Get(contextObjectKey).(therapist.Therapist)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *therapistApi) update(ctx echo.Context) error {
	t, ok := ctx.Get(contextObjectKey).(therapist.Therapist)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data therapist.UpdateTherapist
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTherapist")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	t, err := api.svc.Update(ctx.Request().Context(), t, data)
	if err != nil {
		return errors.Wrap(err, "updating therapist")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *therapistApi) destroy(ctx echo.Context) error {
	t, ok := ctx.Get(contextObjectKey).(therapist.Therapist)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), t.CenterID, t.ID); err != nil {
		return errors.Wrap(err, "deleting therapist")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *therapistApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		t, err := api.svc.Get(ctx.Request().Context(), scopeCenterID(ctx), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding therapist")
		}
		ctx.Set(contextObjectKey, t)
		return next(ctx)
	}
}
