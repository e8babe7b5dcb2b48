package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core/assessment"
	"github.com/trezcool/kidcare/core/child"
	"github.com/trezcool/kidcare/core/user"
)

type childApi struct {
	svc         *child.Service
	assessments *assessment.Service
	validate    *validator.Validate
}

func registerChildAPI(g *echo.Group, deps ServerDeps) {
	api := childApi{svc: deps.Children, assessments: deps.Assessments, validate: deps.Validate}
	reader := roleMiddleware(readerRoles...)
	admin := roleMiddleware(user.RoleAdmin)

	g.GET("", api.query, reader)
	g.POST("", api.create, admin)
	g.GET("/:id", api.retrieve, reader, api.objectMiddleware)
	g.GET("/:id/progress", api.progress, reader, api.objectMiddleware)
	g.PUT("/:id", api.update, admin, api.objectMiddleware)
	g.DELETE("/:id", api.destroy, admin, api.objectMiddleware)
}

func (api *childApi) create(ctx echo.Context) error {
	centerID, err := requireScope(ctx)
	if err != nil {
		return err
	}
	var data child.NewChild
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChild")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	data.CenterID = centerID

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating child")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *childApi) query(ctx echo.Context) error {
	filter := &child.QueryFilter{
		CenterID: scopeCenterID(ctx),
		ParentID: ctx.QueryParam("parent_id"),
		Search:   ctx.QueryParam("search"),
	}
	if parentID, ok := parentView(ctx); ok {
		filter.ParentID = parentID
	}
	var err error
	if filter.IsActive, err = queryBool(ctx, "is_active"); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	children, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying children")
	}
	if children == nil {
		children = []child.Child{}
	}
	return ctx.JSON(http.StatusOK, children)
}

func (api *childApi) retrieve(ctx echo.Context) error {
	c, ok := ctx.Get(contextObjectKey).(child.Child)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *childApi) progress(ctx echo.Context) error {
	c, ok := ctx.Get(contextObjectKey).(child.Child)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	progress, err := api.assessments.Progress(ctx.Request().Context(), c.CenterID, c.ID)
	if err != nil {
		return errors.Wrap(err, "computing progress")
	}
	if progress == nil {
		progress = []assessment.AreaProgress{}
	}
	return ctx.JSON(http.StatusOK, progress)
}

func (api *childApi) update(ctx echo.Context) error {
	c, ok := ctx.Get(contextObjectKey).(child.Child)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data child.UpdateChild
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateChild")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	c, err := api.svc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating child")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *childApi) destroy(ctx echo.Context) error {
	c, ok := ctx.Get(contextObjectKey).(child.Child)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), c.CenterID, c.ID); err != nil {
		return errors.Wrap(err, "deleting child")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// objectMiddleware loads the Child `:id`. Parents only see their own children.
func (api *childApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var (
			c   child.Child
			err error
		)
		reqCtx, centerID, id := ctx.Request().Context(), scopeCenterID(ctx), ctx.Param("id")
		if parentID, ok := parentView(ctx); ok {
			c, err = api.svc.GetForParent(reqCtx, centerID, parentID, id)
		} else {
			c, err = api.svc.Get(reqCtx, centerID, id)
		}
		if err != nil {
			return errors.Wrap(err, "finding child")
		}
		ctx.Set(contextObjectKey, c)
		return next(ctx)
	}
}
