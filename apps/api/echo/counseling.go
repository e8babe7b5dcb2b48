package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core/child"
	"github.com/trezcool/kidcare/core/counseling"
	"github.com/trezcool/kidcare/core/user"
)

type counselingApi struct {
	svc      *counseling.Service
	children *child.Service
	validate *validator.Validate
}

func registerCounselingAPI(g *echo.Group, deps ServerDeps) {
	api := counselingApi{svc: deps.Counseling, children: deps.Children, validate: deps.Validate}
	reader := roleMiddleware(readerRoles...)
	staff := roleMiddleware(user.StaffRoles...)

	g.GET("", api.query, reader)
	g.POST("", api.create, staff)
	g.GET("/:id", api.retrieve, reader, api.objectMiddleware)
	g.PUT("/:id", api.update, staff, api.objectMiddleware)
	g.DELETE("/:id", api.destroy, staff, api.objectMiddleware)
}

func (api *counselingApi) create(ctx echo.Context) error {
	centerID, err := requireScope(ctx)
	if err != nil {
		return err
	}
	var data counseling.NewLog
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLog")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	data.CenterID = centerID

	l, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating counseling log")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *counselingApi) query(ctx echo.Context) error {
	var (
		logs []counseling.Log
		err  error
	)
	reqCtx, centerID := ctx.Request().Context(), scopeCenterID(ctx)

	if parentID, ok := parentView(ctx); ok {
		ids, err := api.children.IDsOfParent(reqCtx, centerID, parentID)
		if err != nil {
			return errors.Wrap(err, "finding children of parent")
		}
		if logs, err = api.svc.QueryForParent(reqCtx, centerID, ids); err != nil {
			return errors.Wrap(err, "querying counseling logs")
		}
	} else {
		filter := &counseling.QueryFilter{
			CenterID:    centerID,
			ChildID:     ctx.QueryParam("child_id"),
			TherapistID: ctx.QueryParam("therapist_id"),
		}
		if filter.From, filter.To, err = queryRange(ctx); err != nil {
			return err
		}
		shared, err := queryBool(ctx, "shared")
		if err != nil {
			return err
		}
		filter.SharedOnly = shared != nil && *shared
		ordering := new(Ordering)
		ordering.Bind(ctx)

		if logs, err = api.svc.Query(reqCtx, filter, ordering.Orderings); err != nil {
			return errors.Wrap(err, "querying counseling logs")
		}
	}

	if logs == nil {
		logs = []counseling.Log{}
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api *counselingApi) retrieve(ctx echo.Context) error {
	l, ok := ctx.Get(contextObjectKey).(counseling.Log)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *counselingApi) update(ctx echo.Context) error {
	l, ok := ctx.Get(contextObjectKey).(counseling.Log)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data counseling.UpdateLog
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLog")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	l, err := api.svc.Update(ctx.Request().Context(), l, data)
	if err != nil {
		return errors.Wrap(err, "updating counseling log")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *counselingApi) destroy(ctx echo.Context) error {
	l, ok := ctx.Get(contextObjectKey).(counseling.Log)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), l.CenterID, l.ID); err != nil {
		return errors.Wrap(err, "deleting counseling log")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// objectMiddleware loads the Log `:id`. Parents only see the shared logs of their own children.
func (api *counselingApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		reqCtx, centerID := ctx.Request().Context(), scopeCenterID(ctx)
		l, err := api.svc.Get(reqCtx, centerID, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding counseling log")
		}
		if parentID, ok := parentView(ctx); ok {
			if !l.SharedWithParent {
				return errors.Wrap(counseling.ErrNotFound, "finding counseling log")
			}
			if _, err = api.children.GetForParent(reqCtx, centerID, parentID, l.ChildID); err != nil {
				if err == child.ErrNotFound {
					return errors.Wrap(counseling.ErrNotFound, "finding counseling log")
				}
				return errors.Wrap(err, "finding child")
			}
		}
		ctx.Set(contextObjectKey, l)
		return next(ctx)
	}
}
