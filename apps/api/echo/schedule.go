package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core/child"
	"github.com/trezcool/kidcare/core/schedule"
	"github.com/trezcool/kidcare/core/user"
)

type scheduleApi struct {
	svc      *schedule.Service
	children *child.Service
	validate *validator.Validate
}

func registerScheduleAPI(g *echo.Group, deps ServerDeps) {
	api := scheduleApi{svc: deps.Schedules, children: deps.Children, validate: deps.Validate}
	reader := roleMiddleware(readerRoles...)
	staff := roleMiddleware(user.StaffRoles...)
	admin := roleMiddleware(user.RoleAdmin)

	g.GET("", api.query, reader)
	g.POST("", api.create, staff)
	g.POST("/auto-complete", api.autoComplete, admin)
	g.GET("/:id", api.retrieve, reader, api.objectMiddleware)
	g.PUT("/:id", api.update, staff, api.objectMiddleware)
	g.PUT("/:id/status", api.setStatus, staff, api.objectMiddleware)
	g.DELETE("/:id", api.destroy, staff, api.objectMiddleware)
}

func (api *scheduleApi) create(ctx echo.Context) error {
	centerID, err := requireScope(ctx)
	if err != nil {
		return err
	}
	var data schedule.NewSchedule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	data.CenterID = centerID

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *scheduleApi) query(ctx echo.Context) error {
	filter := &schedule.QueryFilter{
		CenterID:    scopeCenterID(ctx),
		ChildID:     ctx.QueryParam("child_id"),
		TherapistID: ctx.QueryParam("therapist_id"),
		Statuses:    queryList(ctx, "status"),
	}
	var err error
	if filter.From, filter.To, err = queryRange(ctx); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if parentID, ok := parentView(ctx); ok {
		ids, err := api.children.IDsOfParent(reqCtx, filter.CenterID, parentID)
		if err != nil {
			return errors.Wrap(err, "finding children of parent")
		}
		filter.ChildIDs = append([]string{}, ids...)
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	schedules, err := api.svc.Query(reqCtx, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	if schedules == nil {
		schedules = []schedule.Schedule{}
	}
	return ctx.JSON(http.StatusOK, schedules)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(schedule.Schedule)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(schedule.Schedule)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data schedule.UpdateSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchedule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	s, err := api.svc.Update(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating schedule")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scheduleApi) setStatus(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(schedule.Schedule)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data schedule.SetStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	s, err := api.svc.SetStatus(ctx.Request().Context(), s, data.Status)
	if err != nil {
		return errors.Wrap(err, "setting schedule status")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	s, ok := ctx.Get(contextObjectKey).(schedule.Schedule)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), s.CenterID, s.ID); err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type AutoCompleteResponse struct {
	Completed int `json:"completed"`
}

// autoComplete completes the past due sessions of the center (of all centers for super users).
func (api *scheduleApi) autoComplete(ctx echo.Context) error {
	n, err := api.svc.AutoComplete(ctx.Request().Context(), scopeCenterID(ctx), schedule.NowFunc())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, AutoCompleteResponse{Completed: n})
}

// objectMiddleware loads the Schedule `:id`. Parents only see the sessions of their own children.
func (api *scheduleApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		reqCtx, centerID := ctx.Request().Context(), scopeCenterID(ctx)
		s, err := api.svc.Get(reqCtx, centerID, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding schedule")
		}
		if parentID, ok := parentView(ctx); ok {
			if _, err = api.children.GetForParent(reqCtx, centerID, parentID, s.ChildID); err != nil {
				if err == child.ErrNotFound {
					return errors.Wrap(schedule.ErrNotFound, "finding schedule")
				}
				return errors.Wrap(err, "finding child")
			}
		}
		ctx.Set(contextObjectKey, s)
		return next(ctx)
	}
}
