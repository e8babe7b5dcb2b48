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

type assessmentApi struct {
	svc      *assessment.Service
	children *child.Service
	validate *validator.Validate
}

func registerAssessmentAPI(g *echo.Group, deps ServerDeps) {
	api := assessmentApi{svc: deps.Assessments, children: deps.Children, validate: deps.Validate}
	reader := roleMiddleware(readerRoles...)
	staff := roleMiddleware(user.StaffRoles...)

	g.GET("", api.query, reader)
	g.POST("", api.create, staff)
	g.GET("/:id", api.retrieve, reader, api.objectMiddleware)
	g.PUT("/:id", api.update, staff, api.objectMiddleware)
	g.DELETE("/:id", api.destroy, staff, api.objectMiddleware)
}

func (api *assessmentApi) create(ctx echo.Context) error {
	centerID, err := requireScope(ctx)
	if err != nil {
		return err
	}
	var data assessment.NewAssessment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	data.CenterID = centerID

	a, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating assessment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assessmentApi) query(ctx echo.Context) error {
	filter := &assessment.QueryFilter{
		CenterID:    scopeCenterID(ctx),
		ChildID:     ctx.QueryParam("child_id"),
		TherapistID: ctx.QueryParam("therapist_id"),
		Area:        ctx.QueryParam("area"),
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

	assessments, err := api.svc.Query(reqCtx, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying assessments")
	}
	if assessments == nil {
		assessments = []assessment.Assessment{}
	}
	return ctx.JSON(http.StatusOK, assessments)
}

func (api *assessmentApi) retrieve(ctx echo.Context) error {
	a, ok := ctx.Get(contextObjectKey).(assessment.Assessment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assessmentApi) update(ctx echo.Context) error {
	a, ok := ctx.Get(contextObjectKey).(assessment.Assessment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data assessment.UpdateAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssessment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	a, err := api.svc.Update(ctx.Request().Context(), a, data)
	if err != nil {
		return errors.Wrap(err, "updating assessment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assessmentApi) destroy(ctx echo.Context) error {
	a, ok := ctx.Get(contextObjectKey).(assessment.Assessment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), a.CenterID, a.ID); err != nil {
		return errors.Wrap(err, "deleting assessment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assessmentApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		reqCtx, centerID := ctx.Request().Context(), scopeCenterID(ctx)
		a, err := api.svc.Get(reqCtx, centerID, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding assessment")
		}
		if parentID, ok := parentView(ctx); ok {
			if _, err = api.children.GetForParent(reqCtx, centerID, parentID, a.ChildID); err != nil {
				if err == child.ErrNotFound {
					return errors.Wrap(assessment.ErrNotFound, "finding assessment")
				}
				return errors.Wrap(err, "finding child")
			}
		}
		ctx.Set(contextObjectKey, a)
		return next(ctx)
	}
}
