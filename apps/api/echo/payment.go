package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/payment"
	"github.com/trezcool/kidcare/core/user"
)

type paymentApi struct {
	svc      *payment.Service
	centers  *center.Service
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, deps ServerDeps) {
	api := paymentApi{svc: deps.Payments, centers: deps.Centers, validate: deps.Validate}
	reader := roleMiddleware(user.RoleAdmin, user.RoleParent)
	admin := roleMiddleware(user.RoleAdmin)

	g.GET("", api.query, reader)
	g.POST("", api.create, admin)
	g.GET("/overdue", api.overdue, reader)
	g.GET("/summary", api.summary, admin)
	g.GET("/:id", api.retrieve, reader, api.objectMiddleware)
	g.PUT("/:id", api.update, admin, api.objectMiddleware)
	g.POST("/:id/pay", api.markPaid, admin, api.objectMiddleware)
	g.POST("/:id/refund", api.refund, admin, api.objectMiddleware)
	g.POST("/:id/cancel", api.cancel, admin, api.objectMiddleware)
	g.DELETE("/:id", api.destroy, admin, api.objectMiddleware)
}

func (api *paymentApi) create(ctx echo.Context) error {
	centerID, err := requireScope(ctx)
	if err != nil {
		return err
	}
	var data payment.NewPayment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	data.CenterID = centerID

	p, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating payment")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *paymentApi) query(ctx echo.Context) error {
	filter := &payment.QueryFilter{
		CenterID: scopeCenterID(ctx),
		ChildID:  ctx.QueryParam("child_id"),
		PayerID:  ctx.QueryParam("payer_id"),
		Statuses: queryList(ctx, "status"),
	}
	if parentID, ok := parentView(ctx); ok {
		filter.PayerID = parentID
	}
	var err error
	if filter.From, filter.To, err = queryRange(ctx); err != nil {
		return err
	}
	if filter.DueBefore, err = queryTime(ctx, "due_before"); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	payments, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, nonNilPayments(payments))
}

func (api *paymentApi) overdue(ctx echo.Context) error {
	var payerID string
	if parentID, ok := parentView(ctx); ok {
		payerID = parentID
	}
	payments, err := api.svc.Overdue(ctx.Request().Context(), scopeCenterID(ctx), payerID, payment.NowFunc())
	if err != nil {
		return errors.Wrap(err, "querying overdue payments")
	}
	return ctx.JSON(http.StatusOK, nonNilPayments(payments))
}

func (api *paymentApi) summary(ctx echo.Context) error {
	centerID, err := requireScope(ctx)
	if err != nil {
		return err
	}
	from, to, err := queryRange(ctx)
	if err != nil {
		return err
	}
	sum, err := api.svc.Summary(ctx.Request().Context(), centerID, from, to)
	if err != nil {
		return errors.Wrap(err, "summarizing payments")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	p, ok := ctx.Get(contextObjectKey).(payment.Payment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paymentApi) update(ctx echo.Context) error {
	p, ok := ctx.Get(contextObjectKey).(payment.Payment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data payment.UpdatePayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	p, err := api.svc.Update(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "updating payment")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paymentApi) markPaid(ctx echo.Context) error {
	p, ok := ctx.Get(contextObjectKey).(payment.Payment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data payment.MarkPaid
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkPaid")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	c, ok := getContextCenter(ctx)
	if !ok || c.ID != p.CenterID {
		var err error
		if c, err = api.centers.GetByID(reqCtx, p.CenterID); err != nil {
			return errors.Wrap(err, "finding center of payment")
		}
	}
	p, err := api.svc.MarkPaid(reqCtx, c.Name, p, data)
	if err != nil {
		return errors.Wrap(err, "marking payment as paid")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paymentApi) refund(ctx echo.Context) error {
	p, ok := ctx.Get(contextObjectKey).(payment.Payment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	p, err := api.svc.Refund(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "refunding payment")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paymentApi) cancel(ctx echo.Context) error {
	p, ok := ctx.Get(contextObjectKey).(payment.Payment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	p, err := api.svc.Cancel(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "cancelling payment")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paymentApi) destroy(ctx echo.Context) error {
	p, ok := ctx.Get(contextObjectKey).(payment.Payment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), p.CenterID, p.ID); err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// objectMiddleware loads the Payment `:id`. Parents only see the payments they are billed.
func (api *paymentApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := api.svc.Get(ctx.Request().Context(), scopeCenterID(ctx), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding payment")
		}
		if parentID, ok := parentView(ctx); ok && p.PayerID != parentID {
			return errors.Wrap(payment.ErrNotFound, "finding payment")
		}
		ctx.Set(contextObjectKey, p)
		return next(ctx)
	}
}

func nonNilPayments(payments []payment.Payment) []payment.Payment {
	if payments == nil {
		return []payment.Payment{}
	}
	return payments
}
