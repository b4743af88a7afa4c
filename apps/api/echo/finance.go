package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/payment"
	"github.com/pondokpesantren/sipondok/core/permission"
)

type permissionApi struct {
	svc *permission.Service
}

func registerPermissionAPI(g *echo.Group, svc *permission.Service) {
	api := permissionApi{svc: svc}

	pg := g.Group("/permissions")
	pg.GET("", api.query)
	pg.POST("", api.create)
	pg.PATCH("/:id/status", api.setStatus)
}

type permissionStatus struct {
	Status string `json:"status"`
}

func (api *permissionApi) query(ctx echo.Context) error {
	var qf permission.QueryFilter
	if err := ctx.Bind(&qf); err != nil {
		return errors.Wrap(err, "binding to permission.QueryFilter")
	}
	filter, err := qf.Clean()
	if err != nil {
		return err
	}
	result, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying permissions")
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *permissionApi) create(ctx echo.Context) error {
	var data permission.NewPermission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to permission.NewPermission")
	}
	p, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *permissionApi) setStatus(ctx echo.Context) error {
	var data permissionStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to permissionStatus")
	}
	p, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), permission.Status(core.CleanString(data.Status, true /* lower */)))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

type paymentApi struct {
	svc *payment.Service
}

func registerPaymentAPI(g *echo.Group, svc *payment.Service) {
	api := paymentApi{svc: svc}

	pg := g.Group("/payments")
	pg.GET("", api.query)
	pg.POST("", api.record)
	pg.GET("/summary", api.summary)
}

func (api *paymentApi) queryPayments(ctx echo.Context) ([]payment.Payment, error) {
	var qf payment.QueryFilter
	if err := ctx.Bind(&qf); err != nil {
		return nil, errors.Wrap(err, "binding to payment.QueryFilter")
	}
	filter, err := qf.Clean()
	if err != nil {
		return nil, err
	}
	result, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	return result, nil
}

func (api *paymentApi) query(ctx echo.Context) error {
	result, err := api.queryPayments(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *paymentApi) summary(ctx echo.Context) error {
	result, err := api.queryPayments(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, payment.SummarizeByMonth(result))
}

func (api *paymentApi) record(ctx echo.Context) error {
	var data payment.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to payment.NewPayment")
	}
	p, err := api.svc.Record(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p)
}
