package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core/santri"
)

type santriApi struct {
	svc *santri.Service
}

func registerSantriAPI(g *echo.Group, svc *santri.Service) {
	api := santriApi{svc: svc}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
}

// Handlers

func (api *santriApi) query(ctx echo.Context) error {
	var qf santri.QueryFilter
	if err := ctx.Bind(&qf); err != nil {
		return errors.Wrap(err, "binding to santri.QueryFilter")
	}
	filter, err := qf.Clean()
	if err != nil {
		return err
	}
	var ord Ordering
	ord.Bind(ctx)
	filter.Ordering = ord.Orderings

	result, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying santri")
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *santriApi) create(ctx echo.Context) error {
	var data santri.NewSantri
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to santri.NewSantri")
	}
	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *santriApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *santriApi) update(ctx echo.Context) error {
	var data santri.UpdateSantri
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to santri.UpdateSantri")
	}
	s, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}
