package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core/report"
)

type reportApi struct {
	upserts   *report.UpsertService
	retrieval *report.RetrievalService
	printer   *report.Printer
	deliverer *report.Deliverer
}

func registerReportAPI(
	g *echo.Group,
	upserts *report.UpsertService,
	retrieval *report.RetrievalService,
	printer *report.Printer,
	deliverer *report.Deliverer,
) {
	api := reportApi{
		upserts:   upserts,
		retrieval: retrieval,
		printer:   printer,
		deliverer: deliverer,
	}

	rg := g.Group("/reports")
	rg.GET("", api.query)
	rg.POST("", api.saveBulk)

	// santri endpoints
	sg := rg.Group("/:santri_id")
	sg.GET("", api.retrieve)
	sg.PUT("", api.save)
	sg.GET("/print", api.print)
	sg.POST("/print", api.saveAndPrint)
	sg.POST("/email", api.email)
}

type emailSent struct {
	SantriID string `json:"santri_id"`
	To       string `json:"to"`
}

// Handlers

func (api *reportApi) query(ctx echo.Context) error {
	var lf report.ListFilter
	if err := ctx.Bind(&lf); err != nil {
		return errors.Wrap(err, "binding to report.ListFilter")
	}
	result, err := api.upserts.Query(ctx.Request().Context(), lf)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *reportApi) saveBulk(ctx echo.Context) error {
	var data report.BulkInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to report.BulkInput")
	}
	reports, err := api.upserts.SaveBulk(ctx.Request().Context(), data)
	if err != nil {
		return failedWrite(err)
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *reportApi) save(ctx echo.Context) error {
	var data report.SingleInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to report.SingleInput")
	}
	data.SantriID = ctx.Param("santri_id")

	r, err := api.upserts.SaveOne(ctx.Request().Context(), data)
	if err != nil {
		return failedWrite(err)
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reportApi) bindPeriod(ctx echo.Context) (report.Period, error) {
	var period report.Period
	if err := ctx.Bind(&period); err != nil {
		return report.Period{}, errors.Wrap(err, "binding to report.Period")
	}
	return period, nil
}

func (api *reportApi) retrieve(ctx echo.Context) error {
	period, err := api.bindPeriod(ctx)
	if err != nil {
		return err
	}
	b, err := api.retrieval.Retrieve(ctx.Request().Context(), ctx.Param("santri_id"), period)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *reportApi) sendDocument(ctx echo.Context, b report.Bundle, doc *bytes.Buffer) error {
	disposition := fmt.Sprintf("attachment; filename=%q", api.printer.Filename(b))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	return ctx.Blob(http.StatusOK, api.printer.ContentType(), doc.Bytes())
}

// print renders the report as stored, without saving anything.
func (api *reportApi) print(ctx echo.Context) error {
	period, err := api.bindPeriod(ctx)
	if err != nil {
		return err
	}
	var doc bytes.Buffer
	b, err := api.printer.Print(ctx.Request().Context(), ctx.Param("santri_id"), period, &doc)
	if err != nil {
		return err
	}
	return api.sendDocument(ctx, b, &doc)
}

func (api *reportApi) saveAndPrint(ctx echo.Context) error {
	var data report.SingleInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to report.SingleInput")
	}
	data.SantriID = ctx.Param("santri_id")

	var doc bytes.Buffer
	b, err := api.printer.SaveAndPrint(ctx.Request().Context(), data, &doc)
	if err != nil {
		return failedWrite(err)
	}
	return api.sendDocument(ctx, b, &doc)
}

func (api *reportApi) email(ctx echo.Context) error {
	period, err := api.bindPeriod(ctx)
	if err != nil {
		return err
	}
	b, err := api.deliverer.Email(ctx.Request().Context(), ctx.Param("santri_id"), period)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusAccepted, emailSent{SantriID: b.Santri.ID, To: b.Santri.Guardian.Email})
}
