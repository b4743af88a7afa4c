package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core/grade"
	"github.com/pondokpesantren/sipondok/core/monitoring"
)

type gradeApi struct {
	svc *grade.Service
}

func registerGradeAPI(g *echo.Group, svc *grade.Service) {
	api := gradeApi{svc: svc}

	gg := g.Group("/grades")
	gg.GET("", api.query)
	gg.POST("", api.save)
}

type saveGrades struct {
	Grades []grade.NewGrade `json:"grades"`
}

func (api *gradeApi) query(ctx echo.Context) error {
	var qf grade.QueryFilter
	if err := ctx.Bind(&qf); err != nil {
		return errors.Wrap(err, "binding to grade.QueryFilter")
	}
	filter, err := qf.Clean()
	if err != nil {
		return err
	}
	result, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *gradeApi) save(ctx echo.Context) error {
	var data saveGrades
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to saveGrades")
	}
	grades, err := api.svc.Save(ctx.Request().Context(), data.Grades)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, grades)
}

type monitoringApi struct {
	svc *monitoring.Service
}

func registerMonitoringAPI(g *echo.Group, svc *monitoring.Service) {
	api := monitoringApi{svc: svc}

	mg := g.Group("/monitoring")
	mg.GET("", api.query)
	mg.POST("", api.add)
	mg.GET("/monthly", api.monthly)
}

func (api *monitoringApi) queryEntries(ctx echo.Context) ([]monitoring.Entry, error) {
	var qf monitoring.QueryFilter
	if err := ctx.Bind(&qf); err != nil {
		return nil, errors.Wrap(err, "binding to monitoring.QueryFilter")
	}
	filter, err := qf.Clean()
	if err != nil {
		return nil, err
	}
	result, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying monitoring")
	}
	return result, nil
}

func (api *monitoringApi) query(ctx echo.Context) error {
	result, err := api.queryEntries(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *monitoringApi) monthly(ctx echo.Context) error {
	result, err := api.queryEntries(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, monitoring.GroupByMonth(result))
}

func (api *monitoringApi) add(ctx echo.Context) error {
	var data monitoring.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to monitoring.NewEntry")
	}
	entry, err := api.svc.Add(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, entry)
}
