package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
	"github.com/pondokpesantren/sipondok/core/attendance"
)

type attendanceApi struct {
	svc        *attendance.Service
	summarizer *attendance.Summarizer
}

func registerAttendanceAPI(g *echo.Group, svc *attendance.Service, summarizer *attendance.Summarizer) {
	api := attendanceApi{svc: svc, summarizer: summarizer}

	ag := g.Group("/attendance")
	ag.GET("", api.query)
	ag.POST("", api.record)
	ag.GET("/daily", api.daily)
	ag.GET("/summary", api.summary)
	ag.PATCH("/:id", api.update)
}

type recordAttendance struct {
	Records []attendance.NewRecord `json:"records"`
}

type summaryPeriod struct {
	AcademicYear string `query:"academic_year"`
	Semester     string `query:"semester"`
}

// Range resolves the semester dates. Both values are required.
func (sp summaryPeriod) Range() (academic.DateRange, error) {
	var fields []core.FieldError
	year := academic.FilterValue(sp.AcademicYear)
	if year == "" {
		fields = append(fields, core.FieldError{Field: "academic_year", Error: "academic_year is required"})
	}
	sem, err := academic.ParseSemester(academic.FilterValue(sp.Semester))
	if err != nil {
		fields = append(fields, core.FieldError{Field: "semester", Error: err.Error()})
	}
	if len(fields) > 0 {
		return academic.DateRange{}, core.NewValidationError(errors.New("invalid period"), fields...)
	}
	rng, err := academic.ResolveRange(year, sem)
	if err != nil {
		return academic.DateRange{}, core.NewFieldValidationError("academic_year", err.Error())
	}
	return rng, nil
}

// Handlers

func (api *attendanceApi) queryRecords(ctx echo.Context) ([]attendance.Record, error) {
	var qf attendance.QueryFilter
	if err := ctx.Bind(&qf); err != nil {
		return nil, errors.Wrap(err, "binding to attendance.QueryFilter")
	}
	filter, err := qf.Clean()
	if err != nil {
		return nil, err
	}
	var ord Ordering
	ord.Bind(ctx)
	filter.Ordering = ord.Orderings

	result, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return result, nil
}

func (api *attendanceApi) query(ctx echo.Context) error {
	result, err := api.queryRecords(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *attendanceApi) daily(ctx echo.Context) error {
	result, err := api.queryRecords(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, attendance.DailyCounts(result))
}

func (api *attendanceApi) record(ctx echo.Context) error {
	var data recordAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to recordAttendance")
	}
	recs, err := api.svc.Record(ctx.Request().Context(), data.Records)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, recs)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	var data attendance.UpdateRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to attendance.UpdateRecord")
	}
	rec, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) summary(ctx echo.Context) error {
	var sp summaryPeriod
	if err := ctx.Bind(&sp); err != nil {
		return errors.Wrap(err, "binding to summaryPeriod")
	}
	rng, err := sp.Range()
	if err != nil {
		return err
	}
	ids := splitList(ctx, "ids", "id")
	return ctx.JSON(http.StatusOK, api.summarizer.Summarize(ctx.Request().Context(), ids, rng))
}
