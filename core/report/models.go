// Package report computes, saves and assembles the semester report cards of santri.
package report

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
	"github.com/pondokpesantren/sipondok/core/attendance"
	"github.com/pondokpesantren/sipondok/core/grade"
	"github.com/pondokpesantren/sipondok/core/monitoring"
	"github.com/pondokpesantren/sipondok/core/santri"
)

// StudentReport is the saved report of one santri for one semester of a program.
// AttendanceSummary is a copy of the attendance at the time of the last save.
type StudentReport struct {
	SantriID          string             `json:"santri_id"`
	Program           academic.Program   `json:"program"`
	AcademicYear      string             `json:"academic_year"`
	Semester          academic.Semester  `json:"semester"`
	Behavior          Behavior           `json:"behavior"`
	AttendanceSummary attendance.Summary `json:"attendance_summary"`
	Notes             null.String        `json:"notes"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func (r StudentReport) Key() Key {
	return Key{SantriID: r.SantriID, Program: r.Program, AcademicYear: r.AcademicYear, Semester: r.Semester}
}

// Key is the identity of a StudentReport.
type Key struct {
	SantriID     string
	Program      academic.Program
	AcademicYear string
	Semester     academic.Semester
}

// Period is the program and semester a report is about.
type Period struct {
	Program      academic.Program  `json:"program" query:"program" validate:"required,program"`
	AcademicYear string            `json:"academic_year" query:"academic_year" validate:"required,academicyear"`
	Semester     academic.Semester `json:"semester" query:"semester" validate:"required,semester"`
}

// Validate normalizes the period and checks that it is complete. "all" counts as missing.
func (p *Period) Validate() error {
	p.Program = academic.Program(academic.FilterValue(string(p.Program)))
	if prog, err := academic.ParseProgram(string(p.Program)); err == nil {
		p.Program = prog
	}
	p.AcademicYear = academic.FilterValue(p.AcademicYear)
	p.Semester = academic.Semester(academic.FilterValue(string(p.Semester)))
	if sem, err := academic.ParseSemester(string(p.Semester)); err == nil {
		p.Semester = sem
	}
	return core.Validate.Struct(p)
}

// Range is the calendar range of the semester.
func (p Period) Range() (academic.DateRange, error) {
	return academic.ResolveRange(p.AcademicYear, p.Semester)
}

func (p Period) key(santriID string) Key {
	return Key{SantriID: santriID, Program: p.Program, AcademicYear: p.AcademicYear, Semester: p.Semester}
}

// Entry is the behavior ratings and notes typed in for one santri.
type Entry struct {
	SantriID string            `json:"santri_id"`
	Behavior map[string]string `json:"behavior"`
	Notes    string            `json:"notes"`
}

// BulkInput saves the reports of several santri for the same period.
type BulkInput struct {
	Period
	Entries []Entry `json:"entries"`
}

// SingleInput saves the report of one santri.
type SingleInput struct {
	Period
	SantriID string            `json:"santri_id"`
	Behavior map[string]string `json:"behavior"`
	Notes    string            `json:"notes"`
}

// Filter selects saved reports. Zero fields do not filter.
type Filter struct {
	SantriIDs    []string
	Program      academic.Program
	Class        string
	AcademicYear string
	Semester     academic.Semester
}

// ListFilter is the filter of the reports list view, sent as plain strings by clients.
type ListFilter struct {
	Program      string `query:"program"`
	Class        string `query:"class"`
	AcademicYear string `query:"academic_year"`
	Semester     string `query:"semester"`
}

// Clean maps the "all" sentinels and normalizes values.
func (lf ListFilter) Clean() (ListFilter, error) {
	out := ListFilter{
		Class:        academic.FilterValue(lf.Class),
		AcademicYear: academic.FilterValue(lf.AcademicYear),
	}
	if p := academic.FilterValue(lf.Program); p != "" {
		prog, err := academic.ParseProgram(p)
		if err != nil {
			return ListFilter{}, core.NewFieldValidationError("program", err.Error())
		}
		out.Program = string(prog)
	}
	if s := academic.FilterValue(lf.Semester); s != "" {
		sem, err := academic.ParseSemester(s)
		if err != nil {
			return ListFilter{}, core.NewFieldValidationError("semester", err.Error())
		}
		out.Semester = string(sem)
	}
	return out, nil
}

func (lf ListFilter) filter() Filter {
	return Filter{
		Program:      academic.Program(lf.Program),
		Class:        lf.Class,
		AcademicYear: lf.AcademicYear,
		Semester:     academic.Semester(lf.Semester),
	}
}

// Bundle is everything printed on the report card of one santri.
type Bundle struct {
	Period     Period             `json:"period"`
	Santri     santri.Santri      `json:"santri"`
	Grades     []grade.Grade      `json:"grades"`
	Monitoring []monitoring.Entry `json:"monitoring"`
	Behavior   Behavior           `json:"behavior"`
	Notes      string             `json:"notes"`
	HasReport  bool               `json:"has_report"` // false when no report was saved yet
	Attendance attendance.Summary `json:"attendance"`
}

// MonitoringTotals groups the tahfidz log of the bundle by month.
func (b Bundle) MonitoringTotals() []monitoring.MonthTotal {
	return monitoring.GroupByMonth(b.Monitoring)
}
