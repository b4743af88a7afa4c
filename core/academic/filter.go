package academic

import (
	"strings"

	"github.com/pondokpesantren/sipondok/core"
)

// FilterAll is sent by filter controls to mean "no filter", same as an empty value.
const FilterAll = "all"

// IsNoFilter reports whether a filter value means "no filter".
func IsNoFilter(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, FilterAll)
}

// FilterValue cleans a filter value, mapping the "no filter" sentinels to "".
func FilterValue(s string) string {
	if IsNoFilter(s) {
		return ""
	}
	return core.CleanString(s)
}

// ParseRange builds a date range from optional from/to filter values.
func ParseRange(from, to string) (DateRange, error) {
	var r DateRange
	if from = FilterValue(from); from != "" {
		d, err := ParseDate(from)
		if err != nil {
			return DateRange{}, core.NewFieldValidationError("from", "from must be formatted as YYYY-MM-DD")
		}
		r.Start = d
	}
	if to = FilterValue(to); to != "" {
		d, err := ParseDate(to)
		if err != nil {
			return DateRange{}, core.NewFieldValidationError("to", "to must be formatted as YYYY-MM-DD")
		}
		r.End = d
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return DateRange{}, core.NewFieldValidationError("to", "to cannot be before from")
	}
	return r, nil
}

var (
	programTag       = "program"
	programText      = "{0} must be one of Diniyah, Tahfidz"
	semesterTag      = "semester"
	semesterText     = "{0} must be one of Ganjil, Genap"
	academicYearTag  = "academicyear"
	academicYearText = "{0} must be formatted as YYYY/YYYY+1"
)

// register validators
func init() {
	core.RegisterStringValidation(programTag, programText, func(s string) bool { return Program(s).Valid() })
	core.RegisterStringValidation(semesterTag, semesterText, func(s string) bool { return Semester(s).Valid() })
	core.RegisterStringValidation(academicYearTag, academicYearText, ValidAcademicYear)
}
