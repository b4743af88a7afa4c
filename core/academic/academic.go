// Package academic holds the vocabulary shared by every module of the pondok:
// programs, semesters, academic years and the calendar ranges they cover.
package academic

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DateLayout is the layout of calendar dates exchanged with clients and the data store.
const DateLayout = "2006-01-02"

type Program string

const (
	ProgramDiniyah Program = "Diniyah"
	ProgramTahfidz Program = "Tahfidz"
)

var Programs = []Program{ProgramDiniyah, ProgramTahfidz}

func (p Program) Valid() bool {
	return p == ProgramDiniyah || p == ProgramTahfidz
}

type Semester string

const (
	SemesterGanjil Semester = "Ganjil" // first half: July - December
	SemesterGenap  Semester = "Genap"  // second half: January - June
)

var Semesters = []Semester{SemesterGanjil, SemesterGenap}

func (s Semester) Valid() bool {
	return s == SemesterGanjil || s == SemesterGenap
}

var (
	ErrInvalidAcademicYear = errors.New("academic year must be formatted as YYYY/YYYY")
	ErrInvalidSemester     = errors.New("semester must be one of Ganjil, Genap")
	ErrInvalidProgram      = errors.New("program must be one of Diniyah, Tahfidz")
)

func ParseProgram(s string) (Program, error) {
	for _, p := range Programs {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, nil
		}
	}
	return "", ErrInvalidProgram
}

func ParseSemester(s string) (Semester, error) {
	for _, sem := range Semesters {
		if strings.EqualFold(strings.TrimSpace(s), string(sem)) {
			return sem, nil
		}
	}
	return "", ErrInvalidSemester
}

// DateRange is an inclusive range of calendar dates (UTC midnight).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether the calendar date of t falls within the range. A zero bound is open.
func (r DateRange) Contains(t time.Time) bool {
	d := Date(t)
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	return r.End.IsZero() || !d.After(r.End)
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// Date truncates t to its calendar date at UTC midnight.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// SplitAcademicYear splits "2024/2025" into its two years.
func SplitAcademicYear(year string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(year), "/")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidAcademicYear
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, ErrInvalidAcademicYear
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, ErrInvalidAcademicYear
	}
	return start, end, nil
}

// ResolveRange maps an academic year and a semester to the calendar dates they cover:
// Ganjil is July 1st - December 31st of the first year, Genap is January 1st - June 30th of the second.
func ResolveRange(academicYear string, sem Semester) (DateRange, error) {
	yearStart, yearEnd, err := SplitAcademicYear(academicYear)
	if err != nil {
		return DateRange{}, err
	}
	switch sem {
	case SemesterGanjil:
		return DateRange{
			Start: time.Date(yearStart, time.July, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(yearStart, time.December, 31, 0, 0, 0, 0, time.UTC),
		}, nil
	case SemesterGenap:
		return DateRange{
			Start: time.Date(yearEnd, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(yearEnd, time.June, 30, 0, 0, 0, 0, time.UTC),
		}, nil
	default:
		return DateRange{}, ErrInvalidSemester
	}
}

// ValidAcademicYear accepts "YYYY/YYYY" where the second year follows the first.
func ValidAcademicYear(year string) bool {
	parts := strings.Split(year, "/")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 4 {
		return false
	}
	start, end, err := SplitAcademicYear(year)
	return err == nil && end == start+1
}

// CurrentAcademicYear returns the academic year running at t. A new year starts every July.
func CurrentAcademicYear(t time.Time) string {
	y := t.Year()
	if t.Month() < time.July {
		y--
	}
	return fmt.Sprintf("%d/%d", y, y+1)
}

// CurrentSemester returns the semester running at t.
func CurrentSemester(t time.Time) Semester {
	if t.Month() < time.July {
		return SemesterGenap
	}
	return SemesterGanjil
}
