package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
	"github.com/pondokpesantren/sipondok/core/grade"
	"github.com/pondokpesantren/sipondok/core/monitoring"
	"github.com/pondokpesantren/sipondok/core/santri"
)

var ErrStudentNotFound = errors.New("student not found")

type (
	SantriFinder interface {
		GetByID(ctx context.Context, id string) (santri.Santri, error)
	}

	GradeFinder interface {
		Query(ctx context.Context, filter grade.Filter) ([]grade.Grade, error)
	}

	MonitoringFinder interface {
		Query(ctx context.Context, filter monitoring.Filter) ([]monitoring.Entry, error)
	}

	// BundleRenderer lays a Bundle out as a printable document.
	BundleRenderer interface {
		Render(w io.Writer, b Bundle) error
		ContentType() string
		Extension() string // with the leading dot
	}

	RetrievalService struct {
		repo       Repository
		santris    SantriFinder
		grades     GradeFinder
		monitoring MonitoringFinder
		summarizer AttendanceSummarizer
		logger     core.Logger
	}
)

func NewRetrievalService(
	repo Repository,
	santris SantriFinder,
	grades GradeFinder,
	monitoring MonitoringFinder,
	summarizer AttendanceSummarizer,
	logger core.Logger,
) *RetrievalService {
	return &RetrievalService{
		repo:       repo,
		santris:    santris,
		grades:     grades,
		monitoring: monitoring,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Retrieve assembles the report card of a santri.
// Only the santri lookup can fail the call: grades, tahfidz log and saved behavior fall back to empty
// values when they cannot be read. Attendance is always recomputed from the attendance records.
func (svc *RetrievalService) Retrieve(ctx context.Context, santriID string, period Period) (Bundle, error) {
	if err := period.Validate(); err != nil {
		return Bundle{}, err
	}
	rng, err := period.Range()
	if err != nil {
		return Bundle{}, core.NewFieldValidationError("academic_year", err.Error())
	}
	santriID = core.CleanString(santriID, true /* lower */)

	s, err := svc.santris.GetByID(ctx, santriID)
	if err != nil {
		if errors.Cause(err) == santri.ErrNotFound {
			return Bundle{}, ErrStudentNotFound
		}
		return Bundle{}, errors.Wrap(err, "getting santri")
	}

	b := Bundle{
		Period:     period,
		Santri:     s,
		Grades:     []grade.Grade{},
		Monitoring: []monitoring.Entry{},
		Behavior:   EmptyBehavior(period.Program),
	}
	extras := map[string]interface{}{"santri_id": santriID, "period": period}

	grades, err := svc.grades.Query(ctx, grade.Filter{
		SantriIDs:    []string{santriID},
		Semester:     period.Semester,
		AcademicYear: period.AcademicYear,
		ProgramType:  period.Program,
	})
	if err != nil {
		svc.logger.Error("retrieving report grades: "+err.Error(), err, extras)
	} else if len(grades) > 0 {
		sort.SliceStable(grades, func(i, j int) bool { return grades[i].Subject < grades[j].Subject })
		b.Grades = grades
	}

	if period.Program == academic.ProgramTahfidz {
		entries, err := svc.monitoring.Query(ctx, monitoring.Filter{SantriIDs: []string{santriID}, Range: rng})
		if err != nil {
			svc.logger.Error("retrieving report tahfidz log: "+err.Error(), err, extras)
		} else if len(entries) > 0 {
			b.Monitoring = entries
		}
	}

	saved, err := svc.repo.GetReport(ctx, period.key(santriID))
	switch {
	case err == nil:
		if saved.Behavior != nil {
			b.Behavior = saved.Behavior
		}
		b.Notes = saved.Notes.String
		b.HasReport = true
	case errors.Cause(err) != ErrNotFound:
		svc.logger.Error("retrieving saved report: "+err.Error(), err, extras)
	}

	b.Attendance = svc.summarizer.Summarize(ctx, []string{santriID}, rng)[santriID]
	return b, nil
}

// Printer produces report documents.
type Printer struct {
	upserts   *UpsertService
	retrieval *RetrievalService
	renderer  BundleRenderer
}

func NewPrinter(upserts *UpsertService, retrieval *RetrievalService, renderer BundleRenderer) *Printer {
	return &Printer{upserts: upserts, retrieval: retrieval, renderer: renderer}
}

// SaveAndPrint saves the report then renders it from the stored state.
// Nothing is read nor rendered when the save fails.
func (p *Printer) SaveAndPrint(ctx context.Context, in SingleInput, w io.Writer) (Bundle, error) {
	_, b, err := p.saveAndPrint(ctx, in, w)
	return b, err
}

// saveAndPrint also returns the saved report, set whenever the save succeeded even if printing failed.
func (p *Printer) saveAndPrint(ctx context.Context, in SingleInput, w io.Writer) (StudentReport, Bundle, error) {
	saved, err := p.upserts.SaveOne(ctx, in)
	if err != nil {
		return StudentReport{}, Bundle{}, err
	}
	b, err := p.Print(ctx, in.SantriID, in.Period, w)
	return saved, b, err
}

// ContentType is the media type of printed documents.
func (p *Printer) ContentType() string { return p.renderer.ContentType() }

// Filename is the download name of the document of b.
func (p *Printer) Filename(b Bundle) string {
	name := strings.Join(strings.Fields(b.Santri.Name), "_")
	year := strings.ReplaceAll(b.Period.AcademicYear, "/", "-")
	return fmt.Sprintf("rapor_%s_%s_%s_%s%s", name, b.Period.Program, year, b.Period.Semester, p.renderer.Extension())
}

// Print renders the report card of a santri as currently stored.
func (p *Printer) Print(ctx context.Context, santriID string, period Period, w io.Writer) (Bundle, error) {
	b, err := p.retrieval.Retrieve(ctx, santriID, period)
	if err != nil {
		return Bundle{}, err
	}
	if err := p.renderer.Render(w, b); err != nil {
		return Bundle{}, errors.Wrap(err, "rendering report")
	}
	return b, nil
}
