package report

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
	"github.com/pondokpesantren/sipondok/core/attendance"
)

var (
	// ErrNothingToSave is returned when an input names no santri.
	ErrNothingToSave = &core.ValidationError{Err: errors.New("no data to save")}
	ErrNotFound      = errors.New("report not found")
)

// NowFunc is mocked in tests.
var NowFunc = func() time.Time { return time.Now().UTC() }

type (
	Repository interface {
		// UpsertReports inserts the reports in one batch. A report with the Key of an existing one
		// overwrites its behavior, attendance summary, notes and update time.
		UpsertReports(ctx context.Context, reports ...StudentReport) error
		GetReport(ctx context.Context, key Key) (StudentReport, error)
		// QueryReports applies AND operation on available Filter fields.
		QueryReports(ctx context.Context, filter Filter) ([]StudentReport, error)
		// UpdateAttendanceSummaries only overwrites the attendance summary of existing reports.
		UpdateAttendanceSummaries(ctx context.Context, summaries map[Key]attendance.Summary) error
	}

	AttendanceSummarizer interface {
		Summarize(ctx context.Context, ids []string, rng academic.DateRange) map[string]attendance.Summary
	}

	// Invalidator drops cached views of the saved reports.
	Invalidator interface {
		Invalidate()
	}

	UpsertService struct {
		repo        Repository
		summarizer  AttendanceSummarizer
		invalidator Invalidator
		cache       *ListCache
	}
)

// NewUpsertService returns a service that caches the reports list in cache.
// invalidators are told about every successful save, along with the cache.
func NewUpsertService(repo Repository, summarizer AttendanceSummarizer, cache *ListCache, invalidators ...Invalidator) *UpsertService {
	invs := make(multiInvalidator, 0, len(invalidators)+1)
	if cache != nil {
		invs = append(invs, cache)
	}
	invs = append(invs, invalidators...)
	return &UpsertService{repo: repo, summarizer: summarizer, invalidator: invs, cache: cache}
}

type multiInvalidator []Invalidator

func (m multiInvalidator) Invalidate() {
	for _, inv := range m {
		inv.Invalidate()
	}
}

// SaveBulk saves the report of every santri named in the input.
// Attendance summaries are computed for the period of the input. All reports are written in one batch:
// a store error fails the whole call and nothing is retried.
func (svc *UpsertService) SaveBulk(ctx context.Context, in BulkInput) ([]StudentReport, error) {
	if err := in.Period.Validate(); err != nil {
		return nil, err
	}
	entries := mergeEntries(in.Entries)
	if len(entries) == 0 {
		return nil, ErrNothingToSave
	}
	rng, err := in.Period.Range()
	if err != nil {
		return nil, core.NewFieldValidationError("academic_year", err.Error())
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.SantriID
	}
	summaries := svc.summarizer.Summarize(ctx, ids, rng)

	now := NowFunc()
	reports := make([]StudentReport, 0, len(entries))
	for _, e := range entries {
		bhv, err := NewBehavior(in.Program, e.Behavior)
		if err != nil {
			return nil, core.NewFieldValidationError("program", err.Error())
		}
		notes := core.CleanString(e.Notes)
		reports = append(reports, StudentReport{
			SantriID:          e.SantriID,
			Program:           in.Program,
			AcademicYear:      in.AcademicYear,
			Semester:          in.Semester,
			Behavior:          bhv,
			AttendanceSummary: summaries[e.SantriID],
			Notes:             null.NewString(notes, notes != ""),
			UpdatedAt:         now,
		})
	}

	if err := svc.repo.UpsertReports(ctx, reports...); err != nil {
		return nil, errors.Wrap(err, "saving reports")
	}
	svc.invalidator.Invalidate()
	return reports, nil
}

// SaveOne saves the report of one santri. It returns once the report is stored,
// so a retrieval issued afterwards reads what was saved.
func (svc *UpsertService) SaveOne(ctx context.Context, in SingleInput) (StudentReport, error) {
	reports, err := svc.SaveBulk(ctx, BulkInput{
		Period:  in.Period,
		Entries: []Entry{{SantriID: in.SantriID, Behavior: in.Behavior, Notes: in.Notes}},
	})
	if err != nil {
		return StudentReport{}, err
	}
	return reports[0], nil
}

// mergeEntries drops entries without santri and merges the entries of the same santri, later values winning.
func mergeEntries(entries []Entry) []Entry {
	index := make(map[string]int, len(entries))
	merged := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e.SantriID = core.CleanString(e.SantriID, true /* lower */)
		if e.SantriID == "" {
			continue
		}
		i, ok := index[e.SantriID]
		if !ok {
			index[e.SantriID] = len(merged)
			merged = append(merged, Entry{SantriID: e.SantriID, Behavior: make(map[string]string), Notes: e.Notes})
			i = len(merged) - 1
		} else {
			merged[i].Notes = e.Notes
		}
		for k, v := range e.Behavior {
			merged[i].Behavior[k] = v
		}
	}
	return merged
}

// Query lists the saved reports matching the filter, with the attendance summary of their last save.
// Results are cached until the next save.
func (svc *UpsertService) Query(ctx context.Context, lf ListFilter) ([]StudentReport, error) {
	lf, err := lf.Clean()
	if err != nil {
		return nil, err
	}
	if svc.cache != nil {
		if reports, ok := svc.cache.Get(lf); ok {
			return reports, nil
		}
	}
	reports, err := svc.repo.QueryReports(ctx, lf.filter())
	if err != nil {
		return nil, errors.Wrap(err, "querying reports")
	}
	if svc.cache != nil {
		svc.cache.Put(lf, reports)
	}
	return reports, nil
}

// RefreshSummaries recomputes the attendance summary of every saved report of the period.
// Behavior, notes and update times are left untouched. It returns the number of reports refreshed.
func (svc *UpsertService) RefreshSummaries(ctx context.Context, period Period) (int, error) {
	if err := period.Validate(); err != nil {
		return 0, err
	}
	rng, err := period.Range()
	if err != nil {
		return 0, core.NewFieldValidationError("academic_year", err.Error())
	}
	reports, err := svc.repo.QueryReports(ctx, Filter{
		Program:      period.Program,
		AcademicYear: period.AcademicYear,
		Semester:     period.Semester,
	})
	if err != nil {
		return 0, errors.Wrap(err, "querying reports")
	}
	if len(reports) == 0 {
		return 0, nil
	}

	ids := make([]string, len(reports))
	for i, r := range reports {
		ids[i] = r.SantriID
	}
	computed := svc.summarizer.Summarize(ctx, ids, rng)
	summaries := make(map[Key]attendance.Summary, len(reports))
	for _, r := range reports {
		summaries[r.Key()] = computed[r.SantriID]
	}

	if err := svc.repo.UpdateAttendanceSummaries(ctx, summaries); err != nil {
		return 0, errors.Wrap(err, "updating attendance summaries")
	}
	svc.invalidator.Invalidate()
	return len(reports), nil
}
