package report_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
	"github.com/pondokpesantren/sipondok/core/attendance"
	"github.com/pondokpesantren/sipondok/core/grade"
	"github.com/pondokpesantren/sipondok/core/monitoring"
	"github.com/pondokpesantren/sipondok/core/report"
	"github.com/pondokpesantren/sipondok/core/santri"
	inmemdb "github.com/pondokpesantren/sipondok/storage/database/inmem"
	testutil "github.com/pondokpesantren/sipondok/tests"
)

var (
	ganjil  = report.Period{Program: academic.ProgramDiniyah, AcademicYear: "2024/2025", Semester: academic.SemesterGanjil}
	hafalan = report.Period{Program: academic.ProgramTahfidz, AcademicYear: "2024/2025", Semester: academic.SemesterGanjil}
)

// spyRepo counts upserts and can fail or hold them.
type spyRepo struct {
	report.Repository

	mu      sync.Mutex
	upserts int
	err     error
	entered chan struct{}
	hold    chan struct{}
}

func (r *spyRepo) UpsertReports(ctx context.Context, reports ...report.StudentReport) error {
	r.mu.Lock()
	r.upserts++
	err, entered, hold := r.err, r.entered, r.hold
	r.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if hold != nil {
		<-hold
	}
	if err != nil {
		return err
	}
	return r.Repository.UpsertReports(ctx, reports...)
}

func (r *spyRepo) upsertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upserts
}

type stubRenderer struct {
	renders int
	err     error
}

func (r *stubRenderer) Render(w io.Writer, b report.Bundle) error {
	r.renders++
	if r.err != nil {
		return r.err
	}
	_, err := io.WriteString(w, "rapor "+b.Santri.Name)
	return err
}

func (r *stubRenderer) ContentType() string { return "text/plain" }
func (r *stubRenderer) Extension() string   { return ".txt" }

type fixture struct {
	t          *testing.T
	db         *inmemdb.DB
	santris    *santri.Service
	attendance *attendance.Service
	grades     grade.Repository
	monitoring monitoring.Repository
	repo       *spyRepo
	cache      *report.ListCache
	upserts    *report.UpsertService
	retrieval  *report.RetrievalService
	renderer   *stubRenderer
	printer    *report.Printer
}

func newFixture(t *testing.T) *fixture {
	db := inmemdb.Open()
	logger := testutil.NewLogger()
	attRepo := inmemdb.NewAttendanceRepository(db)
	summarizer := attendance.NewSummarizer(attRepo, logger)

	f := &fixture{
		t:          t,
		db:         db,
		santris:    santri.NewService(inmemdb.NewSantriRepository(db)),
		attendance: attendance.NewService(attRepo),
		grades:     inmemdb.NewGradeRepository(db),
		monitoring: inmemdb.NewMonitoringRepository(db),
		repo:       &spyRepo{Repository: inmemdb.NewReportRepository(db)},
		cache:      report.NewListCache(),
		renderer:   &stubRenderer{},
	}
	f.upserts = report.NewUpsertService(f.repo, summarizer, f.cache)
	f.retrieval = report.NewRetrievalService(
		f.repo,
		f.santris,
		grade.NewService(f.grades),
		monitoring.NewService(f.monitoring),
		summarizer,
		logger,
	)
	f.printer = report.NewPrinter(f.upserts, f.retrieval, f.renderer)
	return f
}

func (f *fixture) createSantri(name, class string, program academic.Program) santri.Santri {
	return testutil.CreateSantri(f.t, inmemdb.NewSantriRepository(f.db), name, class, program, santri.StatusActive)
}

func (f *fixture) absent(santriID, date string, status attendance.Status) {
	_, err := f.attendance.Record(context.Background(), []attendance.NewRecord{
		{SantriID: santriID, Date: date, Status: string(status)},
	})
	if err != nil {
		f.t.Fatalf("recording attendance failed: %v", err)
	}
}

func TestUpsertService_SaveBulk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ahmad := f.createSantri("Ahmad", "1A", academic.ProgramDiniyah)
	budi := f.createSantri("Budi", "1A", academic.ProgramDiniyah)

	f.absent(ahmad.ID, "2024-08-05", attendance.StatusAlpha)
	f.absent(ahmad.ID, "2024-09-10", attendance.StatusSick)
	f.absent(ahmad.ID, "2024-09-11", attendance.StatusSick)
	f.absent(ahmad.ID, "2025-02-01", attendance.StatusAlpha) // Genap
	f.absent(budi.ID, "2024-10-01", attendance.StatusPermission)
	f.absent(budi.ID, "2024-10-02", attendance.StatusPresent)

	in := report.BulkInput{
		Period: ganjil,
		Entries: []report.Entry{
			{SantriID: ahmad.ID, Behavior: map[string]string{"kerajinan": "A", "Kedisiplinan": "B", "kerapian": "C"}, Notes: " rajin "},
			{SantriID: budi.ID, Behavior: map[string]string{"kebersihan": "B"}},
		},
	}
	saved, err := f.upserts.SaveBulk(ctx, in)
	if err != nil {
		t.Fatalf("SaveBulk() failed: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("SaveBulk() saved %d reports, want 2", len(saved))
	}

	tests := []struct {
		name     string
		id       string
		summary  attendance.Summary
		behavior map[string]string
		notes    string
	}{
		{
			name:     "with ratings and notes",
			id:       ahmad.ID,
			summary:  attendance.Summary{Alfa: 1, Sakit: 2},
			behavior: map[string]string{"kerajinan": "A", "kedisiplinan": "B", "kebersihan": ""},
			notes:    "rajin",
		},
		{
			name:     "partial ratings",
			id:       budi.ID,
			summary:  attendance.Summary{Izin: 1},
			behavior: map[string]string{"kerajinan": "", "kedisiplinan": "", "kebersihan": "B"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.repo.GetReport(ctx, report.Key{
				SantriID: tc.id, Program: ganjil.Program, AcademicYear: ganjil.AcademicYear, Semester: ganjil.Semester,
			})
			if err != nil {
				t.Fatalf("GetReport() failed: %v", err)
			}
			if got.AttendanceSummary != tc.summary {
				t.Errorf("attendance summary = %+v; want %+v", got.AttendanceSummary, tc.summary)
			}
			values := got.Behavior.Values()
			if len(values) != len(tc.behavior) {
				t.Errorf("behavior = %v; want %v", values, tc.behavior)
			}
			for k, v := range tc.behavior {
				if values[k] != v {
					t.Errorf("behavior[%s] = %q; want %q", k, values[k], v)
				}
			}
			if _, ok := values[report.KeyKerapian]; ok {
				t.Errorf("Diniyah behavior has a %s rating", report.KeyKerapian)
			}
			if got.Notes.String != tc.notes {
				t.Errorf("notes = %q; want %q", got.Notes.String, tc.notes)
			}
		})
	}
}

func TestUpsertService_SaveBulk_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ahmad := f.createSantri("Ahmad", "1A", academic.ProgramDiniyah)
	budi := f.createSantri("Budi", "1A", academic.ProgramDiniyah)

	in := report.BulkInput{
		Period: ganjil,
		Entries: []report.Entry{
			{SantriID: ahmad.ID, Behavior: map[string]string{"kerajinan": "A"}},
			{SantriID: budi.ID, Behavior: map[string]string{"kerajinan": "B"}},
		},
	}
	for i := 0; i < 2; i++ {
		if _, err := f.upserts.SaveBulk(ctx, in); err != nil {
			t.Fatalf("SaveBulk() #%d failed: %v", i+1, err)
		}
	}

	reports, err := f.upserts.Query(ctx, report.ListFilter{Program: "Diniyah", AcademicYear: "2024/2025", Semester: "Ganjil"})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(reports) != 2 {
		t.Errorf("Query() returned %d reports after saving twice, want 2", len(reports))
	}
}

func TestUpsertService_SaveBulk_MergesDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ahmad := f.createSantri("Ahmad", "1A", academic.ProgramTahfidz)

	saved, err := f.upserts.SaveBulk(ctx, report.BulkInput{
		Period: hafalan,
		Entries: []report.Entry{
			{SantriID: ahmad.ID, Behavior: map[string]string{"kerajinan": "A", "kerapian": "B"}, Notes: "first"},
			{SantriID: "  "},
			{SantriID: strings.ToUpper(ahmad.ID), Behavior: map[string]string{"kerapian": "C"}, Notes: "second"},
		},
	})
	if err != nil {
		t.Fatalf("SaveBulk() failed: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("SaveBulk() saved %d reports, want 1", len(saved))
	}
	values := saved[0].Behavior.Values()
	if values["kerajinan"] != "A" || values["kerapian"] != "C" {
		t.Errorf("behavior = %v; want kerajinan A and kerapian C", values)
	}
	if saved[0].Notes.String != "second" {
		t.Errorf("notes = %q; want %q", saved[0].Notes.String, "second")
	}
}

func TestUpsertService_SaveBulk_Errors(t *testing.T) {
	ahmadID := "0b0b2f3e-6a0c-4b8a-9f5e-1f2a3b4c5d6e"
	storeErr := errors.New("connection reset")

	tests := []struct {
		name       string
		in         report.BulkInput
		storeErr   error
		wantErr    error
		validation bool
		upserts    int
	}{
		{
			name:    "no entries",
			in:      report.BulkInput{Period: ganjil},
			wantErr: report.ErrNothingToSave,
		},
		{
			name:    "blank santri only",
			in:      report.BulkInput{Period: ganjil, Entries: []report.Entry{{SantriID: " "}}},
			wantErr: report.ErrNothingToSave,
		},
		{
			name: "program all",
			in: report.BulkInput{
				Period:  report.Period{Program: "all", AcademicYear: "2024/2025", Semester: academic.SemesterGanjil},
				Entries: []report.Entry{{SantriID: ahmadID}},
			},
			validation: true,
		},
		{
			name: "malformed academic year",
			in: report.BulkInput{
				Period:  report.Period{Program: academic.ProgramDiniyah, AcademicYear: "2024", Semester: academic.SemesterGanjil},
				Entries: []report.Entry{{SantriID: ahmadID}},
			},
			validation: true,
		},
		{
			name:     "store failure",
			in:       report.BulkInput{Period: ganjil, Entries: []report.Entry{{SantriID: ahmadID}}},
			storeErr: storeErr,
			wantErr:  storeErr,
			upserts:  1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.err = tc.storeErr

			_, err := f.upserts.SaveBulk(context.Background(), tc.in)
			if err == nil {
				t.Fatal("SaveBulk() succeeded; want an error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("SaveBulk() error = %v; want %v", err, tc.wantErr)
			}
			if tc.storeErr != nil && !strings.Contains(err.Error(), tc.storeErr.Error()) {
				t.Errorf("SaveBulk() error %q does not carry the store error", err)
			}
			if tc.validation && !core.IsValidationError(err) {
				t.Errorf("SaveBulk() error = %v; want a validation error", err)
			}
			if got := f.repo.upsertCount(); got != tc.upserts {
				t.Errorf("store called %d times; want %d", got, tc.upserts)
			}
		})
	}
}

func TestUpsertService_Query_Cache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ahmad := f.createSantri("Ahmad", "1A", academic.ProgramDiniyah)
	lf := report.ListFilter{Program: "diniyah", Class: "all", AcademicYear: "2024/2025", Semester: "ganjil"}

	reports, err := f.upserts.Query(ctx, lf)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(reports) != 0 || f.cache.Len() != 1 {
		t.Fatalf("Query() = %d reports, cache len %d; want 0 and 1", len(reports), f.cache.Len())
	}

	if _, err := f.upserts.SaveOne(ctx, report.SingleInput{Period: ganjil, SantriID: ahmad.ID}); err != nil {
		t.Fatalf("SaveOne() failed: %v", err)
	}
	if f.cache.Len() != 0 {
		t.Errorf("cache len after save = %d; want 0", f.cache.Len())
	}
	reports, err = f.upserts.Query(ctx, lf)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(reports) != 1 {
		t.Errorf("Query() after save = %d reports; want 1", len(reports))
	}

	if _, err := f.upserts.Query(ctx, report.ListFilter{Program: "Pesantren"}); !core.IsValidationError(err) {
		t.Errorf("Query(invalid program) error = %v; want a validation error", err)
	}
}

func TestUpsertService_RefreshSummaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ahmad := f.createSantri("Ahmad", "1A", academic.ProgramDiniyah)
	lf := report.ListFilter{Program: "Diniyah", AcademicYear: "2024/2025", Semester: "Ganjil"}

	if _, err := f.upserts.SaveOne(ctx, report.SingleInput{Period: ganjil, SantriID: ahmad.ID}); err != nil {
		t.Fatalf("SaveOne() failed: %v", err)
	}
	f.absent(ahmad.ID, "2024-11-20", attendance.StatusAlpha)

	reports, err := f.upserts.Query(ctx, lf)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if reports[0].AttendanceSummary.Alfa != 0 {
		t.Fatalf("stored summary changed before refresh: %+v", reports[0].AttendanceSummary)
	}

	n, err := f.upserts.RefreshSummaries(ctx, ganjil)
	if err != nil {
		t.Fatalf("RefreshSummaries() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("RefreshSummaries() = %d; want 1", n)
	}
	reports, err = f.upserts.Query(ctx, lf)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if want := (attendance.Summary{Alfa: 1}); reports[0].AttendanceSummary != want {
		t.Errorf("summary after refresh = %+v; want %+v", reports[0].AttendanceSummary, want)
	}
}

func TestRetrievalService_Retrieve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ahmad := f.createSantri("Ahmad", "1A", academic.ProgramTahfidz)
	now := time.Now().UTC()

	if _, err := f.grades.UpsertGrades(ctx,
		grade.Grade{ID: "g1", SantriID: ahmad.ID, Subject: "Tajwid", Semester: academic.SemesterGanjil,
			AcademicYear: "2024/2025", ProgramType: academic.ProgramTahfidz, ScoreTotal: 80, UpdatedAt: now},
		grade.Grade{ID: "g2", SantriID: ahmad.ID, Subject: "Fiqih", Semester: academic.SemesterGanjil,
			AcademicYear: "2024/2025", ProgramType: academic.ProgramTahfidz, ScoreTotal: 90, UpdatedAt: now},
		grade.Grade{ID: "g3", SantriID: ahmad.ID, Subject: "Nahwu", Semester: academic.SemesterGenap,
			AcademicYear: "2024/2025", ProgramType: academic.ProgramTahfidz, ScoreTotal: 70, UpdatedAt: now},
	); err != nil {
		t.Fatalf("UpsertGrades() failed: %v", err)
	}
	for _, e := range []monitoring.Entry{
		{ID: "m1", SantriID: ahmad.ID, Date: testutil.Date(2024, time.August, 3), ZiyadahPages: 2},
		{ID: "m2", SantriID: ahmad.ID, Date: testutil.Date(2025, time.March, 3), ZiyadahPages: 5},
	} {
		if _, err := f.monitoring.InsertEntry(ctx, e); err != nil {
			t.Fatalf("InsertEntry() failed: %v", err)
		}
	}
	f.absent(ahmad.ID, "2024-12-31", attendance.StatusPermission)

	b, err := f.retrieval.Retrieve(ctx, ahmad.ID, hafalan)
	if err != nil {
		t.Fatalf("Retrieve() failed: %v", err)
	}
	if b.HasReport {
		t.Error("HasReport = true before any save")
	}
	if b.Behavior == nil || b.Behavior.Program() != academic.ProgramTahfidz {
		t.Errorf("Behavior = %v; want empty Tahfidz ratings", b.Behavior)
	}
	if len(b.Grades) != 2 || b.Grades[0].Subject != "Fiqih" || b.Grades[1].Subject != "Tajwid" {
		t.Errorf("Grades = %+v; want Fiqih then Tajwid", b.Grades)
	}
	if len(b.Monitoring) != 1 || b.Monitoring[0].ID != "m1" {
		t.Errorf("Monitoring = %+v; want the Ganjil entry only", b.Monitoring)
	}
	if want := (attendance.Summary{Izin: 1}); b.Attendance != want {
		t.Errorf("Attendance = %+v; want %+v", b.Attendance, want)
	}

	// read after write
	in := report.SingleInput{Period: hafalan, SantriID: ahmad.ID, Behavior: map[string]string{"kerapian": "A"}, Notes: "baik"}
	if _, err := f.upserts.SaveOne(ctx, in); err != nil {
		t.Fatalf("SaveOne() failed: %v", err)
	}
	b, err = f.retrieval.Retrieve(ctx, ahmad.ID, hafalan)
	if err != nil {
		t.Fatalf("Retrieve() failed: %v", err)
	}
	if !b.HasReport || b.Notes != "baik" || b.Behavior.Values()["kerapian"] != "A" {
		t.Errorf("Retrieve() after save = %+v; want the saved report", b)
	}
}

func TestRetrievalService_Retrieve_Diniyah_NoMonitoring(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ahmad := f.createSantri("Ahmad", "1A", academic.ProgramDiniyah)
	if _, err := f.monitoring.InsertEntry(ctx, monitoring.Entry{
		ID: "m1", SantriID: ahmad.ID, Date: testutil.Date(2024, time.August, 3), ZiyadahPages: 2,
	}); err != nil {
		t.Fatalf("InsertEntry() failed: %v", err)
	}

	b, err := f.retrieval.Retrieve(ctx, ahmad.ID, ganjil)
	if err != nil {
		t.Fatalf("Retrieve() failed: %v", err)
	}
	if len(b.Monitoring) != 0 {
		t.Errorf("Monitoring = %+v; want none for Diniyah", b.Monitoring)
	}
	if b.Grades == nil || len(b.Grades) != 0 {
		t.Errorf("Grades = %#v; want an empty list", b.Grades)
	}
}

func TestRetrievalService_Retrieve_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.retrieval.Retrieve(context.Background(), "0b0b2f3e-6a0c-4b8a-9f5e-1f2a3b4c5d6e", ganjil)
	if !errors.Is(err, report.ErrStudentNotFound) {
		t.Errorf("Retrieve() error = %v; want %v", err, report.ErrStudentNotFound)
	}
}

func TestPrinter_SaveAndPrint(t *testing.T) {
	t.Run("prints the saved report", func(t *testing.T) {
		f := newFixture(t)
		ahmad := f.createSantri("Ahmad Fauzi", "1A", academic.ProgramDiniyah)

		var buf bytes.Buffer
		b, err := f.printer.SaveAndPrint(context.Background(), report.SingleInput{
			Period: ganjil, SantriID: ahmad.ID, Behavior: map[string]string{"kerajinan": "A"},
		}, &buf)
		if err != nil {
			t.Fatalf("SaveAndPrint() failed: %v", err)
		}
		if !b.HasReport || buf.String() != "rapor Ahmad Fauzi" {
			t.Errorf("SaveAndPrint() = %+v, %q", b, buf.String())
		}
		if got, want := f.printer.Filename(b), "rapor_Ahmad_Fauzi_Diniyah_2024-2025_Ganjil.txt"; got != want {
			t.Errorf("Filename() = %q; want %q", got, want)
		}
	})

	t.Run("save failure prints nothing", func(t *testing.T) {
		f := newFixture(t)
		ahmad := f.createSantri("Ahmad", "1A", academic.ProgramDiniyah)
		f.repo.err = errors.New("disk full")

		var buf bytes.Buffer
		_, err := f.printer.SaveAndPrint(context.Background(), report.SingleInput{Period: ganjil, SantriID: ahmad.ID}, &buf)
		if err == nil || !strings.Contains(err.Error(), "disk full") {
			t.Errorf("SaveAndPrint() error = %v; want the store error", err)
		}
		if f.renderer.renders != 0 || buf.Len() != 0 {
			t.Errorf("rendered %d documents (%q) after a failed save", f.renderer.renders, buf.String())
		}
	})
}

func TestBehavior(t *testing.T) {
	tests := []struct {
		name    string
		program academic.Program
		in      map[string]string
		want    map[string]string
		wantErr bool
	}{
		{
			name:    "diniyah ignores kerapian",
			program: academic.ProgramDiniyah,
			in:      map[string]string{"KERAJINAN": " A ", "kerapian": "B"},
			want:    map[string]string{"kerajinan": "A", "kedisiplinan": "", "kebersihan": ""},
		},
		{
			name:    "tahfidz ignores kebersihan",
			program: academic.ProgramTahfidz,
			in:      map[string]string{"kebersihan": "A", "kerapian": "B"},
			want:    map[string]string{"kerajinan": "", "kedisiplinan": "", "kerapian": "B"},
		},
		{
			name:    "invalid program",
			program: "Pesantren",
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := report.NewBehavior(tc.program, tc.in)
			if tc.wantErr {
				if !errors.Is(err, academic.ErrInvalidProgram) {
					t.Errorf("NewBehavior() error = %v; want %v", err, academic.ErrInvalidProgram)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBehavior() failed: %v", err)
			}
			got := b.Values()
			if len(got) != len(tc.want) {
				t.Fatalf("Values() = %v; want %v", got, tc.want)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Errorf("Values()[%s] = %q; want %q", k, got[k], v)
				}
			}
			if b.Program() != tc.program {
				t.Errorf("Program() = %s; want %s", b.Program(), tc.program)
			}
		})
	}

	b, err := report.UnmarshalBehavior(academic.ProgramTahfidz, []byte(`{"kerapian":"A","kebersihan":"B"}`))
	if err != nil {
		t.Fatalf("UnmarshalBehavior() failed: %v", err)
	}
	if tb, ok := b.(report.TahfidzBehavior); !ok || tb.Kerapian != "A" {
		t.Errorf("UnmarshalBehavior() = %#v; want Tahfidz ratings with kerapian A", b)
	}
}
