package attendance_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
	"github.com/pondokpesantren/sipondok/core/attendance"
	inmemdb "github.com/pondokpesantren/sipondok/storage/database/inmem"
	testutil "github.com/pondokpesantren/sipondok/tests"
)

// stubRepo serves fixed records and counts queries.
type stubRepo struct {
	recs    []attendance.Record
	err     error
	queries int
	filters []attendance.Filter
}

func (r *stubRepo) UpsertRecords(_ context.Context, recs ...attendance.Record) ([]attendance.Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.recs = append(r.recs, recs...)
	return recs, nil
}

func (r *stubRepo) GetRecordByID(_ context.Context, id string) (attendance.Record, error) {
	for _, rec := range r.recs {
		if rec.ID == id {
			return rec, nil
		}
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (r *stubRepo) UpdateRecord(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	for i := range r.recs {
		if r.recs[i].ID == rec.ID {
			r.recs[i] = rec
			return rec, nil
		}
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (r *stubRepo) QueryRecords(_ context.Context, f attendance.Filter) ([]attendance.Record, error) {
	r.queries++
	r.filters = append(r.filters, f)
	if r.err != nil {
		return nil, r.err
	}
	var out []attendance.Record
	for _, rec := range r.recs {
		if f.Range.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func day(s string) time.Time {
	d, err := academic.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func rec(santriID, date string, st attendance.Status) attendance.Record {
	return attendance.Record{ID: santriID + date + string(st), SantriID: santriID, Date: day(date), Status: st}
}

func TestTally(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		recs []attendance.Record
		want map[string]attendance.Summary
	}{
		{
			name: "no ids",
			recs: []attendance.Record{rec("a", "2024-08-01", attendance.StatusAlpha)},
			want: map[string]attendance.Summary{},
		},
		{
			name: "no records",
			ids:  []string{"a", "b"},
			want: map[string]attendance.Summary{"a": {}, "b": {}},
		},
		{
			name: "present is ignored",
			ids:  []string{"a"},
			recs: []attendance.Record{rec("a", "2024-08-01", attendance.StatusPresent)},
			want: map[string]attendance.Summary{"a": {}},
		},
		{
			name: "alpha only increments alfa",
			ids:  []string{"a"},
			recs: []attendance.Record{rec("a", "2024-08-01", attendance.StatusAlpha)},
			want: map[string]attendance.Summary{"a": {Alfa: 1}},
		},
		{
			name: "same day rows all count",
			ids:  []string{"a"},
			recs: []attendance.Record{
				rec("a", "2024-08-01", attendance.StatusAlpha),
				rec("a", "2024-09-10", attendance.StatusPermission),
				rec("a", "2024-09-10", attendance.StatusSick),
			},
			want: map[string]attendance.Summary{"a": {Alfa: 1, Izin: 1, Sakit: 1}},
		},
		{
			name: "unknown status and other santri ignored",
			ids:  []string{"a"},
			recs: []attendance.Record{
				{SantriID: "a", Date: day("2024-08-02"), Status: "late"},
				rec("b", "2024-08-01", attendance.StatusSick),
			},
			want: map[string]attendance.Summary{"a": {}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := attendance.Tally(tt.ids, tt.recs); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tally() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarizer_Summarize(t *testing.T) {
	ganjil, _ := academic.ResolveRange("2024/2025", academic.SemesterGanjil)

	t.Run("empty ids does not query", func(t *testing.T) {
		repo := &stubRepo{}
		got := attendance.NewSummarizer(repo, testutil.NewLogger()).Summarize(context.Background(), nil, ganjil)
		if len(got) != 0 {
			t.Errorf("Summarize() = %v, want empty", got)
		}
		if repo.queries != 0 {
			t.Errorf("Summarize() made %d queries, want 0", repo.queries)
		}
	})

	t.Run("scenario within range", func(t *testing.T) {
		repo := &stubRepo{recs: []attendance.Record{
			rec("a", "2024-08-01", attendance.StatusAlpha),
			rec("a", "2024-09-10", attendance.StatusPermission),
			rec("a", "2024-09-10", attendance.StatusSick),
			rec("a", "2025-02-01", attendance.StatusAlpha), // Genap
		}}
		got := attendance.NewSummarizer(repo, testutil.NewLogger()).
			Summarize(context.Background(), []string{"a", "b", "a"}, ganjil)
		want := map[string]attendance.Summary{"a": {Alfa: 1, Izin: 1, Sakit: 1}, "b": {}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Summarize() = %v, want %v", got, want)
		}
		if repo.queries != 1 {
			t.Fatalf("Summarize() made %d queries, want 1", repo.queries)
		}
		if f := repo.filters[0]; !reflect.DeepEqual(f.SantriIDs, []string{"a", "b"}) || f.Range != ganjil {
			t.Errorf("Summarize() queried with %+v", f)
		}
	})

	t.Run("query failure degrades to zeros", func(t *testing.T) {
		repo := &stubRepo{err: errors.New("connection refused")}
		got := attendance.NewSummarizer(repo, testutil.NewLogger()).
			Summarize(context.Background(), []string{"a", "b"}, ganjil)
		want := map[string]attendance.Summary{"a": {}, "b": {}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Summarize() = %v, want %v", got, want)
		}
	})
}

func TestService_Record(t *testing.T) {
	attendance.NowFunc = func() time.Time { return time.Date(2024, time.August, 1, 7, 0, 0, 0, time.UTC) }
	defer func() { attendance.NowFunc = func() time.Time { return time.Now().UTC() } }()

	const santriID = "3f1c9a52-6d0e-4b7c-9a51-2b8d0f6a7e11"

	tests := []struct {
		name      string
		inputs    []attendance.NewRecord
		wantErr   bool
		wantCount int
	}{
		{name: "no input", wantErr: true},
		{name: "bad status", inputs: []attendance.NewRecord{{SantriID: santriID, Date: "2024-08-01", Status: "late"}}, wantErr: true},
		{name: "bad date", inputs: []attendance.NewRecord{{SantriID: santriID, Date: "01/08/2024", Status: "sick"}}, wantErr: true},
		{name: "bad santri id", inputs: []attendance.NewRecord{{SantriID: "x", Date: "2024-08-01", Status: "sick"}}, wantErr: true},
		{
			name: "valid",
			inputs: []attendance.NewRecord{
				{SantriID: santriID, Date: "2024-08-01", Status: " Alpha "},
				{SantriID: santriID, Date: "2024-08-02", Status: "present", Notes: "late"},
			},
			wantCount: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{}
			recs, err := attendance.NewService(repo).Record(context.Background(), tt.inputs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Record() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !core.IsValidationError(err) {
					t.Errorf("Record() error = %v, want a validation error", err)
				}
				if len(repo.recs) != 0 {
					t.Errorf("Record() stored %d rows on error", len(repo.recs))
				}
				return
			}
			if len(recs) != tt.wantCount || len(repo.recs) != tt.wantCount {
				t.Fatalf("Record() = %d records, stored %d, want %d", len(recs), len(repo.recs), tt.wantCount)
			}
			if recs[0].Status != attendance.StatusAlpha || !recs[0].Date.Equal(day("2024-08-01")) {
				t.Errorf("Record() = %+v", recs[0])
			}
			if recs[1].Notes.String != "late" || !recs[1].Notes.Valid {
				t.Errorf("Record() notes = %+v", recs[1].Notes)
			}
		})
	}
}

func TestService_Record_sameDay(t *testing.T) {
	db := inmemdb.Open()
	repo := inmemdb.NewAttendanceRepository(db)
	svc := attendance.NewService(repo)
	ctx := context.Background()
	const santriID = "3f1c9a52-6d0e-4b7c-9a51-2b8d0f6a7e11"

	first, err := svc.Record(ctx, []attendance.NewRecord{{SantriID: santriID, Date: "2024-08-01", Status: "alpha"}})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	// the form is submitted again with a correction
	second, err := svc.Record(ctx, []attendance.NewRecord{{SantriID: santriID, Date: "2024-08-01", Status: "sick", Notes: "demam"}})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if second[0].ID != first[0].ID || second[0].Status != attendance.StatusSick || second[0].Notes.String != "demam" {
		t.Errorf("Record() = %+v; want the row %s updated", second[0], first[0].ID)
	}

	recs, err := svc.Query(ctx, attendance.Filter{SantriIDs: []string{santriID}})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Query() = %d rows for one santri and day; want 1", len(recs))
	}

	ganjil, _ := academic.ResolveRange("2024/2025", academic.SemesterGanjil)
	got := attendance.NewSummarizer(repo, testutil.NewLogger()).Summarize(ctx, []string{santriID}, ganjil)
	if want := (attendance.Summary{Sakit: 1}); got[santriID] != want {
		t.Errorf("Summarize() = %+v; want %+v", got[santriID], want)
	}

	t.Run("same day twice in one batch", func(t *testing.T) {
		recs, err := svc.Record(ctx, []attendance.NewRecord{
			{SantriID: santriID, Date: "2024-08-02", Status: "alpha"},
			{SantriID: santriID, Date: "2024-08-03", Status: "present"},
			{SantriID: santriID, Date: "2024-08-02", Status: "permission"},
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if len(recs) != 2 || recs[0].Status != attendance.StatusPermission || recs[1].Status != attendance.StatusPresent {
			t.Errorf("Record() = %+v; want 2 rows, the last entry of a day winning", recs)
		}
	})
}

func TestService_Update(t *testing.T) {
	repo := &stubRepo{recs: []attendance.Record{rec("a", "2024-08-01", attendance.StatusAlpha)}}
	svc := attendance.NewService(repo)
	id := repo.recs[0].ID

	notes := "surat dokter"
	got, err := svc.Update(context.Background(), id, attendance.UpdateRecord{Status: "sick", Notes: &notes})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Status != attendance.StatusSick || got.Notes.String != notes {
		t.Errorf("Update() = %+v", got)
	}

	if _, err := svc.Update(context.Background(), "missing", attendance.UpdateRecord{Status: "sick"}); err != attendance.ErrNotFound {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(context.Background(), id, attendance.UpdateRecord{Status: "late"}); !core.IsValidationError(err) {
		t.Errorf("Update() error = %v, want a validation error", err)
	}
}

func TestDailyCounts(t *testing.T) {
	got := attendance.DailyCounts([]attendance.Record{
		rec("b", "2024-08-02", attendance.StatusPresent),
		rec("a", "2024-08-01", attendance.StatusAlpha),
		rec("b", "2024-08-01", attendance.StatusPresent),
		rec("c", "2024-08-01", attendance.StatusSick),
	})
	want := []attendance.DayCount{
		{Date: day("2024-08-01"), Present: 1, Sick: 1, Alpha: 1},
		{Date: day("2024-08-02"), Present: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DailyCounts() = %+v, want %+v", got, want)
	}
}

func TestQueryFilter_Clean(t *testing.T) {
	f, err := attendance.QueryFilter{Class: "all", Status: "ALL", From: "2024-07-01", To: ""}.Clean()
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if f.Class != "" || f.Statuses != nil || !f.Range.Start.Equal(day("2024-07-01")) || !f.Range.End.IsZero() {
		t.Errorf("Clean() = %+v", f)
	}
	if _, err := (attendance.QueryFilter{Status: "late"}).Clean(); !core.IsValidationError(err) {
		t.Errorf("Clean() error = %v, want a validation error", err)
	}
}
