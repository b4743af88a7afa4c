package inmemdb

import (
	"context"
	"sort"

	"github.com/pondokpesantren/sipondok/core/attendance"
	"github.com/pondokpesantren/sipondok/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil)

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) UpsertReports(_ context.Context, reports ...report.StudentReport) error {
	repo.db.report.Lock()
	defer repo.db.report.Unlock()

	for _, r := range reports {
		r := r
		repo.db.report.table[r.Key()] = &r
	}
	return nil
}

func (repo *reportRepository) GetReport(_ context.Context, key report.Key) (report.StudentReport, error) {
	repo.db.report.RLock()
	defer repo.db.report.RUnlock()

	if r, ok := repo.db.report.table[key]; ok {
		return *r, nil
	}
	return report.StudentReport{}, report.ErrNotFound
}

func (repo *reportRepository) QueryReports(_ context.Context, f report.Filter) ([]report.StudentReport, error) {
	repo.db.report.RLock()
	ids := idSet(f.SantriIDs)
	result := make([]report.StudentReport, 0)
	for _, r := range repo.db.report.table {
		switch {
		case !in(ids, r.SantriID),
			f.Program != "" && r.Program != f.Program,
			f.AcademicYear != "" && r.AcademicYear != f.AcademicYear,
			f.Semester != "" && r.Semester != f.Semester:
			continue
		}
		result = append(result, *r)
	}
	repo.db.report.RUnlock()

	if f.Class != "" {
		santriIDs := make([]string, len(result))
		for i, r := range result {
			santriIDs[i] = r.SantriID
		}
		classes := repo.db.classOf(santriIDs...)
		filtered := result[:0]
		for _, r := range result {
			if classes[r.SantriID] == f.Class {
				filtered = append(filtered, r)
			}
		}
		result = filtered
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].SantriID < result[j].SantriID })
	return result, nil
}

func (repo *reportRepository) UpdateAttendanceSummaries(_ context.Context, summaries map[report.Key]attendance.Summary) error {
	repo.db.report.Lock()
	defer repo.db.report.Unlock()

	for key, sum := range summaries {
		if r, ok := repo.db.report.table[key]; ok {
			r.AttendanceSummary = sum
		}
	}
	return nil
}
