package inmemdb

import (
	"context"
	"sort"

	"github.com/pondokpesantren/sipondok/core/grade"
	"github.com/pondokpesantren/sipondok/core/monitoring"
)

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil)

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) UpsertGrades(_ context.Context, grades ...grade.Grade) ([]grade.Grade, error) {
	repo.db.grade.Lock()
	defer repo.db.grade.Unlock()

	saved := make([]grade.Grade, 0, len(grades))
	for _, g := range grades {
		g := g
		if existing, ok := repo.db.grade.table[g.Key()]; ok {
			g.ID = existing.ID
		}
		repo.db.grade.table[g.Key()] = &g
		saved = append(saved, g)
	}
	return saved, nil
}

func (repo *gradeRepository) QueryGrades(_ context.Context, f grade.Filter) ([]grade.Grade, error) {
	repo.db.grade.RLock()
	ids := idSet(f.SantriIDs)
	result := make([]grade.Grade, 0)
	for _, g := range repo.db.grade.table {
		switch {
		case !in(ids, g.SantriID),
			f.Subject != "" && g.Subject != f.Subject,
			f.Semester != "" && g.Semester != f.Semester,
			f.AcademicYear != "" && g.AcademicYear != f.AcademicYear,
			f.ProgramType != "" && g.ProgramType != f.ProgramType:
			continue
		}
		result = append(result, *g)
	}
	repo.db.grade.RUnlock()

	if f.Class != "" {
		santriIDs := make([]string, len(result))
		for i, g := range result {
			santriIDs[i] = g.SantriID
		}
		classes := repo.db.classOf(santriIDs...)
		filtered := result[:0]
		for _, g := range result {
			if classes[g.SantriID] == f.Class {
				filtered = append(filtered, g)
			}
		}
		result = filtered
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Subject != result[j].Subject {
			return result[i].Subject < result[j].Subject
		}
		return result[i].SantriID < result[j].SantriID
	})
	return result, nil
}

type monitoringRepository struct {
	db *DB
}

var _ monitoring.Repository = (*monitoringRepository)(nil)

func NewMonitoringRepository(db *DB) monitoring.Repository {
	return &monitoringRepository{db: db}
}

func (repo *monitoringRepository) InsertEntry(_ context.Context, e monitoring.Entry) (monitoring.Entry, error) {
	repo.db.monitoring.Lock()
	defer repo.db.monitoring.Unlock()

	repo.db.monitoring.rows = append(repo.db.monitoring.rows, &e)
	return e, nil
}

func (repo *monitoringRepository) QueryEntries(_ context.Context, f monitoring.Filter) ([]monitoring.Entry, error) {
	repo.db.monitoring.RLock()
	defer repo.db.monitoring.RUnlock()

	ids := idSet(f.SantriIDs)
	result := make([]monitoring.Entry, 0)
	for _, e := range repo.db.monitoring.rows {
		if in(ids, e.SantriID) && f.Range.Contains(e.Date) {
			result = append(result, *e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}
