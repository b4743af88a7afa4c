package inmemdb

import (
	"context"
	"sort"

	"github.com/pondokpesantren/sipondok/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertRecords(_ context.Context, recs ...attendance.Record) ([]attendance.Record, error) {
	repo.db.attendance.Lock()
	defer repo.db.attendance.Unlock()

	byKey := make(map[string]*attendance.Record, len(repo.db.attendance.rows))
	for _, r := range repo.db.attendance.rows {
		if _, ok := byKey[r.Key()]; !ok {
			byKey[r.Key()] = r
		}
	}
	stored := make([]attendance.Record, len(recs))
	for i := range recs {
		rec := recs[i]
		if existing, ok := byKey[rec.Key()]; ok {
			existing.Status, existing.Notes = rec.Status, rec.Notes
			stored[i] = *existing
			continue
		}
		repo.db.attendance.rows = append(repo.db.attendance.rows, &rec)
		byKey[rec.Key()] = &rec
		stored[i] = rec
	}
	return stored, nil
}

func (repo *attendanceRepository) GetRecordByID(_ context.Context, id string) (attendance.Record, error) {
	repo.db.attendance.RLock()
	defer repo.db.attendance.RUnlock()

	for _, rec := range repo.db.attendance.rows {
		if rec.ID == id {
			return *rec, nil
		}
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) UpdateRecord(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.attendance.Lock()
	defer repo.db.attendance.Unlock()

	for i, r := range repo.db.attendance.rows {
		if r.ID == rec.ID {
			repo.db.attendance.rows[i] = &rec
			return rec, nil
		}
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryRecords(_ context.Context, f attendance.Filter) ([]attendance.Record, error) {
	repo.db.attendance.RLock()
	ids := idSet(f.SantriIDs)
	statuses := make(map[attendance.Status]bool, len(f.Statuses))
	for _, st := range f.Statuses {
		statuses[st] = true
	}
	result := make([]attendance.Record, 0)
	for _, rec := range repo.db.attendance.rows {
		switch {
		case !in(ids, rec.SantriID),
			!f.Range.Contains(rec.Date),
			len(statuses) > 0 && !statuses[rec.Status]:
			continue
		}
		result = append(result, *rec)
	}
	repo.db.attendance.RUnlock()

	if f.Class != "" {
		santriIDs := make([]string, len(result))
		for i, rec := range result {
			santriIDs[i] = rec.SantriID
		}
		classes := repo.db.classOf(santriIDs...)
		filtered := result[:0]
		for _, rec := range result {
			if classes[rec.SantriID] == f.Class {
				filtered = append(filtered, rec)
			}
		}
		result = filtered
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].SantriID < result[j].SantriID
	})
	return result, nil
}
