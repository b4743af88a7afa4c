package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/attendance"
)

const attendanceColumns = "a.id, a.santri_id, a.date, a.status, a.notes, a.created_at"

type attendanceRepository struct {
	exec core.DBExecutor
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) attendance.Repository {
	return &attendanceRepository{exec: exec}
}

// UpsertRecords relies on the partial unique index of form rows: imported rows (source 'import') are never touched.
// recs must not repeat a santri and day.
func (repo *attendanceRepository) UpsertRecords(ctx context.Context, recs ...attendance.Record) ([]attendance.Record, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	args := make([]interface{}, 0, len(recs)*6)
	for _, r := range recs {
		args = append(args, r.ID, r.SantriID, r.Date, r.Status, r.Notes, r.CreatedAt)
	}
	q := build(repo.exec, `INSERT INTO attendance (id, santri_id, date, status, notes, created_at) VALUES `+values(len(recs), 6)+`
		ON CONFLICT (santri_id, date) WHERE source = 'form'
		DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes
		RETURNING id, santri_id, date, status, notes, created_at`)
	rows := make([]attendance.Record, 0, len(recs))
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "upserting attendance")
	}

	byKey := make(map[string]attendance.Record, len(rows))
	for _, r := range rows {
		byKey[r.Key()] = r
	}
	stored := make([]attendance.Record, len(recs))
	for i, r := range recs {
		s, ok := byKey[r.Key()]
		if !ok {
			return nil, errors.Errorf("upserting attendance: no row returned for %s", r.Key())
		}
		stored[i] = s
	}
	return stored, nil
}

func (repo *attendanceRepository) GetRecordByID(ctx context.Context, id string) (attendance.Record, error) {
	var rec attendance.Record
	q := build(repo.exec, "SELECT "+attendanceColumns+" FROM attendance a WHERE a.id = ?")
	if err := sqlx.GetContext(ctx, repo.exec, &rec, q, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "getting attendance")
	}
	return rec, nil
}

func (repo *attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	q := build(repo.exec, "UPDATE attendance SET status = ?, notes = ? WHERE id = ?")
	res, err := repo.exec.ExecContext(ctx, q, rec.Status, rec.Notes, rec.ID)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "updating attendance")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return rec, nil
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, f attendance.Filter) ([]attendance.Record, error) {
	var w where
	from := "attendance a"
	if len(f.SantriIDs) > 0 {
		if err := w.addIn("a.santri_id", f.SantriIDs); err != nil {
			return nil, err
		}
	}
	if f.Class != "" {
		from += " JOIN santri s ON s.id = a.santri_id"
		w.add("s.class = ?", f.Class)
	}
	if !f.Range.Start.IsZero() {
		w.add("a.date >= ?", f.Range.Start)
	}
	if !f.Range.End.IsZero() {
		w.add("a.date <= ?", f.Range.End)
	}
	if len(f.Statuses) > 0 {
		if err := w.addIn("a.status", f.Statuses); err != nil {
			return nil, err
		}
	}

	order := core.OrderByClause(f.Ordering, map[string]string{"date": "a.date", "status": "a.status"}, "a.date ASC")
	q := build(repo.exec, "SELECT "+attendanceColumns+" FROM "+from+w.String()+" ORDER BY "+order+", a.santri_id")
	result := make([]attendance.Record, 0)
	if err := sqlx.SelectContext(ctx, repo.exec, &result, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return result, nil
}
