package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/grade"
	"github.com/pondokpesantren/sipondok/core/monitoring"
)

const gradeColumns = `g.id, g.santri_id, g.subject, g.semester, g.academic_year, g.program_type,
	g.score_theory, g.score_practice, g.score_total, g.notes, g.updated_at`

type gradeRepository struct {
	exec core.DBExecutor
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(exec core.DBExecutor) grade.Repository {
	return &gradeRepository{exec: exec}
}

func (repo *gradeRepository) UpsertGrades(ctx context.Context, grades ...grade.Grade) ([]grade.Grade, error) {
	if len(grades) == 0 {
		return []grade.Grade{}, nil
	}
	args := make([]interface{}, 0, len(grades)*11)
	for _, g := range grades {
		args = append(args, g.ID, g.SantriID, g.Subject, g.Semester, g.AcademicYear, g.ProgramType,
			g.ScoreTheory, g.ScorePractice, g.ScoreTotal, g.Notes, g.UpdatedAt)
	}
	q := build(repo.exec, `INSERT INTO grades AS g (id, santri_id, subject, semester, academic_year, program_type,
		score_theory, score_practice, score_total, notes, updated_at) VALUES `+values(len(grades), 11)+`
		ON CONFLICT (santri_id, subject, semester, academic_year, program_type) DO UPDATE SET
			score_theory = EXCLUDED.score_theory,
			score_practice = EXCLUDED.score_practice,
			score_total = EXCLUDED.score_total,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING `+gradeColumns)

	saved := make([]grade.Grade, 0, len(grades))
	if err := sqlx.SelectContext(ctx, repo.exec, &saved, q, args...); err != nil {
		return nil, errors.Wrap(err, "upserting grades")
	}
	return saved, nil
}

func (repo *gradeRepository) QueryGrades(ctx context.Context, f grade.Filter) ([]grade.Grade, error) {
	var w where
	from := "grades g"
	if len(f.SantriIDs) > 0 {
		if err := w.addIn("g.santri_id", f.SantriIDs); err != nil {
			return nil, err
		}
	}
	if f.Class != "" {
		from += " JOIN santri s ON s.id = g.santri_id"
		w.add("s.class = ?", f.Class)
	}
	if f.Subject != "" {
		w.add("g.subject = ?", f.Subject)
	}
	if f.Semester != "" {
		w.add("g.semester = ?", f.Semester)
	}
	if f.AcademicYear != "" {
		w.add("g.academic_year = ?", f.AcademicYear)
	}
	if f.ProgramType != "" {
		w.add("g.program_type = ?", f.ProgramType)
	}

	q := build(repo.exec, "SELECT "+gradeColumns+" FROM "+from+w.String()+" ORDER BY g.subject, g.santri_id")
	result := make([]grade.Grade, 0)
	if err := sqlx.SelectContext(ctx, repo.exec, &result, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	return result, nil
}

type monitoringRepository struct {
	exec core.DBExecutor
}

var _ monitoring.Repository = (*monitoringRepository)(nil) // interface compliance check

func NewMonitoringRepository(exec core.DBExecutor) monitoring.Repository {
	return &monitoringRepository{exec: exec}
}

func (repo *monitoringRepository) InsertEntry(ctx context.Context, e monitoring.Entry) (monitoring.Entry, error) {
	q := `INSERT INTO monitoring_tahfidz (id, santri_id, date, ziyadah_pages, murojaah_juz, notes, created_at)
		VALUES (:id, :santri_id, :date, :ziyadah_pages, :murojaah_juz, :notes, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, e); err != nil {
		return monitoring.Entry{}, errors.Wrap(err, "inserting monitoring entry")
	}
	return e, nil
}

func (repo *monitoringRepository) QueryEntries(ctx context.Context, f monitoring.Filter) ([]monitoring.Entry, error) {
	var w where
	if len(f.SantriIDs) > 0 {
		if err := w.addIn("santri_id", f.SantriIDs); err != nil {
			return nil, err
		}
	}
	if !f.Range.Start.IsZero() {
		w.add("date >= ?", f.Range.Start)
	}
	if !f.Range.End.IsZero() {
		w.add("date <= ?", f.Range.End)
	}

	q := build(repo.exec, `SELECT id, santri_id, date, ziyadah_pages, murojaah_juz, notes, created_at
		FROM monitoring_tahfidz`+w.String()+" ORDER BY date, created_at")
	result := make([]monitoring.Entry, 0)
	if err := sqlx.SelectContext(ctx, repo.exec, &result, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying monitoring entries")
	}
	return result, nil
}
