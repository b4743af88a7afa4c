package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
	"github.com/pondokpesantren/sipondok/core/attendance"
	"github.com/pondokpesantren/sipondok/core/report"
)

const reportColumns = `r.santri_id, r.program, r.academic_year, r.semester, r.behavior,
	r.attendance_summary, r.notes, r.updated_at`

type reportRow struct {
	SantriID          string         `db:"santri_id"`
	Program           string         `db:"program"`
	AcademicYear      string         `db:"academic_year"`
	Semester          string         `db:"semester"`
	Behavior          types.JSONText `db:"behavior"`
	AttendanceSummary types.JSONText `db:"attendance_summary"`
	Notes             null.String    `db:"notes"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

type reportRepository struct {
	exec core.DBExecutor
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(exec core.DBExecutor) report.Repository {
	return &reportRepository{exec: exec}
}

func (repo *reportRepository) toRow(r report.StudentReport) (reportRow, error) {
	bhv := r.Behavior
	if bhv == nil {
		bhv = report.EmptyBehavior(r.Program)
	}
	bhvJSON, err := json.Marshal(bhv)
	if err != nil {
		return reportRow{}, errors.Wrap(err, "encoding behavior")
	}
	sumJSON, err := json.Marshal(r.AttendanceSummary)
	if err != nil {
		return reportRow{}, errors.Wrap(err, "encoding attendance summary")
	}
	return reportRow{
		SantriID:          r.SantriID,
		Program:           string(r.Program),
		AcademicYear:      r.AcademicYear,
		Semester:          string(r.Semester),
		Behavior:          types.JSONText(bhvJSON),
		AttendanceSummary: types.JSONText(sumJSON),
		Notes:             r.Notes,
		UpdatedAt:         r.UpdatedAt,
	}, nil
}

func (repo *reportRepository) fromRow(row reportRow) (report.StudentReport, error) {
	program := academic.Program(row.Program)
	bhv, err := report.UnmarshalBehavior(program, row.Behavior)
	if err != nil {
		return report.StudentReport{}, err
	}
	var sum attendance.Summary
	if len(row.AttendanceSummary) > 0 {
		if err := row.AttendanceSummary.Unmarshal(&sum); err != nil {
			return report.StudentReport{}, errors.Wrap(err, "decoding attendance summary")
		}
	}
	return report.StudentReport{
		SantriID:          row.SantriID,
		Program:           program,
		AcademicYear:      row.AcademicYear,
		Semester:          academic.Semester(row.Semester),
		Behavior:          bhv,
		AttendanceSummary: sum,
		Notes:             row.Notes,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}

// UpsertReports writes every report in a single statement keyed on the student_reports_unique_period constraint.
func (repo *reportRepository) UpsertReports(ctx context.Context, reports ...report.StudentReport) error {
	if len(reports) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(reports)*8)
	for _, r := range reports {
		row, err := repo.toRow(r)
		if err != nil {
			return err
		}
		args = append(args, row.SantriID, row.Program, row.AcademicYear, row.Semester,
			row.Behavior, row.AttendanceSummary, row.Notes, row.UpdatedAt)
	}
	q := build(repo.exec, `INSERT INTO student_reports (santri_id, program, academic_year, semester,
		behavior, attendance_summary, notes, updated_at) VALUES `+values(len(reports), 8)+`
		ON CONFLICT (santri_id, program, academic_year, semester) DO UPDATE SET
			behavior = EXCLUDED.behavior,
			attendance_summary = EXCLUDED.attendance_summary,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at`)
	if _, err := repo.exec.ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "upserting student reports")
	}
	return nil
}

func (repo *reportRepository) GetReport(ctx context.Context, key report.Key) (report.StudentReport, error) {
	var row reportRow
	q := build(repo.exec, "SELECT "+reportColumns+` FROM student_reports r
		WHERE r.santri_id = ? AND r.program = ? AND r.academic_year = ? AND r.semester = ?`)
	err := sqlx.GetContext(ctx, repo.exec, &row, q, key.SantriID, key.Program, key.AcademicYear, key.Semester)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return report.StudentReport{}, report.ErrNotFound
		}
		return report.StudentReport{}, errors.Wrap(err, "getting student report")
	}
	return repo.fromRow(row)
}

func (repo *reportRepository) QueryReports(ctx context.Context, f report.Filter) ([]report.StudentReport, error) {
	var w where
	from := "student_reports r"
	if len(f.SantriIDs) > 0 {
		if err := w.addIn("r.santri_id", f.SantriIDs); err != nil {
			return nil, err
		}
	}
	if f.Class != "" {
		from += " JOIN santri s ON s.id = r.santri_id"
		w.add("s.class = ?", f.Class)
	}
	if f.Program != "" {
		w.add("r.program = ?", f.Program)
	}
	if f.AcademicYear != "" {
		w.add("r.academic_year = ?", f.AcademicYear)
	}
	if f.Semester != "" {
		w.add("r.semester = ?", f.Semester)
	}

	var rows []reportRow
	q := build(repo.exec, "SELECT "+reportColumns+" FROM "+from+w.String()+" ORDER BY r.santri_id")
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying student reports")
	}
	result := make([]report.StudentReport, 0, len(rows))
	for _, row := range rows {
		r, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, nil
}

// UpdateAttendanceSummaries updates the summaries in one transaction unless exec already is one.
func (repo *reportRepository) UpdateAttendanceSummaries(ctx context.Context, summaries map[report.Key]attendance.Summary) error {
	if len(summaries) == 0 {
		return nil
	}
	exec := repo.exec
	var tx *sqlx.Tx
	if db, ok := repo.exec.(*sqlx.DB); ok {
		var err error
		if tx, err = db.BeginTxx(ctx, nil); err != nil {
			return errors.Wrap(err, "beginning transaction")
		}
		exec = tx
	}

	q := build(exec, `UPDATE student_reports SET attendance_summary = ?
		WHERE santri_id = ? AND program = ? AND academic_year = ? AND semester = ?`)
	for key, sum := range summaries {
		sumJSON, err := json.Marshal(sum)
		if err != nil {
			return rollback(tx, errors.Wrap(err, "encoding attendance summary"))
		}
		_, err = exec.ExecContext(ctx, q, types.JSONText(sumJSON), key.SantriID, key.Program, key.AcademicYear, key.Semester)
		if err != nil {
			return rollback(tx, errors.Wrap(err, "updating attendance summary"))
		}
	}
	if tx != nil {
		return errors.Wrap(tx.Commit(), "committing attendance summaries")
	}
	return nil
}

func rollback(tx *sqlx.Tx, err error) error {
	if tx != nil {
		_ = tx.Rollback()
	}
	return err
}
