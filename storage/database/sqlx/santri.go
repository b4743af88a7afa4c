package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/santri"
)

const santriColumns = `id, name, registration_number, class, program, status, dorm,
	guardian_name, guardian_phone, guardian_email, created_at, updated_at`

var santriOrdering = map[string]string{
	"name":                "name",
	"registration_number": "registration_number",
	"class":               "class",
	"created_at":          "created_at",
}

type santriRepository struct {
	exec core.DBExecutor
}

var _ santri.Repository = (*santriRepository)(nil) // interface compliance check

func NewSantriRepository(exec core.DBExecutor) santri.Repository {
	return &santriRepository{exec: exec}
}

func (repo *santriRepository) CheckRegistrationNumberUniqueness(ctx context.Context, regNumber string, excluded ...santri.Santri) error {
	var w where
	w.add("registration_number = ?", regNumber)
	if len(excluded) > 0 {
		ids := make([]string, len(excluded))
		for i, s := range excluded {
			ids[i] = s.ID
		}
		q, args, err := sqlx.In("id NOT IN (?)", ids)
		if err != nil {
			return errors.Wrap(err, "expanding excluded santri")
		}
		w.add(q, args...)
	}

	var count int
	q := build(repo.exec, "SELECT COUNT(*) FROM santri"+w.String())
	if err := sqlx.GetContext(ctx, repo.exec, &count, q, w.args...); err != nil {
		return errors.Wrap(err, "checking registration number")
	}
	if count > 0 {
		return santri.ErrRegistrationNumberExists
	}
	return nil
}

func (repo *santriRepository) CreateSantri(ctx context.Context, s santri.Santri) (santri.Santri, error) {
	q := `INSERT INTO santri (` + santriColumns + `) VALUES (
		:id, :name, :registration_number, :class, :program, :status, :dorm,
		:guardian_name, :guardian_phone, :guardian_email, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, s); err != nil {
		return santri.Santri{}, errors.Wrap(err, "inserting santri")
	}
	return s, nil
}

func (repo *santriRepository) GetSantriByID(ctx context.Context, id string) (santri.Santri, error) {
	var s santri.Santri
	q := build(repo.exec, "SELECT "+santriColumns+" FROM santri WHERE id = ?")
	if err := sqlx.GetContext(ctx, repo.exec, &s, q, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return santri.Santri{}, santri.ErrNotFound
		}
		return santri.Santri{}, errors.Wrap(err, "getting santri")
	}
	return s, nil
}

func (repo *santriRepository) QuerySantri(ctx context.Context, f santri.Filter) ([]santri.Santri, error) {
	var w where
	if len(f.IDs) > 0 {
		if err := w.addIn("id", f.IDs); err != nil {
			return nil, err
		}
	}
	if f.Program != "" {
		w.add("program = ?", f.Program)
	}
	if f.Class != "" {
		w.add("class = ?", f.Class)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		w.add("(name ILIKE ? OR registration_number ILIKE ?)", pattern, pattern)
	}

	order := core.OrderByClause(f.Ordering, santriOrdering, "name ASC")
	q := build(repo.exec, "SELECT "+santriColumns+" FROM santri"+w.String()+" ORDER BY "+order+", id")
	result := make([]santri.Santri, 0)
	if err := sqlx.SelectContext(ctx, repo.exec, &result, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying santri")
	}
	return result, nil
}

func (repo *santriRepository) UpdateSantri(ctx context.Context, s santri.Santri) (santri.Santri, error) {
	q := `UPDATE santri SET name = :name, registration_number = :registration_number, class = :class,
		program = :program, status = :status, dorm = :dorm, guardian_name = :guardian_name,
		guardian_phone = :guardian_phone, guardian_email = :guardian_email, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, s)
	if err != nil {
		return santri.Santri{}, errors.Wrap(err, "updating santri")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return santri.Santri{}, santri.ErrNotFound
	}
	return s, nil
}
