package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/payment"
	"github.com/pondokpesantren/sipondok/core/permission"
)

const permissionColumns = "id, santri_id, type, status, start_date, end_date, reason, created_at, updated_at"

type permissionRepository struct {
	exec core.DBExecutor
}

var _ permission.Repository = (*permissionRepository)(nil) // interface compliance check

func NewPermissionRepository(exec core.DBExecutor) permission.Repository {
	return &permissionRepository{exec: exec}
}

func (repo *permissionRepository) CreatePermission(ctx context.Context, p permission.Permission) (permission.Permission, error) {
	q := `INSERT INTO permissions (` + permissionColumns + `) VALUES (
		:id, :santri_id, :type, :status, :start_date, :end_date, :reason, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, p); err != nil {
		return permission.Permission{}, errors.Wrap(err, "inserting permission")
	}
	return p, nil
}

func (repo *permissionRepository) GetPermissionByID(ctx context.Context, id string) (permission.Permission, error) {
	var p permission.Permission
	q := build(repo.exec, "SELECT "+permissionColumns+" FROM permissions WHERE id = ?")
	if err := sqlx.GetContext(ctx, repo.exec, &p, q, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return permission.Permission{}, permission.ErrNotFound
		}
		return permission.Permission{}, errors.Wrap(err, "getting permission")
	}
	return p, nil
}

func (repo *permissionRepository) UpdatePermission(ctx context.Context, p permission.Permission) (permission.Permission, error) {
	q := `UPDATE permissions SET status = :status, end_date = :end_date, reason = :reason, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.exec, q, p)
	if err != nil {
		return permission.Permission{}, errors.Wrap(err, "updating permission")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return permission.Permission{}, permission.ErrNotFound
	}
	return p, nil
}

func (repo *permissionRepository) QueryPermissions(ctx context.Context, f permission.Filter) ([]permission.Permission, error) {
	var w where
	if len(f.SantriIDs) > 0 {
		if err := w.addIn("santri_id", f.SantriIDs); err != nil {
			return nil, err
		}
	}
	if len(f.Statuses) > 0 {
		if err := w.addIn("status", f.Statuses); err != nil {
			return nil, err
		}
	}
	if !f.Range.Start.IsZero() {
		w.add("start_date >= ?", f.Range.Start)
	}
	if !f.Range.End.IsZero() {
		w.add("start_date <= ?", f.Range.End)
	}

	q := build(repo.exec, "SELECT "+permissionColumns+" FROM permissions"+w.String()+" ORDER BY start_date DESC, created_at DESC")
	result := make([]permission.Permission, 0)
	if err := sqlx.SelectContext(ctx, repo.exec, &result, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying permissions")
	}
	return result, nil
}

const paymentColumns = "id, santri_id, month, year, amount, status, payment_date, notes, created_at"

type paymentRepository struct {
	exec core.DBExecutor
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(exec core.DBExecutor) payment.Repository {
	return &paymentRepository{exec: exec}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	q := `INSERT INTO payments (` + paymentColumns + `) VALUES (
		:id, :santri_id, :month, :year, :amount, :status, :payment_date, :notes, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.exec, q, p); err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, f payment.Filter) ([]payment.Payment, error) {
	var w where
	if len(f.SantriIDs) > 0 {
		if err := w.addIn("santri_id", f.SantriIDs); err != nil {
			return nil, err
		}
	}
	if f.Year != 0 {
		w.add("year = ?", f.Year)
	}
	if f.Month != 0 {
		w.add("month = ?", f.Month)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}

	q := build(repo.exec, "SELECT "+paymentColumns+" FROM payments"+w.String()+" ORDER BY year DESC, month DESC, created_at DESC")
	result := make([]payment.Payment, 0)
	if err := sqlx.SelectContext(ctx, repo.exec, &result, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	return result, nil
}
