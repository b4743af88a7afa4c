package inmemdb

import (
	"context"
	"sort"

	"github.com/pondokpesantren/sipondok/core/payment"
	"github.com/pondokpesantren/sipondok/core/permission"
)

type permissionRepository struct {
	db *DB
}

var _ permission.Repository = (*permissionRepository)(nil)

func NewPermissionRepository(db *DB) permission.Repository {
	return &permissionRepository{db: db}
}

func (repo *permissionRepository) CreatePermission(_ context.Context, p permission.Permission) (permission.Permission, error) {
	repo.db.permission.Lock()
	defer repo.db.permission.Unlock()

	repo.db.permission.table[p.ID] = &p
	return p, nil
}

func (repo *permissionRepository) GetPermissionByID(_ context.Context, id string) (permission.Permission, error) {
	repo.db.permission.RLock()
	defer repo.db.permission.RUnlock()

	if p, ok := repo.db.permission.table[id]; ok {
		return *p, nil
	}
	return permission.Permission{}, permission.ErrNotFound
}

func (repo *permissionRepository) UpdatePermission(_ context.Context, p permission.Permission) (permission.Permission, error) {
	repo.db.permission.Lock()
	defer repo.db.permission.Unlock()

	if _, ok := repo.db.permission.table[p.ID]; !ok {
		return permission.Permission{}, permission.ErrNotFound
	}
	repo.db.permission.table[p.ID] = &p
	return p, nil
}

func (repo *permissionRepository) QueryPermissions(_ context.Context, f permission.Filter) ([]permission.Permission, error) {
	repo.db.permission.RLock()
	defer repo.db.permission.RUnlock()

	ids := idSet(f.SantriIDs)
	statuses := make(map[permission.Status]bool, len(f.Statuses))
	for _, st := range f.Statuses {
		statuses[st] = true
	}
	result := make([]permission.Permission, 0)
	for _, p := range repo.db.permission.table {
		switch {
		case !in(ids, p.SantriID),
			len(statuses) > 0 && !statuses[p.Status],
			!f.Range.Contains(p.StartDate):
			continue
		}
		result = append(result, *p)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].StartDate.Equal(result[j].StartDate) {
			return result[i].StartDate.After(result[j].StartDate)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.payment.Lock()
	defer repo.db.payment.Unlock()

	repo.db.payment.rows = append(repo.db.payment.rows, &p)
	return p, nil
}

func (repo *paymentRepository) QueryPayments(_ context.Context, f payment.Filter) ([]payment.Payment, error) {
	repo.db.payment.RLock()
	defer repo.db.payment.RUnlock()

	ids := idSet(f.SantriIDs)
	result := make([]payment.Payment, 0)
	for _, p := range repo.db.payment.rows {
		switch {
		case !in(ids, p.SantriID),
			f.Year != 0 && p.Year != f.Year,
			f.Month != 0 && p.Month != f.Month,
			f.Status != "" && p.Status != f.Status:
			continue
		}
		result = append(result, *p)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year > result[j].Year
		}
		return result[i].Month > result[j].Month
	})
	return result, nil
}
