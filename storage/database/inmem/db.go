// Package inmemdb implements the repositories in memory, for tests and for the "inmem" database engine.
package inmemdb

import (
	"strings"
	"sync"

	"github.com/pondokpesantren/sipondok/core/attendance"
	"github.com/pondokpesantren/sipondok/core/grade"
	"github.com/pondokpesantren/sipondok/core/monitoring"
	"github.com/pondokpesantren/sipondok/core/payment"
	"github.com/pondokpesantren/sipondok/core/permission"
	"github.com/pondokpesantren/sipondok/core/report"
	"github.com/pondokpesantren/sipondok/core/santri"
)

type (
	DB struct {
		santri     *santriTable
		attendance *attendanceTable
		grade      *gradeTable
		monitoring *monitoringTable
		report     *reportTable
		permission *permissionTable
		payment    *paymentTable
	}

	santriTable struct {
		sync.RWMutex
		table map[string]*santri.Santri
	}

	attendanceTable struct {
		sync.RWMutex
		rows []*attendance.Record
	}

	gradeTable struct {
		sync.RWMutex
		table map[grade.Key]*grade.Grade
	}

	monitoringTable struct {
		sync.RWMutex
		rows []*monitoring.Entry
	}

	reportTable struct {
		sync.RWMutex
		table map[report.Key]*report.StudentReport
	}

	permissionTable struct {
		sync.RWMutex
		table map[string]*permission.Permission
	}

	paymentTable struct {
		sync.RWMutex
		rows []*payment.Payment
	}
)

func Open() *DB {
	return &DB{
		santri:     &santriTable{table: make(map[string]*santri.Santri)},
		attendance: &attendanceTable{},
		grade:      &gradeTable{table: make(map[grade.Key]*grade.Grade)},
		monitoring: &monitoringTable{},
		report:     &reportTable{table: make(map[report.Key]*report.StudentReport)},
		permission: &permissionTable{table: make(map[string]*permission.Permission)},
		payment:    &paymentTable{},
	}
}

// classOf returns the classes of the given santri, for filters joining on the santri table.
func (db *DB) classOf(ids ...string) map[string]string {
	db.santri.RLock()
	defer db.santri.RUnlock()
	classes := make(map[string]string, len(ids))
	for _, id := range ids {
		if s, ok := db.santri.table[id]; ok {
			classes[id] = s.Class
		}
	}
	return classes
}

func idSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// in reports whether id is in set. A nil set matches everything.
func in(set map[string]struct{}, id string) bool {
	if set == nil {
		return true
	}
	_, ok := set[id]
	return ok
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
