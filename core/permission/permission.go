// Package permission handles the leave requests of santri.
package permission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusBerlangsung Status = "berlangsung" // santri is away
	StatusSelesai     Status = "selesai"     // back on time
	StatusTerlambat   Status = "terlambat"   // back after the end date
)

var transitions = map[Status][]Status{
	StatusPending:     {StatusApproved, StatusRejected},
	StatusApproved:    {StatusBerlangsung},
	StatusBerlangsung: {StatusSelesai, StatusTerlambat},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusBerlangsung, StatusSelesai, StatusTerlambat:
		return true
	}
	return false
}

// CanBecome reports whether a permission in status s may move to next.
func (s Status) CanBecome(next Status) bool {
	for _, st := range transitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

var ErrNotFound = errors.New("permission not found")

// NowFunc is mocked in tests.
var NowFunc = func() time.Time { return time.Now().UTC() }

type Permission struct {
	ID        string    `db:"id" json:"id"`
	SantriID  string    `db:"santri_id" json:"santri_id"`
	Type      string    `db:"type" json:"type"`
	Status    Status    `db:"status" json:"status"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   null.Time `db:"end_date" json:"end_date"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type NewPermission struct {
	SantriID  string `json:"santri_id" validate:"required,uuid"`
	Type      string `json:"type" validate:"required,notblank"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Reason    string `json:"reason"`
}

func (np *NewPermission) Validate() error {
	np.SantriID = core.CleanString(np.SantriID, true /* lower */)
	np.Type = core.CleanString(np.Type)
	np.StartDate = core.CleanString(np.StartDate)
	np.EndDate = core.CleanString(np.EndDate)
	np.Reason = core.CleanString(np.Reason)
	if err := core.Validate.Struct(np); err != nil {
		return err
	}
	if np.EndDate != "" && np.EndDate < np.StartDate {
		return core.NewFieldValidationError("end_date", "end_date cannot be before start_date")
	}
	return nil
}

// Filter selects permissions. Zero fields do not filter.
type Filter struct {
	SantriIDs []string
	Statuses  []Status
	Range     academic.DateRange // on start_date
}

// QueryFilter is the raw filter sent by clients.
type QueryFilter struct {
	SantriID string `query:"santri_id"`
	Status   string `query:"status"`
	From     string `query:"from"`
	To       string `query:"to"`
}

// Clean converts the raw filter, treating "all" like an empty value.
func (qf QueryFilter) Clean() (Filter, error) {
	var f Filter
	if id := academic.FilterValue(qf.SantriID); id != "" {
		f.SantriIDs = []string{core.CleanString(id, true /* lower */)}
	}
	if st := academic.FilterValue(qf.Status); st != "" {
		status := Status(core.CleanString(st, true /* lower */))
		if !status.Valid() {
			return Filter{}, core.NewFieldValidationError("status", fmt.Sprintf("unknown permission status %q", st))
		}
		f.Statuses = []Status{status}
	}
	var err error
	if f.Range, err = academic.ParseRange(qf.From, qf.To); err != nil {
		return Filter{}, err
	}
	return f, nil
}

type (
	Repository interface {
		CreatePermission(ctx context.Context, p Permission) (Permission, error)
		GetPermissionByID(ctx context.Context, id string) (Permission, error)
		UpdatePermission(ctx context.Context, p Permission) (Permission, error)
		// QueryPermissions returns the permissions, most recent start date first.
		QueryPermissions(ctx context.Context, filter Filter) ([]Permission, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, np NewPermission) (Permission, error) {
	if err := np.Validate(); err != nil {
		return Permission{}, err
	}
	now := NowFunc()
	start, _ := academic.ParseDate(np.StartDate)
	p := Permission{
		ID:        uuid.New().String(),
		SantriID:  np.SantriID,
		Type:      np.Type,
		Status:    StatusPending,
		StartDate: start,
		Reason:    np.Reason,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if np.EndDate != "" {
		end, _ := academic.ParseDate(np.EndDate)
		p.EndDate = null.TimeFrom(end)
	}
	return svc.repo.CreatePermission(ctx, p)
}

// SetStatus moves a permission to the next status.
// Marking a santri as returned picks selesai or terlambat by comparing today with the end date,
// whichever of the two was requested.
func (svc *Service) SetStatus(ctx context.Context, id string, next Status) (Permission, error) {
	if !next.Valid() {
		return Permission{}, core.NewFieldValidationError("status", fmt.Sprintf("invalid status %q", next))
	}
	p, err := svc.repo.GetPermissionByID(ctx, id)
	if err != nil {
		return Permission{}, err
	}
	if !p.Status.CanBecome(next) {
		return Permission{}, core.NewFieldValidationError(
			"status", fmt.Sprintf("cannot change status from %s to %s", p.Status, next),
		)
	}

	now := NowFunc()
	if next == StatusSelesai || next == StatusTerlambat {
		next = StatusSelesai
		if p.EndDate.Valid && academic.Date(now).After(academic.Date(p.EndDate.Time)) {
			next = StatusTerlambat
		}
	}
	p.Status = next
	p.UpdatedAt = now
	return svc.repo.UpdatePermission(ctx, p)
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Permission, error) {
	return svc.repo.QueryPermissions(ctx, filter)
}
