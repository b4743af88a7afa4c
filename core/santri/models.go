package santri

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusGraduated Status = "graduated"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive || s == StatusGraduated
}

type Guardian struct {
	Name  string `db:"guardian_name" json:"name"`
	Phone string `db:"guardian_phone" json:"phone"`
	Email string `db:"guardian_email" json:"email"`
}

// Santri is a student of the pondok.
type Santri struct {
	ID                 string           `db:"id" json:"id"`
	Name               string           `db:"name" json:"name"`
	RegistrationNumber string           `db:"registration_number" json:"registration_number"`
	Class              string           `db:"class" json:"class"`
	Program            academic.Program `db:"program" json:"program"`
	Status             Status           `db:"status" json:"status"`
	Dorm               null.String      `db:"dorm" json:"dorm"`
	Guardian           `json:"guardian"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"` // UTC
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"` // UTC
}

type GuardianInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (gi *GuardianInput) clean() {
	gi.Name = core.CleanString(gi.Name)
	gi.Phone = core.CleanString(gi.Phone)
	gi.Email = core.CleanString(gi.Email, true /* lower */)
}

// NewSantri contains information needed to register a new Santri.
type NewSantri struct {
	Name               string        `json:"name" validate:"required,notblank"`
	RegistrationNumber string        `json:"registration_number" validate:"required,notblank"`
	Class              string        `json:"class"`
	Program            string        `json:"program" validate:"required,program"`
	Dorm               string        `json:"dorm"`
	Guardian           GuardianInput `json:"guardian"`
}

func (ns *NewSantri) Validate(ctx context.Context, svc *Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.RegistrationNumber = core.CleanString(ns.RegistrationNumber)
	ns.Class = core.CleanString(ns.Class)
	ns.Dorm = core.CleanString(ns.Dorm)
	if p, err := academic.ParseProgram(ns.Program); err == nil {
		ns.Program = string(p)
	}
	ns.Guardian.clean()

	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, ns.RegistrationNumber)
}

// UpdateSantri defines what information may be provided to modify an existing Santri.
// Blank fields keep their current value.
type UpdateSantri struct {
	Name               string         `json:"name"`
	RegistrationNumber string         `json:"registration_number"`
	Class              *string        `json:"class"`
	Program            string         `json:"program" validate:"omitempty,program"`
	Status             string         `json:"status" validate:"omitempty,santristatus"`
	Dorm               *string        `json:"dorm"`
	Guardian           *GuardianInput `json:"guardian"`
}

func (us *UpdateSantri) Validate(ctx context.Context, orig Santri, svc *Service) error {
	us.Name = core.CleanString(us.Name)
	us.RegistrationNumber = core.CleanString(us.RegistrationNumber)
	us.Status = core.CleanString(us.Status, true /* lower */)
	if p, err := academic.ParseProgram(us.Program); err == nil {
		us.Program = string(p)
	}
	if us.Guardian != nil {
		us.Guardian.clean()
	}

	if err := core.Validate.Struct(us); err != nil {
		return err
	}
	if us.RegistrationNumber != "" && us.RegistrationNumber != orig.RegistrationNumber {
		return svc.checkUniqueness(ctx, us.RegistrationNumber, orig)
	}
	return nil
}

// Filter selects santri. Zero fields do not filter.
type Filter struct {
	IDs      []string
	Program  academic.Program
	Class    string
	Status   Status
	Search   string // case-insensitive match on name or registration number
	Ordering []core.DBOrdering
}

// QueryFilter is the raw filter sent by clients.
type QueryFilter struct {
	Program string `query:"program"`
	Class   string `query:"class"`
	Status  string `query:"status"`
	Search  string `query:"search"`
}

// Clean converts the raw filter, treating "all" like an empty value.
func (qf QueryFilter) Clean() (Filter, error) {
	f := Filter{
		Class:  academic.FilterValue(qf.Class),
		Search: core.CleanString(qf.Search),
	}
	if p := academic.FilterValue(qf.Program); p != "" {
		prog, err := academic.ParseProgram(p)
		if err != nil {
			return Filter{}, core.NewFieldValidationError("program", err.Error())
		}
		f.Program = prog
	}
	if st := academic.FilterValue(qf.Status); st != "" {
		status := Status(core.CleanString(st, true /* lower */))
		if !status.Valid() {
			return Filter{}, core.NewFieldValidationError("status", statusText)
		}
		f.Status = status
	}
	return f, nil
}

var (
	statusTag  = "santristatus"
	statusText = "status must be one of active, inactive, graduated"
)

func init() {
	core.RegisterStringValidation(statusTag, statusText, func(s string) bool { return Status(s).Valid() })
}
