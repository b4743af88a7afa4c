package attendance

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
)

type Status string

const (
	StatusPresent    Status = "present"
	StatusSick       Status = "sick"
	StatusPermission Status = "permission"
	StatusAlpha      Status = "alpha"
)

var Statuses = []Status{StatusPresent, StatusSick, StatusPermission, StatusAlpha}

// absenceStatuses are the statuses counted by report cards.
var absenceStatuses = []Status{StatusAlpha, StatusPermission, StatusSick}

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

type Record struct {
	ID        string      `db:"id" json:"id"`
	SantriID  string      `db:"santri_id" json:"santri_id"`
	Date      time.Time   `db:"date" json:"date"`
	Status    Status      `db:"status" json:"status"`
	Notes     null.String `db:"notes" json:"notes"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// Key identifies the day of a santri a record is about.
func (r Record) Key() string {
	return r.SantriID + "|" + r.Date.Format(academic.DateLayout)
}

// Summary counts the absences of one santri. Present days are not counted.
type Summary struct {
	Alfa  int `json:"alfa"`
	Izin  int `json:"izin"`
	Sakit int `json:"sakit"`
}

func (s Summary) Total() int { return s.Alfa + s.Izin + s.Sakit }

// NewRecord contains information needed to record the attendance of a santri on a given day.
type NewRecord struct {
	SantriID string `json:"santri_id" validate:"required,uuid"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Status   string `json:"status" validate:"required,attstatus"`
	Notes    string `json:"notes"`
}

func (nr *NewRecord) Validate() error {
	nr.SantriID = core.CleanString(nr.SantriID, true /* lower */)
	nr.Date = core.CleanString(nr.Date)
	nr.Status = core.CleanString(nr.Status, true /* lower */)
	nr.Notes = core.CleanString(nr.Notes)
	return core.Validate.Struct(nr)
}

// UpdateRecord defines what may be changed on an existing Record.
type UpdateRecord struct {
	Status string  `json:"status" validate:"omitempty,attstatus"`
	Notes  *string `json:"notes"`
}

func (ur *UpdateRecord) Validate() error {
	ur.Status = core.CleanString(ur.Status, true /* lower */)
	return core.Validate.Struct(ur)
}

// Filter selects attendance records. Zero fields do not filter.
type Filter struct {
	SantriIDs []string
	Class     string
	Range     academic.DateRange
	Statuses  []Status
	Ordering  []core.DBOrdering
}

// QueryFilter is the raw filter sent by clients.
type QueryFilter struct {
	SantriID string `query:"santri_id"`
	Class    string `query:"class"`
	From     string `query:"from"`
	To       string `query:"to"`
	Status   string `query:"status"`
}

// Clean converts the raw filter, treating "all" like an empty value.
func (qf QueryFilter) Clean() (Filter, error) {
	var f Filter
	if id := academic.FilterValue(qf.SantriID); id != "" {
		f.SantriIDs = []string{id}
	}
	f.Class = academic.FilterValue(qf.Class)
	if st := academic.FilterValue(qf.Status); st != "" {
		status := Status(st)
		if !status.Valid() {
			return Filter{}, core.NewFieldValidationError("status", "invalid attendance status")
		}
		f.Statuses = []Status{status}
	}
	var err error
	if f.Range, err = academic.ParseRange(qf.From, qf.To); err != nil {
		return Filter{}, err
	}
	return f, nil
}

var (
	statusTag  = "attstatus"
	statusText = "{0} must be one of present, sick, permission, alpha"
)

func init() {
	core.RegisterStringValidation(statusTag, statusText, func(s string) bool { return Status(s).Valid() })
}
