// Package payment records the monthly tuition (syahriah) payments.
package payment

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
)

type Status string

const (
	StatusPaid    Status = "paid"
	StatusPartial Status = "partial"
	StatusPending Status = "pending"
)

func (s Status) Valid() bool {
	return s == StatusPaid || s == StatusPartial || s == StatusPending
}

type Payment struct {
	ID          string      `db:"id" json:"id"`
	SantriID    string      `db:"santri_id" json:"santri_id"`
	Month       int         `db:"month" json:"month"`
	Year        int         `db:"year" json:"year"`
	Amount      int64       `db:"amount" json:"amount"` // rupiah
	Status      Status      `db:"status" json:"status"`
	PaymentDate null.Time   `db:"payment_date" json:"payment_date"`
	Notes       null.String `db:"notes" json:"notes"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

type NewPayment struct {
	SantriID    string `json:"santri_id" validate:"required,uuid"`
	Month       int    `json:"month" validate:"required,min=1,max=12"`
	Year        int    `json:"year" validate:"required,min=2000,max=2100"`
	Amount      int64  `json:"amount" validate:"gte=0"`
	Status      string `json:"status" validate:"required,paystatus"`
	PaymentDate string `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	Notes       string `json:"notes"`
}

func (np *NewPayment) Validate() error {
	np.SantriID = core.CleanString(np.SantriID, true /* lower */)
	np.Status = core.CleanString(np.Status, true /* lower */)
	np.PaymentDate = core.CleanString(np.PaymentDate)
	np.Notes = core.CleanString(np.Notes)
	return core.Validate.Struct(np)
}

// Filter selects payments. Zero fields do not filter.
type Filter struct {
	SantriIDs []string
	Year      int
	Month     int
	Status    Status
}

// QueryFilter is the raw filter sent by clients.
type QueryFilter struct {
	SantriID string `query:"santri_id"`
	Year     int    `query:"year"`
	Month    int    `query:"month"`
	Status   string `query:"status"`
}

// Clean converts the raw filter, treating "all" like an empty value.
func (qf QueryFilter) Clean() (Filter, error) {
	f := Filter{Year: qf.Year, Month: qf.Month}
	if id := academic.FilterValue(qf.SantriID); id != "" {
		f.SantriIDs = []string{id}
	}
	if f.Month < 0 || f.Month > 12 {
		return Filter{}, core.NewFieldValidationError("month", "month must be between 1 and 12")
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

type (
	Repository interface {
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		// QueryPayments returns the payments, most recent period first.
		QueryPayments(ctx context.Context, filter Filter) ([]Payment, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Record(ctx context.Context, np NewPayment) (Payment, error) {
	if err := np.Validate(); err != nil {
		return Payment{}, err
	}
	p := Payment{
		ID:        uuid.New().String(),
		SantriID:  np.SantriID,
		Month:     np.Month,
		Year:      np.Year,
		Amount:    np.Amount,
		Status:    Status(np.Status),
		Notes:     null.NewString(np.Notes, np.Notes != ""),
		CreatedAt: time.Now().UTC(),
	}
	if np.PaymentDate != "" {
		d, _ := academic.ParseDate(np.PaymentDate)
		p.PaymentDate = null.TimeFrom(d)
	}
	return svc.repo.CreatePayment(ctx, p)
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, filter)
}

// MonthSummary is the dashboard total of one month.
type MonthSummary struct {
	Year     int   `json:"year"`
	Month    int   `json:"month"`
	Total    int64 `json:"total"`
	Paid     int   `json:"paid"`
	Partial  int   `json:"partial"`
	Pending  int   `json:"pending"`
	Payments int   `json:"payments"`
}

// SummarizeByMonth totals payments per month, oldest first.
func SummarizeByMonth(payments []Payment) []MonthSummary {
	type ym struct{ y, m int }
	byMonth := make(map[ym]*MonthSummary)
	for _, p := range payments {
		k := ym{p.Year, p.Month}
		ms, ok := byMonth[k]
		if !ok {
			ms = &MonthSummary{Year: p.Year, Month: p.Month}
			byMonth[k] = ms
		}
		ms.Total += p.Amount
		ms.Payments++
		switch p.Status {
		case StatusPaid:
			ms.Paid++
		case StatusPartial:
			ms.Partial++
		case StatusPending:
			ms.Pending++
		}
	}

	summaries := make([]MonthSummary, 0, len(byMonth))
	for _, ms := range byMonth {
		summaries = append(summaries, *ms)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Year != summaries[j].Year {
			return summaries[i].Year < summaries[j].Year
		}
		return summaries[i].Month < summaries[j].Month
	})
	return summaries
}

var (
	statusTag  = "paystatus"
	statusText = "status must be one of paid, partial, pending"
)

func init() {
	core.RegisterStringValidation(statusTag, statusText, func(s string) bool { return Status(s).Valid() })
}
