// Package monitoring is the append-only log of tahfidz progress: new pages memorized (ziyadah)
// and juz reviewed (murojaah).
package monitoring

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
)

type Entry struct {
	ID           string      `db:"id" json:"id"`
	SantriID     string      `db:"santri_id" json:"santri_id"`
	Date         time.Time   `db:"date" json:"date"`
	ZiyadahPages float64     `db:"ziyadah_pages" json:"ziyadah_pages"`
	MurojaahJuz  float64     `db:"murojaah_juz" json:"murojaah_juz"`
	Notes        null.String `db:"notes" json:"notes"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

type NewEntry struct {
	SantriID     string  `json:"santri_id" validate:"required,uuid"`
	Date         string  `json:"date" validate:"required,datetime=2006-01-02"`
	ZiyadahPages float64 `json:"ziyadah_pages" validate:"gte=0"`
	MurojaahJuz  float64 `json:"murojaah_juz" validate:"gte=0,lte=30"`
	Notes        string  `json:"notes"`
}

func (ne *NewEntry) Validate() error {
	ne.SantriID = core.CleanString(ne.SantriID, true /* lower */)
	ne.Date = core.CleanString(ne.Date)
	ne.Notes = core.CleanString(ne.Notes)
	return core.Validate.Struct(ne)
}

// Filter selects entries. Zero fields do not filter.
type Filter struct {
	SantriIDs []string
	Range     academic.DateRange
}

// QueryFilter is the raw filter sent by clients.
type QueryFilter struct {
	SantriID string `query:"santri_id"`
	From     string `query:"from"`
	To       string `query:"to"`
}

func (qf QueryFilter) Clean() (Filter, error) {
	var f Filter
	if id := academic.FilterValue(qf.SantriID); id != "" {
		f.SantriIDs = []string{core.CleanString(id, true /* lower */)}
	}
	var err error
	if f.Range, err = academic.ParseRange(qf.From, qf.To); err != nil {
		return Filter{}, err
	}
	return f, nil
}

type (
	Repository interface {
		InsertEntry(ctx context.Context, e Entry) (Entry, error)
		// QueryEntries returns the entries oldest first.
		QueryEntries(ctx context.Context, filter Filter) ([]Entry, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Add(ctx context.Context, ne NewEntry) (Entry, error) {
	if err := ne.Validate(); err != nil {
		return Entry{}, err
	}
	date, _ := academic.ParseDate(ne.Date)
	return svc.repo.InsertEntry(ctx, Entry{
		ID:           uuid.New().String(),
		SantriID:     ne.SantriID,
		Date:         date,
		ZiyadahPages: ne.ZiyadahPages,
		MurojaahJuz:  ne.MurojaahJuz,
		Notes:        null.NewString(ne.Notes, ne.Notes != ""),
		CreatedAt:    time.Now().UTC(),
	})
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, filter)
}

// MonthTotal sums the entries of one calendar month.
type MonthTotal struct {
	Year         int        `json:"year"`
	Month        time.Month `json:"month"`
	ZiyadahPages float64    `json:"ziyadah_pages"`
	MurojaahJuz  float64    `json:"murojaah_juz"`
	Entries      int        `json:"entries"`
}

// GroupByMonth totals entries per calendar month, oldest first.
func GroupByMonth(entries []Entry) []MonthTotal {
	type ym struct {
		y int
		m time.Month
	}
	byMonth := make(map[ym]*MonthTotal)
	for _, e := range entries {
		k := ym{e.Date.Year(), e.Date.Month()}
		mt, ok := byMonth[k]
		if !ok {
			mt = &MonthTotal{Year: k.y, Month: k.m}
			byMonth[k] = mt
		}
		mt.ZiyadahPages += e.ZiyadahPages
		mt.MurojaahJuz += e.MurojaahJuz
		mt.Entries++
	}

	totals := make([]MonthTotal, 0, len(byMonth))
	for _, mt := range byMonth {
		totals = append(totals, *mt)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Year != totals[j].Year {
			return totals[i].Year < totals[j].Year
		}
		return totals[i].Month < totals[j].Month
	})
	return totals
}
