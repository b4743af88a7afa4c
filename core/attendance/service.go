package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
)

var ErrNotFound = errors.New("attendance record not found")

// NowFunc is mocked in tests.
var NowFunc = func() time.Time { return time.Now().UTC() }

type (
	Repository interface {
		// UpsertRecords stores recs, replacing the status and notes of the row already recorded for the
		// same santri and day. It returns the stored rows in the order of recs.
		UpsertRecords(ctx context.Context, recs ...Record) ([]Record, error)
		GetRecordByID(ctx context.Context, id string) (Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		// QueryRecords applies AND operation on available Filter fields.
		QueryRecords(ctx context.Context, filter Filter) ([]Record, error)
	}

	Service struct {
		repo Repository
	}

	// Summarizer computes the absence summaries shown on report cards.
	Summarizer struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record stores one row per santri and day, replacing what was recorded before for that day.
// Inputs are validated before anything is stored. Within inputs, the last entry of a day wins.
func (svc *Service) Record(ctx context.Context, inputs []NewRecord) ([]Record, error) {
	if len(inputs) == 0 {
		return nil, core.NewFieldValidationError("records", "no attendance to record")
	}
	now := NowFunc()
	recs := make([]Record, 0, len(inputs))
	pos := make(map[string]int, len(inputs))
	for i := range inputs {
		in := &inputs[i]
		if err := in.Validate(); err != nil {
			return nil, err
		}
		date, _ := academic.ParseDate(in.Date) // format checked by Validate
		rec := Record{
			ID:        uuid.New().String(),
			SantriID:  in.SantriID,
			Date:      date,
			Status:    Status(in.Status),
			CreatedAt: now,
		}
		if in.Notes != "" {
			rec.Notes = null.StringFrom(in.Notes)
		}
		if j, ok := pos[rec.Key()]; ok {
			recs[j].Status, recs[j].Notes = rec.Status, rec.Notes
			continue
		}
		pos[rec.Key()] = len(recs)
		recs = append(recs, rec)
	}
	stored, err := svc.repo.UpsertRecords(ctx, recs...)
	if err != nil {
		return nil, errors.Wrap(err, "recording attendance")
	}
	return stored, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetRecordByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, ur UpdateRecord) (Record, error) {
	if err := ur.Validate(); err != nil {
		return Record{}, err
	}
	rec, err := svc.repo.GetRecordByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if ur.Status != "" {
		rec.Status = Status(ur.Status)
	}
	if ur.Notes != nil {
		rec.Notes = null.NewString(core.CleanString(*ur.Notes), core.CleanString(*ur.Notes) != "")
	}
	return svc.repo.UpdateRecord(ctx, rec)
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter)
}

func NewSummarizer(repo Repository, logger core.Logger) *Summarizer {
	return &Summarizer{repo: repo, logger: logger}
}

// Summarize returns the absence summary of every santri in ids within rng.
// Every id is in the result. No query is made when ids is empty.
// A failing query is logged and every santri gets a zero summary.
func (s *Summarizer) Summarize(ctx context.Context, ids []string, rng academic.DateRange) map[string]Summary {
	ids = core.UniqueStrings(ids)
	if len(ids) == 0 {
		return map[string]Summary{}
	}

	recs, err := s.repo.QueryRecords(ctx, Filter{SantriIDs: ids, Range: rng, Statuses: absenceStatuses})
	if err != nil {
		err = errors.Wrap(err, "querying attendance records")
		s.logger.Error("summarizing attendance: "+err.Error(), err, map[string]interface{}{
			"santri_count": len(ids),
			"range":        rng.String(),
		})
		return Tally(ids, nil)
	}
	return Tally(ids, recs)
}
