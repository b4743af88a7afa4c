// Package grade keeps the semester scores of each santri per subject.
package grade

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
)

type Grade struct {
	ID            string            `db:"id" json:"id"`
	SantriID      string            `db:"santri_id" json:"santri_id"`
	Subject       string            `db:"subject" json:"subject"`
	Semester      academic.Semester `db:"semester" json:"semester"`
	AcademicYear  string            `db:"academic_year" json:"academic_year"`
	ProgramType   academic.Program  `db:"program_type" json:"program_type"`
	ScoreTheory   float64           `db:"score_theory" json:"score_theory"`
	ScorePractice float64           `db:"score_practice" json:"score_practice"`
	ScoreTotal    float64           `db:"score_total" json:"score_total"`
	Notes         null.String       `db:"notes" json:"notes"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// Key is the identity of a grade: one per santri, subject and semester of a program.
type Key struct {
	SantriID     string
	Subject      string
	Semester     academic.Semester
	AcademicYear string
	ProgramType  academic.Program
}

func (g Grade) Key() Key {
	return Key{g.SantriID, g.Subject, g.Semester, g.AcademicYear, g.ProgramType}
}

// ComputeTotal is the mean of the theory and practice scores, rounded to 2 decimals.
func ComputeTotal(theory, practice float64) float64 {
	return math.Round((theory+practice)/2*100) / 100
}

// NewGrade is one score entry of the batch or single grade form.
type NewGrade struct {
	SantriID      string   `json:"santri_id" validate:"required,uuid"`
	Subject       string   `json:"subject" validate:"required,notblank"`
	Semester      string   `json:"semester" validate:"required,semester"`
	AcademicYear  string   `json:"academic_year" validate:"required,academicyear"`
	ProgramType   string   `json:"program_type" validate:"required,program"`
	ScoreTheory   float64  `json:"score_theory" validate:"gte=0,lte=100"`
	ScorePractice float64  `json:"score_practice" validate:"gte=0,lte=100"`
	ScoreTotal    *float64 `json:"score_total" validate:"omitempty,gte=0,lte=100"`
	Notes         string   `json:"notes"`
}

func (ng *NewGrade) Validate() error {
	ng.SantriID = core.CleanString(ng.SantriID, true /* lower */)
	ng.Subject = core.CleanString(ng.Subject)
	ng.AcademicYear = core.CleanString(ng.AcademicYear)
	ng.Notes = core.CleanString(ng.Notes)
	if sem, err := academic.ParseSemester(ng.Semester); err == nil {
		ng.Semester = string(sem)
	}
	if p, err := academic.ParseProgram(ng.ProgramType); err == nil {
		ng.ProgramType = string(p)
	}
	return core.Validate.Struct(ng)
}

// Filter selects grades. Zero fields do not filter.
type Filter struct {
	SantriIDs    []string
	Class        string
	Subject      string
	Semester     academic.Semester
	AcademicYear string
	ProgramType  academic.Program
}

// QueryFilter is the raw filter sent by clients.
type QueryFilter struct {
	SantriID     string `query:"santri_id"`
	Class        string `query:"class"`
	Subject      string `query:"subject"`
	Semester     string `query:"semester"`
	AcademicYear string `query:"academic_year"`
	Program      string `query:"program"`
}

// Clean converts the raw filter, treating "all" like an empty value.
func (qf QueryFilter) Clean() (Filter, error) {
	f := Filter{
		Class:        academic.FilterValue(qf.Class),
		Subject:      academic.FilterValue(qf.Subject),
		AcademicYear: academic.FilterValue(qf.AcademicYear),
	}
	if id := academic.FilterValue(qf.SantriID); id != "" {
		f.SantriIDs = []string{id}
	}
	if s := academic.FilterValue(qf.Semester); s != "" {
		sem, err := academic.ParseSemester(s)
		if err != nil {
			return Filter{}, core.NewFieldValidationError("semester", err.Error())
		}
		f.Semester = sem
	}
	if p := academic.FilterValue(qf.Program); p != "" {
		prog, err := academic.ParseProgram(p)
		if err != nil {
			return Filter{}, core.NewFieldValidationError("program", err.Error())
		}
		f.ProgramType = prog
	}
	return f, nil
}

type (
	Repository interface {
		// UpsertGrades inserts grades or overwrites the scores and notes of existing ones (same Key).
		UpsertGrades(ctx context.Context, grades ...Grade) ([]Grade, error)
		// QueryGrades returns the grades ordered by subject.
		QueryGrades(ctx context.Context, filter Filter) ([]Grade, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Save validates then upserts every grade in one batch.
func (svc *Service) Save(ctx context.Context, inputs []NewGrade) ([]Grade, error) {
	if len(inputs) == 0 {
		return nil, core.NewFieldValidationError("grades", "no grades to save")
	}
	now := time.Now().UTC()
	grades := make([]Grade, 0, len(inputs))
	for i := range inputs {
		in := &inputs[i]
		if err := in.Validate(); err != nil {
			return nil, err
		}
		g := Grade{
			ID:            uuid.New().String(),
			SantriID:      in.SantriID,
			Subject:       in.Subject,
			Semester:      academic.Semester(in.Semester),
			AcademicYear:  in.AcademicYear,
			ProgramType:   academic.Program(in.ProgramType),
			ScoreTheory:   in.ScoreTheory,
			ScorePractice: in.ScorePractice,
			ScoreTotal:    ComputeTotal(in.ScoreTheory, in.ScorePractice),
			Notes:         null.NewString(in.Notes, in.Notes != ""),
			UpdatedAt:     now,
		}
		if in.ScoreTotal != nil {
			g.ScoreTotal = *in.ScoreTotal
		}
		grades = append(grades, g)
	}
	return svc.repo.UpsertGrades(ctx, grades...)
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, filter)
}
