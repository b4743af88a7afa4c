package santri

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
)

var (
	// errors
	ErrNotFound                 = errors.New("santri not found")
	ErrRegistrationNumberExists = errors.New("a santri with this registration number already exists")
)

type (
	Repository interface {
		CheckRegistrationNumberUniqueness(ctx context.Context, regNumber string, excluded ...Santri) error
		CreateSantri(ctx context.Context, s Santri) (Santri, error)
		GetSantriByID(ctx context.Context, id string) (Santri, error)
		// QuerySantri applies AND operation on available Filter fields.
		QuerySantri(ctx context.Context, filter Filter) ([]Santri, error)
		UpdateSantri(ctx context.Context, s Santri) (Santri, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, regNumber string, excluded ...Santri) error {
	if err := svc.repo.CheckRegistrationNumberUniqueness(ctx, regNumber, excluded...); err != nil {
		if err == ErrRegistrationNumberExists {
			return core.NewValidationError(err, core.FieldError{Field: "registration_number", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewSantri) (Santri, error) {
	if err := ns.Validate(ctx, svc); err != nil {
		return Santri{}, err
	}
	now := time.Now().UTC()
	s := Santri{
		ID:                 uuid.New().String(),
		Name:               ns.Name,
		RegistrationNumber: ns.RegistrationNumber,
		Class:              ns.Class,
		Program:            academic.Program(ns.Program),
		Status:             StatusActive,
		Dorm:               null.NewString(ns.Dorm, ns.Dorm != ""),
		Guardian: Guardian{
			Name:  ns.Guardian.Name,
			Phone: ns.Guardian.Phone,
			Email: ns.Guardian.Email,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateSantri(ctx, s)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Santri, error) {
	return svc.repo.GetSantriByID(ctx, core.CleanString(id, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Santri, error) {
	return svc.repo.QuerySantri(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateSantri) (Santri, error) {
	s, err := svc.GetByID(ctx, id)
	if err != nil {
		return Santri{}, err
	}
	if err := us.Validate(ctx, s, svc); err != nil {
		return Santri{}, err
	}

	if us.Name != "" {
		s.Name = us.Name
	}
	if us.RegistrationNumber != "" {
		s.RegistrationNumber = us.RegistrationNumber
	}
	if us.Class != nil {
		s.Class = core.CleanString(*us.Class)
	}
	if us.Program != "" {
		s.Program = academic.Program(us.Program)
	}
	if us.Status != "" {
		s.Status = Status(us.Status)
	}
	if us.Dorm != nil {
		dorm := core.CleanString(*us.Dorm)
		s.Dorm = null.NewString(dorm, dorm != "")
	}
	if us.Guardian != nil {
		s.Guardian = Guardian{Name: us.Guardian.Name, Phone: us.Guardian.Phone, Email: us.Guardian.Email}
	}
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSantri(ctx, s)
}
