package santri_test

import (
	"context"
	"testing"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
	"github.com/pondokpesantren/sipondok/core/santri"
	inmemdb "github.com/pondokpesantren/sipondok/storage/database/inmem"
)

func newService() *santri.Service {
	return santri.NewService(inmemdb.NewSantriRepository(inmemdb.Open()))
}

func TestService_Create(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	s, err := svc.Create(ctx, santri.NewSantri{
		Name:               " Ahmad Fauzi ",
		RegistrationNumber: "NIS-001",
		Class:              "1A",
		Program:            "tahfidz",
		Guardian:           santri.GuardianInput{Name: "Fauzi", Email: "Fauzi@Example.com"},
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if s.Name != "Ahmad Fauzi" || s.Program != academic.ProgramTahfidz || s.Status != santri.StatusActive {
		t.Errorf("Create() = %+v", s)
	}
	if s.Guardian.Email != "fauzi@example.com" {
		t.Errorf("guardian email = %q; want it lowercased", s.Guardian.Email)
	}

	got, err := svc.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.RegistrationNumber != "NIS-001" {
		t.Errorf("GetByID() = %+v", got)
	}

	tests := map[string]santri.NewSantri{
		"duplicate registration number": {Name: "Budi", RegistrationNumber: "NIS-001", Program: "Diniyah"},
		"blank name":                    {Name: " ", RegistrationNumber: "NIS-002", Program: "Diniyah"},
		"unknown program":               {Name: "Budi", RegistrationNumber: "NIS-002", Program: "Umum"},
		"bad guardian email":            {Name: "Budi", RegistrationNumber: "NIS-002", Program: "Diniyah", Guardian: santri.GuardianInput{Email: "budi"}},
	}
	for name, ns := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Create(ctx, ns); !core.IsValidationError(err) {
				t.Errorf("Create() error = %v; want a validation error", err)
			}
		})
	}
}

func TestService_Update(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	a, err := svc.Create(ctx, santri.NewSantri{Name: "Ahmad", RegistrationNumber: "NIS-001", Class: "1A", Program: "Diniyah", Dorm: "Al-Fatih"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err := svc.Create(ctx, santri.NewSantri{Name: "Budi", RegistrationNumber: "NIS-002", Program: "Diniyah"}); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	class, dorm := "2A", ""
	u, err := svc.Update(ctx, a.ID, santri.UpdateSantri{Class: &class, Dorm: &dorm, Status: "Graduated", RegistrationNumber: "NIS-001"})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if u.Class != "2A" || u.Dorm.Valid || u.Status != santri.StatusGraduated || u.Name != "Ahmad" {
		t.Errorf("Update() = %+v", u)
	}

	if _, err := svc.Update(ctx, a.ID, santri.UpdateSantri{RegistrationNumber: "NIS-002"}); !core.IsValidationError(err) {
		t.Errorf("Update(taken registration number) error = %v; want a validation error", err)
	}
	if _, err := svc.Update(ctx, "0b0b2f3e-6a0c-4b8a-9f5e-1f2a3b4c5d6e", santri.UpdateSantri{Name: "X"}); err != santri.ErrNotFound {
		t.Errorf("Update(unknown) error = %v; want %v", err, santri.ErrNotFound)
	}
}

func TestService_Query(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	for _, ns := range []santri.NewSantri{
		{Name: "Citra", RegistrationNumber: "NIS-003", Class: "1A", Program: "Diniyah"},
		{Name: "Ahmad", RegistrationNumber: "NIS-001", Class: "1A", Program: "Diniyah"},
		{Name: "Budi", RegistrationNumber: "NIS-002", Class: "1B", Program: "Diniyah"},
		{Name: "Dewi", RegistrationNumber: "NIS-004", Class: "1A", Program: "Tahfidz"},
	} {
		if _, err := svc.Create(ctx, ns); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}

	tests := []struct {
		name string
		qf   santri.QueryFilter
		want []string
	}{
		{name: "all", qf: santri.QueryFilter{Program: "all", Class: "all", Status: "all"}, want: []string{"Ahmad", "Budi", "Citra", "Dewi"}},
		{name: "program and class", qf: santri.QueryFilter{Program: "Diniyah", Class: "1A"}, want: []string{"Ahmad", "Citra"}},
		{name: "search", qf: santri.QueryFilter{Search: "nis-00"}, want: []string{"Ahmad", "Budi", "Citra", "Dewi"}},
		{name: "search name", qf: santri.QueryFilter{Search: "DEW"}, want: []string{"Dewi"}},
		{name: "status", qf: santri.QueryFilter{Status: "graduated"}, want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := tc.qf.Clean()
			if err != nil {
				t.Fatalf("Clean() failed: %v", err)
			}
			got, err := svc.Query(ctx, f)
			if err != nil {
				t.Fatalf("Query() failed: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("Query() = %d santri; want %v", len(got), tc.want)
			}
			for i, s := range got {
				if s.Name != tc.want[i] {
					t.Errorf("Query()[%d] = %s; want %s", i, s.Name, tc.want[i])
				}
			}
		})
	}

	if _, err := (santri.QueryFilter{Status: "expelled"}).Clean(); !core.IsValidationError(err) {
		t.Errorf("Clean(bad status) error = %v; want a validation error", err)
	}
}
