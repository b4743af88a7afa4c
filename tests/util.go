package testutil

import (
	"context"
	"io"
	"log"
	"net/mail"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
	"github.com/pondokpesantren/sipondok/core/santri"
	logsvc "github.com/pondokpesantren/sipondok/services/logger"
)

// NewConfig returns a configuration for tests; it never reads the environment.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:          "SIPondok",
		Env:              "TEST",
		TestMode:         true,
		DefaultFromEmail: mail.Address{Name: "SIPondok", Address: "noreply@sipondok.test"},
		Server: core.ServerConfig{
			Address:         ":8000",
			Host:            "localhost",
			ShutdownTimeout: time.Second,
			DisableReqLogs:  true,
		},
		Database: core.DatabaseConfig{Engine: "inmem"},
		School:   core.SchoolConfig{Name: "Pondok Pesantren Al-Hikmah", Address: "Jl. Pesantren 1"},
	}
}

// NewLogger returns a logger that discards everything.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), NewConfig())
}

func CreateSantri(
	t *testing.T,
	repo santri.Repository,
	name, class string,
	program academic.Program,
	status santri.Status,
	guardianEmail ...string,
) santri.Santri {
	t.Helper()
	tstamp := time.Now().UTC()
	s := santri.Santri{
		ID:                 uuid.New().String(),
		Name:               name,
		RegistrationNumber: uuid.New().String()[:8],
		Class:              class,
		Program:            program,
		Status:             status,
		Guardian:           santri.Guardian{Name: "Wali " + name},
		CreatedAt:          tstamp,
		UpdatedAt:          tstamp,
	}
	if len(guardianEmail) > 0 {
		s.Guardian.Email = guardianEmail[0]
	}
	s, err := repo.CreateSantri(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateSantri() failed: %v", err)
	}
	return s
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
