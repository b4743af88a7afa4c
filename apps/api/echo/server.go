package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/dig"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/attendance"
	"github.com/pondokpesantren/sipondok/core/grade"
	"github.com/pondokpesantren/sipondok/core/monitoring"
	"github.com/pondokpesantren/sipondok/core/payment"
	"github.com/pondokpesantren/sipondok/core/permission"
	"github.com/pondokpesantren/sipondok/core/report"
	"github.com/pondokpesantren/sipondok/core/santri"
)

// ServerDeps are the services served by the API.
type ServerDeps struct {
	dig.In

	Conf          *core.Config
	Logger        core.Logger
	SantriSvc     *santri.Service
	AttendanceSvc *attendance.Service
	Summarizer    *attendance.Summarizer
	GradeSvc      *grade.Service
	MonitoringSvc *monitoring.Service
	PermissionSvc *permission.Service
	PaymentSvc    *payment.Service
	Reports       *report.UpsertService
	Retrieval     *report.RetrievalService
	Printer       *report.Printer
	Deliverer     *report.Deliverer
}

type Server struct {
	deps     ServerDeps
	app      *echo.Echo
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HideBanner = conf.TestMode
	s.app.Logger.SetLevel(log.INFO)
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	registerSantriAPI(v1, s.deps.SantriSvc)
	registerAttendanceAPI(v1, s.deps.AttendanceSvc, s.deps.Summarizer)
	registerGradeAPI(v1, s.deps.GradeSvc)
	registerMonitoringAPI(v1, s.deps.MonitoringSvc)
	registerPermissionAPI(v1, s.deps.PermissionSvc)
	registerPaymentAPI(v1, s.deps.PaymentSvc)
	registerReportAPI(v1, s.deps.Reports, s.deps.Retrieval, s.deps.Printer, s.deps.Deliverer)
}

// Start listens on the configured address. Errors other than a graceful close are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.School.Name+" API!")
}
