// Package dig_container wires the application with a dig.Container.
package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/pondokpesantren/sipondok/apps/api/echo"
	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/attendance"
	"github.com/pondokpesantren/sipondok/core/document"
	"github.com/pondokpesantren/sipondok/core/grade"
	"github.com/pondokpesantren/sipondok/core/monitoring"
	"github.com/pondokpesantren/sipondok/core/payment"
	"github.com/pondokpesantren/sipondok/core/permission"
	"github.com/pondokpesantren/sipondok/core/report"
	"github.com/pondokpesantren/sipondok/core/santri"
	emailsvc "github.com/pondokpesantren/sipondok/services/email"
	logsvc "github.com/pondokpesantren/sipondok/services/logger"
	"github.com/pondokpesantren/sipondok/storage/database"
	inmemdb "github.com/pondokpesantren/sipondok/storage/database/inmem"
	sqlxrepos "github.com/pondokpesantren/sipondok/storage/database/sqlx"
)

// Options tune the container for the app using it.
type Options struct {
	LogPrefix   string // eg. "API"
	AutoMigrate bool   // run pending migrations when opening the database
}

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Store is the database the repositories are built on: PostgreSQL through sqlx, or the in-memory engine.
type Store struct {
	SQL *sqlx.DB
	Mem *inmemdb.DB
}

func (s *Store) Close() error {
	if s.SQL != nil {
		return s.SQL.Close()
	}
	return nil
}

type Repositories struct {
	dig.Out

	Santri     santri.Repository
	Attendance attendance.Repository
	Grade      grade.Repository
	Monitoring monitoring.Repository
	Report     report.Repository
	Permission permission.Repository
	Payment    payment.Repository
}

func newLogger(opts Options) func(conf *core.Config) core.Logger {
	return func(conf *core.Config) core.Logger {
		stdLogger := log.New(os.Stdout, opts.LogPrefix+" : ", log.LstdFlags)
		return logsvc.NewRollbarLogger(stdLogger, conf)
	}
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newStore(opts Options) func(conf *core.Config, loggerParam DBLoggerParam) (*Store, error) {
	return func(conf *core.Config, loggerParam DBLoggerParam) (*Store, error) {
		if conf.Database.InMemory() {
			loggerParam.Logger.Warn("using the in-memory database: data is lost on exit")
			return &Store{Mem: inmemdb.Open()}, nil
		}

		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if opts.AutoMigrate {
			if err = database.Migrate(db, "up"); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		loggerParam.Logger.Info(fmt.Sprintf("connected to %s (%s)", conf.Database.Address(), conf.Database.Driver))
		return &Store{SQL: db}, nil
	}
}

func newRepositories(store *Store) Repositories {
	if db := store.SQL; db != nil {
		return Repositories{
			Santri:     sqlxrepos.NewSantriRepository(db),
			Attendance: sqlxrepos.NewAttendanceRepository(db),
			Grade:      sqlxrepos.NewGradeRepository(db),
			Monitoring: sqlxrepos.NewMonitoringRepository(db),
			Report:     sqlxrepos.NewReportRepository(db),
			Permission: sqlxrepos.NewPermissionRepository(db),
			Payment:    sqlxrepos.NewPaymentRepository(db),
		}
	}
	db := store.Mem
	return Repositories{
		Santri:     inmemdb.NewSantriRepository(db),
		Attendance: inmemdb.NewAttendanceRepository(db),
		Grade:      inmemdb.NewGradeRepository(db),
		Monitoring: inmemdb.NewMonitoringRepository(db),
		Report:     inmemdb.NewReportRepository(db),
		Permission: inmemdb.NewPermissionRepository(db),
		Payment:    inmemdb.NewPaymentRepository(db),
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newUpsertService(repo report.Repository, summarizer *attendance.Summarizer, cache *report.ListCache) *report.UpsertService {
	return report.NewUpsertService(repo, summarizer, cache)
}

func newRetrievalService(
	repo report.Repository,
	santris *santri.Service,
	grades *grade.Service,
	mon *monitoring.Service,
	summarizer *attendance.Summarizer,
	logger core.Logger,
) *report.RetrievalService {
	return report.NewRetrievalService(repo, santris, grades, mon, summarizer, logger)
}

func newPrinter(upserts *report.UpsertService, retrieval *report.RetrievalService, renderer *document.HTMLRenderer) *report.Printer {
	return report.NewPrinter(upserts, retrieval, renderer)
}

func newManager(santris *santri.Service, upserts *report.UpsertService, printer *report.Printer) *report.Manager {
	return report.NewManager(santris, upserts, printer)
}

// New returns a new dependency injection dig.Container
func New(opts Options) *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger(opts)))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStore(opts)))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))

	// services
	must(c.Provide(santri.NewService))
	must(c.Provide(attendance.NewService))
	must(c.Provide(attendance.NewSummarizer))
	must(c.Provide(grade.NewService))
	must(c.Provide(monitoring.NewService))
	must(c.Provide(permission.NewService))
	must(c.Provide(payment.NewService))

	// reports
	must(c.Provide(report.NewListCache))
	must(c.Provide(newUpsertService))
	must(c.Provide(newRetrievalService))
	must(c.Provide(document.NewHTMLRenderer))
	must(c.Provide(newPrinter))
	must(c.Provide(report.NewDeliverer))
	must(c.Provide(newManager))

	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
