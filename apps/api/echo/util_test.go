package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/pondokpesantren/sipondok/apps/api/echo"
	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
	"github.com/pondokpesantren/sipondok/core/attendance"
	"github.com/pondokpesantren/sipondok/core/document"
	"github.com/pondokpesantren/sipondok/core/grade"
	"github.com/pondokpesantren/sipondok/core/monitoring"
	"github.com/pondokpesantren/sipondok/core/payment"
	"github.com/pondokpesantren/sipondok/core/permission"
	"github.com/pondokpesantren/sipondok/core/report"
	"github.com/pondokpesantren/sipondok/core/santri"
	emailsvc "github.com/pondokpesantren/sipondok/services/email"
	inmemdb "github.com/pondokpesantren/sipondok/storage/database/inmem"
	testutil "github.com/pondokpesantren/sipondok/tests"
)

// failingReports fails every write with err when set.
type failingReports struct {
	report.Repository
	err error
}

func (r *failingReports) UpsertReports(ctx context.Context, reports ...report.StudentReport) error {
	if r.err != nil {
		return r.err
	}
	return r.Repository.UpsertReports(ctx, reports...)
}

type testApp struct {
	*echoapi.Server

	santriRepo  santri.Repository
	attendance  *attendance.Service
	grades      *grade.Service
	monitoring  *monitoring.Service
	permissions *permission.Service
	reports     *failingReports
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := testutil.NewConfig()
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(logger)
	emailsvc.ClearSentMessages()

	// set up DB & repos
	db := inmemdb.Open()
	app := &testApp{
		santriRepo: inmemdb.NewSantriRepository(db),
		reports:    &failingReports{Repository: inmemdb.NewReportRepository(db)},
	}
	attRepo := inmemdb.NewAttendanceRepository(db)

	// set up services
	santriSvc := santri.NewService(app.santriRepo)
	summarizer := attendance.NewSummarizer(attRepo, logger)
	app.attendance = attendance.NewService(attRepo)
	app.grades = grade.NewService(inmemdb.NewGradeRepository(db))
	app.monitoring = monitoring.NewService(inmemdb.NewMonitoringRepository(db))
	app.permissions = permission.NewService(inmemdb.NewPermissionRepository(db))
	upserts := report.NewUpsertService(app.reports, summarizer, report.NewListCache())
	retrieval := report.NewRetrievalService(app.reports, santriSvc, app.grades, app.monitoring, summarizer, logger)
	printer := report.NewPrinter(upserts, retrieval, document.NewHTMLRenderer(conf))

	// set up server
	app.Server = echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		SantriSvc:     santriSvc,
		AttendanceSvc: app.attendance,
		Summarizer:    summarizer,
		GradeSvc:      app.grades,
		MonitoringSvc: app.monitoring,
		PermissionSvc: app.permissions,
		PaymentSvc:    payment.NewService(inmemdb.NewPaymentRepository(db)),
		Reports:       upserts,
		Retrieval:     retrieval,
		Printer:       printer,
		Deliverer:     report.NewDeliverer(printer, emailsvc.NewConsoleServiceMock(conf, logger), conf),
	})
	return app
}

func (app *testApp) createSantri(t *testing.T, name, class string, program academic.Program, guardianEmail ...string) santri.Santri {
	return testutil.CreateSantri(t, app.santriRepo, name, class, program, santri.StatusActive, guardianEmail...)
}

// do serves a request and returns the recorded response.
func (app *testApp) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt.method, tt.path, tt.body))
		})
	}
}
