// Package document lays report cards out as printable HTML documents.
package document

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
	"github.com/pondokpesantren/sipondok/core/report"
	appfs "github.com/pondokpesantren/sipondok/fs"
)

const reportTemplate = "templates/documents/report.gohtml"

var (
	tmpl     *template.Template
	tmplErr  error
	tmplInit sync.Once
)

// NowFunc is mocked in tests.
var NowFunc = func() time.Time { return time.Now().UTC() }

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("02/01/2006")
	},
	"inc":   func(i int) int { return i + 1 },
	"score": func(f float64) string { return fmt.Sprintf("%.2f", f) },
	"title": title,
	"dash": func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "-"
		}
		return s
	},
}

// title upper-cases the first letter of s.
func title(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func parse() (*template.Template, error) {
	tmplInit.Do(func() {
		tmpl, tmplErr = template.New("report.gohtml").Funcs(funcs).ParseFS(appfs.FS, reportTemplate)
		if tmplErr == nil {
			tmpl = tmpl.Option("missingkey=error")
		}
	})
	return tmpl, tmplErr
}

// HTMLRenderer renders report cards with the school header.
type HTMLRenderer struct {
	school core.SchoolConfig
}

var _ report.BundleRenderer = (*HTMLRenderer)(nil)

func NewHTMLRenderer(conf *core.Config) *HTMLRenderer {
	return &HTMLRenderer{school: conf.School}
}

type rating struct {
	Label string
	Value string
}

type page struct {
	School     core.SchoolConfig
	Bundle     report.Bundle
	Ratings    []rating
	Tahfidz    bool
	Months     []monthRow
	PrintedAt  time.Time
	TotalScore float64
}

type monthRow struct {
	Label        string
	ZiyadahPages float64
	MurojaahJuz  float64
}

func (r *HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }
func (r *HTMLRenderer) Extension() string   { return ".html" }

// Render writes the document of b to w. Nothing is written when rendering fails.
func (r *HTMLRenderer) Render(w io.Writer, b report.Bundle) error {
	t, err := parse()
	if err != nil {
		return errors.Wrap(err, "parsing report template")
	}

	p := page{
		School:    r.school,
		Bundle:    b,
		Tahfidz:   b.Period.Program == academic.ProgramTahfidz,
		PrintedAt: NowFunc(),
	}
	if b.Behavior != nil {
		values := b.Behavior.Values()
		for _, k := range report.BehaviorKeys(b.Behavior.Program()) {
			p.Ratings = append(p.Ratings, rating{Label: k, Value: values[k]})
		}
	}
	for _, g := range b.Grades {
		p.TotalScore += g.ScoreTotal
	}
	for _, mt := range b.MonitoringTotals() {
		p.Months = append(p.Months, monthRow{
			Label:        fmt.Sprintf("%s %d", mt.Month, mt.Year),
			ZiyadahPages: mt.ZiyadahPages,
			MurojaahJuz:  mt.MurojaahJuz,
		})
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		return errors.Wrap(err, "executing report template")
	}
	_, err = buf.WriteTo(w)
	return err
}
