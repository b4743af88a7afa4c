package document_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
	"github.com/pondokpesantren/sipondok/core/attendance"
	"github.com/pondokpesantren/sipondok/core/document"
	"github.com/pondokpesantren/sipondok/core/grade"
	"github.com/pondokpesantren/sipondok/core/monitoring"
	"github.com/pondokpesantren/sipondok/core/report"
	"github.com/pondokpesantren/sipondok/core/santri"
)

func TestHTMLRenderer_Render(t *testing.T) {
	defer func(orig func() time.Time) { document.NowFunc = orig }(document.NowFunc)
	document.NowFunc = func() time.Time { return time.Date(2024, 12, 20, 9, 0, 0, 0, time.UTC) }

	r := document.NewHTMLRenderer(&core.Config{School: core.SchoolConfig{Name: "PP Al-Hikmah", Address: "Jl. Pesantren 1"}})
	ahmad := santri.Santri{Name: "Ahmad Fauzi", RegistrationNumber: "NIS-001", Class: "1A", Guardian: santri.Guardian{Name: "Fauzi"}}

	tests := []struct {
		name    string
		bundle  report.Bundle
		want    []string
		notWant []string
	}{
		{
			name: "diniyah",
			bundle: report.Bundle{
				Period: report.Period{Program: academic.ProgramDiniyah, AcademicYear: "2024/2025", Semester: academic.SemesterGanjil},
				Santri: ahmad,
				Grades: []grade.Grade{
					{Subject: "Fiqih", ScoreTheory: 80, ScorePractice: 90, ScoreTotal: 85},
					{Subject: "Nahwu", ScoreTotal: 70.5, Notes: null.StringFrom("remedial")},
				},
				Behavior:   report.DiniyahBehavior{Kerajinan: "A", Kebersihan: "B"},
				Notes:      "Pertahankan",
				HasReport:  true,
				Attendance: attendance.Summary{Alfa: 1, Izin: 2, Sakit: 3},
			},
			want: []string{
				"PP Al-Hikmah", "Ahmad Fauzi", "NIS-001", "2024/2025", "Ganjil",
				"<td>1</td><td>Fiqih</td>", "<td>2</td><td>Nahwu</td>", "85.00", "155.50", "remedial",
				"Kebersihan", "B. Kepribadian", "3 hari", "Pertahankan", "Dicetak 20/12/2024",
			},
			notWant: []string{"Capaian Tahfidz", "Kerapian"},
		},
		{
			name: "tahfidz without data",
			bundle: report.Bundle{
				Period:     report.Period{Program: academic.ProgramTahfidz, AcademicYear: "2024/2025", Semester: academic.SemesterGenap},
				Santri:     ahmad,
				Monitoring: []monitoring.Entry{{Date: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), ZiyadahPages: 4}},
				Behavior:   report.EmptyBehavior(academic.ProgramTahfidz),
			},
			want:    []string{"Belum ada nilai.", "Capaian Tahfidz", "February 2025", "4.00", "Kerapian", "C. Kepribadian"},
			notWant: []string{"Kebersihan", "Jumlah"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := r.Render(&buf, tc.bundle); err != nil {
				t.Fatalf("Render() failed: %v", err)
			}
			doc := buf.String()
			for _, s := range tc.want {
				if !strings.Contains(doc, s) {
					t.Errorf("document does not contain %q", s)
				}
			}
			for _, s := range tc.notWant {
				if strings.Contains(doc, s) {
					t.Errorf("document contains %q", s)
				}
			}
		})
	}

	if r.ContentType() != "text/html; charset=utf-8" || r.Extension() != ".html" {
		t.Errorf("ContentType() = %q, Extension() = %q", r.ContentType(), r.Extension())
	}
}
