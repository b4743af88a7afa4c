package report

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core"
)

var ErrNoGuardianEmail = &core.ValidationError{
	Err:    errors.New("guardian has no email address"),
	Fields: []core.FieldError{{Field: "guardian.email", Error: "guardian has no email address"}},
}

// Deliverer emails report cards to the guardians of santri.
type Deliverer struct {
	printer    *Printer
	mailer     core.EmailService
	schoolName string
}

func NewDeliverer(printer *Printer, mailer core.EmailService, conf *core.Config) *Deliverer {
	return &Deliverer{printer: printer, mailer: mailer, schoolName: conf.School.Name}
}

type deliveryData struct {
	GuardianName string
	SchoolName   string
	SantriName   string
	Program      string
	AcademicYear string
	Semester     string
	Alfa         int
	Izin         int
	Sakit        int
}

// Email renders the stored report card of a santri and queues it for its guardian.
func (d *Deliverer) Email(ctx context.Context, santriID string, period Period) (Bundle, error) {
	var doc bytes.Buffer
	b, err := d.printer.Print(ctx, santriID, period, &doc)
	if err != nil {
		return Bundle{}, err
	}
	guardian := b.Santri.Guardian
	if guardian.Email == "" {
		return Bundle{}, ErrNoGuardianEmail
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: guardian.Name, Address: guardian.Email}},
		Subject:      fmt.Sprintf("Rapor %s - %s %s", b.Santri.Name, b.Period.Semester, b.Period.AcademicYear),
		TemplateName: "report_delivery",
		TemplateData: deliveryData{
			GuardianName: guardian.Name,
			SchoolName:   d.schoolName,
			SantriName:   b.Santri.Name,
			Program:      string(b.Period.Program),
			AcademicYear: b.Period.AcademicYear,
			Semester:     string(b.Period.Semester),
			Alfa:         b.Attendance.Alfa,
			Izin:         b.Attendance.Izin,
			Sakit:        b.Attendance.Sakit,
		},
	}
	if err := msg.Attach(&doc, d.printer.Filename(b), d.printer.ContentType()); err != nil {
		return Bundle{}, errors.Wrap(err, "attaching report")
	}
	d.mailer.SendMessages(msg)
	return b, nil
}
