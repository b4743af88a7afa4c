package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core/academic"
	"github.com/pondokpesantren/sipondok/core/report"
)

// refreshSummaries recomputes the cached attendance summaries of the saved reports of a semester.
func (cli *commandLine) refreshSummaries(program, year, semester string) error {
	period := report.Period{
		Program:      academic.Program(program),
		AcademicYear: year,
		Semester:     academic.Semester(semester),
	}
	n, err := cli.upserts.RefreshSummaries(context.Background(), period)
	if err != nil {
		return err
	}
	logger.Printf("refreshed the attendance summary of %d reports", n)
	return nil
}

// printReports writes the document of every saved report of a class to dir, as stored.
// Santri without a saved report are skipped. Nothing is saved.
func (cli *commandLine) printReports(filters report.Filters, dir string) error {
	ctx := context.Background()
	if err := cli.manager.SetFilters(ctx, filters); err != nil {
		return err
	}
	if cli.manager.State() != report.StateLoaded {
		return errors.New("program, year and semester are required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	period := cli.manager.Period()
	var printed int
	for _, row := range cli.manager.Rows() {
		if !row.Saved {
			logger.Printf("skipping %s: no saved report", row.Santri.Name)
			continue
		}
		var doc bytes.Buffer
		b, err := cli.printer.Print(ctx, row.Santri.ID, period, &doc)
		if err != nil {
			return errors.Wrapf(err, "printing the report of %s", row.Santri.Name)
		}
		path := filepath.Join(dir, cli.printer.Filename(b))
		if err := os.WriteFile(path, doc.Bytes(), 0o644); err != nil {
			return errors.Wrap(err, "writing report")
		}
		printed++
	}
	logger.Printf("printed %d reports to %s", printed, dir)
	return nil
}
