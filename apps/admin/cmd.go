package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pondokpesantren/sipondok/core/report"
)

var (
	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("no SQL database configured (database engine is inmem)")
)

type commandLine struct {
	db      *sqlx.DB // nil with the in-memory engine
	upserts *report.UpsertService
	manager *report.Manager
	printer *report.Printer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, create NAME sql, ...)")
	fmt.Println("  refreshsummaries -program PROGRAM -year YYYY/YYYY -semester SEMESTER - recompute the attendance summaries of saved reports")
	fmt.Println("  printreports -program PROGRAM -class CLASS -year YYYY/YYYY -semester SEMESTER [-out DIR] - print the saved reports of a class")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	refreshCmd := flag.NewFlagSet("refreshsummaries", flag.ContinueOnError)
	refreshProgram := refreshCmd.String("program", "", "Diniyah or Tahfidz")
	refreshYear := refreshCmd.String("year", "", "The academic year, eg. 2024/2025")
	refreshSemester := refreshCmd.String("semester", "", "Ganjil or Genap")

	printCmd := flag.NewFlagSet("printreports", flag.ContinueOnError)
	printProgram := printCmd.String("program", "", "Diniyah or Tahfidz")
	printClass := printCmd.String("class", "", "The class to print; every class when empty")
	printYear := printCmd.String("year", "", "The academic year, eg. 2024/2025")
	printSemester := printCmd.String("semester", "", "Ganjil or Genap")
	printOut := printCmd.String("out", ".", "The directory documents are written to")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "refreshsummaries":
		if err := refreshCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *refreshProgram == "" || *refreshYear == "" || *refreshSemester == "" {
			refreshCmd.Usage()
			return errHelp
		}
		return cli.refreshSummaries(*refreshProgram, *refreshYear, *refreshSemester)
	case "printreports":
		if err := printCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *printProgram == "" || *printYear == "" || *printSemester == "" {
			printCmd.Usage()
			return errHelp
		}
		filters := report.Filters{
			Program:      *printProgram,
			Class:        *printClass,
			AcademicYear: *printYear,
			Semester:     *printSemester,
		}
		return cli.printReports(filters, *printOut)
	default:
		cli.printUsage()
		return errHelp
	}
}
