package main

import (
	"log"
	"os"

	dig_container "github.com/pondokpesantren/sipondok/apps/api/di/dig"
	"github.com/pondokpesantren/sipondok/core/report"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	c := dig_container.New(dig_container.Options{LogPrefix: "ADMIN"})
	err := c.Invoke(func(
		store *dig_container.Store,
		upserts *report.UpsertService,
		manager *report.Manager,
		printer *report.Printer,
	) error {
		defer func() { _ = store.Close() }()

		// start CLI
		cli := commandLine{
			db:      store.SQL,
			upserts: upserts,
			manager: manager,
			printer: printer,
		}
		return cli.run(os.Args)
	})
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
