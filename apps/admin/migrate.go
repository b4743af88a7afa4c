package main

import (
	"github.com/pondokpesantren/sipondok/storage/database"
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	return database.Migrate(cli.db, args[0], args[1:]...)
}
