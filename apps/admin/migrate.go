package main

import (
	"github.com/trezcool/kidcare/storage/database"
)

var migrateFunc = database.Migrate // mockable

// migrate runs the goose command `args[0]` with the remaining args against the embedded migrations.
func (cli *commandLine) migrate(args []string) error {
	return migrateFunc(cli.db, args[0], args[1:]...)
}
