package main

import (
	"context"

	"github.com/pkg/errors"

	pgstore "github.com/trezcool/masomo-admin/storage/postgres"
)

var gooseRunFunc = pgstore.Migrate // mockable

var errNoDatabase = errors.New("no session database configured (set <ENV>_SESSION_DATABASE_URL)")

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if cli.database == nil {
		return errNoDatabase
	}
	db, err := cli.database(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return gooseRunFunc(db, args[0], args[1:]...)
}
