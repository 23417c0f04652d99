package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/auth"
	"github.com/trezcool/masomo-admin/core/block"
	"github.com/trezcool/masomo-admin/core/session"
	apisvc "github.com/trezcool/masomo-admin/services/api"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
	filestore "github.com/trezcool/masomo-admin/storage/file"
	pgstore "github.com/trezcool/masomo-admin/storage/postgres"
)

func main() {
	conf := core.NewConfig()

	local, err := logsvc.NewLocalLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(local, conf)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	cli, err := newCommandLine(ctx, conf, logger)
	if err == nil {
		err = cli.run(ctx, os.Args)
	}
	stop()
	if err != nil && err != errHelp {
		fmt.Fprintf(os.Stderr, "\nerror: %s\n", errorText(err))
		if core.ErrorMessage(err) == core.GenericErrorMessage {
			logger.Error("admin command failed", err)
		}
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

func newCommandLine(ctx context.Context, conf *core.Config, logger core.Logger) (*commandLine, error) {
	storage, err := filestore.New(conf.Session.Path)
	if err != nil {
		return nil, err
	}
	sess, err := session.NewStore(ctx, storage, session.WithRefreshMargin(conf.Session.RefreshMargin))
	if err != nil {
		return nil, errors.Wrap(err, "loading session")
	}
	api, err := apisvc.NewFromConfig(conf, sess, logger)
	if err != nil {
		return nil, err
	}

	cli := &commandLine{
		api:     api,
		session: sess,
		guard:   auth.NewGuardFromConfig(conf, sess, api, logger),
		logger:  logger,
		out:     os.Stdout,
	}
	if url := conf.Session.DatabaseURL; url != "" {
		cli.database = func(ctx context.Context) (*sql.DB, error) {
			db, err := pgstore.Open(ctx, url)
			if err != nil {
				return nil, err
			}
			return db.DB, nil
		}
	}
	return cli, nil
}

// errorText lists every field error of a validation error, the user message of other errors.
func errorText(err error) string {
	switch cause := errors.Cause(err); cause {
	case errNotSignedIn, errNoDatabase, apisvc.ErrSessionExpired, block.ErrBlockNotFound:
		return cause.Error()
	}
	if verr, ok := errors.Cause(err).(*core.ValidationError); ok && len(verr.Fields) > 1 {
		msg := "invalid input"
		for _, fld := range verr.Fields {
			msg += "\n  " + fld.Field + ": " + fld.Error
		}
		return msg
	}
	return core.ErrorMessage(err)
}
