package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trezcool/masomo-admin/apps/dashboard/echo"
	"github.com/trezcool/masomo-admin/core"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
	"github.com/trezcool/masomo-admin/storage/inmem"
	pgstore "github.com/trezcool/masomo-admin/storage/postgres"
)

const (
	sweepInterval = time.Hour
	staleAfter    = 30 * 24 * time.Hour
)

func main() {
	conf := core.NewConfig()

	local, err := logsvc.NewLocalLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(local, conf)

	if err := run(conf, logger); err != nil {
		logger.Error("dashboard stopped", err)
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

func run(conf *core.Config, logger core.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &echodash.Options{
		Address: conf.Server.Address,
		Config:  conf,
		Storage: inmem.New(),
		Logger:  logger,
	}

	var pg *pgstore.Storage
	if url := conf.Session.DatabaseURL; url != "" {
		db, err := pgstore.Open(ctx, url)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := pgstore.Migrate(db.DB, "up"); err != nil {
			return err
		}
		pg = pgstore.New(db)
		opts.Storage = pg
	} else {
		logger.Warn("no session database configured, sessions are kept in memory")
	}

	srv := echodash.NewServer(opts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	if pg != nil {
		g.Go(func() error {
			sweepSessions(gctx, pg, logger)
			return nil
		})
	}
	return g.Wait()
}

// sweepSessions deletes the abandoned browser sessions every sweepInterval until ctx is done.
func sweepSessions(ctx context.Context, pg *pgstore.Storage, logger core.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := pg.DeleteStale(ctx, now.Add(-staleAfter))
			if err != nil {
				logger.Error("sweeping sessions failed", err)
				continue
			}
			if n > 0 {
				logger.Info(fmt.Sprintf("swept %d stale session keys", n))
			}
		}
	}
}
