// Package pgstore is a core.Storage kept in PostgreSQL, shared by dashboard instances.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-admin/core"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// Open connects to the database at `databaseURL` and waits for it to be ready.
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func init() {
	goose.SetBaseFS(migrations)
}

// Migrate runs the goose `command` (up, down, status, ...) against `db`.
func Migrate(db *sql.DB, command string, args ...string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	if err := goose.Run(command, db, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", command)
	}
	return nil
}

type record struct {
	Key       string      `db:"key"`
	Value     null.String `db:"value"`
	UpdatedAt time.Time   `db:"updated_at"`
}

type Storage struct {
	db *sqlx.DB
}

var _ core.Storage = (*Storage)(nil)

func New(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Get treats a NULL value as missing.
func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	var rec record
	err := s.db.GetContext(ctx, &rec, `SELECT key, value, updated_at FROM client_storage WHERE key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", core.ErrStorageKeyNotFound
		}
		return "", errors.Wrapf(err, "getting %s", key)
	}
	if !rec.Value.Valid {
		return "", core.ErrStorageKeyNotFound
	}
	return rec.Value.String, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	rec := record{Key: key, Value: null.StringFrom(value), UpdatedAt: time.Now().UTC()}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO client_storage (key, value, updated_at) VALUES (:key, :value, :updated_at)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		rec,
	)
	return errors.Wrapf(err, "setting %s", key)
}

func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM client_storage WHERE key IN (?)`, keys)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	return errors.Wrap(err, "deleting keys")
}

// DeleteStale deletes the keys not written since `before`, eg. abandoned browser sessions.
func (s *Storage) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM client_storage WHERE updated_at < $1`, before.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "deleting stale keys")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "deleting stale keys")
}
