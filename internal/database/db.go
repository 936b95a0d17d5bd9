package database

import (
	"context"
	"database/sql"
)

// DB is the minimal store surface the repositories need. Everything the
// pipeline persists is a single-statement insert or lookup, so there is no
// transaction API here; the migration runner gets the raw *sql.DB instead.
type DB interface {
	Ping(ctx context.Context) error
	Close() error

	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row

	SQLDB() *sql.DB
}

type Rows interface {
	Close()
	Next() bool
	Scan(dest ...any) error
	Err() error
}

type Row interface {
	Scan(dest ...any) error
}
