package service

import (
	"context"
	"errors"

	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errDatabaseDown = errors.New("database down")

// downDB is a DBTX whose every call fails.
type downDB struct{}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func (downDB) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errDatabaseDown
}

func (downDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errDatabaseDown
}

func (downDB) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return errRow{err: errDatabaseDown}
}

type downStore struct{}

func (downStore) Queries() *repository.Queries {
	return repository.New(downDB{})
}

func (downStore) RunInTx(context.Context, func(q *repository.Queries) error) error {
	return errDatabaseDown
}
