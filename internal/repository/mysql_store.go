package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers mapped to repository sentinels.
const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
	mysqlCheckViolated   = 3819
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlRepo holds the SQL for every table. Bound to the pool it serves reads;
// bound to a *sql.Tx it is the Tx handed to WithTx callbacks.
type sqlRepo struct {
	q querier
}

// MySQLStore implements Store on a MySQL connection pool.
type MySQLStore struct {
	sqlRepo
	db *sql.DB
}

// NewMySQLStore wraps db. The schema is created by the goose migrations in internal/database.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{sqlRepo: sqlRepo{q: db}, db: db}
}

// DB exposes the pool for health checks.
func (s *MySQLStore) DB() *sql.DB { return s.db }

// WithTx implements Store. The transaction is rolled back unless fn
// returns nil and the commit succeeds.
func (s *MySQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlRepo{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit: %w", err))
	}
	committed = true
	return nil
}

// mapError translates driver errors into repository sentinels, keeping the
// original error in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %w", ErrDuplicate, err)
		case mysqlCheckViolated:
			return fmt.Errorf("%w: %w", ErrCheckViolation, err)
		case mysqlNoReferencedRow:
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		case mysqlRowIsReferenced:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
	}
	return err
}

// affectedOne maps an UPDATE/DELETE that touched no row to ErrNotFound.
func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullUint(p *uint64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullInt(p *int) sql.NullInt32 {
	if p == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*p), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
