// Package sqlstore implements the repository interfaces on top of database/sql.
//
// One code path serves SQLite (modernc.org/sqlite, the default and the test
// backend), PostgreSQL (lib/pq) and MySQL (go-sql-driver/mysql). Queries are
// written with "?" placeholders and rebound per dialect.
//
// TRANSACTIONS:
// A DB either wraps the connection pool or a single *sql.Tx. WithinTx hands
// its closure a DB bound to the transaction, so the same repository methods
// run unchanged inside and outside a unit of work.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/menu-planner/internal/repository"
)

// Config selects and locates the database.
type Config struct {
	Type string // sqlite (default), postgres or mysql
	Path string // SQLite file path, or ":memory:"
	URL  string // DSN for postgres/mysql
}

// querier is the subset of *sql.DB and *sql.Tx the repositories use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the database handle. It implements repository.Store.
type DB struct {
	conn    *sql.DB // nil when this DB is bound to a transaction
	q       querier
	dialect Dialect
	now     func() time.Time
}

var _ repository.Store = (*DB)(nil)

// New opens a SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/menu.db" → file-based database
//   - ":memory:"     → in-memory database, used by tests
func New(dbPath string) (*DB, error) {
	return Open(Config{Type: "sqlite", Path: dbPath})
}

// Open connects using cfg, configures the pool for the dialect and migrates.
func Open(cfg Config) (*DB, error) {
	dialect, err := DialectFor(cfg.Type)
	if err != nil {
		return nil, err
	}

	dsn := cfg.URL
	if dialect.Name() == "sqlite" {
		dsn = cfg.Path
	}
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: no data source configured for %s", dialect.Name())
	}
	dsn, err = dialect.DSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: %w", err)
	}

	conn, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening %s database: %w", dialect.Name(), err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pinging %s database: %w", dialect.Name(), err)
	}

	if err := dialect.Configure(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: configuring %s: %w", dialect.Name(), err)
	}

	db := &DB{conn: conn, q: conn, dialect: dialect, now: time.Now}

	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return errors.New("sqlstore: Close called on a transaction-bound DB")
	}
	return db.conn.Close()
}

// Dialect reports which backend this DB talks to.
func (db *DB) Dialect() string {
	return db.dialect.Name()
}

// Ping checks the connection, for health probes.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return nil
	}
	return db.conn.PingContext(ctx)
}

// WithinTx runs fn inside a transaction. See repository.Store.
func (db *DB) WithinTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if db.conn == nil {
		return fn(db)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	txDB := &DB{q: tx, dialect: db.dialect, now: db.now}
	if err := fn(txDB); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("sqlstore: rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: committing transaction: %w", err)
	}
	return nil
}

// =========================================================================
// QUERY HELPERS
// =========================================================================

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.q.ExecContext(ctx, db.dialect.Rebind(query), args...)
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.q.QueryContext(ctx, db.dialect.Rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.q.QueryRowContext(ctx, db.dialect.Rebind(query), args...)
}

// execAffecting runs an UPDATE/DELETE and reports whether any row changed.
func (db *DB) execAffecting(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := db.exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// timestamp returns the current time truncated to microseconds, the finest
// precision all three backends round-trip.
func (db *DB) timestamp() time.Time {
	return db.now().UTC().Truncate(time.Microsecond)
}
