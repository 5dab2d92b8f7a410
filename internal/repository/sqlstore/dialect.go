package sqlstore

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect isolates the few places where SQLite, PostgreSQL and MySQL differ:
// driver name, placeholder syntax, pool settings and column types.
//
// Queries in this package are written once with "?" placeholders and passed
// through Rebind before they reach the driver.
type Dialect interface {
	Name() string
	DriverName() string
	// DSN adjusts the configured data source before it reaches sql.Open.
	DSN(raw string) (string, error)
	Rebind(query string) string
	Configure(conn *sql.DB) error
	// Types maps the schema's portable type tokens ({id}, {ts}, ...) to SQL types.
	Types() *strings.Replacer
	MigrationsTableQuery() string
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	}
	return nil, fmt.Errorf("sqlstore: unsupported database type %q", name)
}

// =========================================================================
// SQLITE
// =========================================================================

type sqliteDialect struct{}

func (sqliteDialect) Name() string               { return "sqlite" }
func (sqliteDialect) DriverName() string         { return "sqlite" }
func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) DSN(raw string) (string, error) { return raw, nil }

// Configure pins the pool to one connection. SQLite serializes writers anyway,
// and ":memory:" databases exist per connection.
func (sqliteDialect) Configure(conn *sql.DB) error {
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("setting busy timeout: %w", err)
	}
	return nil
}

func (sqliteDialect) Types() *strings.Replacer {
	return strings.NewReplacer(
		"{id}", "TEXT",
		"{str}", "TEXT",
		"{text}", "TEXT",
		"{ts}", "DATETIME",
		"{real}", "REAL",
	)
}

func (sqliteDialect) MigrationsTableQuery() string {
	return `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL
	)`
}

// =========================================================================
// POSTGRES
// =========================================================================

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "postgres" }

func (postgresDialect) DSN(raw string) (string, error) { return raw, nil }

// Rebind converts ? placeholders to $1, $2, ...
func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (postgresDialect) Configure(conn *sql.DB) error {
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)
	conn.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

func (postgresDialect) Types() *strings.Replacer {
	return strings.NewReplacer(
		"{id}", "VARCHAR(20)",
		"{str}", "VARCHAR(255)",
		"{text}", "TEXT",
		"{ts}", "TIMESTAMPTZ",
		"{real}", "DOUBLE PRECISION",
	)
}

func (postgresDialect) MigrationsTableQuery() string {
	return `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL
	)`
}

// =========================================================================
// MYSQL
// =========================================================================

type mysqlDialect struct{}

func (mysqlDialect) Name() string               { return "mysql" }
func (mysqlDialect) DriverName() string         { return "mysql" }
func (mysqlDialect) Rebind(query string) string { return query }

// DSN forces parseTime, so DATETIME columns scan into time.Time, and
// clientFoundRows, so an UPDATE that matches a row without changing it
// still reports one affected row. Everything else in raw is kept.
func (mysqlDialect) DSN(raw string) (string, error) {
	cfg, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("parsing mysql DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

func (mysqlDialect) Configure(conn *sql.DB) error {
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)
	conn.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

func (mysqlDialect) Types() *strings.Replacer {
	return strings.NewReplacer(
		"{id}", "VARCHAR(20)",
		"{str}", "VARCHAR(255)",
		"{text}", "TEXT",
		"{ts}", "DATETIME(6)",
		"{real}", "DOUBLE",
	)
}

func (mysqlDialect) MigrationsTableQuery() string {
	return `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    VARCHAR(255) PRIMARY KEY,
		applied_at DATETIME(6) NOT NULL
	)`
}
