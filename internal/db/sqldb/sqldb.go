// Package sqldb opens the relational store (SQLite or PostgreSQL) and owns its schema.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// database/sql drivers
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/DevHassanMehdi/ImageUpLift/internal/db"
)

// Dialect identifies the SQL flavour; it doubles as the database/sql driver name.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
)

// ParseDialect accepts the config spellings of the supported drivers.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", s)
}

// Config holds connection parameters.
type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// DB is a migrated connection pool plus its dialect.
type DB struct {
	sql     *sql.DB
	dialect Dialect
}

// Open connects, pings and applies the schema.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	conn, err := sql.Open(string(dialect), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	switch {
	case dialect == SQLite:
		// one writer; also keeps a :memory: database alive across calls
		conn.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	conn.SetConnMaxIdleTime(5 * time.Minute)

	d := &DB{sql: conn, dialect: dialect}
	if err := d.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := d.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return d, nil
}

// Dialect returns the SQL flavour of the connection.
func (d *DB) Dialect() Dialect { return d.dialect }

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.sql.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the pool.
func (d *DB) Close() error {
	return d.sql.Close()
}

// ExecContext runs a statement without rows.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.sql.ExecContext(ctx, query, args...)
}

// QueryContext runs a query returning rows.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.sql.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a query returning at most one row.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.sql.QueryRowContext(ctx, query, args...)
}

// DateExpr renders col as a UTC calendar date "YYYY-MM-DD".
func (d *DB) DateExpr(col string) string {
	if d.dialect == Postgres {
		return "to_char(" + col + " AT TIME ZONE 'UTC', 'YYYY-MM-DD')"
	}
	return "date(" + col + ")"
}

// HourExpr renders col as a two digit UTC hour "00".."23".
func (d *DB) HourExpr(col string) string {
	if d.dialect == Postgres {
		return "to_char(" + col + " AT TIME ZONE 'UTC', 'HH24')"
	}
	return "strftime('%H', " + col + ")"
}

// Migrate creates missing tables and indexes. Statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema(d.dialect) {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return &db.Error{Op: db.OpMigrate, Err: err}
		}
	}
	return nil
}
