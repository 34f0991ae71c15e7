// Package shopdb is the destination writer: it owns the single connection
// to the new shop database, applies the destination schema, and exposes the
// insert/lookup/update/delete operations the migration pipeline needs.
//
// All SQL is written with ? placeholders and rebound for the Postgres
// dialect at execution time, so the identical code path runs against the
// production Postgres destination and the SQLite databases the tests use.
package shopdb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// Dialect selects placeholder style and primary-key DDL.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DB wraps the destination connection. When a run is begun with Begin, all
// writes go through the transaction until Commit or Rollback; a fatal abort
// therefore leaves the destination untouched on engines that honor the
// transaction, and the wipe-then-load design keeps a re-run safe even on
// engines that do not.
type DB struct {
	sql     *sql.DB
	dialect Dialect
	tx      *sql.Tx
}

// Open opens the destination database. driver is a registered database/sql
// driver name ("pgx" in production, "sqlite3" in tests).
func Open(driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open destination: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect destination: %w", err)
	}
	// Single sequential writer; no pool wanted.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return New(db, driver), nil
}

// New wraps an already open connection. The dialect is inferred from the
// driver name.
func New(db *sql.DB, driver string) *DB {
	dialect := DialectSQLite
	if strings.HasPrefix(driver, "pgx") || driver == "postgres" {
		dialect = DialectPostgres
	}
	return &DB{sql: db, dialect: dialect}
}

// Close closes the destination connection.
func (d *DB) Close() error {
	if d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// EnsureSchema applies the destination DDL. Idempotent; every statement is
// CREATE TABLE IF NOT EXISTS.
func (d *DB) EnsureSchema(ctx context.Context) error {
	ddl := schemaSQL
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d.dialect == DialectPostgres {
		pk = "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
	}
	ddl = strings.ReplaceAll(ddl, "__PK__", pk)
	for _, stmt := range splitStatements(ddl) {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// splitStatements breaks a DDL script into executable statements. Comment
// lines are dropped first so a ';' inside one never splits a statement.
func splitStatements(ddl string) []string {
	var clean []string
	for _, line := range strings.Split(ddl, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		clean = append(clean, line)
	}
	var stmts []string
	for _, stmt := range strings.Split(strings.Join(clean, "\n"), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

// Begin starts the run's transaction scope.
func (d *DB) Begin(ctx context.Context) error {
	if d.tx != nil {
		return fmt.Errorf("run transaction already open")
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run transaction: %w", err)
	}
	d.tx = tx
	return nil
}

// Commit commits the run's transaction scope.
func (d *DB) Commit() error {
	if d.tx == nil {
		return fmt.Errorf("no run transaction open")
	}
	err := d.tx.Commit()
	d.tx = nil
	if err != nil {
		return fmt.Errorf("commit run transaction: %w", err)
	}
	return nil
}

// Rollback abandons the run's transaction scope. Safe to call after Commit.
func (d *DB) Rollback() error {
	if d.tx == nil {
		return nil
	}
	err := d.tx.Rollback()
	d.tx = nil
	if err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("rollback run transaction: %w", err)
	}
	return nil
}

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (d *DB) q() queryable {
	if d.tx != nil {
		return d.tx
	}
	return d.sql
}

// rebind rewrites ? placeholders to $N for the Postgres dialect.
func (d *DB) rebind(query string) string {
	if d.dialect != DialectPostgres {
		return query
	}
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

// insertReturningID runs an INSERT ... RETURNING id statement.
func (d *DB) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := d.q().QueryRowContext(ctx, d.rebind(query), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (d *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.q().ExecContext(ctx, d.rebind(query), args...)
}

// nullableID converts the pipeline's zero-means-none IDs to SQL NULL.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
