// Package store persists the running-build ledger and device subscriptions.
// Production runs against MySQL; local development and tests use SQLite.
// Both dialects share the same queries except for the upsert statements.
package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavor for statements that differ between drivers.
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

type DB struct {
	*sqlx.DB
	dialect Dialect
}

// NewMySQLDB opens a MySQL connection and ensures the schema exists.
func NewMySQLDB(host, port, user, pass, name string) (*DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		user, pass, host, port, name)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	wrapped := &DB{DB: db, dialect: DialectMySQL}
	if err := wrapped.applySchema(schemaMySQL); err != nil {
		db.Close()
		return nil, err
	}
	return wrapped, nil
}

// NewSQLiteDB opens a SQLite database and ensures the schema exists.
func NewSQLiteDB(dsn string) (*DB, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// Set pragmas for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	wrapped := &DB{DB: db, dialect: DialectSQLite}
	if err := wrapped.applySchema(schemaSQLite); err != nil {
		db.Close()
		return nil, err
	}
	return wrapped, nil
}

func (db *DB) applySchema(statements []string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

func (db *DB) Close() error {
	return db.DB.Close()
}
