package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver for local development and tests
	"github.com/pressly/goose/v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// goose keeps its dialect and base FS in package globals.
var gooseMu sync.Mutex

// NewConnection opens and pings a database using the given driver
func NewConnection(driver, databaseURL string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// A single connection keeps in-memory databases and write locks sane.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("connected to database", "driver", driver)
	return db, nil
}

// RunMigrations applies the embedded migrations for driver
func RunMigrations(db *sql.DB, driver string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(driver); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations/"+driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("database migrations completed", "driver", driver)
	return nil
}
