package metastore

import (
	"context"
	"fmt"
	"os"
)

// Driver identifies a concrete metastore backend.
type Driver string

const (
	// DriverMemory keeps columns in process memory (tests, dry runs).
	DriverMemory Driver = "memory"
	// DriverSQLite persists columns in a local SQLite file (default).
	DriverSQLite Driver = "sqlite"
	// DriverPostgres persists columns in Postgres.
	DriverPostgres Driver = "postgres"
)

// Open selects a metastore implementation using environment variables.
//
//	MARROWMAP_METASTORE_DRIVER: memory|sqlite|postgres (default sqlite)
//	MARROWMAP_METASTORE_SQLITE_PATH: database file when driver=sqlite
//	MARROWMAP_METASTORE_POSTGRES_DSN: connection string when driver=postgres
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("MARROWMAP_METASTORE_DRIVER")
	if driver == "" {
		driver = string(DriverSQLite)
	}
	switch Driver(driver) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(os.Getenv("MARROWMAP_METASTORE_SQLITE_PATH"))
	case DriverPostgres:
		return NewPostgres(ctx, os.Getenv("MARROWMAP_METASTORE_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown metastore driver %s", driver)
	}
}
