package store

import (
	"context"
	"fmt"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects the repository named by driver. databaseURL is used by the
// postgres driver and sqlitePath by the sqlite one.
func Open(ctx context.Context, driver, databaseURL, sqlitePath string) (Repository, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverPostgres:
		db, err := NewPostgres(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DriverSQLite:
		db, err := NewSQLite(sqlitePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}
