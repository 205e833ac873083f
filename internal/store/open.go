// Package store implements core.Store on PostgreSQL (pgx) and SQLite
// (modernc.org/sqlite). Both share the SQL in queries.go; the SQLite store
// follows the same table layout as the seed script output.
package store

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/agencydir/internal/config"
	"github.com/JonMunkholm/agencydir/internal/core"
)

// Open connects to the store selected by the database URL.
func Open(ctx context.Context, cfg config.DatabaseConfig) (core.Store, error) {
	switch cfg.Driver() {
	case config.DriverPostgres:
		return ConnectPostgres(ctx, cfg)
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath())
	default:
		return nil, fmt.Errorf("unsupported database URL scheme")
	}
}

var (
	_ core.Store = (*Postgres)(nil)
	_ core.Store = (*SQLite)(nil)
)
