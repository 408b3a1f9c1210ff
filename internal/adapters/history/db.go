package history

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

// Driver selects the SQL backend for the run log.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens the run-log database and ensures the schema exists. An empty
// DSN falls back to a local default for the driver.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:aimboard_history.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/aimboard?sslmode=disable"
		}
	default:
		return nil, errors.Errorf("unsupported history driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open history database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping history database")
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ensure history schema")
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  player TEXT NOT NULL,
  scenario TEXT NOT NULL,
  score REAL NOT NULL,
  seconds REAL NOT NULL DEFAULT 0,
  rank TEXT NOT NULL DEFAULT '',
  session_id TEXT NOT NULL DEFAULT '',
  played_at INTEGER NOT NULL,
  recorded_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_scenario_played ON runs(scenario, played_at);
CREATE INDEX IF NOT EXISTS idx_runs_player_played ON runs(player, played_at);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  player TEXT NOT NULL,
  scenario TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL,
  seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
  rank TEXT NOT NULL DEFAULT '',
  session_id TEXT NOT NULL DEFAULT '',
  played_at BIGINT NOT NULL,
  recorded_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_scenario_played ON runs(scenario, played_at);
CREATE INDEX IF NOT EXISTS idx_runs_player_played ON runs(player, played_at);
`
