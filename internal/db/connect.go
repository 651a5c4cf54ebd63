package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:opstrengths.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/opstrengths?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	dbh, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := dbh.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, dbh, driver); err != nil {
		return nil, err
	}
	return dbh, nil
}

func ensureSchema(ctx context.Context, dbh *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := dbh.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS question_versions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  version_id INTEGER NOT NULL REFERENCES question_versions(id) ON DELETE CASCADE,
  question_order INTEGER NOT NULL,
  question_text TEXT NOT NULL,
  dimension TEXT NOT NULL,
  subscale TEXT NOT NULL,
  is_reversed INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (version_id, question_order)
);

CREATE TABLE IF NOT EXISTS teams (
  id TEXT PRIMARY KEY,
  firm_name TEXT NOT NULL,
  leader_name TEXT NOT NULL,
  leader_email TEXT NOT NULL,
  question_version_id INTEGER NOT NULL REFERENCES question_versions(id),
  admin_token_hash TEXT NOT NULL UNIQUE,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS team_members (
  id TEXT PRIMARY KEY,
  team_id TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
  email TEXT NOT NULL,
  display_name TEXT,
  is_leader INTEGER NOT NULL DEFAULT 0,
  completed INTEGER NOT NULL DEFAULT 0,
  completed_at INTEGER,
  assessment_token_hash TEXT NOT NULL UNIQUE,
  alignment_score REAL,
  execution_score REAL,
  accountability_score REAL,
  subscales_json TEXT,
  responses_json TEXT,
  created_at INTEGER NOT NULL,
  UNIQUE (team_id, email)
);

CREATE TABLE IF NOT EXISTS team_reports (
  team_id TEXT PRIMARY KEY REFERENCES teams(id) ON DELETE CASCADE,
  report_token_hash TEXT NOT NULL UNIQUE,
  completion_count INTEGER NOT NULL,
  total_count INTEGER NOT NULL,
  scores_json TEXT NOT NULL,
  generated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS email_log (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  team_id TEXT NOT NULL,
  member_id TEXT,
  email_type TEXT NOT NULL,
  recipient TEXT NOT NULL,
  success INTEGER NOT NULL,
  provider_message_id TEXT,
  error TEXT,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS question_versions (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  is_active BOOLEAN NOT NULL DEFAULT FALSE,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  version_id BIGINT NOT NULL REFERENCES question_versions(id) ON DELETE CASCADE,
  question_order INTEGER NOT NULL,
  question_text TEXT NOT NULL,
  dimension TEXT NOT NULL,
  subscale TEXT NOT NULL,
  is_reversed BOOLEAN NOT NULL DEFAULT FALSE,
  PRIMARY KEY (version_id, question_order)
);

CREATE TABLE IF NOT EXISTS teams (
  id TEXT PRIMARY KEY,
  firm_name TEXT NOT NULL,
  leader_name TEXT NOT NULL,
  leader_email TEXT NOT NULL,
  question_version_id BIGINT NOT NULL REFERENCES question_versions(id),
  admin_token_hash TEXT NOT NULL UNIQUE,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS team_members (
  id TEXT PRIMARY KEY,
  team_id TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
  email TEXT NOT NULL,
  display_name TEXT,
  is_leader BOOLEAN NOT NULL DEFAULT FALSE,
  completed BOOLEAN NOT NULL DEFAULT FALSE,
  completed_at BIGINT,
  assessment_token_hash TEXT NOT NULL UNIQUE,
  alignment_score DOUBLE PRECISION,
  execution_score DOUBLE PRECISION,
  accountability_score DOUBLE PRECISION,
  subscales_json TEXT,
  responses_json TEXT,
  created_at BIGINT NOT NULL,
  UNIQUE (team_id, email)
);

CREATE TABLE IF NOT EXISTS team_reports (
  team_id TEXT PRIMARY KEY REFERENCES teams(id) ON DELETE CASCADE,
  report_token_hash TEXT NOT NULL UNIQUE,
  completion_count INTEGER NOT NULL,
  total_count INTEGER NOT NULL,
  scores_json TEXT NOT NULL,
  generated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS email_log (
  id BIGSERIAL PRIMARY KEY,
  team_id TEXT NOT NULL,
  member_id TEXT,
  email_type TEXT NOT NULL,
  recipient TEXT NOT NULL,
  success BOOLEAN NOT NULL,
  provider_message_id TEXT,
  error TEXT,
  created_at BIGINT NOT NULL
);
`
