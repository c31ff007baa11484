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
			dsn = "file:visitor-gateway.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/visitors?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
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
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS patients (
  patient_id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  ward TEXT NOT NULL DEFAULT '',
  allowed_visit_hours TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS visitors (
  visitor_id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  contact_number TEXT NOT NULL,
  address TEXT,
  purpose TEXT,
  patient_id INTEGER REFERENCES patients(patient_id),
  check_in_time INTEGER NOT NULL,
  check_out_time INTEGER,
  id_proof TEXT,   -- object name in the blob container, NULL until upload commits
  qr_code TEXT     -- check-in token rendering (data URL)
);

CREATE TABLE IF NOT EXISTS staff (
  username TEXT PRIMARY KEY,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'staff'
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS patients (
  patient_id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  ward TEXT NOT NULL DEFAULT '',
  allowed_visit_hours TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS visitors (
  visitor_id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  contact_number TEXT NOT NULL,
  address TEXT,
  purpose TEXT,
  patient_id BIGINT REFERENCES patients(patient_id),
  check_in_time BIGINT NOT NULL,
  check_out_time BIGINT,
  id_proof TEXT,
  qr_code TEXT
);

CREATE TABLE IF NOT EXISTS staff (
  username TEXT PRIMARY KEY,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'staff'
);
`
