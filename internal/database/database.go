package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"plateserver/internal/config"
)

const (
	TableDetections       = "detections"
	TableAuthorizedPlates = "authorized_plates"
)

// DB is the shared store handle used by every repository.
type DB struct {
	conn    *sql.DB
	dialect string
}

// Open connects to the store described by cfg, verifies connectivity and
// creates any missing tables. A failed ping is returned as an error and the
// handle is closed.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	driverName, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	} else {
		conn.SetMaxOpenConns(20)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	db := New(conn, cfg.Driver)
	if err := db.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// New wraps an already opened connection pool.
func New(conn *sql.DB, dialect string) *DB {
	return &DB{conn: conn, dialect: dialect}
}

func dataSource(cfg config.DatabaseConfig) (driverName, dsn string, err error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return "pgx", PostgresDSN(cfg), nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return "", "", fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return "sqlite3", cfg.SQLitePath + "?_journal_mode=WAL&_busy_timeout=5000", nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// PostgresDSN builds a key=value connection string from individual credentials.
// Every string value is quoted so spaces and quotes survive.
func PostgresDSN(cfg config.DatabaseConfig) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		quoteDSNValue(cfg.Host), cfg.Port, quoteDSNValue(cfg.Name), quoteDSNValue(sslmode))
	if cfg.User != "" {
		dsn += " user=" + quoteDSNValue(cfg.User)
	}
	if cfg.Password != "" {
		dsn += " password=" + quoteDSNValue(cfg.Password)
	}
	return dsn
}

func quoteDSNValue(v string) string {
	return "'" + escapeDSNValue(v) + "'"
}

func escapeDSNValue(v string) string {
	out := make([]rune, 0, len(v))
	for _, r := range v {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

// Migrate creates the necessary tables if they don't exist.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema(db.dialect) {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func schema(dialect string) []string {
	if dialect == config.DriverSQLite {
		return []string{
			`CREATE TABLE IF NOT EXISTS detections (
				id INTEGER PRIMARY KEY,
				date TEXT,
				time TEXT NOT NULL,
				track_id INTEGER NOT NULL,
				class_name TEXT NOT NULL,
				numberplate TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_detections_track_id ON detections(track_id)`,
			`CREATE INDEX IF NOT EXISTS idx_detections_numberplate ON detections(numberplate)`,
			`CREATE TABLE IF NOT EXISTS authorized_plates (
				plate_number TEXT PRIMARY KEY,
				owner_name TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
			)`,
		}
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS detections (
			id BIGSERIAL PRIMARY KEY,
			date VARCHAR,
			time VARCHAR NOT NULL,
			track_id BIGINT NOT NULL,
			class_name VARCHAR NOT NULL,
			numberplate VARCHAR NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_detections_track_id ON detections(track_id)`,
		`CREATE INDEX IF NOT EXISTS idx_detections_numberplate ON detections(numberplate)`,
		`CREATE TABLE IF NOT EXISTS authorized_plates (
			plate_number VARCHAR PRIMARY KEY,
			owner_name VARCHAR,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			seq BIGSERIAL NOT NULL
		)`,
	}
}

// TruncateStatement returns the single statement that empties table and
// resets its id sequence.
func (db *DB) TruncateStatement(table string) string {
	if db.dialect == config.DriverSQLite {
		// INTEGER PRIMARY KEY without AUTOINCREMENT restarts at 1 once the table is empty.
		return "DELETE FROM " + table
	}
	return "TRUNCATE TABLE " + table + " RESTART IDENTITY"
}

// InsertionKey returns the column that grows with every insert into
// authorized_plates. It breaks ties between rows created in the same instant.
func (db *DB) InsertionKey() string {
	if db.dialect == config.DriverSQLite {
		return "rowid"
	}
	return "seq"
}

// Ping checks that the store still answers.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Dialect returns the configured driver name.
func (db *DB) Dialect() string {
	return db.dialect
}
