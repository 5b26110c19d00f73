package store

import (
	"context"
	"database/sql"
	_ "embed"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/mindspace/internal/domain"
)

//go:embed schema.sql
var schema string

// DBFileName is the default SQLite database name inside the data directory
const DBFileName = "mindspace.db"

// SchemaVersion is the latest schema version applied by migrate
const SchemaVersion = 1

// SQLitePersister keeps the history in an embedded SQLite database.
// Records are only ever inserted, never updated.
type SQLitePersister struct {
	db *sql.DB
}

// NewSQLitePersister opens (or creates) the database at dbPath
func NewSQLitePersister(dbPath string) (*SQLitePersister, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, goerr.Wrap(err, "failed to create db dir", goerr.V("path", dbPath))
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", dbPath))
	}
	// a single connection keeps writes serialized
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to migrate database", goerr.V("path", dbPath))
	}

	return &SQLitePersister{db: db}, nil
}

// Close closes the database connection
func (s *SQLitePersister) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`); err != nil {
		return goerr.Wrap(err, "failed to create schema_migrations")
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current); err != nil {
		return goerr.Wrap(err, "failed to read schema version")
	}
	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return goerr.Wrap(err, "failed to begin migration")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(schema); err != nil {
		return goerr.Wrap(err, "failed to init schema")
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?);`, SchemaVersion); err != nil {
		return goerr.Wrap(err, "failed to record schema version")
	}
	return tx.Commit()
}

// Load returns all records in insertion order
func (s *SQLitePersister) Load(ctx context.Context) ([]domain.MoodRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, mood, confidence, recorded_at FROM mood_records ORDER BY seq",
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list mood records")
	}
	defer rows.Close()

	records := []domain.MoodRecord{}
	for rows.Next() {
		var (
			r  domain.MoodRecord
			at string
		)
		if err := rows.Scan(&r.ID, &r.Mood, &r.Confidence, &at); err != nil {
			return nil, goerr.Wrap(err, "failed to scan mood record")
		}
		if r.Date, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, goerr.Wrap(err, "invalid recorded_at", goerr.V("id", r.ID), goerr.V("value", at))
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate mood records")
	}

	return records, nil
}

// Save inserts every record not yet stored, in order, in one transaction
func (s *SQLitePersister) Save(ctx context.Context, records []domain.MoodRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO mood_records (id, mood, confidence, recorded_at) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return goerr.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Mood, r.Confidence, r.Date.UTC().Format(time.RFC3339Nano)); err != nil {
			return goerr.Wrap(err, "failed to insert mood record", goerr.V("id", r.ID))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit mood records")
	}
	return nil
}
