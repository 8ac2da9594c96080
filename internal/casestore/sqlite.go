package casestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite case store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a row into a Record struct.
func scanRecord(s scanner) (*Record, error) {
	rec := &Record{}
	var kind string
	var payload, results []byte

	err := s.Scan(
		&rec.ID, &kind, &rec.Guideline, &rec.Disposition,
		&payload, &results, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Kind = CaseKind(kind)
	rec.Payload = json.RawMessage(payload)
	rec.Results = json.RawMessage(results)
	return rec, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS cases (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		guideline TEXT DEFAULT '',
		disposition TEXT DEFAULT '',
		payload TEXT NOT NULL,
		results TEXT NOT NULL,
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_cases_kind ON cases(kind);
	CREATE INDEX IF NOT EXISTS idx_cases_created_at ON cases(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save inserts a record, or updates it when the ID already exists. A record
// without an ID gets one assigned.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	if !record.Kind.IsValid() {
		return fmt.Errorf("invalid case kind %q", record.Kind)
	}
	now := time.Now()

	if record.ID == "" {
		record.ID = uuid.New().String()
		record.CreatedAt = now
		record.UpdatedAt = now

		_, err := s.db.ExecContext(ctx, `
			INSERT INTO cases (
				id, kind, guideline, disposition,
				payload, results, notes, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			record.ID,
			string(record.Kind),
			record.Guideline,
			record.Disposition,
			string(record.Payload),
			string(record.Results),
			record.Notes,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert: %w", err)
		}
		return nil
	}

	record.UpdatedAt = now
	result, err := s.db.ExecContext(ctx, `
		UPDATE cases SET
			kind = ?,
			guideline = ?,
			disposition = ?,
			payload = ?,
			results = ?,
			notes = ?,
			updated_at = ?
		WHERE id = ?
	`,
		string(record.Kind),
		record.Guideline,
		record.Disposition,
		string(record.Payload),
		string(record.Results),
		record.Notes,
		now,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		// Caller supplied a fresh ID, insert instead.
		record.CreatedAt = now
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO cases (
				id, kind, guideline, disposition,
				payload, results, notes, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			record.ID,
			string(record.Kind),
			record.Guideline,
			record.Disposition,
			string(record.Payload),
			string(record.Results),
			record.Notes,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert: %w", err)
		}
	}
	return nil
}

// Get retrieves a record by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, guideline, disposition,
			payload, results, notes, created_at, updated_at
		FROM cases
		WHERE id = ?
		LIMIT 1
	`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// List returns records newest first with pagination.
func (s *SQLiteStore) List(ctx context.Context, kind CaseKind, limit, offset int) ([]*Record, error) {
	query := `
		SELECT id, kind, guideline, disposition,
			payload, results, notes, created_at, updated_at
		FROM cases
	`
	args := []interface{}{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Count returns the total number of records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cases").Scan(&count)
	return count, err
}

// Delete removes a record by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cases WHERE id = ?", id)
	return err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON writes all records to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, "", maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list cases: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Records:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports case records from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rec := range export.Records {
		if rec.ID != "" {
			existing, err := s.Get(ctx, rec.ID)
			if err != nil {
				return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
			}
			if existing != nil {
				skipped++
				continue
			}
		}

		if err := s.Save(ctx, rec); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
