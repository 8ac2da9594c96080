package casestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL case store.
// It expects the cases table to already exist.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL case store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Save inserts a record, or updates it when the ID already exists.
func (s *PostgresStore) Save(ctx context.Context, record *Record) error {
	if !record.Kind.IsValid() {
		return fmt.Errorf("invalid case kind %q", record.Kind)
	}
	now := time.Now()
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	query := `
		INSERT INTO cases (
			id, kind, guideline, disposition,
			payload, results, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			guideline = EXCLUDED.guideline,
			disposition = EXCLUDED.disposition,
			payload = EXCLUDED.payload,
			results = EXCLUDED.results,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		record.ID,
		string(record.Kind),
		record.Guideline,
		record.Disposition,
		string(record.Payload),
		string(record.Results),
		record.Notes,
		now,
		now,
	).Scan(&record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save case: %w", err)
	}

	record.UpdatedAt = now
	return nil
}

// Get retrieves a record by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, kind, guideline, disposition,
			payload, results, notes, created_at, updated_at
		FROM cases
		WHERE id = $1
		LIMIT 1
	`

	rec := &Record{}
	var kind string
	var payload, results []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &kind, &rec.Guideline, &rec.Disposition,
		&payload, &results, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}

	rec.Kind = CaseKind(kind)
	rec.Payload = json.RawMessage(payload)
	rec.Results = json.RawMessage(results)
	return rec, nil
}

// List returns records newest first with pagination.
func (s *PostgresStore) List(ctx context.Context, kind CaseKind, limit, offset int) ([]*Record, error) {
	query := `
		SELECT id, kind, guideline, disposition,
			payload, results, notes, created_at, updated_at
		FROM cases
	`
	args := []interface{}{}
	if kind != "" {
		query += " WHERE kind = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3"
		args = append(args, string(kind), limit, offset)
	} else {
		query += " ORDER BY created_at DESC LIMIT $1 OFFSET $2"
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec := &Record{}
		var rowKind string
		var payload, results []byte

		err := rows.Scan(
			&rec.ID, &rowKind, &rec.Guideline, &rec.Disposition,
			&payload, &results, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rec.Kind = CaseKind(rowKind)
		rec.Payload = json.RawMessage(payload)
		rec.Results = json.RawMessage(results)
		result = append(result, rec)
	}

	return result, rows.Err()
}

// Count returns the total number of records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cases").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cases: %w", err)
	}
	return count, nil
}

// Delete removes a record by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cases WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete case: %w", err)
	}
	return nil
}

// pgMaxExportLimit is the maximum number of entries to export at once.
const pgMaxExportLimit = 1000000

// ExportJSON writes all records to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, "", pgMaxExportLimit, 0)
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
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
