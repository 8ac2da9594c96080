// Package casestore provides persistence for evaluated cases. A saved
// record keeps the submitted case document and the engine output so a
// clinician can revisit the rationale later.
package casestore

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// CaseKind distinguishes the evaluation pipelines a record came from.
type CaseKind string

const (
	KindNodule CaseKind = "nodule"
	KindCancer CaseKind = "cancer"
	KindTriage CaseKind = "triage"
)

// IsValid returns true for known case kinds.
func (k CaseKind) IsValid() bool {
	switch k {
	case KindNodule, KindCancer, KindTriage:
		return true
	}
	return false
}

// Record is one persisted evaluation.
type Record struct {
	ID          string          `json:"id"`
	Kind        CaseKind        `json:"kind"`
	Guideline   string          `json:"guideline,omitempty"`   // nodule records
	Disposition string          `json:"disposition,omitempty"` // headline action or stage group
	Payload     json.RawMessage `json:"payload"`               // submitted case document
	Results     json.RawMessage `json:"results"`               // engine output
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Store defines the interface for case record storage.
type Store interface {
	// Save inserts a record, or updates it when the ID already exists.
	Save(ctx context.Context, record *Record) error

	// Get retrieves a record by ID. A missing record returns (nil, nil).
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records newest first with pagination. Kind filters when
	// non-empty.
	List(ctx context.Context, kind CaseKind, limit, offset int) ([]*Record, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, id string) error

	// ExportJSON writes all records to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads an export document and inserts its records. Records
	// whose ID already exists are skipped, not overwritten.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export is the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Records    []*Record `json:"records"`
}
