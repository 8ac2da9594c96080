package casestore

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStore creates a SQLite store in a temp directory.
func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	return store
}

func testRecord(kind CaseKind) *Record {
	return &Record{
		Kind:        kind,
		Guideline:   "ATA",
		Disposition: "FNA_PRIMARY",
		Payload:     json.RawMessage(`{"tsh": 2.0, "features": {"composition": "solid"}}`),
		Results:     json.RawMessage(`{"action": "FNA_PRIMARY"}`),
		Notes:       "initial workup",
	}
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "cases.db")

	store, err := NewSQLiteStore(dbPath)

	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	// The store creates missing parent directories.
	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_Save(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	rec := testRecord(KindNodule)

	err := store.Save(ctx, rec)

	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID, "ID should be assigned")
	assert.False(t, rec.CreatedAt.IsZero(), "CreatedAt should be set")
	assert.False(t, rec.UpdatedAt.IsZero(), "UpdatedAt should be set")
}

func TestSQLiteStore_SaveInvalidKind(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	err := store.Save(context.Background(), &Record{Kind: "unknown"})

	assert.Error(t, err)
}

func TestSQLiteStore_SaveWithCallerID(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	rec := testRecord(KindCancer)
	rec.ID = "case-123"

	// Insert path for an ID the store has never seen.
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, "case-123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, KindCancer, got.Kind)
}

func TestSQLiteStore_SaveUpdatesExisting(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	rec := testRecord(KindNodule)
	require.NoError(t, store.Save(ctx, rec))

	rec.Disposition = "US_SURVEILLANCE"
	rec.Notes = "benign cytology returned"
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "US_SURVEILLANCE", got.Disposition)
	assert.Equal(t, "benign cytology returned", got.Notes)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "Update should not create a second row")
}

func TestSQLiteStore_GetNotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	got, err := store.Get(context.Background(), "does-not-exist")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_GetRoundTrip(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	rec := testRecord(KindTriage)
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, KindTriage, got.Kind)
	assert.Equal(t, "ATA", got.Guideline)
	assert.JSONEq(t, string(rec.Payload), string(got.Payload))
	assert.JSONEq(t, string(rec.Results), string(got.Results))
}

func TestSQLiteStore_ListByKind(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testRecord(KindNodule)))
	require.NoError(t, store.Save(ctx, testRecord(KindNodule)))
	require.NoError(t, store.Save(ctx, testRecord(KindCancer)))

	nodules, err := store.List(ctx, KindNodule, 10, 0)
	require.NoError(t, err)
	assert.Len(t, nodules, 2)
	for _, rec := range nodules {
		assert.Equal(t, KindNodule, rec.Kind)
	}

	all, err := store.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteStore_ListPagination(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, testRecord(KindNodule)))
	}

	page, err := store.List(ctx, "", 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := store.List(ctx, "", 10, 4)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestSQLiteStore_Count(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	require.NoError(t, store.Save(ctx, testRecord(KindNodule)))
	require.NoError(t, store.Save(ctx, testRecord(KindCancer)))

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	rec := testRecord(KindNodule)
	require.NoError(t, store.Save(ctx, rec))

	require.NoError(t, store.Delete(ctx, rec.ID))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testRecord(KindNodule)))
	require.NoError(t, store.Save(ctx, testRecord(KindCancer)))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	var export Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, "1.0", export.Version)
	assert.Equal(t, 2, export.Count)
	assert.Len(t, export.Records, 2)
	assert.False(t, export.ExportedAt.IsZero())
}

func TestSQLiteStore_ImportJSON(t *testing.T) {
	source := createTestStore(t)
	defer source.Close()

	ctx := context.Background()
	require.NoError(t, source.Save(ctx, testRecord(KindNodule)))
	require.NoError(t, source.Save(ctx, testRecord(KindCancer)))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))

	dest := createTestStore(t)
	defer dest.Close()

	imported, skipped, err := dest.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 0, skipped)

	// Importing the same document again skips every record.
	imported, skipped, err = dest.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 2, skipped)

	count, err := dest.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_ImportJSONMalformed(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, _, err := store.ImportJSON(context.Background(), bytes.NewBufferString("not json"))
	assert.Error(t, err)
}
