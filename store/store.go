package store

import (
	"context"
	"errors"
)

// Sentinel errors for consistent error handling.
var (
	ErrTableNotFound  = errors.New("table not found")
	ErrRecordNotFound = errors.New("record not found")
	ErrNotConnected   = errors.New("store not connected")
)

// Record is one stored vector with its metadata.
type Record struct {
	ID     string
	Vector []float32
	Meta   map[string]any
}

// Hit is one search result. Data carries the record's id and metadata
// (the vector itself is omitted); Score is in [0, 1] with 1 = identical.
type Hit struct {
	Data  map[string]any `json:"data"`
	Score float64        `json:"score"`
}

// Stats summarizes a table.
type Stats struct {
	RowCount int64 `json:"rowCount"`
}

// Filter constrains search by metadata. A scalar value means equality;
// a nested map supports range predicates with the keys "gt", "gte",
// "lt", and "lte".
type Filter map[string]any

// SearchOptions configure a similarity search.
type SearchOptions struct {
	Limit  int
	Filter Filter
}

// Cursor pages through a table's raw records. Each page is bounded by
// the page size requested from QueryAll; an empty page means the cursor
// is exhausted. Cursors are restartable per QueryAll call and must not
// be shared across goroutines.
type Cursor interface {
	Next(ctx context.Context) ([]Record, error)
	Close() error
}

// VectorStore persists and queries vector records.
//
// Connect is idempotent: it must be safe to call once at startup and
// guarantees readiness for all subsequent calls on success, failing
// loudly when the backing path is invalid. Concurrent reads are safe;
// writes (ReplaceTable) are expected to run offline, not during serving.
type VectorStore interface {
	Connect(ctx context.Context) error
	Close() error

	TableExists(ctx context.Context, table string) (bool, error)
	GetStats(ctx context.Context, table string) (Stats, error)

	// Search returns hits ordered by descending score. The filter is
	// applied before scoring.
	Search(ctx context.Context, table string, vector []float32, opts SearchOptions) ([]Hit, error)

	// QueryAll returns a cursor over the table's records in bounded
	// pages, for aggregate scans that must not load the table at once.
	QueryAll(ctx context.Context, table string, pageSize int) (Cursor, error)

	// GetByID fetches one record, or ErrRecordNotFound.
	GetByID(ctx context.Context, table, id string) (Record, error)

	// ReplaceTable drops and recreates the table with the given records.
	ReplaceTable(ctx context.Context, table string, records []Record) error
}

// HitData builds the Hit payload for a record: the metadata fields plus
// the record id, vector omitted.
func HitData(rec Record) map[string]any {
	data := make(map[string]any, len(rec.Meta)+1)
	for k, v := range rec.Meta {
		data[k] = v
	}
	data["id"] = rec.ID
	return data
}
