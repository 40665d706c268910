package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is a process-local VectorStore. It backs tests and the
// "memory" provider option; contents are lost on process exit.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]Record)}
}

// Connect is a no-op for the in-memory backend.
func (s *MemoryStore) Connect(context.Context) error { return nil }

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close() error { return nil }

// TableExists reports whether the table has been created.
func (s *MemoryStore) TableExists(_ context.Context, table string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tables[table]
	return ok, nil
}

func (s *MemoryStore) records(table string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return records, nil
}

// GetStats returns row-count statistics for the table.
func (s *MemoryStore) GetStats(_ context.Context, table string) (Stats, error) {
	records, err := s.records(table)
	if err != nil {
		return Stats{}, err
	}
	return Stats{RowCount: int64(len(records))}, nil
}

// Search returns up to opts.Limit hits ordered by descending score.
func (s *MemoryStore) Search(_ context.Context, table string, vector []float32, opts SearchOptions) ([]Hit, error) {
	records, err := s.records(table)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for _, rec := range records {
		if !matchesFilter(rec.Meta, opts.Filter) {
			continue
		}
		hits = append(hits, Hit{
			Data:  HitData(rec),
			Score: cosineScore(vector, rec.Vector),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

func matchesFilter(meta map[string]any, filter Filter) bool {
	for field, cond := range filter {
		value, ok := meta[field]
		if !ok {
			return false
		}
		switch c := cond.(type) {
		case map[string]any:
			for op, bound := range c {
				if !compare(value, op, bound) {
					return false
				}
			}
		default:
			if fmt.Sprintf("%v", value) != fmt.Sprintf("%v", cond) {
				return false
			}
		}
	}
	return true
}

func compare(value any, op string, bound any) bool {
	v, okV := toNumber(value)
	b, okB := toNumber(bound)
	if !okV || !okB {
		return false
	}
	switch op {
	case "gt":
		return v > b
	case "gte":
		return v >= b
	case "lt":
		return v < b
	case "lte":
		return v <= b
	default:
		return false
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// GetByID fetches one record by id.
func (s *MemoryStore) GetByID(_ context.Context, table, id string) (Record, error) {
	records, err := s.records(table)
	if err != nil {
		return Record{}, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, table, id)
}

// QueryAll returns a cursor over a snapshot of the table.
func (s *MemoryStore) QueryAll(_ context.Context, table string, pageSize int) (Cursor, error) {
	records, err := s.records(table)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = 256
	}

	snapshot := make([]Record, len(records))
	copy(snapshot, records)
	return &memoryCursor{records: snapshot, pageSize: pageSize}, nil
}

type memoryCursor struct {
	records  []Record
	pageSize int
	offset   int
}

func (c *memoryCursor) Next(context.Context) ([]Record, error) {
	if c.offset >= len(c.records) {
		return nil, nil
	}
	end := min(c.offset+c.pageSize, len(c.records))
	page := c.records[c.offset:end]
	c.offset = end
	return page, nil
}

func (c *memoryCursor) Close() error {
	c.offset = len(c.records)
	return nil
}

// ReplaceTable drops and recreates the table with the given records.
func (s *MemoryStore) ReplaceTable(_ context.Context, table string, records []Record) error {
	copied := make([]Record, len(records))
	copy(copied, records)

	s.mu.Lock()
	s.tables[table] = copied
	s.mu.Unlock()
	return nil
}
