// Package lexical provides a keyword index used for hybrid retrieval.
//
// Each table gets its own bleve index under a base directory. Lexical
// matches complement vector search: the search tools merge them after
// the similarity hits, deduplicated by record id, so exact keyword
// matches surface even when an embedding ranks them poorly.
package lexical

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// Doc is one indexable unit: the record id plus its searchable text.
type Doc struct {
	ID   string
	Text string
}

// Match is one lexical search result. Score is normalized by the best
// score in the result set, so it lands in (0, 1].
type Match struct {
	ID    string
	Score float64
}

// Index manages per-table bleve indexes under a base directory.
type Index struct {
	base string

	mu      sync.Mutex
	indexes map[string]bleve.Index
}

// Open prepares an Index rooted at base, creating the directory if
// needed. Table indexes are opened lazily.
func Open(base string) (*Index, error) {
	if base == "" {
		return nil, errors.New("lexical index path is required")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lexical index directory: %w", err)
	}
	return &Index{
		base:    base,
		indexes: make(map[string]bleve.Index),
	}, nil
}

func (x *Index) tablePath(table string) string {
	return filepath.Join(x.base, table+".bleve")
}

// open returns the bleve index for table, creating it when create is
// set. Returns nil without error when the index does not exist and
// create is false.
func (x *Index) open(table string, create bool) (bleve.Index, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if idx, ok := x.indexes[table]; ok {
		return idx, nil
	}

	path := x.tablePath(table)
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		if !create {
			return nil, nil
		}
		idx, err = bleve.New(path, bleve.NewIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open lexical index for %s: %w", table, err)
	}

	x.indexes[table] = idx
	return idx, nil
}

// Replace rebuilds the table's index from scratch with the given docs.
func (x *Index) Replace(table string, docs []Doc) error {
	x.mu.Lock()
	if idx, ok := x.indexes[table]; ok {
		_ = idx.Close()
		delete(x.indexes, table)
	}
	x.mu.Unlock()

	if err := os.RemoveAll(x.tablePath(table)); err != nil {
		return fmt.Errorf("failed to clear lexical index for %s: %w", table, err)
	}

	idx, err := x.open(table, true)
	if err != nil {
		return err
	}

	batch := idx.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, map[string]any{"text": doc.Text}); err != nil {
			return fmt.Errorf("failed to index doc %s: %w", doc.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return fmt.Errorf("failed to commit lexical batch for %s: %w", table, err)
	}
	return nil
}

// Search returns up to limit keyword matches for query, scores
// normalized into (0, 1]. A table that was never indexed yields no
// matches rather than an error.
func (x *Index) Search(table, query string, limit int) ([]Match, error) {
	idx, err := x.open(table, false)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), limit, 0, false)
	res, err := idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("lexical search on %s failed: %w", table, err)
	}

	matches := make([]Match, 0, len(res.Hits))
	for _, hit := range res.Hits {
		score := hit.Score
		if res.MaxScore > 0 {
			score = hit.Score / res.MaxScore
		}
		matches = append(matches, Match{ID: hit.ID, Score: score})
	}
	return matches, nil
}

// Close releases all open table indexes.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	var errs []error
	for table, idx := range x.indexes {
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", table, err))
		}
		delete(x.indexes, table)
	}
	return errors.Join(errs...)
}
