package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// tablePrefix namespaces logical tables inside the SQLite file.
const tablePrefix = "kb_"

var tableNameRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// SQLiteStore is a VectorStore backed by a single SQLite database file.
// Vectors are stored as little-endian float32 blobs and metadata as
// JSON; similarity is computed in-process over the filtered candidate
// set.
type SQLiteStore struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

// NewSQLite creates a store for the database at path. Use ":memory:"
// for an ephemeral database. No I/O happens until Connect.
func NewSQLite(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Connect opens the database and verifies it is usable. Safe to call
// more than once; subsequent calls are no-ops after the first success.
func (s *SQLiteStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database %s: %w", s.path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite database %s is not usable: %w", s.path, err)
	}

	s.db = db
	return nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotConnected
	}
	return s.db, nil
}

func physicalName(table string) (string, error) {
	if !tableNameRe.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return tablePrefix + table, nil
}

// TableExists reports whether the table has been created.
func (s *SQLiteStore) TableExists(ctx context.Context, table string) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}
	name, err := physicalName(table)
	if err != nil {
		return false, err
	}

	var found string
	err = db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return true, nil
}

// GetStats returns row-count statistics for the table.
func (s *SQLiteStore) GetStats(ctx context.Context, table string) (Stats, error) {
	db, err := s.conn()
	if err != nil {
		return Stats{}, err
	}
	name, err := s.requireTable(ctx, table)
	if err != nil {
		return Stats{}, err
	}

	var count int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+name).Scan(&count); err != nil {
		return Stats{}, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return Stats{RowCount: count}, nil
}

// requireTable maps a missing table onto ErrTableNotFound.
func (s *SQLiteStore) requireTable(ctx context.Context, table string) (string, error) {
	exists, err := s.TableExists(ctx, table)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return physicalName(table)
}

// Search returns up to opts.Limit hits ordered by descending score. The
// metadata filter is pushed into SQL so the candidate set is constrained
// before any scoring happens.
func (s *SQLiteStore) Search(ctx context.Context, table string, vector []float32, opts SearchOptions) ([]Hit, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	name, err := s.requireTable(ctx, table)
	if err != nil {
		return nil, err
	}

	where, args, err := filterClause(opts.Filter)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, vector, meta FROM `+name+where, args...)
	if err != nil {
		return nil, fmt.Errorf("search query on %s failed: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var hits []Hit
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{
			Data:  HitData(rec),
			Score: cosineScore(vector, rec.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	limit := opts.Limit
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// filterClause renders a Filter as a parameterized WHERE clause over
// json_extract'ed metadata fields.
func filterClause(filter Filter) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var conds []string
	var args []any
	for _, field := range fields {
		if !tableNameRe.MatchString(field) {
			return "", nil, fmt.Errorf("invalid filter field %q", field)
		}
		expr := fmt.Sprintf("json_extract(meta, '$.%s')", field)

		switch v := filter[field].(type) {
		case map[string]any:
			ops := make([]string, 0, len(v))
			for op := range v {
				ops = append(ops, op)
			}
			sort.Strings(ops)
			for _, op := range ops {
				sqlOp, ok := map[string]string{"gt": ">", "gte": ">=", "lt": "<", "lte": "<="}[op]
				if !ok {
					return "", nil, fmt.Errorf("unsupported filter operator %q on field %q", op, field)
				}
				conds = append(conds, fmt.Sprintf("%s %s ?", expr, sqlOp))
				args = append(args, v[op])
			}
		default:
			conds = append(conds, expr+" = ?")
			args = append(args, v)
		}
	}

	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var blob []byte
	var meta string
	if err := row.Scan(&rec.ID, &blob, &meta); err != nil {
		return Record{}, fmt.Errorf("failed to scan record: %w", err)
	}
	rec.Vector = decodeVector(blob)
	if err := json.Unmarshal([]byte(meta), &rec.Meta); err != nil {
		return Record{}, fmt.Errorf("corrupt metadata for record %s: %w", rec.ID, err)
	}
	return rec, nil
}

// GetByID fetches one record by id.
func (s *SQLiteStore) GetByID(ctx context.Context, table, id string) (Record, error) {
	db, err := s.conn()
	if err != nil {
		return Record{}, err
	}
	name, err := s.requireTable(ctx, table)
	if err != nil {
		return Record{}, err
	}

	row := db.QueryRowContext(ctx, `SELECT id, vector, meta FROM `+name+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s/%s", ErrRecordNotFound, table, id)
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// QueryAll returns a keyset-paginated cursor over the table.
func (s *SQLiteStore) QueryAll(ctx context.Context, table string, pageSize int) (Cursor, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	name, err := s.requireTable(ctx, table)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = 256
	}
	return &sqliteCursor{db: db, table: name, pageSize: pageSize}, nil
}

type sqliteCursor struct {
	db       *sql.DB
	table    string
	pageSize int
	lastID   string
	done     bool
}

func (c *sqliteCursor) Next(ctx context.Context) ([]Record, error) {
	if c.done {
		return nil, nil
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, vector, meta FROM `+c.table+` WHERE id > ? ORDER BY id LIMIT ?`,
		c.lastID, c.pageSize)
	if err != nil {
		return nil, fmt.Errorf("scan query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	page := make([]Record, 0, c.pageSize)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		page = append(page, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(page) > 0 {
		c.lastID = page[len(page)-1].ID
	}
	if len(page) < c.pageSize {
		c.done = true
	}
	return page, nil
}

func (c *sqliteCursor) Close() error {
	c.done = true
	return nil
}

// ReplaceTable drops and recreates the table with the given records in
// a single transaction.
func (s *SQLiteStore) ReplaceTable(ctx context.Context, table string, records []Record) (retErr error) {
	db, err := s.conn()
	if err != nil {
		return err
	}
	name, err := physicalName(table)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+name); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx,
		`CREATE TABLE `+name+` (id TEXT PRIMARY KEY, vector BLOB NOT NULL, meta TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+name+` (id, vector, meta) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		meta, err := json.Marshal(rec.Meta)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, encodeVector(rec.Vector), string(meta)); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// encodeVector serializes a float32 slice as a little-endian byte slice.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector deserializes a little-endian byte slice to float32s.
func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
