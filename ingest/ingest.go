// Package ingest builds the vector tables from pre-parsed knowledge
// chunks. Parsing stays outside the server: the ingest command reads
// chunk files produced by the extraction tooling, embeds their text in
// bulk, and atomically replaces the target table.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/loreseek/loreseek/embed"
	"github.com/loreseek/loreseek/lexical"
	"github.com/loreseek/loreseek/logger"
	"github.com/loreseek/loreseek/store"
)

// Chunk is one indexable unit of knowledge. Content is what the user
// sees in a hit; TextForEmbedding is what gets embedded, which may add
// context the raw content lacks (class names, file paths).
type Chunk struct {
	ID               string         `json:"id"`
	Content          string         `json:"content"`
	TextForEmbedding string         `json:"text_for_embedding,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// embedText picks the text to embed for a chunk.
func (c Chunk) embedText() string {
	if c.TextForEmbedding != "" {
		return c.TextForEmbedding
	}
	return c.Content
}

// ParseResult is what a parser hands to the runner: the chunks it
// extracted plus non-fatal problems it skipped over.
type ParseResult struct {
	Chunks []Chunk
	Errors []string
}

// Parser turns a source into chunks. Implementations live outside this
// module; LoadChunksFile adapts pre-parsed JSON files to the contract.
type Parser interface {
	Parse(ctx context.Context) (ParseResult, error)
}

// Runner embeds parsed chunks and replaces the target table and its
// lexical index. One Runner serves any number of tables sequentially.
type Runner struct {
	pipeline *embed.Pipeline
	store    store.VectorStore
	lexical  *lexical.Index
	purpose  embed.Purpose
}

// NewRunner builds a runner. lex may be nil when hybrid search is off.
func NewRunner(pipeline *embed.Pipeline, st store.VectorStore, lex *lexical.Index, purpose embed.Purpose) *Runner {
	return &Runner{pipeline: pipeline, store: st, lexical: lex, purpose: purpose}
}

// Run embeds every chunk and replaces table with the result. The old
// table contents survive any failure: nothing is written until the
// whole batch embedded successfully.
func (r *Runner) Run(ctx context.Context, table string, result ParseResult) error {
	for _, msg := range result.Errors {
		logger.Warnf("ingest %s: %s", table, msg)
	}
	if len(result.Chunks) == 0 {
		return fmt.Errorf("no chunks to ingest into %s", table)
	}

	texts := make([]string, len(result.Chunks))
	for i, chunk := range result.Chunks {
		texts[i] = chunk.embedText()
	}

	logger.Infow("embedding chunks", "table", table, "count", len(texts))
	vectors, err := r.pipeline.EmbedBatch(ctx, texts, r.purpose, embed.ModeDocument,
		func(done, total int) {
			logger.Infow("embedding progress", "table", table, "done", done, "total", total)
		})
	if err != nil {
		return fmt.Errorf("embedding failed for %s: %w", table, err)
	}

	records := make([]store.Record, len(result.Chunks))
	for i, chunk := range result.Chunks {
		meta := make(map[string]any, len(chunk.Metadata)+1)
		for k, v := range chunk.Metadata {
			meta[k] = v
		}
		meta["content"] = chunk.Content
		records[i] = store.Record{ID: chunk.ID, Vector: vectors[i], Meta: meta}
	}

	if err := r.store.ReplaceTable(ctx, table, records); err != nil {
		return fmt.Errorf("failed to replace table %s: %w", table, err)
	}

	if r.lexical != nil {
		docs := make([]lexical.Doc, len(result.Chunks))
		for i, chunk := range result.Chunks {
			docs[i] = lexical.Doc{ID: chunk.ID, Text: chunk.Content}
		}
		if err := r.lexical.Replace(table, docs); err != nil {
			return fmt.Errorf("failed to rebuild lexical index for %s: %w", table, err)
		}
	}

	logger.Infow("table ingested", "table", table, "records", len(records))
	return nil
}

// fileParser adapts a pre-parsed chunk JSON file to the Parser contract.
type fileParser struct {
	path string
}

// LoadChunksFile returns a Parser over a JSON file holding an array of
// chunks. Chunks without an id or content are reported as parse errors
// and skipped.
func LoadChunksFile(path string) Parser {
	return fileParser{path: path}
}

func (p fileParser) Parse(context.Context) (ParseResult, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return ParseResult{}, fmt.Errorf("failed to read %s: %w", p.path, err)
	}

	var chunks []Chunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return ParseResult{}, fmt.Errorf("failed to parse %s: %w", p.path, err)
	}

	result := ParseResult{Chunks: make([]Chunk, 0, len(chunks))}
	for i, chunk := range chunks {
		if chunk.ID == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("chunk %d has no id, skipped", i))
			continue
		}
		if chunk.Content == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("chunk %s has no content, skipped", chunk.ID))
			continue
		}
		result.Chunks = append(result.Chunks, chunk)
	}
	return result, nil
}
