package tools

import (
	"context"
	"errors"

	"github.com/loreseek/loreseek/config"
	"github.com/loreseek/loreseek/schema"
	"github.com/loreseek/loreseek/store"
	"github.com/loreseek/loreseek/tool"
)

// statsPageSize bounds the pages scanned while aggregating a table.
const statsPageSize = 256

// aggregator folds one record into the running stats and reports the
// final shape once the scan completes.
type aggregator interface {
	add(rec store.Record)
	result() map[string]any
}

// statsHandler returns a handler that scans the named table page by
// page and reports the aggregate built by newAgg. An absent or empty
// table is a failure with an ingestion hint, not an empty success.
func statsHandler(table func(*config.Config) string, newAgg func() aggregator) tool.Handler {
	return func(ctx context.Context, _ map[string]any, tc *tool.Context) tool.Result {
		tbl := table(tc.Config)

		exists, err := tc.Store.TableExists(ctx, tbl)
		if err != nil {
			return tool.Failf("failed to check table %s: %v", tbl, err)
		}
		if !exists {
			return notIngested(tbl)
		}

		stats, err := tc.Store.GetStats(ctx, tbl)
		if errors.Is(err, store.ErrTableNotFound) {
			return notIngested(tbl)
		}
		if err != nil {
			return tool.Failf("failed to read stats for %s: %v", tbl, err)
		}
		if stats.RowCount == 0 {
			return notIngested(tbl)
		}

		cursor, err := tc.Store.QueryAll(ctx, tbl, statsPageSize)
		if err != nil {
			return tool.Failf("failed to scan %s: %v", tbl, err)
		}
		defer cursor.Close()

		agg := newAgg()
		for {
			page, err := cursor.Next(ctx)
			if err != nil {
				return tool.Failf("failed to scan %s: %v", tbl, err)
			}
			if len(page) == 0 {
				break
			}
			for _, rec := range page {
				agg.add(rec)
			}
		}

		return tool.OK(agg.result())
	}
}

func notIngested(table string) tool.Result {
	return tool.Failf("no %s data has been ingested yet; run `loreseek ingest` first", table)
}

// metaString reads one metadata field as a string, "" when absent or
// not a string.
func metaString(rec store.Record, key string) string {
	s, _ := rec.Meta[key].(string)
	return s
}

// bump counts a possibly-empty key under "unknown".
func bump(counts map[string]int, key string) {
	if key == "" {
		key = "unknown"
	}
	counts[key]++
}

type codeAgg struct {
	total     int
	classes   map[string]bool
	byPackage map[string]int
}

func (a *codeAgg) add(rec store.Record) {
	a.total++
	if class := metaString(rec, "class"); class != "" {
		a.classes[class] = true
	}
	bump(a.byPackage, metaString(rec, "package"))
}

func (a *codeAgg) result() map[string]any {
	return map[string]any{
		"totalChunks":   a.total,
		"uniqueClasses": len(a.classes),
		"byPackage":     a.byPackage,
	}
}

type clientCodeAgg struct {
	total     int
	files     map[string]bool
	byElement map[string]int
}

func (a *clientCodeAgg) add(rec store.Record) {
	a.total++
	if file := metaString(rec, "file"); file != "" {
		a.files[file] = true
	}
	bump(a.byElement, metaString(rec, "element"))
}

func (a *clientCodeAgg) result() map[string]any {
	return map[string]any{
		"totalChunks": a.total,
		"uniqueFiles": len(a.files),
		"byElement":   a.byElement,
	}
}

type gamedataAgg struct {
	total      int
	byCategory map[string]int
}

func (a *gamedataAgg) add(rec store.Record) {
	a.total++
	bump(a.byCategory, metaString(rec, "category"))
}

func (a *gamedataAgg) result() map[string]any {
	return map[string]any{
		"totalItems": a.total,
		"byCategory": a.byCategory,
	}
}

type docsAgg struct {
	total      int
	byType     map[string]int
	byCategory map[string]int
}

func (a *docsAgg) add(rec store.Record) {
	a.total++
	bump(a.byType, metaString(rec, "type"))
	bump(a.byCategory, metaString(rec, "category"))
}

func (a *docsAgg) result() map[string]any {
	return map[string]any{
		"totalDocs":  a.total,
		"byType":     a.byType,
		"byCategory": a.byCategory,
	}
}

// CodeStats reports coverage of the server code table.
func CodeStats() tool.Definition {
	return tool.Definition{
		Name:        "code_stats",
		Description: "Aggregate statistics for indexed server code: chunk count, unique classes, and chunks per package.",
		InputSchema: schema.Spec{},
		Handler: statsHandler(func(c *config.Config) string {
			return c.Tables.Code
		}, func() aggregator {
			return &codeAgg{
				classes:   make(map[string]bool),
				byPackage: make(map[string]int),
			}
		}),
	}
}

// ClientCodeStats reports coverage of the client code table.
func ClientCodeStats() tool.Definition {
	return tool.Definition{
		Name:        "client_code_stats",
		Description: "Aggregate statistics for indexed client UI code: chunk count, unique source files, and chunks per UI element.",
		InputSchema: schema.Spec{},
		Handler: statsHandler(func(c *config.Config) string {
			return c.Tables.ClientCode
		}, func() aggregator {
			return &clientCodeAgg{
				files:     make(map[string]bool),
				byElement: make(map[string]int),
			}
		}),
	}
}

// GamedataStats reports coverage of the gamedata table.
func GamedataStats() tool.Definition {
	return tool.Definition{
		Name:        "gamedata_stats",
		Description: "Aggregate statistics for indexed gamedata: item count and items per category.",
		InputSchema: schema.Spec{},
		Handler: statsHandler(func(c *config.Config) string {
			return c.Tables.Gamedata
		}, func() aggregator {
			return &gamedataAgg{byCategory: make(map[string]int)}
		}),
	}
}

// DocsStats reports coverage of the docs table.
func DocsStats() tool.Definition {
	return tool.Definition{
		Name:        "docs_stats",
		Description: "Aggregate statistics for indexed documentation: document count, documents per type, and per category.",
		InputSchema: schema.Spec{},
		Handler: statsHandler(func(c *config.Config) string {
			return c.Tables.Docs
		}, func() aggregator {
			return &docsAgg{
				byType:     make(map[string]int),
				byCategory: make(map[string]int),
			}
		}),
	}
}
