package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/loreseek/loreseek/config"
	"github.com/loreseek/loreseek/embed"
	"github.com/loreseek/loreseek/schema"
	"github.com/loreseek/loreseek/store"
	"github.com/loreseek/loreseek/tool"
)

// Search limit bounds shared by all search tools. Out-of-range values
// are clamped rather than rejected.
const (
	minLimit     = 1
	maxLimit     = 20
	defaultLimit = 5
)

// searchSpec builds the common search input schema plus one optional
// per-domain equality filter field.
func searchSpec(filterField, filterDesc string) schema.Spec {
	fields := map[string]schema.Field{
		"query": {
			Kind:        schema.KindString,
			Description: "Natural-language search query",
			Required:    true,
			MinLen:      1,
		},
		"limit": {
			Kind:        schema.KindNumber,
			Description: fmt.Sprintf("Maximum number of results (%d-%d)", minLimit, maxLimit),
			Default:     defaultLimit,
			Min:         schema.Float(minLimit),
			Max:         schema.Float(maxLimit),
			Clamp:       true,
		},
	}
	if filterField != "" {
		fields[filterField] = schema.Field{
			Kind:        schema.KindString,
			Description: filterDesc,
		}
	}
	return schema.Spec{Fields: fields}
}

// searchHandler returns a handler that embeds the query and searches
// the named table, optionally narrowing by one metadata field.
func searchHandler(table func(*config.Config) string, purpose embed.Purpose, filterField string) tool.Handler {
	return func(ctx context.Context, input map[string]any, tc *tool.Context) tool.Result {
		if tc.ConfigError != "" {
			return tool.Fail(tc.ConfigError)
		}
		if tc.Embedder == nil {
			return tool.Fail("embedding provider is not configured")
		}

		query := schema.String(input, "query")
		limit := schema.Int(input, "limit", defaultLimit)
		tbl := table(tc.Config)

		vector, err := tc.Embedder.EmbedQuery(ctx, query, purpose)
		if err != nil {
			return tool.Failf("failed to embed query: %v", err)
		}

		var filter store.Filter
		if filterField != "" {
			if v := schema.String(input, filterField); v != "" {
				filter = store.Filter{filterField: v}
			}
		}

		hits, err := tc.Store.Search(ctx, tbl, vector, store.SearchOptions{
			Limit:  limit,
			Filter: filter,
		})
		if errors.Is(err, store.ErrTableNotFound) {
			return tool.Failf("no %s data has been ingested yet; run `loreseek ingest` first", tbl)
		}
		if err != nil {
			return tool.Failf("search failed: %v", err)
		}

		if tc.Config != nil && tc.Config.Search.Hybrid && tc.Lexical != nil && filter == nil {
			hits = mergeLexical(ctx, tc, tbl, query, limit, hits)
		}

		return tool.OK(map[string]any{
			"query": query,
			"table": tbl,
			"hits":  hits,
		})
	}
}

// mergeLexical appends keyword matches after the similarity hits,
// deduplicated by record id and capped at limit. Lexical failures are
// silent: the vector hits alone are still a correct answer.
func mergeLexical(ctx context.Context, tc *tool.Context, table, query string, limit int, hits []store.Hit) []store.Hit {
	matches, err := tc.Lexical.Search(table, query, limit)
	if err != nil || len(matches) == 0 {
		return hits
	}

	seen := make(map[any]bool, len(hits))
	for _, h := range hits {
		seen[h.Data["id"]] = true
	}

	for _, m := range matches {
		if len(hits) >= limit {
			break
		}
		if seen[m.ID] {
			continue
		}
		rec, err := tc.Store.GetByID(ctx, table, m.ID)
		if err != nil {
			continue
		}
		hits = append(hits, store.Hit{Data: store.HitData(rec), Score: m.Score})
		seen[m.ID] = true
	}
	return hits
}

// SearchCode searches server code chunks semantically.
func SearchCode() tool.Definition {
	return tool.Definition{
		Name:        "search_code",
		Description: "Semantic search over server code: classes, methods, and hooks. Supports filtering by class name.",
		InputSchema: searchSpec("class", "Restrict results to one class"),
		Handler: searchHandler(func(c *config.Config) string {
			return c.Tables.Code
		}, embed.PurposeCode, "class"),
	}
}

// SearchClientCode searches client UI code chunks semantically.
func SearchClientCode() tool.Definition {
	return tool.Definition{
		Name:        "search_client_code",
		Description: "Semantic search over client UI code: windows, widgets, and event handlers. Supports filtering by source file.",
		InputSchema: searchSpec("file", "Restrict results to one source file"),
		Handler: searchHandler(func(c *config.Config) string {
			return c.Tables.ClientCode
		}, embed.PurposeCode, "file"),
	}
}

// SearchGamedata searches gamedata definitions semantically.
func SearchGamedata() tool.Definition {
	return tool.Definition{
		Name:        "search_gamedata",
		Description: "Semantic search over gamedata: items, spells, monsters, and other definitions. Supports filtering by category.",
		InputSchema: searchSpec("category", "Restrict results to one category"),
		Handler: searchHandler(func(c *config.Config) string {
			return c.Tables.Gamedata
		}, embed.PurposeProse, "category"),
	}
}

// SearchDocs searches documentation semantically.
func SearchDocs() tool.Definition {
	return tool.Definition{
		Name:        "search_docs",
		Description: "Semantic search over documentation: guides, references, and design notes. Supports filtering by document type.",
		InputSchema: searchSpec("type", "Restrict results to one document type"),
		Handler: searchHandler(func(c *config.Config) string {
			return c.Tables.Docs
		}, embed.PurposeProse, "type"),
	}
}
