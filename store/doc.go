// Package store provides pluggable vector storage and similarity search.
//
// [VectorStore] is the contract the rest of the system depends on. Two
// backends are included, selected by configuration:
//
//   - [SQLiteStore]: persistent storage in a single SQLite file, vectors
//     stored as little-endian float32 blobs, metadata as JSON
//   - [MemoryStore]: process-local storage for tests and ephemeral use
//
// # Tables
//
// A table is a named, independently addressable collection of records.
// Tables are the unit of search, drop-and-recreate, and statistics.
// Operations against a table that does not exist surface
// [ErrTableNotFound] so callers can point users at ingestion instead of
// leaking backend internals.
//
// # Scoring
//
// Search orders hits by descending similarity score, derived from cosine
// distance as score = 1 - distance and clamped into [0, 1]. Callers must
// not assume anything about the underlying distance beyond this contract.
//
// # Filters
//
// A [Filter] constrains search to records whose metadata matches
// equality or range predicates. Filters are applied before scoring, so a
// matching store never silently returns fewer than limit hits because of
// post-filtering.
package store
