package embed

import (
	"context"
	"errors"
)

// Purpose tags what kind of text is being embedded. Providers may route
// different purposes to different models.
type Purpose string

// Recognized purposes.
const (
	PurposeCode  Purpose = "code"
	PurposeProse Purpose = "prose"
)

// Mode distinguishes document embeddings (ingestion) from query
// embeddings (live search). Some providers embed the two asymmetrically.
type Mode string

// Recognized modes.
const (
	ModeDocument Mode = "document"
	ModeQuery    Mode = "query"
)

// Error values for consistent error handling by callers.
var (
	ErrMissingAPIKey = errors.New("embedding API key is required")
	ErrEmptyInput    = errors.New("no texts to embed")
)

// Provider turns text into vectors.
//
// Embed performs exactly one provider call over the given texts; callers
// that need batching, rate limiting, or retries wrap a Provider in a
// [Pipeline]. Output vectors are positionally aligned with the input.
type Provider interface {
	// EmbedQuery embeds a single live query text. Failures propagate
	// directly; there is no retry on this path.
	EmbedQuery(ctx context.Context, text string, purpose Purpose) ([]float32, error)

	// Embed embeds texts in one provider call, preserving input order.
	Embed(ctx context.Context, texts []string, purpose Purpose, mode Mode) ([][]float32, error)
}
