package embed

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// Pipeline defaults.
const (
	DefaultBatchSize = 128
	DefaultMaxTries  = 3
)

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// BatchSize is the number of texts per provider call.
	BatchSize int
	// RateLimit is the minimum delay between successive provider calls,
	// enforced regardless of how fast the provider responds.
	RateLimit time.Duration
	// MaxTries is the number of attempts per batch before the whole
	// operation fails.
	MaxTries int
}

// Progress reports cumulative texts embedded so far. current is
// monotonically non-decreasing and reaches total exactly once on success.
type Progress func(current, total int)

// Pipeline is the bulk embedding path used during ingestion. It batches
// texts, rate-limits provider calls, retries failed batches with
// exponential backoff, and reports progress after each batch.
type Pipeline struct {
	provider  Provider
	batchSize int
	limiter   *rate.Limiter
	maxTries  int
}

// NewPipeline wraps a provider with batching, rate limiting, and retries.
func NewPipeline(provider Provider, cfg PipelineConfig) *Pipeline {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	maxTries := cfg.MaxTries
	if maxTries <= 0 {
		maxTries = DefaultMaxTries
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Every(cfg.RateLimit)
	}

	return &Pipeline{
		provider:  provider,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(limit, 1),
		maxTries:  maxTries,
	}
}

// EmbedBatch embeds all texts and returns vectors positionally aligned
// with the input, regardless of the batch size used internally.
//
// The operation is all-or-nothing: a batch that exhausts its retries
// fails the whole call and no partial results are returned. EmbedBatch
// has no side effects on the caller's state, so a failed run is safe to
// retry from scratch.
func (p *Pipeline) EmbedBatch(ctx context.Context, texts []string, purpose Purpose, mode Mode, onProgress Progress) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	total := len(texts)
	vectors := make([][]float32, 0, total)

	for start := 0; start < total; start += p.batchSize {
		end := min(start+p.batchSize, total)
		batch := texts[start:end]

		// Cooperative rate limiting: wait out the inter-call delay even
		// when the previous call was slow to respond.
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		batchVectors, err := backoff.Retry(ctx, func() ([][]float32, error) {
			return p.provider.Embed(ctx, batch, purpose, mode)
		},
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxTries(uint(p.maxTries)),
		)
		if err != nil {
			return nil, fmt.Errorf("embedding texts %d-%d of %d failed: %w", start+1, end, total, err)
		}
		if len(batchVectors) != len(batch) {
			return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(batchVectors), len(batch))
		}

		vectors = append(vectors, batchVectors...)
		if onProgress != nil {
			onProgress(len(vectors), total)
		}
	}

	return vectors, nil
}
