package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used when no embedding model is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	APIKey string
	// BaseURL points at any OpenAI-compatible embeddings endpoint
	// (OpenAI itself, LM Studio, vLLM, ...).
	BaseURL string
	Model   string
}

// OpenAIClient implements Provider against an OpenAI-compatible
// embeddings API. Unlike Voyage, the same model serves both purposes and
// no input-type hint is supported, so Purpose and Mode are accepted for
// interface compatibility only.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates an OpenAI-compatible embedding provider.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// EmbedQuery embeds a single query text.
func (c *OpenAIClient) EmbedQuery(ctx context.Context, text string, purpose Purpose) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text}, purpose, ModeQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Embed embeds texts in one API call, preserving input order.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string, _ Purpose, _ Mode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embeddings request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}
