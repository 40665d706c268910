package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Defaults for the Voyage AI embeddings API.
const (
	DefaultVoyageBaseURL    = "https://api.voyageai.com"
	DefaultVoyageCodeModel  = "voyage-code-3"
	DefaultVoyageProseModel = "voyage-3-large"

	voyageEmbedPath      = "/v1/embeddings"
	defaultVoyageTimeout = 60 * time.Second
)

// VoyageConfig configures a VoyageClient.
type VoyageConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint, useful for proxies and tests.
	BaseURL string
	// CodeModel and ProseModel select the model per Purpose.
	CodeModel  string
	ProseModel string
	Timeout    time.Duration
}

// VoyageClient implements Provider against the Voyage AI embeddings API.
type VoyageClient struct {
	apiKey     string
	baseURL    string
	codeModel  string
	proseModel string
	httpClient *http.Client
}

// NewVoyageClient creates a Voyage provider. It fails loudly when no API
// key is configured so misconfiguration surfaces at construction time.
func NewVoyageClient(cfg VoyageConfig) (*VoyageClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("voyage: %w", ErrMissingAPIKey)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultVoyageBaseURL
	}
	codeModel := cfg.CodeModel
	if codeModel == "" {
		codeModel = DefaultVoyageCodeModel
	}
	proseModel := cfg.ProseModel
	if proseModel == "" {
		proseModel = DefaultVoyageProseModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultVoyageTimeout
	}

	return &VoyageClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		codeModel:  codeModel,
		proseModel: proseModel,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type voyageRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type,omitempty"`
}

type voyageResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// EmbedQuery embeds a single query text.
func (c *VoyageClient) EmbedQuery(ctx context.Context, text string, purpose Purpose) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text}, purpose, ModeQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Embed embeds texts in one API call, preserving input order.
func (c *VoyageClient) Embed(ctx context.Context, texts []string, purpose Purpose, mode Mode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	payload := voyageRequest{
		Input:     texts,
		Model:     c.model(purpose),
		InputType: string(mode),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("voyage: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+voyageEmbedPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("voyage: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voyage: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("voyage: API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded voyageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("voyage: failed to decode response: %w", err)
	}
	if len(decoded.Data) != len(texts) {
		return nil, fmt.Errorf("voyage: got %d embeddings for %d texts", len(decoded.Data), len(texts))
	}

	// The index field is authoritative for ordering.
	sort.Slice(decoded.Data, func(i, j int) bool {
		return decoded.Data[i].Index < decoded.Data[j].Index
	})

	vectors := make([][]float32, len(decoded.Data))
	for i, d := range decoded.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (c *VoyageClient) model(purpose Purpose) string {
	if purpose == PurposeCode {
		return c.codeModel
	}
	return c.proseModel
}
