package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewVoyageClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     VoyageConfig
		wantErr bool
	}{
		{
			name:    "missing API key",
			cfg:     VoyageConfig{},
			wantErr: true,
		},
		{
			name: "valid config",
			cfg:  VoyageConfig{APIKey: "vk-test"},
		},
		{
			name: "custom base URL",
			cfg:  VoyageConfig{APIKey: "vk-test", BaseURL: "http://localhost:9999/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, err := NewVoyageClient(tt.cfg)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMissingAPIKey)
				require.Nil(t, client)
			} else {
				require.NoError(t, err)
				require.NotNil(t, client)
			}
		})
	}
}

func TestVoyageClient_Embed(t *testing.T) {
	t.Parallel()

	expected := [][]float32{{0.1, 0.2}, {0.3, 0.4}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, voyageEmbedPath, r.URL.Path)
		require.Equal(t, "Bearer vk-test", r.Header.Get("Authorization"))

		var req voyageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"first", "second"}, req.Input)
		require.Equal(t, DefaultVoyageCodeModel, req.Model)
		require.Equal(t, "document", req.InputType)

		// Return embeddings out of order; the index field is authoritative.
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": expected[1], "index": 1},
				{"embedding": expected[0], "index": 0},
			},
			"model": DefaultVoyageCodeModel,
		}))
	}))
	defer srv.Close()

	client, err := NewVoyageClient(VoyageConfig{APIKey: "vk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	vectors, err := client.Embed(context.Background(), []string{"first", "second"}, PurposeCode, ModeDocument)
	require.NoError(t, err)
	require.Equal(t, expected, vectors)
}

func TestVoyageClient_Embed_ProseModelAndQueryMode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req voyageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, DefaultVoyageProseModel, req.Model)
		require.Equal(t, "query", req.InputType)

		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1}, "index": 0}},
		}))
	}))
	defer srv.Close()

	client, err := NewVoyageClient(VoyageConfig{APIKey: "vk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	vec, err := client.EmbedQuery(context.Background(), "how do plugins work", PurposeProse)
	require.NoError(t, err)
	require.Equal(t, []float32{1}, vec)
}

func TestVoyageClient_Embed_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewVoyageClient(VoyageConfig{APIKey: "vk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), []string{"text"}, PurposeCode, ModeDocument)
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestVoyageClient_Embed_CountMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1}, "index": 0}},
		}))
	}))
	defer srv.Close()

	client, err := NewVoyageClient(VoyageConfig{APIKey: "vk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), []string{"a", "b"}, PurposeCode, ModeDocument)
	require.Error(t, err)
	require.Contains(t, err.Error(), "2 texts")
}

func TestFake_Deterministic(t *testing.T) {
	t.Parallel()

	fake := NewFake(16)
	ctx := context.Background()

	v1, err := fake.EmbedQuery(ctx, "player inventory management", PurposeCode)
	require.NoError(t, err)
	v2, err := fake.EmbedQuery(ctx, "player inventory management", PurposeProse)
	require.NoError(t, err)
	require.Equal(t, v1, v2, "fake embeddings must not depend on purpose")

	v3, err := fake.EmbedQuery(ctx, "different text", PurposeCode)
	require.NoError(t, err)
	require.NotEqual(t, v1, v3)

	var norm float64
	for _, x := range v1 {
		norm += float64(x) * float64(x)
	}
	require.InDelta(t, 1.0, norm, 1e-5, "fake vectors are unit length")
}
