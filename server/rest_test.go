package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestREST_Search(t *testing.T) {
	handler := RESTHandler(testRegistry(t), testContext(t))

	rec := postJSON(t, handler, "/v1/search/docs", `{"query":"plugin authoring guide"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if body.Data["table"] != "docs" {
		t.Errorf("unexpected table: %v", body.Data["table"])
	}
	hits := body.Data["hits"].([]any)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	hit := hits[0].(map[string]any)
	if hit["score"].(float64) < 0.999 {
		t.Errorf("identical content should score ~1.0, got %v", hit["score"])
	}
}

func TestREST_ValidationFailure(t *testing.T) {
	handler := RESTHandler(testRegistry(t), testContext(t))

	rec := postJSON(t, handler, "/v1/search/docs", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if body.Error != `field "query" is required` {
		t.Errorf("unexpected error: %s", body.Error)
	}
}

func TestREST_StatsNotIngested(t *testing.T) {
	handler := RESTHandler(testRegistry(t), testContext(t))

	rec := postJSON(t, handler, "/v1/stats/gamedata", ``)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "loreseek ingest") {
		t.Errorf("expected ingestion hint, got %s", rec.Body.String())
	}
}

func TestREST_StatsSeeded(t *testing.T) {
	handler := RESTHandler(testRegistry(t), testContext(t))

	rec := postJSON(t, handler, "/v1/stats/docs", ``)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if body.Data["totalDocs"].(float64) != 1 {
		t.Errorf("expected totalDocs 1, got %v", body.Data["totalDocs"])
	}
}

func TestREST_UnknownRoute(t *testing.T) {
	handler := RESTHandler(testRegistry(t), testContext(t))

	rec := postJSON(t, handler, "/v1/search/sounds", `{"query":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Errorf("404 body must be JSON with an error field, got %s", rec.Body.String())
	}
}

func TestREST_MalformedBody(t *testing.T) {
	handler := RESTHandler(testRegistry(t), testContext(t))

	rec := postJSON(t, handler, "/v1/search/docs", `{"query":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// The same tool invocation must produce byte-identical result payloads
// whether it arrives over REST or over MCP stdio.
func TestREST_MCP_PayloadEquivalence(t *testing.T) {
	reg := testRegistry(t)
	tc := testContext(t)

	rec := postJSON(t, RESTHandler(reg, tc), "/v1/search/docs", `{"query":"plugin authoring guide","limit":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("REST search failed: %d %s", rec.Code, rec.Body.String())
	}
	var restBody struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &restBody); err != nil {
		t.Fatalf("bad REST body: %v", err)
	}

	srv := NewMCPServer(reg, tc, Name, Version)
	params, _ := json.Marshal(map[string]any{
		"name":      "search_docs",
		"arguments": map[string]any{"query": "plugin authoring guide", "limit": 3},
	})
	resp := srv.HandleRequest(context.Background(), MCPRequest{
		JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params,
	})
	if resp.Error != nil {
		t.Fatalf("MCP search failed: %v", resp.Error)
	}
	content := resp.Result.(map[string]any)["content"].([]map[string]any)
	mcpPayload := []byte(content[0]["text"].(string))

	if !bytes.Equal(bytes.TrimSpace(restBody.Data), bytes.TrimSpace(mcpPayload)) {
		t.Errorf("payloads differ:\nREST: %s\nMCP:  %s", restBody.Data, mcpPayload)
	}
}
