package server

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/loreseek/loreseek/config"
	"github.com/loreseek/loreseek/embed"
	"github.com/loreseek/loreseek/store"
	"github.com/loreseek/loreseek/tool"
	"github.com/loreseek/loreseek/tools"
)

func testContext(t *testing.T) *tool.Context {
	t.Helper()

	fake := embed.NewFake(embed.DefaultFakeDimension)
	st := store.NewMemory()

	vec, err := fake.EmbedQuery(context.Background(), "plugin authoring guide", embed.PurposeProse)
	if err != nil {
		t.Fatalf("embedding seed failed: %v", err)
	}
	err = st.ReplaceTable(context.Background(), "docs", []store.Record{
		{
			ID:     "d1",
			Vector: vec,
			Meta: map[string]any{
				"content":  "plugin authoring guide",
				"type":     "guide",
				"category": "plugin",
			},
		},
	})
	if err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	return &tool.Context{
		Embedder: fake,
		Store:    st,
		Config: &config.Config{
			Tables: config.TablesConfig{
				Code:       "code",
				ClientCode: "client_code",
				Gamedata:   "gamedata",
				Docs:       "docs",
			},
		},
	}
}

func testRegistry(t *testing.T) *tool.Registry {
	t.Helper()

	reg := tool.NewRegistry()
	if err := tools.RegisterAll(reg); err != nil {
		t.Fatalf("RegisterAll failed: %v", err)
	}
	return reg
}

func TestMCP_Initialize(t *testing.T) {
	srv := NewMCPServer(testRegistry(t), testContext(t), Name, Version)

	resp := srv.HandleRequest(context.Background(), MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
	})
	if resp.Error != nil {
		t.Fatalf("initialize failed: %v", resp.Error)
	}
	if resp.ID != 1 {
		t.Errorf("expected id echoed, got %v", resp.ID)
	}

	result := resp.Result.(map[string]any)
	if result["protocolVersion"] != mcpProtocolVersion {
		t.Errorf("unexpected protocol version: %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]any)
	if info["name"] != Name {
		t.Errorf("unexpected server name: %v", info["name"])
	}
}

func TestMCP_ToolsList(t *testing.T) {
	srv := NewMCPServer(testRegistry(t), testContext(t), Name, Version)

	resp := srv.HandleRequest(context.Background(), MCPRequest{
		JSONRPC: "2.0",
		ID:      "list-1",
		Method:  "tools/list",
	})
	if resp.Error != nil {
		t.Fatalf("tools/list failed: %v", resp.Error)
	}

	result := resp.Result.(map[string]any)
	advertised := result["tools"].([]map[string]any)
	if len(advertised) != 8 {
		t.Fatalf("expected 8 tools, got %d", len(advertised))
	}
	for _, adv := range advertised {
		if adv["name"] == "" {
			t.Error("advertised tool without a name")
		}
		schema := adv["inputSchema"].(map[string]any)
		if schema["type"] != "object" {
			t.Errorf("tool %v: inputSchema.type must be object, got %v", adv["name"], schema["type"])
		}
	}
}

func TestMCP_ToolsCall(t *testing.T) {
	srv := NewMCPServer(testRegistry(t), testContext(t), Name, Version)

	params, _ := json.Marshal(map[string]any{
		"name":      "search_docs",
		"arguments": map[string]any{"query": "plugin authoring guide"},
	})
	resp := srv.HandleRequest(context.Background(), MCPRequest{
		JSONRPC: "2.0",
		ID:      7,
		Method:  "tools/call",
		Params:  params,
	})
	if resp.Error != nil {
		t.Fatalf("tools/call failed: %v", resp.Error)
	}

	result := resp.Result.(map[string]any)
	if result["isError"] != nil {
		t.Fatalf("expected success, got isError: %v", result)
	}
	content := result["content"].([]map[string]any)
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("expected one text content block, got %v", content)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), &payload); err != nil {
		t.Fatalf("content is not valid JSON: %v", err)
	}
	if payload["table"] != "docs" {
		t.Errorf("unexpected payload table: %v", payload["table"])
	}
}

func TestMCP_ToolsCall_ValidationFailure(t *testing.T) {
	srv := NewMCPServer(testRegistry(t), testContext(t), Name, Version)

	params, _ := json.Marshal(map[string]any{
		"name":      "search_docs",
		"arguments": map[string]any{},
	})
	resp := srv.HandleRequest(context.Background(), MCPRequest{
		JSONRPC: "2.0", ID: 2, Method: "tools/call", Params: params,
	})
	if resp.Error != nil {
		t.Fatalf("validation failure must be a tool result, not a protocol error: %v", resp.Error)
	}

	result := resp.Result.(map[string]any)
	if result["isError"] != true {
		t.Fatal("expected isError result")
	}
	content := result["content"].([]map[string]any)
	if !strings.Contains(content[0]["text"].(string), `"query"`) {
		t.Errorf("expected field-level message, got %v", content[0]["text"])
	}
}

func TestMCP_UnknownToolAndMethod(t *testing.T) {
	srv := NewMCPServer(testRegistry(t), testContext(t), Name, Version)

	params, _ := json.Marshal(map[string]any{"name": "no_such_tool"})
	resp := srv.HandleRequest(context.Background(), MCPRequest{
		JSONRPC: "2.0", ID: 3, Method: "tools/call", Params: params,
	})
	if resp.Error == nil || resp.Error.Code != errCodeToolNotFound {
		t.Errorf("expected tool-not-found error, got %v", resp.Error)
	}

	resp = srv.HandleRequest(context.Background(), MCPRequest{
		JSONRPC: "2.0", ID: 4, Method: "resources/list",
	})
	if resp.Error == nil || resp.Error.Code != errCodeMethodNotFound {
		t.Errorf("expected method-not-found error, got %v", resp.Error)
	}
}

func TestMCP_ServeStdio(t *testing.T) {
	srv := NewMCPServer(testRegistry(t), testContext(t), Name, Version)

	var in bytes.Buffer
	in.WriteString(`{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n")
	in.WriteString(`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	in.WriteString(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n")
	in.WriteString(`not json` + "\n")

	var out bytes.Buffer
	if err := srv.ServeStdio(context.Background(), &in, &out); err != nil {
		t.Fatalf("ServeStdio failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 responses (notification skipped), got %d: %v", len(lines), lines)
	}

	var first, second, third MCPResponse
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("bad first response: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("bad second response: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[2]), &third); err != nil {
		t.Fatalf("bad third response: %v", err)
	}

	// IDs echoed in arrival order; JSON numbers decode as float64.
	if first.ID != float64(1) || second.ID != float64(2) {
		t.Errorf("ids not echoed in order: %v, %v", first.ID, second.ID)
	}
	if third.Error == nil || third.Error.Code != errCodeParseError {
		t.Errorf("expected parse error for malformed line, got %v", third.Error)
	}
}
