package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/loreseek/loreseek/logger"
	"github.com/loreseek/loreseek/tool"
)

// MCP protocol version advertised in the initialize handshake.
const mcpProtocolVersion = "2024-11-05"

// JSON-RPC error codes.
const (
	errCodeParseError     = -32700
	errCodeInvalidRequest = -32600
	errCodeMethodNotFound = -32601
	errCodeInvalidParams  = -32602
	errCodeInternal       = -32603
	errCodeToolNotFound   = -32001
)

// MCPRequest represents an incoming MCP JSON-RPC request.
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an MCP JSON-RPC response.
type MCPResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *MCPError `json:"error,omitempty"`
}

// MCPError is a JSON-RPC error object.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func mcpError(id any, code int, msg string) MCPResponse {
	return MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &MCPError{Code: code, Message: msg},
	}
}

func mcpResult(id any, result any) MCPResponse {
	return MCPResponse{JSONRPC: "2.0", ID: id, Result: result}
}

// MCPServer serves the tool registry over newline-framed JSON-RPC on a
// stdio pair. Requests are processed strictly in arrival order.
type MCPServer struct {
	reg *tool.Registry
	tc  *tool.Context

	name    string
	version string
}

// NewMCPServer builds a stdio MCP server over the registry.
func NewMCPServer(reg *tool.Registry, tc *tool.Context, name, version string) *MCPServer {
	return &MCPServer{reg: reg, tc: tc, name: name, version: version}
}

// HandleRequest processes one MCP request and returns its response.
func (s *MCPServer) HandleRequest(ctx context.Context, req MCPRequest) MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req.ID)
	case "tools/list":
		return s.handleToolsList(req.ID)
	case "tools/call":
		return s.handleToolsCall(ctx, req.ID, req.Params)
	default:
		return mcpError(req.ID, errCodeMethodNotFound, fmt.Sprintf("method %s not found", req.Method))
	}
}

func (s *MCPServer) handleInitialize(id any) MCPResponse {
	return mcpResult(id, map[string]any{
		"protocolVersion": mcpProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    s.name,
			"version": s.version,
		},
	})
}

func (s *MCPServer) handleToolsList(id any) MCPResponse {
	defs := s.reg.List()
	tools := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, toMCPTool(mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema.JSONSchema(),
		}))
	}
	return mcpResult(id, map[string]any{"tools": tools})
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (s *MCPServer) handleToolsCall(ctx context.Context, id any, params json.RawMessage) MCPResponse {
	var callParams toolsCallParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return mcpError(id, errCodeInvalidParams, err.Error())
	}

	res, err := s.reg.Invoke(ctx, callParams.Name, callParams.Arguments, s.tc)
	if errors.Is(err, tool.ErrUnknownTool) {
		return mcpError(id, errCodeToolNotFound, err.Error())
	}
	if err != nil {
		return mcpError(id, errCodeInternal, err.Error())
	}

	if !res.Success {
		return mcpResult(id, map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": res.Error},
			},
			"isError": true,
		})
	}

	payload, err := json.Marshal(res.Data)
	if err != nil {
		return mcpError(id, errCodeInternal, fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcpResult(id, map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": string(payload)},
		},
	})
}

func toMCPTool(t mcp.Tool) map[string]any {
	return map[string]any{
		"name":        t.Name,
		"description": t.Description,
		"inputSchema": t.InputSchema,
	}
}

// ServeStdio reads newline-framed requests from in and writes responses
// to out until in is exhausted or ctx is cancelled. Notifications
// (requests without an id) get no response, per JSON-RPC.
func (s *MCPServer) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	enc := json.NewEncoder(out)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			if err := enc.Encode(mcpError(nil, errCodeParseError, err.Error())); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
			continue
		}

		resp := s.HandleRequest(ctx, req)
		if req.ID == nil {
			// Notification: handled, nothing to send back.
			logger.Debugf("notification %s handled", req.Method)
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
	return scanner.Err()
}
