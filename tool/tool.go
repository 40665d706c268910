package tool

import (
	"context"
	"fmt"

	"github.com/loreseek/loreseek/config"
	"github.com/loreseek/loreseek/embed"
	"github.com/loreseek/loreseek/lexical"
	"github.com/loreseek/loreseek/schema"
	"github.com/loreseek/loreseek/store"
)

// Result is the uniform outcome of a tool invocation: either data or an
// error string, never both. Adapters translate it into their protocol's
// native success/error shape.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK wraps data in a successful Result.
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail wraps an error message in a failed Result.
func Fail(msg string) Result {
	return Result{Success: false, Error: msg}
}

// Failf formats an error message into a failed Result.
func Failf(format string, args ...any) Result {
	return Fail(fmt.Sprintf(format, args...))
}

// Context carries the process-wide collaborators every handler needs.
// It is constructed once at startup and read-only afterwards, so
// concurrent handlers share it without synchronization.
type Context struct {
	// Embedder is nil when embedding credentials are missing; handlers
	// must check ConfigError before using it.
	Embedder embed.Provider
	Store    store.VectorStore
	// Lexical is non-nil only when hybrid search is enabled.
	Lexical *lexical.Index
	Config  *config.Config

	// ConfigError, when non-empty, explains why the embedding provider
	// is unavailable. Handlers that need embeddings surface it to the
	// caller instead of attempting work that cannot succeed.
	ConfigError string
}

// Handler executes a tool. input has already been validated and
// normalized against the tool's schema.
type Handler func(ctx context.Context, input map[string]any, tc *Context) Result

// Definition declares one tool. Immutable once registered; owned by the
// Registry.
type Definition struct {
	Name        string
	Description string
	InputSchema schema.Spec
	Handler     Handler
}
