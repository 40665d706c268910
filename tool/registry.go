package tool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for consistent error handling.
var (
	ErrDuplicateTool = errors.New("tool already registered")
	ErrUnknownTool   = errors.New("unknown tool")
	ErrInvalidTool   = errors.New("invalid tool definition")
)

// Registry holds the registered tool definitions and dispatches
// invocations against them. Registration happens at startup; lookups
// and invocations are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]*Definition
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a tool definition. Registering a name twice fails with
// ErrDuplicateTool and the first registration is retained.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTool)
	}
	if def.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidTool, def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
	}
	r.defs[def.Name] = &def
	r.order = append(r.order, def.Name)
	return nil
}

// Get returns a tool definition by name.
func (r *Registry) Get(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return def, nil
}

// List returns all definitions in registration order, used by adapters
// to advertise capabilities.
func (r *Registry) List() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.defs[name])
	}
	return defs
}

// Invoke validates raw input against the tool's schema and runs its
// handler. Validation failures, handler failures, and handler panics
// all come back as a failed Result; the only error return is
// ErrUnknownTool, so adapters can render it with their protocol's
// not-found convention.
func (r *Registry) Invoke(ctx context.Context, name string, raw map[string]any, tc *Context) (Result, error) {
	def, err := r.Get(name)
	if err != nil {
		return Result{}, err
	}

	if raw == nil {
		raw = map[string]any{}
	}
	input, err := def.InputSchema.Validate(raw)
	if err != nil {
		return Fail(err.Error()), nil
	}

	return safeInvoke(ctx, def, input, tc), nil
}

// safeInvoke guards the handler call: a panicking handler becomes a
// failed Result instead of crashing the host process.
func safeInvoke(ctx context.Context, def *Definition, input map[string]any, tc *Context) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Failf("tool %s failed: %v", def.Name, rec)
		}
	}()
	return def.Handler(ctx, input, tc)
}
