// Package registry resolves tool calls to handlers and composes tool groups.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kamrul1157024/terminal-ai/llm"
	"github.com/kamrul1157024/terminal-ai/tools"
)

// DuplicateToolError reports a name collision at registration time.
// Collisions fail fast rather than silently overriding, so precedence bugs
// cannot hide behind registration order.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// UnknownToolError reports a dispatch against an unregistered name. It is
// captured into the tool response, never surfaced to the caller as a
// dispatch failure.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// Registry holds the invocable capabilities for a session. Groups of tools
// are themselves registries, composed with Merge into one flat namespace.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]tools.Tool
	order []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{tools: make(map[string]tools.Tool)}
}

// Register adds a tool. Fails with DuplicateToolError on a name collision.
func (r *Registry) Register(t tools.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return &DuplicateToolError{Name: name}
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// MustRegister registers a tool or panics. For static built-in groups whose
// names are compile-time constants.
func (r *Registry) MustRegister(t tools.Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Merge composes registries into a new flat namespace, in registration
// order. A name collision across groups fails fast, same as within one.
func Merge(groups ...*Registry) (*Registry, error) {
	merged := New()
	for _, g := range groups {
		g.mu.RLock()
		snapshot := make([]tools.Tool, 0, len(g.order))
		for _, name := range g.order {
			snapshot = append(snapshot, g.tools[name])
		}
		g.mu.RUnlock()

		for _, t := range snapshot {
			if err := merged.Register(t); err != nil {
				return nil, err
			}
		}
	}
	return merged, nil
}

// Declarations returns a snapshot of tool definitions for inclusion in a
// completion request, in registration order.
func (r *Registry) Declarations() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		def, err := tools.Definition(r.tools[name])
		if err != nil {
			slog.Warn("skipping tool with unbuildable schema", "tool", name, "error", err)
			continue
		}
		defs = append(defs, def)
	}
	return defs
}

// UsageHints collects the usage hints of registered tools for the system
// prompt, in registration order.
func (r *Registry) UsageHints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var hints []string
	for _, name := range r.order {
		if h, ok := r.tools[name].(tools.UsageHinter); ok {
			if hint := h.UsageHint(); hint != "" {
				hints = append(hints, hint)
			}
		}
	}
	return hints
}

// Render invokes the tool's display hook for a call, if it has one.
func (r *Registry) Render(call llm.ToolCallRequest) {
	r.mu.RLock()
	t, ok := r.tools[call.Name]
	r.mu.RUnlock()
	if !ok {
		return
	}
	renderer, ok := t.(tools.Renderer)
	if !ok {
		slog.Warn("tool has no render hook", "tool", call.Name)
		return
	}
	renderer.Render(call)
}

// Dispatch resolves and executes one call. Unknown tools, handler errors,
// and handler panics all land in the response's Error field so one bad call
// never aborts the turn.
func (r *Registry) Dispatch(ctx context.Context, call llm.ToolCallRequest) llm.ToolCallResponse {
	resp := llm.ToolCallResponse{Name: call.Name, CallID: call.CallID}

	r.mu.RLock()
	t, ok := r.tools[call.Name]
	r.mu.RUnlock()
	if !ok {
		resp.Error = (&UnknownToolError{Name: call.Name}).Error()
		return resp
	}

	result, err := safeExecute(ctx, t, call.Arguments)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Result = result
	return resp
}

// DispatchAll executes the calls concurrently. They are independent
// side-effecting operations with no ordering guarantee between them, but
// the returned responses match the request order.
func (r *Registry) DispatchAll(ctx context.Context, calls []llm.ToolCallRequest) []llm.ToolCallResponse {
	responses := make([]llm.ToolCallResponse, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c llm.ToolCallRequest) {
			defer wg.Done()
			responses[idx] = r.Dispatch(ctx, c)
		}(i, call)
	}

	wg.Wait()
	return responses
}

func safeExecute(ctx context.Context, t tools.Tool, args map[string]any) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool %s panicked: %v", t.Name(), rec)
		}
	}()
	if args == nil {
		args = map[string]any{}
	}
	return t.Execute(ctx, args)
}
