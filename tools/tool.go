// Package tools defines the capability contract the model can invoke and
// the built-in shell and git tool groups.
package tools

import (
	"context"
	"fmt"

	"github.com/kamrul1157024/terminal-ai/internal/schema"
	"github.com/kamrul1157024/terminal-ai/llm"
)

// Tool is the interface every invocable capability implements. Parameters
// returns a struct whose fields describe the tool's argument schema.
type Tool interface {
	Name() string
	Description() string
	Parameters() any
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Renderer is an optional display hook invoked before a tool executes,
// e.g. echoing the shell command about to run. Tools without it are fine;
// the registry logs a debug line and moves on.
type Renderer interface {
	Render(call llm.ToolCallRequest)
}

// UsageHinter optionally contributes a line to the system prompt describing
// when the model should reach for the tool.
type UsageHinter interface {
	UsageHint() string
}

// Definition builds the declaration sent to providers for a tool.
func Definition(t Tool) (llm.ToolDefinition, error) {
	params, err := schema.For(t.Parameters())
	if err != nil {
		return llm.ToolDefinition{}, fmt.Errorf("tool %s: %w", t.Name(), err)
	}
	return llm.ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  params,
	}, nil
}

// StringArg extracts a string argument, defaulting to "" when absent or of
// the wrong type. Tool arguments fail soft end to end.
func StringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// BoolArg extracts a bool argument, defaulting to false.
func BoolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}
