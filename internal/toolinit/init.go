// Package toolinit assembles the built-in tool groups into registries.
package toolinit

import (
	"github.com/kamrul1157024/terminal-ai/internal/shellexec"
	"github.com/kamrul1157024/terminal-ai/llm"
	"github.com/kamrul1157024/terminal-ai/tools"
	"github.com/kamrul1157024/terminal-ai/tools/registry"
)

// Options carries the collaborators the built-in tools need.
type Options struct {
	Runner    shellexec.Runner
	Prompter  tools.Prompter
	Autopilot func() bool
	Render    func(llm.ToolCallRequest)
}

// ShellGroup builds the registry holding the shell execution tool.
func ShellGroup(opts Options) *registry.Registry {
	r := registry.New()
	r.MustRegister(tools.NewExecuteCommandTool(opts.Runner, opts.Prompter, opts.Autopilot, opts.Render))
	return r
}

// GitGroup builds the registry holding the git tools.
func GitGroup(opts Options) *registry.Registry {
	r := registry.New()
	r.MustRegister(tools.NewGitStatusTool(opts.Runner, opts.Render))
	r.MustRegister(tools.NewGitDiffTool(opts.Runner, opts.Render))
	r.MustRegister(tools.NewGitLogTool(opts.Runner, opts.Render))
	r.MustRegister(tools.NewGitCommitTool(opts.Runner, opts.Prompter, opts.Autopilot, opts.Render))
	return r
}

// All composes every built-in group into one flat registry.
func All(opts Options) (*registry.Registry, error) {
	return registry.Merge(ShellGroup(opts), GitGroup(opts))
}
