package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/kamrul1157024/terminal-ai/internal/safety"
	"github.com/kamrul1157024/terminal-ai/internal/shellexec"
	"github.com/kamrul1157024/terminal-ai/llm"
)

// Prompter asks the human a yes/no question before a risky action.
type Prompter interface {
	Confirm(question string) bool
}

// ExecuteCommandParams are the arguments for the execute_command tool.
type ExecuteCommandParams struct {
	Command string `json:"command" schema:"required" description:"Shell command to execute"`
}

// ExecuteCommandTool runs shell commands on behalf of the model. Mutating
// commands require confirmation unless autopilot is on; a non-zero exit
// offers a sudo retry.
type ExecuteCommandTool struct {
	runner    shellexec.Runner
	prompter  Prompter
	autopilot func() bool
	render    func(llm.ToolCallRequest)
}

// NewExecuteCommandTool wires the shell tool. autopilot and render may be
// nil.
func NewExecuteCommandTool(runner shellexec.Runner, prompter Prompter, autopilot func() bool, render func(llm.ToolCallRequest)) *ExecuteCommandTool {
	return &ExecuteCommandTool{runner: runner, prompter: prompter, autopilot: autopilot, render: render}
}

func (t *ExecuteCommandTool) Name() string { return "execute_command" }

func (t *ExecuteCommandTool) Description() string {
	return "Execute a shell command and return its output. Use for file inspection, system queries, and any action the user asks for on their machine."
}

func (t *ExecuteCommandTool) Parameters() any { return &ExecuteCommandParams{} }

func (t *ExecuteCommandTool) UsageHint() string {
	return "Prefer execute_command for anything that touches the user's files or system state."
}

// Render echoes the command about to run.
func (t *ExecuteCommandTool) Render(call llm.ToolCallRequest) {
	if t.render != nil {
		t.render(call)
	}
}

// Execute runs the command with the confirmation policy applied. Declining
// a confirmation short-circuits this one invocation only.
func (t *ExecuteCommandTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	command := strings.TrimSpace(StringArg(args, "command"))
	if command == "" {
		return "", fmt.Errorf("command cannot be empty")
	}

	if safety.IsMutating(command) && !t.isAutopilot() {
		if t.prompter == nil || !t.prompter.Confirm(fmt.Sprintf("Run %q?", command)) {
			return "", fmt.Errorf("command declined by user")
		}
	}

	result, err := t.runner.Execute(ctx, command, false)
	if err != nil {
		return "", fmt.Errorf("failed to execute command: %w", err)
	}

	// Escalation path: a failed command may just need elevated privileges.
	if result.ExitCode != 0 && t.prompter != nil {
		if t.prompter.Confirm(fmt.Sprintf("Command exited with %d. Retry with sudo?", result.ExitCode)) {
			result, err = t.runner.Execute(ctx, command, true)
			if err != nil {
				return "", fmt.Errorf("failed to execute command with sudo: %w", err)
			}
		}
	}

	return formatResult(result), nil
}

func (t *ExecuteCommandTool) isAutopilot() bool {
	return t.autopilot != nil && t.autopilot()
}

func formatResult(result shellexec.Result) string {
	var b strings.Builder
	if result.Stdout != "" {
		b.WriteString(result.Stdout)
		if !strings.HasSuffix(result.Stdout, "\n") {
			b.WriteByte('\n')
		}
	}
	if result.Stderr != "" {
		b.WriteString("stderr:\n")
		b.WriteString(result.Stderr)
		if !strings.HasSuffix(result.Stderr, "\n") {
			b.WriteByte('\n')
		}
	}
	if result.ExitCode != 0 {
		fmt.Fprintf(&b, "exit code: %d\n", result.ExitCode)
	}
	if b.Len() == 0 {
		return "(no output)"
	}
	return b.String()
}
