package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/kamrul1157024/terminal-ai/internal/shellexec"
	"github.com/kamrul1157024/terminal-ai/llm"
)

// gitTool is the shared base for git capabilities. Each concrete tool
// builds one git command line and runs it through the shell runner.
type gitTool struct {
	runner shellexec.Runner
	render func(llm.ToolCallRequest)
}

func (t *gitTool) Render(call llm.ToolCallRequest) {
	if t.render != nil {
		t.render(call)
	}
}

func (t *gitTool) run(ctx context.Context, command string) (string, error) {
	result, err := t.runner.Execute(ctx, command, false)
	if err != nil {
		return "", fmt.Errorf("failed to run git: %w", err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("git exited with %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	out := result.Stdout
	if out == "" {
		out = "(no output)"
	}
	return out, nil
}

// GitStatusTool reports the work tree status.
type GitStatusTool struct{ gitTool }

// GitStatusParams has no arguments.
type GitStatusParams struct{}

func NewGitStatusTool(runner shellexec.Runner, render func(llm.ToolCallRequest)) *GitStatusTool {
	return &GitStatusTool{gitTool{runner: runner, render: render}}
}

func (t *GitStatusTool) Name() string        { return "git_status" }
func (t *GitStatusTool) Description() string { return "Show the git working tree status." }
func (t *GitStatusTool) Parameters() any     { return &GitStatusParams{} }

func (t *GitStatusTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return t.run(ctx, "git status")
}

// GitDiffTool shows pending changes.
type GitDiffTool struct{ gitTool }

// GitDiffParams are the arguments for git_diff.
type GitDiffParams struct {
	Staged bool   `json:"staged,omitempty" description:"Show staged changes instead of unstaged ones"`
	Path   string `json:"path,omitempty" description:"Restrict the diff to a path"`
}

func NewGitDiffTool(runner shellexec.Runner, render func(llm.ToolCallRequest)) *GitDiffTool {
	return &GitDiffTool{gitTool{runner: runner, render: render}}
}

func (t *GitDiffTool) Name() string        { return "git_diff" }
func (t *GitDiffTool) Description() string { return "Show git changes, staged or unstaged." }
func (t *GitDiffTool) Parameters() any     { return &GitDiffParams{} }

func (t *GitDiffTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	command := "git diff"
	if BoolArg(args, "staged") {
		command += " --staged"
	}
	if path := strings.TrimSpace(StringArg(args, "path")); path != "" {
		command += " -- " + shellQuote(path)
	}
	return t.run(ctx, command)
}

// GitLogTool shows recent history.
type GitLogTool struct{ gitTool }

// GitLogParams are the arguments for git_log.
type GitLogParams struct {
	Count int `json:"count,omitempty" description:"Number of commits to show (default 10)"`
}

func NewGitLogTool(runner shellexec.Runner, render func(llm.ToolCallRequest)) *GitLogTool {
	return &GitLogTool{gitTool{runner: runner, render: render}}
}

func (t *GitLogTool) Name() string        { return "git_log" }
func (t *GitLogTool) Description() string { return "Show recent git commit history." }
func (t *GitLogTool) Parameters() any     { return &GitLogParams{} }

func (t *GitLogTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	count := 10
	if n, ok := args["count"].(float64); ok && n > 0 {
		count = int(n)
	}
	return t.run(ctx, fmt.Sprintf("git log --oneline -%d", count))
}

// GitCommitTool stages everything and commits. Mutating, so it always asks
// unless autopilot is on.
type GitCommitTool struct {
	gitTool
	prompter  Prompter
	autopilot func() bool
}

// GitCommitParams are the arguments for git_commit.
type GitCommitParams struct {
	Message string `json:"message" schema:"required" description:"Commit message"`
}

func NewGitCommitTool(runner shellexec.Runner, prompter Prompter, autopilot func() bool, render func(llm.ToolCallRequest)) *GitCommitTool {
	return &GitCommitTool{
		gitTool:   gitTool{runner: runner, render: render},
		prompter:  prompter,
		autopilot: autopilot,
	}
}

func (t *GitCommitTool) Name() string        { return "git_commit" }
func (t *GitCommitTool) Description() string { return "Stage all changes and create a git commit." }
func (t *GitCommitTool) Parameters() any     { return &GitCommitParams{} }

func (t *GitCommitTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	message := strings.TrimSpace(StringArg(args, "message"))
	if message == "" {
		return "", fmt.Errorf("commit message cannot be empty")
	}

	if t.autopilot == nil || !t.autopilot() {
		if t.prompter == nil || !t.prompter.Confirm(fmt.Sprintf("Commit all changes with message %q?", message)) {
			return "", fmt.Errorf("commit declined by user")
		}
	}

	if _, err := t.run(ctx, "git add -A"); err != nil {
		return "", err
	}
	return t.run(ctx, "git commit -m "+shellQuote(message))
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
