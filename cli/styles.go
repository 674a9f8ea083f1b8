// Package cli holds the terminal-facing pieces: rendering styles, the
// confirmation prompt, the thinking indicator, and the thread picker.
package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kamrul1157024/terminal-ai/llm"
)

var (
	toolNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	toolArgsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246"))

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// RenderToolCall echoes a tool invocation before it runs, so the user sees
// what the model asked for.
func RenderToolCall(call llm.ToolCallRequest) {
	fmt.Fprintf(os.Stderr, "\n%s %s\n",
		toolNameStyle.Render("⚙ "+call.Name),
		toolArgsStyle.Render(formatArgs(call.Arguments)))
}

// RenderError prints an error line to stderr.
func RenderError(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
}

// RenderInfo prints a dimmed informational line to stderr.
func RenderInfo(text string) {
	fmt.Fprintln(os.Stderr, dimStyle.Render(text))
}

func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return strings.Join(parts, " ")
}
