package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// TerminalPrompter asks y/n questions on the terminal. Anything other than
// an explicit yes counts as a decline.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminalPrompter builds a prompter over stdin/stderr.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

// Confirm prints the question and reads one line. Returns true for "y" or
// "yes" (case-insensitive).
func (p *TerminalPrompter) Confirm(question string) bool {
	fmt.Fprintf(p.Out, "%s %s ", promptStyle.Render(question), dimStyle.Render("[y/N]"))

	reader := bufio.NewReader(p.In)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
