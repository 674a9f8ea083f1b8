package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kamrul1157024/terminal-ai/history"
)

// threadPicker is a minimal list UI over recent threads.
type threadPicker struct {
	threads  []history.ThreadInfo
	selected int
	width    int
	height   int

	pickedID string
}

func newThreadPicker(threads []history.ThreadInfo) *threadPicker {
	return &threadPicker{threads: threads, width: 80, height: 24}
}

func (p *threadPicker) Init() tea.Cmd { return nil }

func (p *threadPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if p.selected > 0 {
				p.selected--
			}
		case "down", "j":
			if p.selected < len(p.threads)-1 {
				p.selected++
			}
		case "enter":
			if len(p.threads) > 0 {
				p.pickedID = p.threads[p.selected].ID
				return p, tea.Quit
			}
		case "esc", "q", "ctrl+c":
			return p, tea.Quit
		}
	}
	return p, nil
}

func (p *threadPicker) View() string {
	if len(p.threads) == 0 {
		return "\nNo previous conversations found.\n\nPress [Esc] to start a new one."
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("75")).
		MarginBottom(1)
	selectedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("75")).
		Bold(true)
	normalStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("246"))
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		MarginTop(1)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Select a conversation to resume:"))
	b.WriteString("\n\n")

	for i, thread := range p.threads {
		cursor := "  "
		style := normalStyle
		if i == p.selected {
			cursor = "▸ "
			style = selectedStyle
		}

		line := fmt.Sprintf("%s%s - %s (%d messages)",
			cursor,
			thread.UpdatedAt.Format("Jan 02 15:04"),
			truncateName(thread.Name, 40),
			thread.MessageCount)
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("\n[↑/↓/j/k] Navigate  [Enter] Select  [Esc/q] Cancel"))
	return b.String()
}

// PickThread shows the picker and returns the chosen thread id, empty when
// the user cancelled.
func PickThread(threads []history.ThreadInfo) (string, error) {
	picker := newThreadPicker(threads)
	if _, err := tea.NewProgram(picker).Run(); err != nil {
		return "", fmt.Errorf("thread picker: %w", err)
	}
	return picker.pickedID, nil
}

func truncateName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
