// Package logs renders the terminal scrollback as a scrollable panel.
package logs

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fleetdeck/fleetdeck/internal/scrollback"
	"github.com/fleetdeck/fleetdeck/internal/theme"
)

// Model holds log view state. Offset counts lines up from the bottom;
// zero means following the newest output.
type Model struct {
	Lines  []scrollback.Line
	Offset int
	Stamps bool
}

// New creates a log view following the bottom.
func New() Model {
	return Model{Stamps: true}
}

// SetLines replaces the rendered lines. When the view is following the
// bottom it stays there; a manual scroll position is preserved.
func (m *Model) SetLines(lines []scrollback.Line) {
	m.Lines = lines
	if m.Offset > len(lines) {
		m.Offset = len(lines)
	}
}

// Following reports whether the view is pinned to the newest line.
func (m Model) Following() bool {
	return m.Offset == 0
}

// ScrollUp moves toward older lines.
func (m *Model) ScrollUp(n int) {
	m.Offset += n
	max := len(m.Lines) - 1
	if max < 0 {
		max = 0
	}
	if m.Offset > max {
		m.Offset = max
	}
}

// ScrollDown moves toward newer lines.
func (m *Model) ScrollDown(n int) {
	m.Offset -= n
	if m.Offset < 0 {
		m.Offset = 0
	}
}

// ScrollBottom resumes following the newest output.
func (m *Model) ScrollBottom() {
	m.Offset = 0
}

// View renders the visible window.
func (m Model) View(width, height int) string {
	if height < 1 {
		height = 1
	}
	if len(m.Lines) == 0 {
		return theme.StyleDimmed.Render("  No output yet. Type /help to get started.")
	}

	end := len(m.Lines) - m.Offset
	start := end - height
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}

	rows := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		rows = append(rows, m.renderLine(m.Lines[i], width))
	}
	if m.Offset > 0 {
		rows = append(rows, theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset)))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderLine(l scrollback.Line, width int) string {
	var b strings.Builder
	used := 0
	if m.Stamps {
		ts := l.Time.Format("15:04:05")
		b.WriteString(theme.StyleDimmed.Render(ts + " "))
		used += len(ts) + 1
	}

	text := l.Text
	if l.Kind == scrollback.KindCommand {
		text = "› " + text
	}
	if width > used+4 && len(text) > width-used {
		text = text[:width-used-1] + "…"
	}
	b.WriteString(lipgloss.NewStyle().Foreground(theme.LineColor(l.Kind)).Render(text))
	return b.String()
}
