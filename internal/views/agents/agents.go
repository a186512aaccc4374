// Package agents renders the fleet agent list with a movable selection
// cursor.
package agents

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fleetdeck/fleetdeck/internal/client"
	"github.com/fleetdeck/fleetdeck/internal/theme"
)

const nameWidth = 20

// Model holds the agent list state.
type Model struct {
	Width    int
	agents   []client.AgentInfo
	selected int
}

// New creates an empty agent list.
func New() Model {
	return Model{}
}

// SetAgents replaces the list, keeping the cursor on a valid row.
func (m *Model) SetAgents(agents []client.AgentInfo) {
	m.agents = agents
	if m.selected >= len(agents) {
		m.selected = len(agents) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// MoveUp moves the selection cursor up.
func (m *Model) MoveUp() {
	if m.selected > 0 {
		m.selected--
	}
}

// MoveDown moves the selection cursor down.
func (m *Model) MoveDown() {
	if m.selected < len(m.agents)-1 {
		m.selected++
	}
}

// Selected returns the agent under the cursor.
func (m Model) Selected() (client.AgentInfo, bool) {
	if len(m.agents) == 0 {
		return client.AgentInfo{}, false
	}
	return m.agents[m.selected], true
}

// View renders the agent table.
func (m Model) View() string {
	if len(m.agents) == 0 {
		return theme.StyleDimmed.Render("  No agents connected. /refresh to refetch.")
	}

	header := fmt.Sprintf("  %2s  %-2s %-*s %-14s %-10s %-10s %s",
		"#", "", nameWidth, "Name", "Server", "Status", "Version", "Last seen")
	lines := []string{theme.StyleDimmed.Render(header)}

	for i, a := range m.agents {
		lines = append(lines, m.renderRow(i, a))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderRow(idx int, a client.AgentInfo) string {
	var b strings.Builder
	if idx == m.selected {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorBright).Bold(true).Render("> "))
	} else {
		b.WriteString("  ")
	}

	b.WriteString(theme.StyleDimmed.Render(fmt.Sprintf("%2d", idx+1)))
	b.WriteString("│ ")

	glyphStyle := lipgloss.NewStyle().Foreground(theme.StatusColor(a.Status))
	b.WriteString(glyphStyle.Render(theme.StatusGlyph(a.Status)))
	b.WriteByte(' ')

	name := a.Name
	if len(name) > nameWidth-1 {
		name = name[:nameWidth-2] + "…"
	}
	nameStyle := theme.StyleDimmed
	if idx == m.selected {
		nameStyle = theme.StyleSelected
	}
	b.WriteString(nameStyle.Render(name))
	if len(name) < nameWidth {
		b.WriteString(strings.Repeat(" ", nameWidth-len(name)))
	}

	b.WriteString(theme.StyleDimmed.Render(fmt.Sprintf("%-14s ", a.Server)))
	b.WriteString(glyphStyle.Render(fmt.Sprintf("%-10s", a.Status)))
	b.WriteString(theme.StyleDimmed.Render(fmt.Sprintf(" %-10s %s", a.Version, lastSeen(a.LastSeen))))
	return b.String()
}

// lastSeen renders the time since the agent last reported, compactly.
func lastSeen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}
