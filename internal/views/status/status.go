package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/fleetdeck/fleetdeck/internal/session"
	"github.com/fleetdeck/fleetdeck/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	Connectivity  session.Connectivity
	Authenticated bool
	Username      string
	Busy          bool
	ActiveView    string
	Width         int
}

// New creates a status bar model.
func New() Model {
	return Model{ActiveView: "dashboard"}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	state := m.Connectivity.String()
	connStyle := lipgloss.NewStyle().Foreground(theme.ConnectivityColor(state))
	var connStr string
	switch m.Connectivity {
	case session.Connected:
		connStr = connStyle.Render("● connected")
	case session.Connecting:
		connStr = connStyle.Render("◌ connecting…")
	default:
		connStr = connStyle.Render("○ disconnected")
	}

	auth := theme.StyleDimmed.Render("anonymous")
	if m.Authenticated {
		auth = lipgloss.NewStyle().Foreground(theme.ColorSuccess).Render("⚿ " + m.Username)
	}

	view := theme.StyleHeader.Render(m.ActiveView)

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr + sep + auth + sep + fmt.Sprintf("view: %s", view)
	if m.Busy {
		content += sep + lipgloss.NewStyle().Foreground(theme.ColorDegraded).Render("working…")
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
