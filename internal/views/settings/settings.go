// Package settings renders the effective client configuration as a
// read-only panel.
package settings

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/theme"
)

// Model holds the settings view state.
type Model struct {
	Width   int
	Version string
	cfg     config.ClientConfig
}

// New creates a settings view for the given configuration.
func New(cfg config.ClientConfig, version string) Model {
	return Model{cfg: cfg, Version: version}
}

// View renders the settings panel.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	row := func(key, value string) string {
		return fmt.Sprintf("%s %s",
			theme.StyleDimmed.Render(fmt.Sprintf("%-16s", key)),
			lipgloss.NewStyle().Foreground(theme.ColorBright).Render(value))
	}

	lines := []string{
		theme.StyleHeader.Render("Settings"),
		"",
		row("version", m.Version),
		row("ws url", m.cfg.WSURL),
		row("http base url", m.cfg.HTTPBaseURL),
		row("history size", fmt.Sprintf("%d", m.cfg.HistorySize)),
		row("initial view", m.cfg.InitialView),
		"",
		theme.StyleDimmed.Render("Edit the config file and restart to change these."),
	}

	return lipgloss.NewStyle().
		Width(width - 4).
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
