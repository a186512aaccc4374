// Package theme provides the Lip Gloss color palette and reusable styles
// for the fleetdeck TUI. It sits below the views to avoid import cycles.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fleetdeck/fleetdeck/internal/scrollback"
)

// Scrollback line colors.
var (
	ColorInfo    = lipgloss.Color("#d1d5db")
	ColorSuccess = lipgloss.Color("#22c55e")
	ColorError   = lipgloss.Color("#dc2626")
	ColorCommand = lipgloss.Color("#38bdf8")
	ColorSystem  = lipgloss.Color("#6b7280")
)

// Entity status colors.
var (
	ColorUp       = lipgloss.Color("#22c55e")
	ColorDown     = lipgloss.Color("#dc2626")
	ColorDegraded = lipgloss.Color("#d97706")
	ColorActive   = lipgloss.Color("#22c55e")
	ColorStopped  = lipgloss.Color("#4b5563")
	ColorStale    = lipgloss.Color("#854d0e")
	ColorDefault  = lipgloss.Color("#9ca3af")
)

// Connectivity badge colors.
var (
	ColorConnected    = lipgloss.Color("#22c55e")
	ColorConnecting   = lipgloss.Color("#d97706")
	ColorDisconnected = lipgloss.Color("#dc2626")
)

// Gauge thresholds.
var (
	ColorGaugeLow  = lipgloss.Color("#22c55e") // <50%
	ColorGaugeMid  = lipgloss.Color("#d97706") // 50-80%
	ColorGaugeHigh = lipgloss.Color("#dc2626") // >80%
)

// UI chrome colors.
var (
	ColorBorder = lipgloss.Color("#4b5563")
	ColorDimmed = lipgloss.Color("#6b7280")
	ColorBright = lipgloss.Color("#f9fafb")
	ColorAccent = lipgloss.Color("#38bdf8")
	ColorBg     = lipgloss.Color("#111827")
)

// LineColor returns the color for a scrollback line kind.
func LineColor(kind scrollback.Kind) lipgloss.Color {
	switch kind {
	case scrollback.KindSuccess:
		return ColorSuccess
	case scrollback.KindError:
		return ColorError
	case scrollback.KindCommand:
		return ColorCommand
	case scrollback.KindSystem:
		return ColorSystem
	default:
		return ColorInfo
	}
}

// StatusColor returns the color for a server or agent status string.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "up", "active":
		return ColorUp
	case "down", "errored":
		return ColorDown
	case "degraded":
		return ColorDegraded
	case "stopped":
		return ColorStopped
	case "stale":
		return ColorStale
	default:
		return ColorDefault
	}
}

// ConnectivityColor returns the color for a connectivity display name.
func ConnectivityColor(state string) lipgloss.Color {
	switch state {
	case "connected":
		return ColorConnected
	case "connecting":
		return ColorConnecting
	default:
		return ColorDisconnected
	}
}

// StatusGlyph returns a Unicode glyph for a server or agent status.
func StatusGlyph(status string) string {
	switch status {
	case "up", "active":
		return "●"
	case "down", "errored":
		return "✗"
	case "degraded":
		return "◍"
	case "stopped":
		return "○"
	case "stale":
		return "◌"
	default:
		return "·"
	}
}

// GaugeColor returns the color for a utilization fraction in [0,1].
func GaugeColor(pct float64) lipgloss.Color {
	switch {
	case pct > 0.8:
		return ColorGaugeHigh
	case pct > 0.5:
		return ColorGaugeMid
	default:
		return ColorGaugeLow
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StylePrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent)
)
