// Package dashboard provides the fleet summary panel: aggregate counts
// plus spring-animated host utilization gauges.
package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/fleetdeck/fleetdeck/internal/client"
	"github.com/fleetdeck/fleetdeck/internal/theme"
)

const fps = 30

// gauge animates toward a target fraction with a damped spring.
type gauge struct {
	spring   harmonica.Spring
	pos, vel float64
	target   float64
}

func newGauge() gauge {
	return gauge{spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 0.8)}
}

func (g *gauge) setTarget(pct float64) {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	g.target = pct
}

func (g *gauge) tick() {
	g.pos, g.vel = g.spring.Update(g.pos, g.vel, g.target)
}

// Model holds the dashboard state.
type Model struct {
	Width    int
	snapshot client.DashboardSnapshot
	haveData bool
	cpu      gauge
	mem      gauge
}

// New creates a dashboard model.
func New() Model {
	return Model{cpu: newGauge(), mem: newGauge()}
}

// SetSnapshot updates the displayed data and retargets the gauges.
func (m *Model) SetSnapshot(s client.DashboardSnapshot) {
	m.snapshot = s
	m.haveData = true
	m.cpu.setTarget(s.HostCPUPct / 100)
	m.mem.setTarget(s.HostMemPct / 100)
}

// Tick advances the gauge animation by one frame.
func (m *Model) Tick() {
	m.cpu.tick()
	m.mem.tick()
}

// Settled reports whether the gauges have stopped moving, so the app
// can suspend the animation timer.
func (m Model) Settled() bool {
	const eps = 0.002
	return abs(m.cpu.pos-m.cpu.target) < eps && abs(m.cpu.vel) < eps &&
		abs(m.mem.pos-m.mem.target) < eps && abs(m.mem.vel) < eps
}

// View renders the dashboard: counts row + host gauges.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	if !m.haveData {
		return theme.StyleDimmed.Render("  Waiting for fleet data…")
	}

	sections := []string{
		m.renderCountsRow(width),
		m.renderGauges(width),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderCountsRow shows aggregate fleet counts in a single row.
func (m Model) renderCountsRow(width int) string {
	s := m.snapshot
	statStyle := lipgloss.NewStyle().Padding(0, 1)

	stats := []string{
		statStyle.Foreground(theme.ColorUp).Render(
			fmt.Sprintf("Servers: %d/%d up", s.ServersUp, s.Servers)),
		statStyle.Foreground(theme.ColorActive).Render(
			fmt.Sprintf("Agents: %d/%d active", s.AgentsActive, s.Agents)),
		statStyle.Foreground(theme.ColorBright).Render(
			fmt.Sprintf("Users: %d", s.Users)),
	}
	lockStyle := statStyle.Foreground(theme.ColorDimmed)
	if s.ActiveLocks > 0 {
		lockStyle = statStyle.Foreground(theme.ColorDegraded)
	}
	stats = append(stats, lockStyle.Render(fmt.Sprintf("Locks: %d", s.ActiveLocks)))

	content := strings.Join(stats, lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | "))

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

// renderGauges renders the animated CPU and memory bars.
func (m Model) renderGauges(width int) string {
	barWidth := width - 18
	if barWidth < 10 {
		barWidth = 10
	}

	lines := []string{
		theme.StyleHeader.Render("  Control host"),
		"  " + renderGaugeBar("cpu", m.cpu.pos, m.cpu.target, barWidth),
		"  " + renderGaugeBar("mem", m.mem.pos, m.mem.target, barWidth),
	}
	if !m.snapshot.GeneratedAt.IsZero() {
		lines = append(lines, theme.StyleDimmed.Render(
			"  as of "+m.snapshot.GeneratedAt.Format("15:04:05")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderGaugeBar draws one labeled bar at the animated position; the
// label shows the real target, not the in-flight spring value.
func renderGaugeBar(label string, pos, target float64, barWidth int) string {
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	filled := int(pos * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}

	color := theme.GaugeColor(target)
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	bar += lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Repeat("░", barWidth-filled))

	return fmt.Sprintf("%s %s %s",
		theme.StyleDimmed.Render(fmt.Sprintf("%-4s", label)),
		bar,
		lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%5.1f%%", target*100)))
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
