// Package app wires the session machine, command router, and views into
// the root Bubble Tea model. All state mutation happens on the update
// path; commands and privileged calls run in tea.Cmd goroutines and
// report back as messages.
package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fleetdeck/fleetdeck/internal/client"
	"github.com/fleetdeck/fleetdeck/internal/command"
	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/scrollback"
	"github.com/fleetdeck/fleetdeck/internal/session"
	"github.com/fleetdeck/fleetdeck/internal/signal"
	"github.com/fleetdeck/fleetdeck/internal/theme"
	"github.com/fleetdeck/fleetdeck/internal/views/agents"
	"github.com/fleetdeck/fleetdeck/internal/views/dashboard"
	"github.com/fleetdeck/fleetdeck/internal/views/logs"
	"github.com/fleetdeck/fleetdeck/internal/views/settings"
	"github.com/fleetdeck/fleetdeck/internal/views/status"
)

const frameInterval = time.Second / 30

// --- messages ---

// routedMsg carries the output of one routed command.
type routedMsg struct{ res command.Result }

// callDoneMsg carries the outcome of a privileged tool call.
type callDoneMsg struct {
	res client.ToolResult
	err error
}

type dashboardMsg struct{ snapshot client.DashboardSnapshot }
type agentsMsg struct{ agents []client.AgentInfo }
type fetchErrMsg struct{ err error }
type frameMsg time.Time

// Model is the root Bubble Tea model.
type Model struct {
	ws     *client.WSClient
	http   *client.HTTPClient
	ctx    context.Context
	cancel context.CancelFunc

	cfg     config.ClientConfig
	version string
	keys    KeyMap
	width   int
	height  int

	machine *session.Machine
	input   textinput.Model
	spin    spinner.Model

	activeView signal.ViewTarget
	statusBar  status.Model
	dashboard  dashboard.Model
	agentList  agents.Model
	logView    logs.Model
	settings   settings.Model

	animating bool
	quitting  bool
}

// New creates the root model.
func New(ws *client.WSClient, http *client.HTTPClient, cfg config.ClientConfig, version string) Model {
	ctx, cancel := context.WithCancel(context.Background())

	ti := textinput.New()
	ti.Prompt = theme.StylePrompt.Render("❯ ")
	ti.Placeholder = "/help"
	ti.CharLimit = 256
	ti.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorAccent)

	view := signal.ViewTarget(cfg.InitialView)
	if !signal.ValidViewTarget(cfg.InitialView) {
		view = signal.ViewDashboard
	}

	mach := session.NewMachine(scrollback.New())
	mach.SetHistoryLimit(cfg.HistorySize)

	return Model{
		ws:         ws,
		http:       http,
		ctx:        ctx,
		cancel:     cancel,
		cfg:        cfg,
		version:    version,
		keys:       DefaultKeyMap(),
		machine:    mach,
		input:      ti,
		spin:       sp,
		activeView: view,
		statusBar:  status.New(),
		dashboard:  dashboard.New(),
		agentList:  agents.New(),
		logView:    logs.New(),
		settings:   settings.New(cfg, version),
	}
}

// Init starts the WebSocket connection and the input cursor.
func (m Model) Init() tea.Cmd {
	m.machine.SetConnectivity(session.Connecting, "")
	return tea.Batch(m.ws.Listen(m.ctx), textinput.Blink)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.dashboard.Width = msg.Width
		m.agentList.Width = msg.Width
		m.settings.Width = msg.Width
		m.input.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case client.ConnectedMsg:
		m.machine.SetConnectivity(session.Connected, "")
		return m, tea.Batch(m.ws.WaitDisconnect(m.ctx), m.refreshCmd())

	case client.DisconnectedMsg:
		reason := ""
		if msg.Err != nil {
			reason = msg.Err.Error()
		}
		m.machine.SetConnectivity(session.Connecting, reason)
		return m, m.ws.Listen(m.ctx)

	case routedMsg:
		return m.handleRouted(msg.res)

	case callDoneMsg:
		m.machine.CompleteCall(msg.res, msg.err)
		m.syncPromptInput()
		m.syncLog()
		return m, nil

	case dashboardMsg:
		m.dashboard.SetSnapshot(msg.snapshot)
		return m, m.startAnimation()

	case agentsMsg:
		m.agentList.SetAgents(msg.agents)
		return m, nil

	case fetchErrMsg:
		// Dashboard data is best-effort; the scrollback stays clean.
		return m, nil

	case frameMsg:
		m.dashboard.Tick()
		if m.dashboard.Settled() {
			m.animating = false
			return m, nil
		}
		return m, frameCmd()

	case spinner.TickMsg:
		if !m.machine.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.machine.Prompt() != nil {
			m.machine.CancelPrompt()
			m.syncPromptInput()
			m.syncLog()
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keys.HistoryPrev):
		if m.machine.Prompt() == nil {
			if line, ok := m.machine.HistoryPrev(); ok {
				m.input.SetValue(line)
				m.input.CursorEnd()
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.HistoryNext):
		if m.machine.Prompt() == nil {
			if line, ok := m.machine.HistoryNext(); ok {
				m.input.SetValue(line)
				m.input.CursorEnd()
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.logView.ScrollUp(5)
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.logView.ScrollDown(5)
		return m, nil

	case key.Matches(msg, m.keys.ScrollBottom):
		m.logView.ScrollBottom()
		return m, nil

	case key.Matches(msg, m.keys.NextView):
		m.activeView = nextView(m.activeView)
		return m, nil

	case key.Matches(msg, m.keys.SelectUp):
		if m.activeView == signal.ViewAgents {
			m.agentList.MoveUp()
		}
		return m, nil

	case key.Matches(msg, m.keys.SelectDown):
		if m.activeView == signal.ViewAgents {
			m.agentList.MoveDown()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.machine.SetInput(m.input.Value())
	return m, cmd
}

// handleSubmit consumes the input line: either a prompt value or a
// command to route.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	value := m.input.Value()
	m.input.SetValue("")
	m.machine.SetInput("")

	if m.machine.Prompt() != nil {
		req := m.machine.SubmitPromptValue(value)
		m.syncPromptInput()
		m.syncLog()
		if req == nil {
			return m, nil
		}
		return m, tea.Batch(m.callCmd(req), m.spin.Tick)
	}

	if value == "" {
		return m, nil
	}
	// Snapshot before BeginCommand flips the machine to RunningCommand,
	// or the router would see its own command as the busy one.
	state := m.machine.Snapshot()
	if err := m.machine.BeginCommand(value); err != nil {
		m.machine.Log().Append(scrollback.Error(err.Error()))
		m.syncLog()
		return m, nil
	}
	return m, tea.Batch(m.routeCmd(value, state), m.spin.Tick)
}

// handleRouted feeds the routed command's output through the machine
// and applies the resulting effects.
func (m Model) handleRouted(res command.Result) (tea.Model, tea.Cmd) {
	eff := m.machine.FinishRouted(res.Lines)
	m.syncPromptInput()
	m.syncLog()

	if res.Quit {
		m.quitting = true
		m.cancel()
		return m, tea.Quit
	}

	var cmds []tea.Cmd
	if eff.View != "" {
		m.activeView = eff.View
	}
	if eff.Refresh {
		cmds = append(cmds, m.refreshCmd())
	}
	return m, tea.Batch(cmds...)
}

// --- commands ---

// routeCmd runs one command off the update path. state is the session
// as it was when the line was submitted, not after the machine entered
// RunningCommand.
func (m Model) routeCmd(raw string, state session.State) tea.Cmd {
	cc := &command.Context{
		Ctx:     m.ctx,
		State:   state,
		Tools:   m.ws,
		Version: m.version,
	}
	return func() tea.Msg {
		return routedMsg{res: command.Route(raw, cc)}
	}
}

// callCmd issues the privileged call a completed prompt produced.
func (m Model) callCmd(req *session.CallRequest) tea.Cmd {
	return func() tea.Msg {
		res, err := m.ws.CallTool(m.ctx, req.Tool, req.Args)
		return callDoneMsg{res: res, err: err}
	}
}

// refreshCmd refetches dashboard data over the REST API.
func (m Model) refreshCmd() tea.Cmd {
	return tea.Batch(
		func() tea.Msg {
			s, err := m.http.GetDashboard()
			if err != nil {
				return fetchErrMsg{err: err}
			}
			return dashboardMsg{snapshot: *s}
		},
		func() tea.Msg {
			list, err := m.http.GetAgents()
			if err != nil {
				return fetchErrMsg{err: err}
			}
			return agentsMsg{agents: list}
		},
	)
}

func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *Model) startAnimation() tea.Cmd {
	if m.animating {
		return nil
	}
	m.animating = true
	return frameCmd()
}

// syncPromptInput points the input line at the live prompt step, or
// back at command entry when no prompt is active. Masked steps echo
// asterisks so secrets never appear on screen.
func (m *Model) syncPromptInput() {
	p := m.machine.Prompt()
	if p == nil {
		m.input.Prompt = theme.StylePrompt.Render("❯ ")
		m.input.Placeholder = "/help"
		m.input.EchoMode = textinput.EchoNormal
		return
	}
	step := p.Current()
	m.input.Prompt = theme.StylePrompt.Render(step.Label + ": ")
	m.input.Placeholder = ""
	if step.Mask {
		m.input.EchoMode = textinput.EchoPassword
	} else {
		m.input.EchoMode = textinput.EchoNormal
	}
}

// syncLog pushes the scrollback into the log view.
func (m *Model) syncLog() {
	m.logView.SetLines(m.machine.Log().All())
}

func nextView(v signal.ViewTarget) signal.ViewTarget {
	switch v {
	case signal.ViewDashboard:
		return signal.ViewAgents
	case signal.ViewAgents:
		return signal.ViewLogs
	case signal.ViewLogs:
		return signal.ViewSettings
	default:
		return signal.ViewDashboard
	}
}

// View renders the full terminal.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	snap := m.machine.Snapshot()
	m.statusBar.Connectivity = snap.Connectivity
	m.statusBar.Authenticated = snap.Authenticated
	m.statusBar.Username = snap.Username
	m.statusBar.Busy = snap.Interaction == session.RunningCommand
	m.statusBar.ActiveView = string(m.activeView)

	// Status bar (3 rows), input line, help line.
	bodyHeight := m.height - 5
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	// Non-log views keep a short output tail underneath so command
	// results are always visible.
	var body string
	if m.activeView == signal.ViewLogs {
		body = m.logView.View(m.width, bodyHeight)
	} else {
		tailHeight := 6
		panelHeight := bodyHeight - tailHeight - 1
		if panelHeight < 3 {
			panelHeight = 3
		}
		var panel string
		switch m.activeView {
		case signal.ViewAgents:
			panel = m.agentList.View()
		case signal.ViewSettings:
			panel = m.settings.View()
		default:
			panel = m.dashboard.View()
		}
		body = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Height(panelHeight).Render(panel),
			theme.StyleDimmed.Render("  ── output ──"),
			m.logView.View(m.width, tailHeight),
		)
	}
	body = lipgloss.NewStyle().Height(bodyHeight).Render(body)

	inputLine := m.input.View()
	if snap.Interaction == session.RunningCommand {
		inputLine = m.spin.View() + " working…"
	}

	sections := []string{
		m.statusBar.View(),
		body,
		inputLine,
		theme.StyleDimmed.Render("  tab:view  pgup/pgdn:scroll  ↑/↓:history  esc:cancel  ctrl+c:quit"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
