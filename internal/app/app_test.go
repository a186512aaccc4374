package app

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fleetdeck/fleetdeck/internal/client"
	"github.com/fleetdeck/fleetdeck/internal/command"
	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/scrollback"
	"github.com/fleetdeck/fleetdeck/internal/signal"
)

func newTestModel() Model {
	cfg := config.ClientConfig{InitialView: "dashboard", HistorySize: 50}
	ws := client.NewWSClient("ws://127.0.0.1:0/ws")
	http := client.NewHTTPClient("http://127.0.0.1:0")
	return New(ws, http, cfg, "test")
}

func updateModel(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return out, cmd
}

func TestNextViewCycles(t *testing.T) {
	seq := []signal.ViewTarget{
		signal.ViewDashboard, signal.ViewAgents, signal.ViewLogs,
		signal.ViewSettings, signal.ViewDashboard,
	}
	v := seq[0]
	for _, want := range seq[1:] {
		v = nextView(v)
		if v != want {
			t.Fatalf("nextView = %q, want %q", v, want)
		}
	}
}

func TestInvalidInitialViewFallsBack(t *testing.T) {
	ws := client.NewWSClient("ws://127.0.0.1:0/ws")
	m := New(ws, client.NewHTTPClient("http://127.0.0.1:0"),
		config.ClientConfig{InitialView: "garage"}, "test")
	if m.activeView != signal.ViewDashboard {
		t.Errorf("activeView = %q", m.activeView)
	}
}

func TestSubmitEmptyInputDoesNothing(t *testing.T) {
	m := newTestModel()
	next, _ := m.handleSubmit()
	m = next.(Model)
	if m.machine.Log().Len() != 0 {
		t.Errorf("empty submit appended %d lines", m.machine.Log().Len())
	}
	if m.machine.Busy() {
		t.Error("machine busy after empty submit")
	}
}

// runCmds executes a tea.Cmd tree and collects every message it yields.
func runCmds(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmds(t, c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// A submitted line is routed against the session state from before the
// machine entered RunningCommand. Routing against the post-submit state
// would make every command refuse itself as busy.
func TestSubmitRoutesThroughHandler(t *testing.T) {
	m := newTestModel()
	m.input.SetValue("/status")
	next, cmd := m.handleSubmit()
	m = next.(Model)

	if !m.machine.Busy() {
		t.Fatal("machine not busy while routing")
	}

	var res *command.Result
	for _, msg := range runCmds(t, cmd) {
		if r, ok := msg.(routedMsg); ok {
			res = &r.res
		}
	}
	if res == nil {
		t.Fatal("submit produced no routed result")
	}
	var sawStatus bool
	for _, line := range res.Lines {
		if strings.Contains(line.Text, "still running") {
			t.Fatalf("command refused itself: %q", line.Text)
		}
		if strings.Contains(line.Text, "Connection:") {
			sawStatus = true
		}
	}
	if !sawStatus {
		t.Errorf("status output missing from %d routed lines", len(res.Lines))
	}

	next, _ = m.handleRouted(*res)
	m = next.(Model)
	if m.machine.Busy() {
		t.Error("machine busy after routed result applied")
	}
}

func TestLoginPromptSequenceMasksPassword(t *testing.T) {
	m := newTestModel()

	// Simulate the routed /login command's output.
	if err := m.machine.BeginCommand("/login"); err != nil {
		t.Fatal(err)
	}
	next, _ := m.handleRouted(commandResultWith(scrollback.System(signal.Login())))
	m = next.(Model)

	if m.machine.Prompt() == nil {
		t.Fatal("no prompt after login signal")
	}
	if m.input.EchoMode != textinput.EchoNormal {
		t.Error("username step is masked")
	}

	m.input.SetValue("admin")
	next, _ = m.handleSubmit()
	m = next.(Model)

	if m.input.EchoMode != textinput.EchoPassword {
		t.Error("password step is not masked")
	}
	if m.input.Value() != "" {
		t.Error("input not cleared between steps")
	}
}

func TestPromptCompletionIssuesCall(t *testing.T) {
	m := newTestModel()
	if err := m.machine.BeginCommand("/login"); err != nil {
		t.Fatal(err)
	}
	next, _ := m.handleRouted(commandResultWith(scrollback.System(signal.Login())))
	m = next.(Model)

	m.input.SetValue("admin")
	next, _ = m.handleSubmit()
	m = next.(Model)

	m.input.SetValue("hunter2hunter2")
	next, cmd := m.handleSubmit()
	m = next.(Model)

	if cmd == nil {
		t.Fatal("final prompt step returned no command")
	}
	if !m.machine.Busy() {
		t.Error("machine not busy while call in flight")
	}
	// Secrets must never reach history.
	for _, h := range m.machine.Snapshot().History {
		if h == "admin" || h == "hunter2hunter2" {
			t.Errorf("history holds prompt value %q", h)
		}
	}
}

func TestCallDoneReturnsToIdle(t *testing.T) {
	m := newTestModel()
	if err := m.machine.BeginCommand("/login"); err != nil {
		t.Fatal(err)
	}
	next, _ := m.handleRouted(commandResultWith(scrollback.System(signal.Login())))
	m = next.(Model)
	m.input.SetValue("admin")
	next, _ = m.handleSubmit()
	m = next.(Model)
	m.input.SetValue("hunter2hunter2")
	next, _ = m.handleSubmit()
	m = next.(Model)

	m, _ = updateModel(t, m, callDoneMsg{res: client.ToolResult{Success: false, Error: "bad credentials"}})
	if m.machine.Busy() {
		t.Error("machine busy after call completion")
	}
	if m.input.EchoMode != textinput.EchoNormal {
		t.Error("input still masked after prompt finished")
	}
}

func TestEscCancelsPrompt(t *testing.T) {
	m := newTestModel()
	if err := m.machine.BeginCommand("/login"); err != nil {
		t.Fatal(err)
	}
	next, _ := m.handleRouted(commandResultWith(scrollback.System(signal.Login())))
	m = next.(Model)

	m, _ = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.machine.Prompt() != nil {
		t.Error("prompt survived esc")
	}
	if m.machine.Busy() {
		t.Error("machine busy after cancel")
	}
}

func TestQuitResultStopsProgram(t *testing.T) {
	m := newTestModel()
	if err := m.machine.BeginCommand("/quit"); err != nil {
		t.Fatal(err)
	}
	res := commandResultWith(scrollback.Command("/quit"))
	res.Quit = true
	next, cmd := m.handleRouted(res)
	m = next.(Model)

	if !m.quitting {
		t.Error("quitting not set")
	}
	if cmd == nil {
		t.Fatal("no command returned")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("command is not tea.Quit")
	}
}

func TestViewEffectSwitchesView(t *testing.T) {
	m := newTestModel()
	if err := m.machine.BeginCommand("/view agents"); err != nil {
		t.Fatal(err)
	}
	next, _ := m.handleRouted(commandResultWith(scrollback.System(signal.View(signal.ViewAgents))))
	m = next.(Model)
	if m.activeView != signal.ViewAgents {
		t.Errorf("activeView = %q", m.activeView)
	}
}

func TestHistoryKeysRecallCommands(t *testing.T) {
	m := newTestModel()
	for _, raw := range []string{"/status", "/help"} {
		if err := m.machine.BeginCommand(raw); err != nil {
			t.Fatal(err)
		}
		next, _ := m.handleRouted(commandResultWith(scrollback.Command(raw)))
		m = next.(Model)
	}

	m, _ = updateModel(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.input.Value() != "/help" {
		t.Errorf("first recall = %q", m.input.Value())
	}
	m, _ = updateModel(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.input.Value() != "/status" {
		t.Errorf("second recall = %q", m.input.Value())
	}
	m, _ = updateModel(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.input.Value() != "/help" {
		t.Errorf("walk forward = %q", m.input.Value())
	}
}

func commandResultWith(lines ...scrollback.Line) (res command.Result) {
	res.Lines = lines
	return res
}
