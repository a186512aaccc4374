package session

import (
	"encoding/json"
	"fmt"

	"github.com/fleetdeck/fleetdeck/internal/client"
	"github.com/fleetdeck/fleetdeck/internal/scrollback"
	"github.com/fleetdeck/fleetdeck/internal/signal"
	"github.com/fleetdeck/fleetdeck/internal/validate"
)

// PromptStep is one value to collect before a privileged call fires.
type PromptStep struct {
	Key        string
	Label      string
	Mask       bool
	ConfirmKey string // must match the value collected under this key
}

// Prompt is the transient binding of "collect values, then resume the
// bound action." At most one prompt is live at a time; it is discarded
// on completion or cancellation.
type Prompt struct {
	action signal.Action
	steps  []PromptStep
	idx    int
	values map[string]string
}

// Current returns the step awaiting input.
func (p *Prompt) Current() PromptStep { return p.steps[p.idx] }

// CallRequest names the privileged tool call to issue once all prompt
// steps are resolved. Secrets travel only inside Args, never through
// command text or history.
type CallRequest struct {
	Kind signal.Kind
	Tool string
	Args map[string]any
}

// Effect reports side requests a transition makes of the surrounding
// terminal: switching views, refetching dashboard data.
type Effect struct {
	View    signal.ViewTarget
	Refresh bool
}

// Machine drives the session state machine. It is single-threaded by
// contract: every method runs on the terminal's update path, and the
// Interaction guards keep more than one operation from being in flight.
type Machine struct {
	state      State
	log        *scrollback.Store
	prompt     *Prompt
	inflight   *CallRequest
	historyMax int
}

// NewMachine creates a machine writing output to log.
func NewMachine(log *scrollback.Store) *Machine {
	return &Machine{
		state: State{HistoryCursor: -1},
		log:   log,
	}
}

// SetHistoryLimit caps command history at n entries; the oldest entry
// is dropped first. n <= 0 leaves history unbounded.
func (m *Machine) SetHistoryLimit(n int) { m.historyMax = n }

// Snapshot returns a copy of the observable state.
func (m *Machine) Snapshot() State {
	s := m.state
	s.History = append([]string(nil), m.state.History...)
	return s
}

// Log exposes the scrollback store.
func (m *Machine) Log() *scrollback.Store { return m.log }

// Busy reports whether the machine refuses new input.
func (m *Machine) Busy() bool { return m.state.Interaction != Idle }

// Prompt returns the live secret prompt, or nil.
func (m *Machine) Prompt() *Prompt { return m.prompt }

// SetConnectivity records a transport transition. Loss of the
// connection is state, not an error: local-only commands stay usable
// while disconnected.
func (m *Machine) SetConnectivity(c Connectivity, lastErr string) {
	m.state.Connectivity = c
	m.state.LastError = lastErr
}

// SetInput mirrors the prompt's edit buffer.
func (m *Machine) SetInput(s string) { m.state.InputBuffer = s }

// BeginCommand enters RunningCommand for one routed input, recording it
// in history. It fails when another operation is pending, so two
// privileged calls can never interleave on one session.
func (m *Machine) BeginCommand(raw string) error {
	switch m.state.Interaction {
	case RunningCommand:
		return fmt.Errorf("a command is already running")
	case AwaitingSecret:
		return fmt.Errorf("finish or cancel the current prompt first")
	}
	if raw != "" {
		m.state.History = append(m.state.History, raw)
		if m.historyMax > 0 && len(m.state.History) > m.historyMax {
			m.state.History = m.state.History[len(m.state.History)-m.historyMax:]
		}
	}
	m.state.HistoryCursor = -1
	m.state.Interaction = RunningCommand
	return nil
}

// FinishRouted consumes the lines a routed command produced. Signal
// lines are classified and applied; everything else is appended to
// scrollback as-is. The machine leaves RunningCommand unless a prompt
// was started.
func (m *Machine) FinishRouted(lines []scrollback.Line) Effect {
	var eff Effect
	for _, line := range lines {
		e := m.Apply(signal.Classify(line))
		if e.View != "" {
			eff.View = e.View
		}
		eff.Refresh = eff.Refresh || e.Refresh
	}
	if m.state.Interaction == RunningCommand {
		m.state.Interaction = Idle
	}
	return eff
}

// Apply performs one classified-action transition.
func (m *Machine) Apply(action signal.Action) Effect {
	switch action.Kind {
	case signal.KindMessage:
		m.log.Append(action.Line)

	case signal.KindClear:
		m.log.Clear()

	case signal.KindLogout:
		m.state.Authenticated = false
		m.state.Username = ""
		m.log.Append(scrollback.Success("Logged out."))

	case signal.KindLogin:
		m.startPrompt(action, []PromptStep{
			{Key: "username", Label: "Username"},
			{Key: "password", Label: "Password", Mask: true},
		})

	case signal.KindSetup:
		m.startPrompt(action, []PromptStep{
			{Key: "password", Label: "New admin password", Mask: true},
			{Key: "confirm", Label: "Confirm password", Mask: true, ConfirmKey: "password"},
		})

	case signal.KindResetPassword:
		m.startPrompt(action, []PromptStep{
			{Key: "password", Label: "New password for " + action.Username, Mask: true},
		})

	case signal.KindBackupExport, signal.KindBackupImport:
		m.startPrompt(action, []PromptStep{
			{Key: "passphrase", Label: "Backup passphrase", Mask: true},
		})

	case signal.KindRefresh:
		return Effect{Refresh: true}

	case signal.KindView:
		return Effect{View: action.Target}
	}
	return Effect{}
}

func (m *Machine) startPrompt(action signal.Action, steps []PromptStep) {
	m.prompt = &Prompt{action: action, steps: steps, values: make(map[string]string)}
	m.state.Interaction = AwaitingSecret
}

// SubmitPromptValue feeds one collected value into the live prompt.
// It returns a non-nil CallRequest once every step is resolved; the
// caller issues that call and reports back via CompleteCall. Values
// never touch command history.
func (m *Machine) SubmitPromptValue(value string) *CallRequest {
	p := m.prompt
	if p == nil {
		return nil
	}
	step := p.Current()

	if value == "" {
		m.log.Append(scrollback.Error(step.Label + " must not be empty."))
		return nil
	}
	if step.Key == "username" {
		if err := validate.Username(value); err != nil {
			m.log.Append(scrollback.Error(err.Error()))
			return nil
		}
	}
	if step.ConfirmKey != "" && p.values[step.ConfirmKey] != value {
		m.log.Append(scrollback.Error("Values do not match; aborted."))
		m.discardPrompt()
		return nil
	}

	p.values[step.Key] = value
	if p.idx < len(p.steps)-1 {
		p.idx++
		return nil
	}

	req := buildCall(p.action, p.values)
	m.prompt = nil
	m.state.Interaction = RunningCommand
	m.inflight = req
	return req
}

// CancelPrompt discards the live prompt without issuing any call.
func (m *Machine) CancelPrompt() {
	if m.prompt == nil {
		return
	}
	m.discardPrompt()
	m.log.Append(scrollback.Info("Cancelled."))
}

func (m *Machine) discardPrompt() {
	m.prompt = nil
	m.state.Interaction = Idle
}

// buildCall binds the collected values to the action's privileged tool
// call. The import overwrite flag is forwarded verbatim from the
// decoded action.
func buildCall(action signal.Action, values map[string]string) *CallRequest {
	switch action.Kind {
	case signal.KindLogin:
		return &CallRequest{Kind: action.Kind, Tool: "auth.login", Args: map[string]any{
			"username": values["username"],
			"password": values["password"],
		}}
	case signal.KindSetup:
		return &CallRequest{Kind: action.Kind, Tool: "auth.setup", Args: map[string]any{
			"password": values["password"],
		}}
	case signal.KindResetPassword:
		return &CallRequest{Kind: action.Kind, Tool: "users.reset_password", Args: map[string]any{
			"username": action.Username,
			"password": values["password"],
		}}
	case signal.KindBackupExport:
		return &CallRequest{Kind: action.Kind, Tool: "backup.export", Args: map[string]any{
			"path":       action.Path,
			"passphrase": values["passphrase"],
		}}
	case signal.KindBackupImport:
		return &CallRequest{Kind: action.Kind, Tool: "backup.import", Args: map[string]any{
			"path":       action.Path,
			"passphrase": values["passphrase"],
			"overwrite":  action.Overwrite,
		}}
	}
	return nil
}

// CompleteCall consumes the outcome of the in-flight privileged call.
// Every outcome, including transport failure, lands the machine back in
// Idle; it never stalls in RunningCommand.
func (m *Machine) CompleteCall(res client.ToolResult, err error) {
	req := m.inflight
	m.inflight = nil
	defer func() { m.state.Interaction = Idle }()

	if req == nil {
		return
	}
	if err != nil {
		m.log.Append(scrollback.Error("Network error: " + err.Error()))
		return
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "operation failed"
		}
		m.log.Append(scrollback.Error(msg))
		return
	}

	switch req.Kind {
	case signal.KindLogin, signal.KindSetup:
		var lr client.LoginResult
		if jsonErr := json.Unmarshal(res.Data, &lr); jsonErr != nil || lr.Username == "" {
			m.log.Append(scrollback.Error("Malformed login response."))
			return
		}
		m.state.Authenticated = true
		m.state.Username = lr.Username
		if req.Kind == signal.KindSetup {
			m.log.Append(scrollback.Success("Admin account created. Logged in as " + lr.Username + "."))
		} else {
			m.log.Append(scrollback.Success("Logged in as " + lr.Username + "."))
		}

	case signal.KindResetPassword:
		username, _ := req.Args["username"].(string)
		m.log.Append(scrollback.Success("Password reset for " + username + "."))

	case signal.KindBackupExport:
		var r client.BackupReport
		if json.Unmarshal(res.Data, &r) == nil && r.Path != "" {
			m.log.Append(scrollback.Success(fmt.Sprintf("Exported %d records to %s.", r.Records, r.Path)))
		} else {
			m.log.Append(scrollback.Success("Backup exported."))
		}

	case signal.KindBackupImport:
		var r client.BackupReport
		if json.Unmarshal(res.Data, &r) == nil && r.Path != "" {
			note := ""
			if r.Overwrote {
				note = " (existing data overwritten)"
			}
			m.log.Append(scrollback.Success(fmt.Sprintf("Imported %d records from %s%s.", r.Records, r.Path, note)))
		} else {
			m.log.Append(scrollback.Success("Backup imported."))
		}

	default:
		m.log.Append(scrollback.Success("Done."))
	}
}

// HistoryPrev moves the cursor toward older entries and returns the
// recalled line. ok is false at the oldest entry or with no history.
func (m *Machine) HistoryPrev() (string, bool) {
	h := m.state.History
	if len(h) == 0 {
		return "", false
	}
	switch {
	case m.state.HistoryCursor == -1:
		m.state.HistoryCursor = len(h) - 1
	case m.state.HistoryCursor > 0:
		m.state.HistoryCursor--
	default:
		return h[0], false
	}
	return h[m.state.HistoryCursor], true
}

// HistoryNext moves the cursor toward newer entries. Walking past the
// newest entry returns an empty line and resets the cursor to -1.
func (m *Machine) HistoryNext() (string, bool) {
	h := m.state.History
	if m.state.HistoryCursor == -1 {
		return "", false
	}
	if m.state.HistoryCursor < len(h)-1 {
		m.state.HistoryCursor++
		return h[m.state.HistoryCursor], true
	}
	m.state.HistoryCursor = -1
	return "", true
}
