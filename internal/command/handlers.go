package command

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fleetdeck/fleetdeck/internal/client"
	"github.com/fleetdeck/fleetdeck/internal/scrollback"
	"github.com/fleetdeck/fleetdeck/internal/signal"
	"github.com/fleetdeck/fleetdeck/internal/validate"
)

// invoke performs one tool call and decodes its payload into out. It
// returns a single error line on any failure: transport faults and
// tool-level failures alike stop at this boundary.
func invoke(cc *Context, tool string, args map[string]any, out any) (scrollback.Line, bool) {
	res, err := cc.Tools.CallTool(cc.Ctx, tool, args)
	if err != nil {
		return scrollback.Error("Network error: " + err.Error()), false
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = tool + " failed"
		}
		return scrollback.Error(msg), false
	}
	if out != nil && len(res.Data) > 0 {
		if err := json.Unmarshal(res.Data, out); err != nil {
			return scrollback.Error("Malformed response from " + tool + "."), false
		}
	}
	return scrollback.Line{}, true
}

// requireAuth guards privileged operations. Argument validation always
// runs first; this check runs before any network call or signal.
func requireAuth(cc *Context) (scrollback.Line, bool) {
	if !cc.State.Authenticated {
		return scrollback.Error("Authentication required. Use /login first."), false
	}
	return scrollback.Line{}, true
}

// interactive wraps an encoded signal in the system line that carries
// it to the session machine. Exactly one per interactive result.
func interactive(encoded string) Result {
	return output(scrollback.System(encoded))
}

// --- local built-ins ---

func runStatus(args []string, cc *Context) Result {
	s := cc.State
	auth := "anonymous"
	if s.Authenticated {
		auth = "authenticated as " + s.Username
	}
	lines := []scrollback.Line{
		scrollback.Info("Connection: " + s.Connectivity.String()),
		scrollback.Info("Auth:       " + auth),
		scrollback.Info(fmt.Sprintf("History:    %d commands", len(s.History))),
	}
	if s.LastError != "" {
		lines = append(lines, scrollback.Info("Last error: "+s.LastError))
	}
	if cc.Version != "" {
		lines = append(lines, scrollback.Info("Version:    "+cc.Version))
	}
	return Result{Lines: lines}
}

func runClear(args []string, cc *Context) Result {
	return interactive(signal.Clear())
}

func runQuit(args []string, cc *Context) Result {
	return Result{Quit: true}
}

func runLogin(args []string, cc *Context) Result {
	if len(args) != 0 {
		// Never accept credentials on the command line.
		return usage("/login  (credentials are prompted, not passed inline)")
	}
	if cc.State.Authenticated {
		return output(scrollback.Info("Already logged in as " + cc.State.Username + ". Use /logout first."))
	}
	return interactive(signal.Login())
}

func runLogout(args []string, cc *Context) Result {
	if !cc.State.Authenticated {
		return output(scrollback.Info("Not logged in."))
	}
	return interactive(signal.Logout())
}

func runView(args []string, cc *Context) Result {
	if len(args) != 1 {
		return usage("/view <dashboard|agents|logs|settings>")
	}
	if !signal.ValidViewTarget(args[0]) {
		return output(scrollback.Error(fmt.Sprintf(
			"Unknown view %q. Valid views: dashboard, agents, logs, settings.", args[0])))
	}
	return interactive(signal.View(signal.ViewTarget(args[0])))
}

func runRefresh(args []string, cc *Context) Result {
	return interactive(signal.Refresh())
}

// --- read-only listings: the handler performs the call itself ---

func runServers(args []string, cc *Context) Result {
	var servers []client.ServerInfo
	if line, ok := invoke(cc, "servers.list", nil, &servers); !ok {
		return output(line)
	}
	if len(servers) == 0 {
		return output(scrollback.Info("No servers registered."))
	}
	lines := []scrollback.Line{scrollback.Info(fmt.Sprintf(
		"%-10s %-18s %-22s %-8s %6s %6s %7s", "ID", "NAME", "ADDR", "STATUS", "CPU%", "MEM%", "AGENTS"))}
	for _, s := range servers {
		lines = append(lines, scrollback.Info(fmt.Sprintf(
			"%-10s %-18s %-22s %-8s %6.1f %6.1f %7d",
			s.ID, s.Name, s.Addr, s.Status, s.CPUPct, s.MemPct, s.AgentNum)))
	}
	return Result{Lines: lines}
}

func runAgents(args []string, cc *Context) Result {
	var agents []client.AgentInfo
	if line, ok := invoke(cc, "agents.list", nil, &agents); !ok {
		return output(line)
	}
	if len(agents) == 0 {
		return output(scrollback.Info("No agents connected."))
	}
	lines := []scrollback.Line{scrollback.Info(fmt.Sprintf(
		"%-10s %-18s %-14s %-10s %-10s %s", "ID", "NAME", "SERVER", "STATUS", "VERSION", "LAST SEEN"))}
	for _, a := range agents {
		lines = append(lines, scrollback.Info(fmt.Sprintf(
			"%-10s %-18s %-14s %-10s %-10s %s",
			a.ID, a.Name, a.Server, a.Status, a.Version, a.LastSeen.Format("2006-01-02 15:04"))))
	}
	return Result{Lines: lines}
}

// --- subcommand handlers ---

func runServer(args []string, cc *Context) Result {
	const subs = "list, info"
	if len(args) == 0 {
		return missingSubcommand("server", "list", "info")
	}
	switch args[0] {
	case "list":
		return runServers(nil, cc)
	case "info":
		if len(args) != 2 {
			return usage("/server info <server-id>")
		}
		var s client.ServerInfo
		if line, ok := invoke(cc, "servers.info", map[string]any{"id": args[1]}, &s); !ok {
			return output(line)
		}
		return Result{Lines: []scrollback.Line{
			scrollback.Info("Server " + s.ID + " (" + s.Name + ")"),
			scrollback.Info("  addr:   " + s.Addr),
			scrollback.Info("  status: " + s.Status),
			scrollback.Info(fmt.Sprintf("  cpu:    %.1f%%  mem: %.1f%%", s.CPUPct, s.MemPct)),
			scrollback.Info(fmt.Sprintf("  agents: %d", s.AgentNum)),
		}}
	default:
		return unknownSubcommand("server", args[0], "list", "info")
	}
}

func runAgent(args []string, cc *Context) Result {
	if len(args) == 0 {
		return missingSubcommand("agent", "list", "restart", "stop")
	}
	switch args[0] {
	case "list":
		return runAgents(nil, cc)
	case "restart", "stop":
		verb := args[0]
		if len(args) != 2 {
			return usage("/agent " + verb + " <agent-id>")
		}
		if line, ok := requireAuth(cc); !ok {
			return output(line)
		}
		if line, ok := invoke(cc, "agents."+verb, map[string]any{"id": args[1]}, nil); !ok {
			return output(line)
		}
		past := "restarted"
		if verb == "stop" {
			past = "stopped"
		}
		return output(scrollback.Success("Agent " + args[1] + " " + past + "."))
	default:
		return unknownSubcommand("agent", args[0], "list", "restart", "stop")
	}
}

func runUser(args []string, cc *Context) Result {
	if len(args) == 0 {
		return missingSubcommand("user", "list", "reset-password")
	}
	switch args[0] {
	case "list":
		if line, ok := requireAuth(cc); !ok {
			return output(line)
		}
		var users []client.UserInfo
		if line, ok := invoke(cc, "users.list", nil, &users); !ok {
			return output(line)
		}
		if len(users) == 0 {
			return output(scrollback.Info("No user accounts."))
		}
		lines := []scrollback.Line{scrollback.Info(fmt.Sprintf(
			"%-36s %-20s %-8s %s", "ID", "USERNAME", "ROLE", "LOCKED"))}
		for _, u := range users {
			locked := "-"
			if u.Locked {
				locked = "yes"
			}
			lines = append(lines, scrollback.Info(fmt.Sprintf(
				"%-36s %-20s %-8s %s", u.ID, u.Username, u.Role, locked)))
		}
		return Result{Lines: lines}

	case "reset-password":
		if len(args) != 2 {
			return usage("/user reset-password <username>")
		}
		if err := validate.Username(args[1]); err != nil {
			return output(scrollback.Error(err.Error()))
		}
		if line, ok := requireAuth(cc); !ok {
			return output(line)
		}
		return interactive(signal.ResetPassword(args[1]))

	default:
		return unknownSubcommand("user", args[0], "list", "reset-password")
	}
}

func runSecurity(args []string, cc *Context) Result {
	if len(args) == 0 {
		return missingSubcommand("security", "locks", "unlock")
	}
	switch args[0] {
	case "locks":
		var locks []client.LockInfo
		if line, ok := invoke(cc, "security.locks", nil, &locks); !ok {
			return output(line)
		}
		if len(locks) == 0 {
			return output(scrollback.Info("No active account locks."))
		}
		lines := []scrollback.Line{scrollback.Info(fmt.Sprintf(
			"%-36s %-20s %-24s %s", "LOCK ID", "USERNAME", "REASON", "EXPIRES"))}
		for _, l := range locks {
			lines = append(lines, scrollback.Info(fmt.Sprintf(
				"%-36s %-20s %-24s %s", l.ID, l.Username, l.Reason, l.ExpiresAt.Format("2006-01-02 15:04"))))
		}
		return Result{Lines: lines}

	case "unlock":
		if len(args) < 2 {
			return usage("/security unlock <lock-id> [notes]")
		}
		if line, ok := requireAuth(cc); !ok {
			return output(line)
		}
		callArgs := map[string]any{"lockId": args[1]}
		if len(args) > 2 {
			callArgs["notes"] = strings.Join(args[2:], " ")
		}
		if line, ok := invoke(cc, "security.unlock", callArgs, nil); !ok {
			return output(line)
		}
		return output(scrollback.Success("Lock " + args[1] + " released."))

	default:
		return unknownSubcommand("security", args[0], "locks", "unlock")
	}
}

func runBackup(args []string, cc *Context) Result {
	if len(args) == 0 {
		return missingSubcommand("backup", "export", "import")
	}
	switch args[0] {
	case "export":
		if len(args) != 2 {
			return usage("/backup export <path>")
		}
		if err := validate.BackupPath(args[1]); err != nil {
			return output(scrollback.Error(err.Error()))
		}
		if line, ok := requireAuth(cc); !ok {
			return output(line)
		}
		return interactive(signal.BackupExport(args[1]))

	case "import":
		overwrite := false
		rest := make([]string, 0, len(args)-1)
		for _, a := range args[1:] {
			if a == "--overwrite" {
				overwrite = true
				continue
			}
			rest = append(rest, a)
		}
		if len(rest) != 1 {
			return usage("/backup import <path> [--overwrite]")
		}
		if err := validate.BackupPath(rest[0]); err != nil {
			return output(scrollback.Error(err.Error()))
		}
		if line, ok := requireAuth(cc); !ok {
			return output(line)
		}
		return interactive(signal.BackupImport(rest[0], overwrite))

	default:
		return unknownSubcommand("backup", args[0], "export", "import")
	}
}

func runUpdate(args []string, cc *Context) Result {
	if len(args) == 0 {
		return missingSubcommand("update", "check", "apply")
	}
	switch args[0] {
	case "check":
		var st client.UpdateStatus
		if line, ok := invoke(cc, "update.check", nil, &st); !ok {
			return output(line)
		}
		if st.Available == "" || st.Available == st.Current {
			return output(scrollback.Info("Server is up to date (" + st.Current + ")."))
		}
		return Result{Lines: []scrollback.Line{
			scrollback.Info("Current version:   " + st.Current),
			scrollback.Info("Available version: " + st.Available),
			scrollback.Info("Run /update apply to install."),
		}}
	case "apply":
		if line, ok := requireAuth(cc); !ok {
			return output(line)
		}
		var st client.UpdateStatus
		if line, ok := invoke(cc, "update.apply", nil, &st); !ok {
			return output(line)
		}
		if !st.Applied {
			return output(scrollback.Info("Already on the latest version (" + st.Current + ")."))
		}
		return output(scrollback.Success("Updated to " + st.Current + "."))
	default:
		return unknownSubcommand("update", args[0], "check", "apply")
	}
}

func runAdmin(args []string, cc *Context) Result {
	if len(args) == 0 {
		return missingSubcommand("admin", "setup", "audit")
	}
	switch args[0] {
	case "setup":
		if cc.State.Authenticated {
			return output(scrollback.Info("Setup is only available before the first admin account exists."))
		}
		return interactive(signal.Setup())
	case "audit":
		if line, ok := requireAuth(cc); !ok {
			return output(line)
		}
		var entries []auditEntry
		if line, ok := invoke(cc, "admin.audit", nil, &entries); !ok {
			return output(line)
		}
		if len(entries) == 0 {
			return output(scrollback.Info("Audit log is empty."))
		}
		lines := make([]scrollback.Line, 0, len(entries))
		for _, e := range entries {
			lines = append(lines, scrollback.Info(fmt.Sprintf(
				"%s  %-20s %s", e.At.Format("2006-01-02 15:04:05"), e.Actor, e.Action)))
		}
		return Result{Lines: lines}
	default:
		return unknownSubcommand("admin", args[0], "setup", "audit")
	}
}

// auditEntry mirrors the admin.audit payload.
type auditEntry struct {
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
}
