// Package command tokenizes terminal input, resolves built-ins and
// dispatches to per-command handlers. Handlers validate before any
// network call and either answer directly or emit an encoded signal for
// the session machine; no error ever escapes the router as a fault.
package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/fleetdeck/fleetdeck/internal/client"
	"github.com/fleetdeck/fleetdeck/internal/scrollback"
	"github.com/fleetdeck/fleetdeck/internal/session"
)

// Context carries everything a handler may consult: a snapshot of the
// session state and the tool transport. Handlers never mutate state;
// mutation happens in the session machine when it consumes their output.
type Context struct {
	Ctx     context.Context
	State   session.State
	Tools   client.ToolCaller
	Version string
}

// Result is the outcome of routing one input line.
type Result struct {
	Lines []scrollback.Line
	Quit  bool
}

func output(lines ...scrollback.Line) Result { return Result{Lines: lines} }

// Command is one top-level slash command.
type Command struct {
	Name    string
	Summary string
	Usage   string
	Local   bool // resolved from session state alone, usable offline
	Run     func(args []string, cc *Context) Result
}

// registry returns the command table in help order. Lookup is by exact
// name; "quit" and "exit" are distinct entries sharing a handler.
func registry() []Command {
	return []Command{
		{Name: "help", Summary: "Show available commands", Usage: "/help", Local: true, Run: runHelp},
		{Name: "status", Summary: "Show session status", Usage: "/status", Local: true, Run: runStatus},
		{Name: "clear", Summary: "Clear the terminal scrollback", Usage: "/clear", Local: true, Run: runClear},
		{Name: "quit", Summary: "Exit the terminal", Usage: "/quit", Local: true, Run: runQuit},
		{Name: "exit", Summary: "Exit the terminal", Usage: "/exit", Local: true, Run: runQuit},
		{Name: "login", Summary: "Authenticate against the control server", Usage: "/login", Local: true, Run: runLogin},
		{Name: "logout", Summary: "Drop the current authentication", Usage: "/logout", Local: true, Run: runLogout},
		{Name: "view", Summary: "Switch view", Usage: "/view <dashboard|agents|logs|settings>", Local: true, Run: runView},
		{Name: "refresh", Summary: "Refetch dashboard data", Usage: "/refresh", Local: true, Run: runRefresh},
		{Name: "servers", Summary: "List managed servers", Usage: "/servers", Run: runServers},
		{Name: "agents", Summary: "List fleet agents", Usage: "/agents", Run: runAgents},
		{Name: "server", Summary: "Server operations", Usage: "/server <list|info> ...", Run: runServer},
		{Name: "agent", Summary: "Agent operations", Usage: "/agent <list|restart|stop> ...", Run: runAgent},
		{Name: "user", Summary: "User account operations", Usage: "/user <list|reset-password> ...", Run: runUser},
		{Name: "security", Summary: "Account lock operations", Usage: "/security <locks|unlock> ...", Run: runSecurity},
		{Name: "backup", Summary: "Export or import an encrypted backup", Usage: "/backup <export|import> <path> [--overwrite]", Run: runBackup},
		{Name: "update", Summary: "Check for or apply server updates", Usage: "/update <check|apply>", Run: runUpdate},
		{Name: "admin", Summary: "Administrative operations", Usage: "/admin <setup|audit>", Run: runAdmin},
	}
}

func lookup(name string) (Command, bool) {
	for _, c := range registry() {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

// Route processes one raw input line. It echoes the input, resolves the
// command and runs its handler. Input is refused while another
// operation is pending, so handlers never interleave on one session.
func Route(raw string, cc *Context) Result {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{}
	}
	echo := scrollback.Command(trimmed)

	switch cc.State.Interaction {
	case session.RunningCommand:
		return output(echo, scrollback.Error("A command is still running; wait for it to finish."))
	case session.AwaitingSecret:
		return output(echo, scrollback.Error("Finish or cancel the current prompt first."))
	}

	fields := strings.Fields(trimmed)
	name := strings.TrimPrefix(fields[0], "/")
	args := fields[1:]

	cmd, ok := lookup(name)
	if !ok {
		return output(echo, unknownCommand(name))
	}

	res := cmd.Run(args, cc)
	res.Lines = append([]scrollback.Line{echo}, res.Lines...)
	return res
}

// unknownCommand formats the error for an unresolvable top-level
// command, suggesting the closest name when one is plausibly near.
func unknownCommand(name string) scrollback.Line {
	msg := fmt.Sprintf("Unknown command: /%s. Type /help for a list of commands.", name)
	if s := closestCommand(name); s != "" {
		msg = fmt.Sprintf("Unknown command: /%s. Did you mean /%s?", name, s)
	}
	return scrollback.Error(msg)
}

func closestCommand(name string) string {
	best := ""
	bestDist := 3 // suggest only within edit distance 2
	names := make([]string, 0, len(registry()))
	for _, c := range registry() {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	for _, n := range names {
		if d := levenshtein.ComputeDistance(name, n); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// missingSubcommand and unknownSubcommand are deliberately distinct:
// an absent subcommand and an unrecognized one are different mistakes
// and get different phrasing, never inferred from an empty string.
func missingSubcommand(name string, subs ...string) Result {
	return output(scrollback.Error(fmt.Sprintf(
		"Missing subcommand for /%s. Expected one of: %s.", name, strings.Join(subs, ", "))))
}

func unknownSubcommand(name, sub string, subs ...string) Result {
	return output(scrollback.Error(fmt.Sprintf(
		"Unknown subcommand %q for /%s. Expected one of: %s.", sub, name, strings.Join(subs, ", "))))
}

func usage(text string) Result {
	return output(scrollback.Error("Usage: " + text))
}
