// Package signal encodes deferred interactive actions as tagged strings
// and classifies output lines back into typed actions.
//
// A signal is a reserved-prefix string carried in the text of a system
// line: "complete interactive step S, then call privileged operation P".
// Signals are process-internal. They are never persisted, never sent on
// the wire, and never rendered verbatim.
package signal

import (
	"strings"

	"github.com/fleetdeck/fleetdeck/internal/scrollback"
)

// Kind tags a classified action.
type Kind int

const (
	KindMessage Kind = iota // plain output, the terminal case
	KindClear
	KindLogout
	KindLogin
	KindRefresh
	KindSetup
	KindResetPassword
	KindBackupExport
	KindBackupImport
	KindView
)

// lead starts every signal. The NUL byte cannot survive input
// validation, so no user-typed line can collide with a signal.
const lead = "\x00fleetdeck:"

const (
	prefixClear   = lead + "clear"
	prefixLogout  = lead + "logout"
	prefixLogin   = lead + "login"
	prefixRefresh = lead + "refresh"
	prefixSetup   = lead + "setup"

	prefixResetPassword = lead + "reset-password:"
	prefixBackupExport  = lead + "backup-export:"

	// The two import prefixes must not extend one another: if the
	// overwrite variant were the plain prefix plus "overwrite:", a
	// plain import of a path starting with "overwrite:" would encode
	// to the overwrite variant's bytes and mis-classify. classifyOrder
	// still tries the longer prefix first.
	prefixBackupImport          = lead + "backup-import:"
	prefixBackupImportOverwrite = lead + "backup-import-overwrite:"

	prefixView = lead + "view:"
)

// ViewTarget is the fixed enumeration of navigable views.
type ViewTarget string

const (
	ViewDashboard ViewTarget = "dashboard"
	ViewAgents    ViewTarget = "agents"
	ViewLogs      ViewTarget = "logs"
	ViewSettings  ViewTarget = "settings"
)

// ValidViewTarget reports whether s names a view.
func ValidViewTarget(s string) bool {
	switch ViewTarget(s) {
	case ViewDashboard, ViewAgents, ViewLogs, ViewSettings:
		return true
	}
	return false
}

// Action is the typed, decoded form of a signal. Exactly one field
// group is meaningful per Kind.
type Action struct {
	Kind Kind

	Username  string     // KindResetPassword
	Path      string     // KindBackupExport, KindBackupImport
	Overwrite bool       // KindBackupImport
	Target    ViewTarget // KindView

	// Line is the original line for KindMessage, carried unchanged so
	// the caller can append it with its kind metadata intact.
	Line scrollback.Line
}

// Clear encodes the clear-scrollback action.
func Clear() string { return prefixClear }

// Logout encodes the logout action.
func Logout() string { return prefixLogout }

// Login encodes the begin-login action.
func Login() string { return prefixLogin }

// Refresh encodes the dashboard-refresh action.
func Refresh() string { return prefixRefresh }

// Setup encodes the begin-initial-setup action.
func Setup() string { return prefixSetup }

// ResetPassword encodes a password reset for username. The argument is
// appended unescaped; the decode reproduces it byte for byte.
func ResetPassword(username string) string { return prefixResetPassword + username }

// BackupExport encodes a backup export to path.
func BackupExport(path string) string { return prefixBackupExport + path }

// BackupImport encodes a backup import from path. The overwrite flag
// selects its own prefix; it is never re-derived from text.
func BackupImport(path string, overwrite bool) string {
	if overwrite {
		return prefixBackupImportOverwrite + path
	}
	return prefixBackupImport + path
}

// View encodes navigation to target.
func View(target ViewTarget) string { return prefixView + string(target) }

// classifyEntry pairs a prefix with its decoder. The table is evaluated
// in order, so prefixes that extend another prefix come first. Never
// build this from a map: map iteration order is not a protocol.
type classifyEntry struct {
	prefix string
	decode func(payload string, line scrollback.Line) Action
}

var classifyOrder = []classifyEntry{
	{prefixBackupImportOverwrite, func(p string, l scrollback.Line) Action {
		if p == "" {
			return message(l)
		}
		return Action{Kind: KindBackupImport, Path: p, Overwrite: true}
	}},
	{prefixBackupImport, func(p string, l scrollback.Line) Action {
		if p == "" {
			return message(l)
		}
		return Action{Kind: KindBackupImport, Path: p}
	}},
	{prefixBackupExport, func(p string, l scrollback.Line) Action {
		if p == "" {
			return message(l)
		}
		return Action{Kind: KindBackupExport, Path: p}
	}},
	{prefixResetPassword, func(p string, l scrollback.Line) Action {
		if p == "" {
			return message(l)
		}
		return Action{Kind: KindResetPassword, Username: p}
	}},
	{prefixView, func(p string, l scrollback.Line) Action {
		if !ValidViewTarget(p) {
			return message(l)
		}
		return Action{Kind: KindView, Target: ViewTarget(p)}
	}},
	{prefixRefresh, exact(KindRefresh)},
	{prefixLogout, exact(KindLogout)},
	{prefixLogin, exact(KindLogin)},
	{prefixSetup, exact(KindSetup)},
	{prefixClear, exact(KindClear)},
}

func exact(kind Kind) func(string, scrollback.Line) Action {
	return func(p string, l scrollback.Line) Action {
		if p != "" {
			return message(l)
		}
		return Action{Kind: kind}
	}
}

func message(line scrollback.Line) Action {
	return Action{Kind: KindMessage, Line: line}
}

// Classify decodes line into an action. Classification is total:
// anything that is not a well-formed signal degrades to a message
// action carrying the original line unchanged. It never fails.
func Classify(line scrollback.Line) Action {
	if !strings.HasPrefix(line.Text, lead) {
		return message(line)
	}
	for _, e := range classifyOrder {
		if strings.HasPrefix(line.Text, e.prefix) {
			return e.decode(line.Text[len(e.prefix):], line)
		}
	}
	return message(line)
}

// IsSignal reports whether text begins with the reserved signal lead.
func IsSignal(text string) bool {
	return strings.HasPrefix(text, lead)
}
