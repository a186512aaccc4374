package command

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/fleetdeck/fleetdeck/internal/scrollback"
)

// runHelp renders the command reference. The markdown goes through
// glamour when a renderer is available; otherwise the raw text is
// shown, so help never fails.
func runHelp(args []string, cc *Context) Result {
	md := helpMarkdown()
	rendered := md
	if r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(100),
	); err == nil {
		if out, err := r.Render(md); err == nil {
			rendered = out
		}
	}

	var lines []scrollback.Line
	for _, l := range strings.Split(strings.TrimRight(rendered, "\n"), "\n") {
		lines = append(lines, scrollback.Info(l))
	}
	return Result{Lines: lines}
}

func helpMarkdown() string {
	var b strings.Builder
	b.WriteString("# fleetdeck commands\n\n")
	b.WriteString("| Command | Description |\n|---------|-------------|\n")
	seen := map[string]bool{}
	for _, c := range registry() {
		if seen[c.Usage] {
			continue
		}
		seen[c.Usage] = true
		b.WriteString("| `" + c.Usage + "` | " + c.Summary + " |\n")
	}
	b.WriteString("\nCredentials and backup passphrases are always prompted with masked input, never typed inline.\n")
	b.WriteString("Use the up/down arrows for command history and Esc to cancel a prompt.\n")
	return b.String()
}
