// Package session owns the terminal session state machine: the
// connectivity, auth and interaction axes, classified-action
// transitions, and the secret-collection flow for privileged calls.
package session

// Connectivity is the transport axis.
type Connectivity int

const (
	Disconnected Connectivity = iota
	Connecting
	Connected
)

// String returns the display name of the connectivity state.
func (c Connectivity) String() string {
	switch c {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Interaction is the input-mode axis. RunningCommand and AwaitingSecret
// are mutual-exclusion guards: the router refuses new input while
// either is active, so at most one operation is pending at any instant.
type Interaction int

const (
	Idle Interaction = iota
	AwaitingSecret
	RunningCommand
)

// State is the observable session state. History is ordered
// most-recent-last and never stores secrets; masked submissions bypass
// it entirely. HistoryCursor stays within [-1, len(History)), where -1
// means the user is editing a fresh line.
type State struct {
	Connectivity  Connectivity
	LastError     string
	Authenticated bool
	Username      string
	InputBuffer   string
	History       []string
	HistoryCursor int
	Interaction   Interaction
}
