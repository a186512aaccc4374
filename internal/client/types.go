// Package client provides the WebSocket tool-invocation transport and
// the HTTP client for the fleetdeckd API. Types mirror the server wire
// protocol without importing server packages.
package client

import (
	"context"
	"encoding/json"
	"time"
)

// ToolResult is the outcome of one remote tool invocation. Transport
// failures surface as Go errors from CallTool; a delivered result with
// Success=false is a tool-level failure.
type ToolResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ToolCaller is the remote tool-invocation transport consumed by the
// command and session layers. Framing, reconnect and retry policy live
// behind this interface.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error)
}

// toolRequest is one request frame on the tool socket.
type toolRequest struct {
	ID   string         `json:"id"`
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// toolResponse is one response frame on the tool socket.
type toolResponse struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// --- DTOs mirrored from the fleetdeckd API ---

// ServerInfo describes one managed server.
type ServerInfo struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Addr     string  `json:"addr"`
	Status   string  `json:"status"`
	CPUPct   float64 `json:"cpuPct"`
	MemPct   float64 `json:"memPct"`
	AgentNum int     `json:"agentNum"`
}

// AgentInfo describes one fleet agent.
type AgentInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Server   string    `json:"server"`
	Status   string    `json:"status"`
	Version  string    `json:"version"`
	LastSeen time.Time `json:"lastSeen"`
}

// UserInfo describes one dashboard user account.
type UserInfo struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"createdAt"`
}

// LockInfo describes one active account lock.
type LockInfo struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginResult is returned by auth.login and auth.setup.
type LoginResult struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Token    string `json:"token"`
}

// UpdateStatus is returned by update.check and update.apply.
type UpdateStatus struct {
	Current   string `json:"current"`
	Available string `json:"available"`
	Applied   bool   `json:"applied"`
}

// BackupReport is returned by backup.export and backup.import.
type BackupReport struct {
	Path      string `json:"path"`
	Records   int    `json:"records"`
	Overwrote bool   `json:"overwrote,omitempty"`
}

// DashboardSnapshot is the dashboard-style data refetched by the
// refresh action and rendered by the dashboard view.
type DashboardSnapshot struct {
	Servers      int       `json:"servers"`
	ServersUp    int       `json:"serversUp"`
	Agents       int       `json:"agents"`
	AgentsActive int       `json:"agentsActive"`
	Users        int       `json:"users"`
	ActiveLocks  int       `json:"activeLocks"`
	HostCPUPct   float64   `json:"hostCpuPct"`
	HostMemPct   float64   `json:"hostMemPct"`
	GeneratedAt  time.Time `json:"generatedAt"`
}
