package server

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fleetdeck/fleetdeck/internal/server/store"
	"github.com/fleetdeck/fleetdeck/internal/validate"
)

// toolSession is the per-connection authentication state. A connection
// serves one terminal, so no locking is needed beyond the read loop.
type toolSession struct {
	username string
}

func (s *toolSession) authed() bool { return s.username != "" }

type toolFunc func(sess *toolSession, args map[string]any) (any, error)

// privileged names the tools that require an authenticated session.
var privileged = map[string]bool{
	"auth.logout":          false,
	"users.list":           true,
	"users.reset_password": true,
	"agents.restart":       true,
	"agents.stop":          true,
	"security.unlock":      true,
	"backup.export":        true,
	"backup.import":        true,
	"update.apply":         true,
	"admin.audit":          true,
}

// callTool dispatches one named tool invocation.
func (s *Server) callTool(sess *toolSession, name string, args map[string]any) (any, error) {
	if privileged[name] && !sess.authed() {
		return nil, fmt.Errorf("authentication required")
	}

	switch name {
	case "auth.setup":
		out, err := s.auth.Setup(strArg(args, "password"))
		if err != nil {
			return nil, err
		}
		sess.username = out.Username
		s.audit(out.Username, "created first admin account")
		return out, nil

	case "auth.login":
		out, err := s.auth.Login(strArg(args, "username"), strArg(args, "password"))
		if err != nil {
			return nil, err
		}
		sess.username = out.Username
		s.audit(out.Username, "logged in")
		return out, nil

	case "auth.logout":
		if sess.authed() {
			s.audit(sess.username, "logged out")
		}
		sess.username = ""
		return map[string]bool{"ok": true}, nil

	case "users.list":
		return s.listUsers()

	case "users.reset_password":
		return s.resetPassword(sess, strArg(args, "username"), strArg(args, "password"))

	case "servers.list":
		return s.listServers()

	case "servers.info":
		return s.serverInfo(strArg(args, "id"))

	case "agents.list":
		return s.listAgents()

	case "agents.restart", "agents.stop":
		return s.setAgent(sess, name, strArg(args, "id"))

	case "security.locks":
		return s.listLocks()

	case "security.unlock":
		id := strArg(args, "lockId")
		if err := s.store.ReleaseLock(id, sess.username, strArg(args, "notes")); err != nil {
			return nil, err
		}
		s.audit(sess.username, "released lock "+id)
		return map[string]bool{"ok": true}, nil

	case "backup.export":
		path := strArg(args, "path")
		if err := validate.BackupPath(path); err != nil {
			return nil, err
		}
		rep, err := ExportBackup(s.store, path, strArg(args, "passphrase"))
		if err != nil {
			return nil, err
		}
		s.audit(sess.username, fmt.Sprintf("exported backup to %s (%d records)", rep.Path, rep.Records))
		return rep, nil

	case "backup.import":
		path := strArg(args, "path")
		if err := validate.BackupPath(path); err != nil {
			return nil, err
		}
		rep, err := ImportBackup(s.store, path, strArg(args, "passphrase"), boolArg(args, "overwrite"))
		if err != nil {
			return nil, err
		}
		s.audit(sess.username, fmt.Sprintf("imported backup from %s (%d records)", rep.Path, rep.Records))
		return rep, nil

	case "update.check":
		return s.updateCheck(), nil

	case "update.apply":
		st := s.updateApply()
		if st.Applied {
			s.audit(sess.username, "applied update "+st.Current)
		}
		return st, nil

	case "dashboard.snapshot":
		return BuildSnapshot(s.store)

	case "admin.audit":
		return s.listAudit()
	}
	return nil, fmt.Errorf("unknown tool: %s", name)
}

// --- tool bodies ---

type userDTO struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) listUsers() ([]userDTO, error) {
	users, err := s.store.Users()
	if err != nil {
		return nil, err
	}
	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		_, locked, err := s.store.ActiveLockFor(u.Username)
		if err != nil {
			return nil, err
		}
		out = append(out, userDTO{
			ID: u.ID, Username: u.Username, Role: u.Role,
			Locked: locked, CreatedAt: u.CreatedAt,
		})
	}
	return out, nil
}

func (s *Server) resetPassword(sess *toolSession, username, password string) (any, error) {
	if err := validate.Username(username); err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetPasswordHash(username, string(hash)); err != nil {
		return nil, err
	}
	s.audit(sess.username, "reset password for "+username)
	return map[string]bool{"ok": true}, nil
}

type serverDTO struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Addr     string  `json:"addr"`
	Status   string  `json:"status"`
	CPUPct   float64 `json:"cpuPct"`
	MemPct   float64 `json:"memPct"`
	AgentNum int     `json:"agentNum"`
}

func (s *Server) serverToDTO(srv store.Server) (serverDTO, error) {
	n, err := s.store.AgentCount(srv.ID)
	if err != nil {
		return serverDTO{}, err
	}
	return serverDTO{
		ID: srv.ID, Name: srv.Name, Addr: srv.Addr, Status: srv.Status,
		CPUPct: srv.CPUPct, MemPct: srv.MemPct, AgentNum: int(n),
	}, nil
}

func (s *Server) listServers() ([]serverDTO, error) {
	servers, err := s.store.Servers()
	if err != nil {
		return nil, err
	}
	out := make([]serverDTO, 0, len(servers))
	for _, srv := range servers {
		dto, err := s.serverToDTO(srv)
		if err != nil {
			return nil, err
		}
		out = append(out, dto)
	}
	return out, nil
}

func (s *Server) serverInfo(id string) (any, error) {
	srv, ok, err := s.store.ServerByID(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no such server: %s", id)
	}
	return s.serverToDTO(*srv)
}

type agentDTO struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Server   string    `json:"server"`
	Status   string    `json:"status"`
	Version  string    `json:"version"`
	LastSeen time.Time `json:"lastSeen"`
}

func (s *Server) listAgents() ([]agentDTO, error) {
	agents, err := s.store.Agents()
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	servers, err := s.store.Servers()
	if err != nil {
		return nil, err
	}
	for _, srv := range servers {
		names[srv.ID] = srv.Name
	}

	out := make([]agentDTO, 0, len(agents))
	for _, a := range agents {
		out = append(out, agentDTO{
			ID: a.ID, Name: a.Name, Server: names[a.ServerID],
			Status: a.Status, Version: a.Version, LastSeen: a.LastSeen,
		})
	}
	return out, nil
}

func (s *Server) setAgent(sess *toolSession, tool, id string) (any, error) {
	if id == "" {
		return nil, fmt.Errorf("agent id required")
	}
	status := "active"
	verb := "restarted"
	if tool == "agents.stop" {
		status = "stopped"
		verb = "stopped"
	}
	if err := s.store.SetAgentStatus(id, status); err != nil {
		return nil, err
	}
	s.audit(sess.username, verb+" agent "+id)
	return map[string]bool{"ok": true}, nil
}

type lockDTO struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) listLocks() ([]lockDTO, error) {
	locks, err := s.store.ActiveLocks()
	if err != nil {
		return nil, err
	}
	out := make([]lockDTO, 0, len(locks))
	for _, l := range locks {
		out = append(out, lockDTO{
			ID: l.ID, Username: l.Username, Reason: l.Reason,
			CreatedAt: l.CreatedAt, ExpiresAt: l.ExpiresAt,
		})
	}
	return out, nil
}

type auditDTO struct {
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
}

func (s *Server) listAudit() ([]auditDTO, error) {
	entries, err := s.store.AuditLog(100)
	if err != nil {
		return nil, err
	}
	out := make([]auditDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditDTO{At: e.At, Actor: e.Actor, Action: e.Action})
	}
	return out, nil
}

// audit records an administrative action; failures to record never
// fail the action itself.
func (s *Server) audit(actor, action string) {
	if actor == "" {
		actor = "anonymous"
	}
	_ = s.store.Audit(actor, action)
}

// --- argument helpers ---

func strArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}
