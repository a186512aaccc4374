package server

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/server/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(config.ServerConfig{
		TokenTTL: time.Hour,
		Lockout:  config.LockoutConfig{Threshold: 5, Window: 10 * time.Minute, Duration: 15 * time.Minute},
	}, st, "1.4.2", "1.5.0")
	if err != nil {
		t.Fatal(err)
	}
	return srv
}

func authedSession(t *testing.T, s *Server) *toolSession {
	t.Helper()
	sess := &toolSession{}
	if _, err := s.callTool(sess, "auth.setup", map[string]any{"password": "correct horse battery"}); err != nil {
		t.Fatal(err)
	}
	return sess
}

func TestPrivilegedToolsRequireAuth(t *testing.T) {
	s := testServer(t)
	sess := &toolSession{}

	for _, tool := range []string{
		"users.list", "users.reset_password", "agents.restart", "agents.stop",
		"security.unlock", "backup.export", "backup.import", "update.apply", "admin.audit",
	} {
		if _, err := s.callTool(sess, tool, nil); err == nil || !strings.Contains(err.Error(), "authentication") {
			t.Errorf("%s without auth: %v", tool, err)
		}
	}
}

func TestReadOnlyToolsNeedNoAuth(t *testing.T) {
	s := testServer(t)
	sess := &toolSession{}

	for _, tool := range []string{
		"servers.list", "agents.list", "security.locks", "update.check", "dashboard.snapshot",
	} {
		if _, err := s.callTool(sess, tool, nil); err != nil {
			t.Errorf("%s: %v", tool, err)
		}
	}
}

func TestUnknownTool(t *testing.T) {
	s := testServer(t)
	if _, err := s.callTool(&toolSession{}, "fleet.nuke", nil); err == nil {
		t.Error("unknown tool dispatched")
	}
}

func TestLoginBindsSession(t *testing.T) {
	s := testServer(t)
	setup := authedSession(t, s)
	if setup.username != "admin" {
		t.Fatalf("setup session user = %q", setup.username)
	}

	sess := &toolSession{}
	if _, err := s.callTool(sess, "auth.login", map[string]any{
		"username": "admin", "password": "correct horse battery",
	}); err != nil {
		t.Fatal(err)
	}
	if sess.username != "admin" {
		t.Errorf("session user = %q", sess.username)
	}

	if _, err := s.callTool(sess, "auth.logout", nil); err != nil {
		t.Fatal(err)
	}
	if sess.authed() {
		t.Error("session still authenticated after logout")
	}
}

func TestUsersListMarksLockedAccounts(t *testing.T) {
	s := testServer(t)
	sess := authedSession(t, s)

	if _, err := s.Store().CreateLock("admin", "test", time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	out, err := s.callTool(sess, "users.list", nil)
	if err != nil {
		t.Fatal(err)
	}
	users := out.([]userDTO)
	if len(users) != 1 || !users[0].Locked {
		t.Errorf("users = %+v", users)
	}
}

func TestResetPasswordValidates(t *testing.T) {
	s := testServer(t)
	sess := authedSession(t, s)

	if _, err := s.callTool(sess, "users.reset_password", map[string]any{
		"username": "bad.name", "password": "longenough",
	}); err == nil {
		t.Error("invalid username accepted")
	}
	if _, err := s.callTool(sess, "users.reset_password", map[string]any{
		"username": "admin", "password": "short",
	}); err == nil {
		t.Error("short password accepted")
	}
	if _, err := s.callTool(sess, "users.reset_password", map[string]any{
		"username": "admin", "password": "a brand new passphrase",
	}); err != nil {
		t.Fatalf("valid reset failed: %v", err)
	}

	if _, err := s.auth.Login("admin", "a brand new passphrase"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

func TestUnlockReleasesLock(t *testing.T) {
	s := testServer(t)
	sess := authedSession(t, s)

	l, err := s.Store().CreateLock("ops", "test", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.callTool(sess, "security.unlock", map[string]any{
		"lockId": l.ID, "notes": "verified with user",
	}); err != nil {
		t.Fatal(err)
	}
	if locks, _ := s.Store().ActiveLocks(); len(locks) != 0 {
		t.Errorf("locks still active: %v", locks)
	}

	if _, err := s.callTool(sess, "security.unlock", map[string]any{"lockId": l.ID}); err == nil {
		t.Error("double unlock succeeded")
	}
}

func TestAgentRestartAndStop(t *testing.T) {
	s := testServer(t)
	sess := authedSession(t, s)

	if err := s.Store().UpsertAgent(&store.Agent{ID: "ag-1", Name: "a", Status: "stopped"}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.callTool(sess, "agents.restart", map[string]any{"id": "ag-1"}); err != nil {
		t.Fatal(err)
	}
	agents, _ := s.Store().Agents()
	if agents[0].Status != "active" {
		t.Errorf("status after restart = %q", agents[0].Status)
	}

	if _, err := s.callTool(sess, "agents.stop", map[string]any{"id": "ag-1"}); err != nil {
		t.Fatal(err)
	}
	agents, _ = s.Store().Agents()
	if agents[0].Status != "stopped" {
		t.Errorf("status after stop = %q", agents[0].Status)
	}

	if _, err := s.callTool(sess, "agents.restart", map[string]any{"id": "ghost"}); err == nil {
		t.Error("restart of missing agent succeeded")
	}
}

func TestBackupRoundTripOverWire(t *testing.T) {
	s := testServer(t)
	sess := authedSession(t, s)
	path := filepath.Join(t.TempDir(), "deck.backup")

	if err := s.Store().UpsertServer(&store.Server{ID: "srv-1", Name: "edge-a", Status: "up"}); err != nil {
		t.Fatal(err)
	}

	out, err := s.callTool(sess, "backup.export", map[string]any{
		"path": path, "passphrase": "open sesame",
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if rep := out.(*BackupReport); rep.Records == 0 {
		t.Error("export reported zero records")
	}

	// Wrong passphrase must fail cleanly.
	if _, err := s.callTool(sess, "backup.import", map[string]any{
		"path": path, "passphrase": "wrong",
	}); err == nil {
		t.Error("import with wrong passphrase succeeded")
	}

	dst := testServer(t)
	dsess := authedSession(t, dst)
	out, err = dst.callTool(dsess, "backup.import", map[string]any{
		"path": path, "passphrase": "open sesame", "overwrite": true,
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if rep := out.(*BackupReport); !rep.Overwrote {
		t.Error("overwrite flag not echoed in report")
	}
	servers, _ := dst.Store().Servers()
	if len(servers) != 1 || servers[0].Name != "edge-a" {
		t.Errorf("servers after import = %v", servers)
	}
}

func TestBackupRejectsTraversalPath(t *testing.T) {
	s := testServer(t)
	sess := authedSession(t, s)
	if _, err := s.callTool(sess, "backup.export", map[string]any{
		"path": "../escape", "passphrase": "x",
	}); err == nil {
		t.Error("traversal path accepted")
	}
}

func TestUpdateCheckAndApply(t *testing.T) {
	s := testServer(t)
	sess := authedSession(t, s)

	out, err := s.callTool(sess, "update.check", nil)
	if err != nil {
		t.Fatal(err)
	}
	st := out.(UpdateStatus)
	if st.Current != "1.4.2" || st.Available != "1.5.0" {
		t.Errorf("check = %+v", st)
	}

	out, err = s.callTool(sess, "update.apply", nil)
	if err != nil {
		t.Fatal(err)
	}
	st = out.(UpdateStatus)
	if !st.Applied || st.Current != "1.5.0" {
		t.Errorf("apply = %+v", st)
	}

	// Second apply is a no-op.
	out, _ = s.callTool(sess, "update.apply", nil)
	if st = out.(UpdateStatus); st.Applied {
		t.Error("re-apply reported applied")
	}
}

func TestAuditTrailRecordsActions(t *testing.T) {
	s := testServer(t)
	sess := authedSession(t, s)

	if err := s.Store().UpsertAgent(&store.Agent{ID: "ag-1", Name: "a", Status: "active"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.callTool(sess, "agents.stop", map[string]any{"id": "ag-1"}); err != nil {
		t.Fatal(err)
	}

	out, err := s.callTool(sess, "admin.audit", nil)
	if err != nil {
		t.Fatal(err)
	}
	entries := out.([]auditDTO)
	var sawStop bool
	for _, e := range entries {
		if strings.Contains(e.Action, "stopped agent ag-1") && e.Actor == "admin" {
			sawStop = true
		}
	}
	if !sawStop {
		t.Errorf("audit trail missing stop action: %+v", entries)
	}
}

func TestSeedDemoIsIdempotent(t *testing.T) {
	s := testServer(t)
	if err := s.SeedDemo(); err != nil {
		t.Fatal(err)
	}
	servers, _ := s.Store().Servers()
	if len(servers) == 0 {
		t.Fatal("seed created no servers")
	}
	before := len(servers)

	if err := s.SeedDemo(); err != nil {
		t.Fatal(err)
	}
	servers, _ = s.Store().Servers()
	if len(servers) != before {
		t.Errorf("second seed changed server count: %d -> %d", before, len(servers))
	}
}
