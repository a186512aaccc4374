package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Client.WSURL != "ws://localhost:8080/ws" {
		t.Errorf("WSURL = %q", cfg.Client.WSURL)
	}
	if cfg.Server.Lockout.Threshold != 5 {
		t.Errorf("Lockout.Threshold = %d, want 5", cfg.Server.Lockout.Threshold)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yaml := `
client:
  ws_url: "ws://deck.internal:9000/ws"
  history_size: 500
server:
  port: 9000
  db_path: "/var/lib/fleetdeck/deck.db"
  token_ttl: 1h
  lockout:
    threshold: 3
    duration: 30m
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.WSURL != "ws://deck.internal:9000/ws" {
		t.Errorf("WSURL = %q", cfg.Client.WSURL)
	}
	if cfg.Client.HistorySize != 500 {
		t.Errorf("HistorySize = %d", cfg.Client.HistorySize)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Server.TokenTTL != time.Hour {
		t.Errorf("TokenTTL = %v", cfg.Server.TokenTTL)
	}
	if cfg.Server.Lockout.Threshold != 3 {
		t.Errorf("Lockout.Threshold = %d", cfg.Server.Lockout.Threshold)
	}
	// Untouched fields keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q", cfg.Server.Host)
	}
	if cfg.Server.Lockout.Window != 10*time.Minute {
		t.Errorf("Lockout.Window = %v", cfg.Server.Lockout.Window)
	}
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("server:\n  port: 9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FLEETDECK_PORT", "7777")
	t.Setenv("FLEETDECK_DB_PATH", "/tmp/env.db")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Port = %d, want env override 7777", cfg.Server.Port)
	}
	if cfg.Server.DBPath != "/tmp/env.db" {
		t.Errorf("DBPath = %q", cfg.Server.DBPath)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Fatal("malformed YAML accepted")
	}
}

func TestAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
}
