// Package config loads the fleetdeck configuration from YAML with
// environment-variable overrides for the server half.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Client ClientConfig `yaml:"client"`
	Server ServerConfig `yaml:"server"`
}

// ClientConfig drives the terminal UI.
type ClientConfig struct {
	WSURL       string `yaml:"ws_url"`
	HTTPBaseURL string `yaml:"http_base_url"`
	HistorySize int    `yaml:"history_size"`
	InitialView string `yaml:"initial_view"`
}

// ServerConfig drives fleetdeckd. Fields with an envconfig tag can be
// overridden through FLEETDECK_* variables, which win over the file.
type ServerConfig struct {
	Port         int           `yaml:"port" envconfig:"PORT"`
	Host         string        `yaml:"host" envconfig:"HOST"`
	DBPath       string        `yaml:"db_path" envconfig:"DB_PATH"`
	FernetKey    string        `yaml:"fernet_key" envconfig:"FERNET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" envconfig:"TOKEN_TTL"`
	Lockout      LockoutConfig `yaml:"lockout"`
	SweepCron    string        `yaml:"sweep_cron" envconfig:"SWEEP_CRON"`
	AgentTimeout time.Duration `yaml:"agent_timeout" envconfig:"AGENT_TIMEOUT"`
	Demo         bool          `yaml:"demo" envconfig:"DEMO"`
}

// LockoutConfig controls automatic account locking after repeated
// failed logins.
type LockoutConfig struct {
	Threshold int           `yaml:"threshold" envconfig:"LOCKOUT_THRESHOLD"`
	Window    time.Duration `yaml:"window" envconfig:"LOCKOUT_WINDOW"`
	Duration  time.Duration `yaml:"duration" envconfig:"LOCKOUT_DURATION"`
}

func defaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			WSURL:       "ws://localhost:8080/ws",
			HTTPBaseURL: "http://localhost:8080",
			HistorySize: 200,
			InitialView: "dashboard",
		},
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			DBPath:       "fleetdeck.db",
			TokenTTL:     12 * time.Hour,
			SweepCron:    "*/5 * * * *",
			AgentTimeout: 2 * time.Minute,
			Lockout: LockoutConfig{
				Threshold: 5,
				Window:    10 * time.Minute,
				Duration:  15 * time.Minute,
			},
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// FLEETDECK_* environment overrides. A missing file is not an error;
// defaults plus environment still yield a usable configuration.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to environment
	default:
		return nil, err
	}

	if err := envconfig.Process("FLEETDECK", &cfg.Server); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	return cfg, nil
}

// Addr returns the listen address for the server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
