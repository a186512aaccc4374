// Package server implements fleetdeckd: the REST API, the WebSocket
// tool endpoint, authentication, backups, and the maintenance sweeps.
package server

import (
	"fmt"
	"sync"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/server/store"
)

// Server holds fleetdeckd's shared state.
type Server struct {
	cfg   config.ServerConfig
	store *store.Store
	auth  *Authenticator

	mu        sync.Mutex
	version   string
	available string
	applied   bool
}

// New wires a server around an open store.
func New(cfg config.ServerConfig, st *store.Store, version, available string) (*Server, error) {
	auth, err := NewAuthenticator(st, cfg.FernetKey, cfg.TokenTTL, cfg.Lockout)
	if err != nil {
		return nil, fmt.Errorf("authenticator: %w", err)
	}
	return &Server{
		cfg:       cfg,
		store:     st,
		auth:      auth,
		version:   version,
		available: available,
	}, nil
}

// Store exposes the persistence layer.
func (s *Server) Store() *store.Store { return s.store }

// UpdateStatus reports the current and available versions.
type UpdateStatus struct {
	Current   string `json:"current"`
	Available string `json:"available"`
	Applied   bool   `json:"applied"`
}

func (s *Server) updateCheck() UpdateStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return UpdateStatus{Current: s.version, Available: s.available, Applied: s.applied}
}

// updateApply marks the available version active. The running binary
// is not swapped; the agent rollout picks the new version up.
func (s *Server) updateApply() UpdateStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.available != "" && s.available != s.version {
		s.version = s.available
		s.applied = true
	} else {
		s.applied = false
	}
	return UpdateStatus{Current: s.version, Available: s.available, Applied: s.applied}
}
