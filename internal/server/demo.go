package server

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/fleetdeck/fleetdeck/internal/server/store"
)

// SeedDemo fills an empty store with a plausible small fleet, so the
// terminal has something to show without real agents. It is a no-op
// when servers already exist.
func (s *Server) SeedDemo() error {
	existing, err := s.store.Servers()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	servers := []store.Server{
		{ID: "srv-edge-a", Name: "edge-a", Addr: "10.20.0.4:9000", Status: "up", CPUPct: 18.5, MemPct: 42.0},
		{ID: "srv-edge-b", Name: "edge-b", Addr: "10.20.0.5:9000", Status: "up", CPUPct: 61.2, MemPct: 70.3},
		{ID: "srv-batch-1", Name: "batch-1", Addr: "10.20.1.10:9000", Status: "degraded", CPUPct: 93.7, MemPct: 88.1},
		{ID: "srv-batch-2", Name: "batch-2", Addr: "10.20.1.11:9000", Status: "down"},
	}
	for i := range servers {
		if err := s.store.UpsertServer(&servers[i]); err != nil {
			return err
		}
	}

	names := []string{"collector", "shipper", "indexer", "prober", "janitor"}
	now := time.Now()
	for _, srv := range servers[:3] {
		for i, name := range names[:2+rand.Intn(3)] {
			status := "active"
			seen := now.Add(-time.Duration(rand.Intn(50)) * time.Second)
			if srv.Status == "degraded" && i == 0 {
				status = "errored"
				seen = now.Add(-9 * time.Minute)
			}
			a := store.Agent{
				ID:       fmt.Sprintf("ag-%s-%s", srv.Name, name),
				Name:     fmt.Sprintf("%s-%s", name, srv.Name),
				ServerID: srv.ID,
				Status:   status,
				Version:  "1.4.2",
				LastSeen: seen,
			}
			if err := s.store.UpsertAgent(&a); err != nil {
				return err
			}
		}
	}

	if _, err := s.store.CreateLock("pentest",
		"5 failed logins in 10m", now.Add(30*time.Minute)); err != nil {
		return err
	}
	return s.store.Audit("system", "seeded demo fleet")
}
