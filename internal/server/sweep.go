package server

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// StartSweeps schedules the periodic maintenance jobs: releasing
// expired account locks and flagging agents that stopped reporting.
// The returned cron is already running; stop it on shutdown.
func (s *Server) StartSweeps() (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(s.cfg.SweepCron, func() {
		if n, err := s.store.ReleaseExpiredLocks(); err != nil {
			log.Printf("sweep: release expired locks: %v", err)
		} else if n > 0 {
			log.Printf("sweep: released %d expired locks", n)
		}

		cutoff := time.Now().Add(-s.cfg.AgentTimeout)
		if n, err := s.store.MarkStaleAgents(cutoff); err != nil {
			log.Printf("sweep: mark stale agents: %v", err)
		} else if n > 0 {
			log.Printf("sweep: marked %d agents stale", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", s.cfg.SweepCron, err)
	}
	c.Start()
	return c, nil
}
