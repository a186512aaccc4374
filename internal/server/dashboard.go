package server

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/fleetdeck/fleetdeck/internal/server/store"
)

// DashboardSnapshot aggregates fleet counts with control-host
// utilization.
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

// BuildSnapshot queries the store and the host for current numbers.
// Host metrics failing is not fatal; they read as zero.
func BuildSnapshot(st *store.Store) (*DashboardSnapshot, error) {
	snap := &DashboardSnapshot{GeneratedAt: time.Now()}

	servers, err := st.Servers()
	if err != nil {
		return nil, err
	}
	snap.Servers = len(servers)
	for _, s := range servers {
		if s.Status == "up" {
			snap.ServersUp++
		}
	}

	agents, err := st.Agents()
	if err != nil {
		return nil, err
	}
	snap.Agents = len(agents)
	for _, a := range agents {
		if a.Status == "active" {
			snap.AgentsActive++
		}
	}

	users, err := st.CountUsers()
	if err != nil {
		return nil, err
	}
	snap.Users = int(users)

	locks, err := st.ActiveLocks()
	if err != nil {
		return nil, err
	}
	snap.ActiveLocks = len(locks)

	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		snap.HostCPUPct = pcts[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.HostMemPct = vm.UsedPercent
	}
	return snap, nil
}
