package store

import "time"

// User is an admin account.
type User struct {
	ID           string `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex"`
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Server is a managed host.
type Server struct {
	ID     string `gorm:"primaryKey"`
	Name   string
	Addr   string
	Status string
	CPUPct float64
	MemPct float64
}

// Agent is a fleet agent running on a server.
type Agent struct {
	ID       string `gorm:"primaryKey"`
	Name     string
	ServerID string `gorm:"index"`
	Status   string
	Version  string
	LastSeen time.Time
}

// AccountLock blocks logins for a username until it expires or an
// admin releases it.
type AccountLock struct {
	ID         string `gorm:"primaryKey"`
	Username   string `gorm:"index"`
	Reason     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Released   bool
	ReleasedBy string
	Notes      string
}

// AuditEntry records one administrative action.
type AuditEntry struct {
	ID     uint `gorm:"primaryKey;autoIncrement"`
	At     time.Time
	Actor  string
	Action string
}

// LoginAttempt records one failed login, used by the lockout policy.
type LoginAttempt struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	Username string `gorm:"index"`
	At       time.Time
}
