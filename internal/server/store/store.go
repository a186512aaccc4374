// Package store is the fleetdeckd persistence layer, backed by SQLite
// through GORM.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

func orIgnore() clause.OnConflict {
	return clause.OnConflict{DoNothing: true}
}

// Store wraps the database handle.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.AutoMigrate(
		&User{}, &Server{}, &Agent{}, &AccountLock{}, &AuditEntry{}, &LoginAttempt{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// --- users ---

// CreateUser inserts a new account.
func (s *Store) CreateUser(username, passwordHash, role string) (*User, error) {
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := s.db.Create(u).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}
	return u, nil
}

// UserByUsername looks up one account. ok is false when it does not exist.
func (s *Store) UserByUsername(username string) (*User, bool, error) {
	var u User
	err := s.db.Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &u, true, nil
}

// Users returns every account, oldest first.
func (s *Store) Users() ([]User, error) {
	var out []User
	return out, s.db.Order("created_at").Find(&out).Error
}

// CountUsers returns the number of accounts.
func (s *Store) CountUsers() (int64, error) {
	var n int64
	return n, s.db.Model(&User{}).Count(&n).Error
}

// SetPasswordHash replaces the stored hash for an account.
func (s *Store) SetPasswordHash(username, hash string) error {
	res := s.db.Model(&User{}).Where("username = ?", username).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no such user: %s", username)
	}
	return nil
}

// --- servers and agents ---

// UpsertServer inserts or replaces a server record.
func (s *Store) UpsertServer(srv *Server) error {
	return s.db.Save(srv).Error
}

// Servers returns all servers, by name.
func (s *Store) Servers() ([]Server, error) {
	var out []Server
	return out, s.db.Order("name").Find(&out).Error
}

// ServerByID looks one server up.
func (s *Store) ServerByID(id string) (*Server, bool, error) {
	var srv Server
	err := s.db.First(&srv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &srv, true, nil
}

// AgentCount returns the number of agents attached to a server.
func (s *Store) AgentCount(serverID string) (int64, error) {
	var n int64
	return n, s.db.Model(&Agent{}).Where("server_id = ?", serverID).Count(&n).Error
}

// UpsertAgent inserts or replaces an agent record.
func (s *Store) UpsertAgent(a *Agent) error {
	return s.db.Save(a).Error
}

// Agents returns all agents, by name.
func (s *Store) Agents() ([]Agent, error) {
	var out []Agent
	return out, s.db.Order("name").Find(&out).Error
}

// SetAgentStatus updates one agent's status.
func (s *Store) SetAgentStatus(id, status string) error {
	res := s.db.Model(&Agent{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no such agent: %s", id)
	}
	return nil
}

// MarkStaleAgents flags agents unseen since the cutoff. It returns how
// many were flagged.
func (s *Store) MarkStaleAgents(cutoff time.Time) (int64, error) {
	res := s.db.Model(&Agent{}).
		Where("last_seen < ? AND status = ?", cutoff, "active").
		Update("status", "stale")
	return res.RowsAffected, res.Error
}

// --- locks ---

// CreateLock records a new account lock.
func (s *Store) CreateLock(username, reason string, expires time.Time) (*AccountLock, error) {
	l := &AccountLock{
		ID:        uuid.NewString(),
		Username:  username,
		Reason:    reason,
		CreatedAt: time.Now(),
		ExpiresAt: expires,
	}
	if err := s.db.Create(l).Error; err != nil {
		return nil, fmt.Errorf("create lock for %s: %w", username, err)
	}
	return l, nil
}

// ActiveLocks returns unreleased, unexpired locks.
func (s *Store) ActiveLocks() ([]AccountLock, error) {
	var out []AccountLock
	err := s.db.Where("released = ? AND expires_at > ?", false, time.Now()).
		Order("created_at").Find(&out).Error
	return out, err
}

// ActiveLockFor returns the live lock on a username, if any.
func (s *Store) ActiveLockFor(username string) (*AccountLock, bool, error) {
	var l AccountLock
	err := s.db.Where("username = ? AND released = ? AND expires_at > ?",
		username, false, time.Now()).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &l, true, nil
}

// ReleaseLock marks a lock released.
func (s *Store) ReleaseLock(id, releasedBy, notes string) error {
	res := s.db.Model(&AccountLock{}).Where("id = ? AND released = ?", id, false).
		Updates(map[string]any{"released": true, "released_by": releasedBy, "notes": notes})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no active lock with id %s", id)
	}
	return nil
}

// ReleaseExpiredLocks marks expired locks released so they stop showing
// as active. Returns how many were released.
func (s *Store) ReleaseExpiredLocks() (int64, error) {
	res := s.db.Model(&AccountLock{}).
		Where("released = ? AND expires_at <= ?", false, time.Now()).
		Update("released", true)
	return res.RowsAffected, res.Error
}

// --- login attempts ---

// RecordFailedLogin stores one failed attempt.
func (s *Store) RecordFailedLogin(username string) error {
	return s.db.Create(&LoginAttempt{Username: username, At: time.Now()}).Error
}

// FailedLoginsSince counts recent failures for a username.
func (s *Store) FailedLoginsSince(username string, since time.Time) (int64, error) {
	var n int64
	err := s.db.Model(&LoginAttempt{}).
		Where("username = ? AND at > ?", username, since).Count(&n).Error
	return n, err
}

// ClearFailedLogins drops a username's attempt history.
func (s *Store) ClearFailedLogins(username string) error {
	return s.db.Where("username = ?", username).Delete(&LoginAttempt{}).Error
}

// --- audit ---

// Audit appends one audit entry.
func (s *Store) Audit(actor, action string) error {
	return s.db.Create(&AuditEntry{At: time.Now(), Actor: actor, Action: action}).Error
}

// AuditLog returns the newest entries first, up to limit.
func (s *Store) AuditLog(limit int) ([]AuditEntry, error) {
	var out []AuditEntry
	return out, s.db.Order("at desc").Limit(limit).Find(&out).Error
}

// --- backup ---

// Dump captures every table for an encrypted export.
type Dump struct {
	Users   []User        `json:"users"`
	Servers []Server      `json:"servers"`
	Agents  []Agent       `json:"agents"`
	Locks   []AccountLock `json:"locks"`
	Audit   []AuditEntry  `json:"audit"`
}

// Export collects all records.
func (s *Store) Export() (*Dump, error) {
	var d Dump
	if err := s.db.Find(&d.Users).Error; err != nil {
		return nil, err
	}
	if err := s.db.Find(&d.Servers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Find(&d.Agents).Error; err != nil {
		return nil, err
	}
	if err := s.db.Find(&d.Locks).Error; err != nil {
		return nil, err
	}
	if err := s.db.Find(&d.Audit).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// Import restores a dump. With overwrite set, existing tables are
// cleared first; otherwise records with colliding keys are skipped.
// It returns the number of records written.
func (s *Store) Import(d *Dump, overwrite bool) (int, error) {
	written := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if overwrite {
			for _, model := range []any{&User{}, &Server{}, &Agent{}, &AccountLock{}, &AuditEntry{}} {
				if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
					return err
				}
			}
		}
		write := func(value any) error {
			res := tx.Clauses(orIgnore()).Create(value)
			written += int(res.RowsAffected)
			return res.Error
		}
		for i := range d.Users {
			if err := write(&d.Users[i]); err != nil {
				return err
			}
		}
		for i := range d.Servers {
			if err := write(&d.Servers[i]); err != nil {
				return err
			}
		}
		for i := range d.Agents {
			if err := write(&d.Agents[i]); err != nil {
				return err
			}
		}
		for i := range d.Locks {
			if err := write(&d.Locks[i]); err != nil {
				return err
			}
		}
		for i := range d.Audit {
			d.Audit[i].ID = 0
			if err := write(&d.Audit[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return written, err
}
