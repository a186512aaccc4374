package server

import (
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/server/store"
)

// Authenticator handles account setup, login, lockout, and token
// issuance. Tokens are fernet-signed usernames with a TTL.
type Authenticator struct {
	store   *store.Store
	key     *fernet.Key
	ttl     time.Duration
	lockout config.LockoutConfig
}

// NewAuthenticator creates an authenticator. An empty encoded key
// generates an ephemeral one, invalidating tokens across restarts.
func NewAuthenticator(st *store.Store, encodedKey string, ttl time.Duration, lockout config.LockoutConfig) (*Authenticator, error) {
	var key *fernet.Key
	if encodedKey == "" {
		key = &fernet.Key{}
		if err := key.Generate(); err != nil {
			return nil, fmt.Errorf("generate token key: %w", err)
		}
	} else {
		k, err := fernet.DecodeKey(encodedKey)
		if err != nil {
			return nil, fmt.Errorf("decode token key: %w", err)
		}
		key = k
	}
	return &Authenticator{store: st, key: key, ttl: ttl, lockout: lockout}, nil
}

// LoginOutcome is what a successful login or setup returns.
type LoginOutcome struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Token    string `json:"token"`
}

// Setup creates the first admin account. It refuses to run once any
// account exists.
func (a *Authenticator) Setup(password string) (*LoginOutcome, error) {
	n, err := a.store.CountUsers()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, fmt.Errorf("setup already completed")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u, err := a.store.CreateUser("admin", string(hash), "admin")
	if err != nil {
		return nil, err
	}
	return a.outcome(u)
}

// Login verifies credentials, enforcing the lockout policy. Failed
// attempts accumulate; crossing the threshold inside the window locks
// the account.
func (a *Authenticator) Login(username, password string) (*LoginOutcome, error) {
	if _, locked, err := a.store.ActiveLockFor(username); err != nil {
		return nil, err
	} else if locked {
		return nil, fmt.Errorf("account is locked; an administrator can release it with /security unlock")
	}

	u, ok, err := a.store.UserByUsername(username)
	if err != nil {
		return nil, err
	}
	// Burn a comparison for unknown usernames as well, so the failure
	// path does not reveal which accounts exist.
	hash := []byte("$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinval")
	if ok {
		hash = []byte(u.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil || !ok {
		if err := a.recordFailure(username); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("invalid credentials")
	}

	if err := a.store.ClearFailedLogins(username); err != nil {
		return nil, err
	}
	return a.outcome(u)
}

// VerifyToken returns the username a token was issued to.
func (a *Authenticator) VerifyToken(token string) (string, bool) {
	msg := fernet.VerifyAndDecrypt([]byte(token), a.ttl, []*fernet.Key{a.key})
	if msg == nil {
		return "", false
	}
	return string(msg), true
}

func (a *Authenticator) outcome(u *store.User) (*LoginOutcome, error) {
	tok, err := fernet.EncryptAndSign([]byte(u.Username), a.key)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &LoginOutcome{Username: u.Username, Role: u.Role, Token: string(tok)}, nil
}

func (a *Authenticator) recordFailure(username string) error {
	if err := a.store.RecordFailedLogin(username); err != nil {
		return err
	}
	if a.lockout.Threshold <= 0 {
		return nil
	}
	n, err := a.store.FailedLoginsSince(username, time.Now().Add(-a.lockout.Window))
	if err != nil {
		return err
	}
	if n < int64(a.lockout.Threshold) {
		return nil
	}
	// Only lock real accounts; probing random usernames creates no rows.
	if _, exists, err := a.store.UserByUsername(username); err != nil || !exists {
		return err
	}
	if _, already, err := a.store.ActiveLockFor(username); err != nil || already {
		return err
	}
	_, err = a.store.CreateLock(username,
		fmt.Sprintf("%d failed logins in %s", n, a.lockout.Window),
		time.Now().Add(a.lockout.Duration))
	if err == nil {
		err = a.store.Audit("system", "locked account "+username)
	}
	return err
}
