package server

import (
	"strings"
	"testing"
	"time"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/server/store"
)

func testAuth(t *testing.T) (*Authenticator, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	a, err := NewAuthenticator(st, "", time.Hour, config.LockoutConfig{
		Threshold: 3,
		Window:    10 * time.Minute,
		Duration:  15 * time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}
	return a, st
}

func TestSetupThenLogin(t *testing.T) {
	a, _ := testAuth(t)

	out, err := a.Setup("correct horse battery")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if out.Username != "admin" || out.Token == "" {
		t.Errorf("outcome = %+v", out)
	}

	if _, err := a.Setup("another password"); err == nil {
		t.Error("second setup succeeded")
	}

	got, err := a.Login("admin", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if name, ok := a.VerifyToken(got.Token); !ok || name != "admin" {
		t.Errorf("VerifyToken = %q, %v", name, ok)
	}
}

func TestSetupRejectsShortPassword(t *testing.T) {
	a, _ := testAuth(t)
	if _, err := a.Setup("short"); err == nil {
		t.Error("short password accepted")
	}
}

func TestLoginFailureThenLockout(t *testing.T) {
	a, st := testAuth(t)
	if _, err := a.Setup("correct horse battery"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, err := a.Login("admin", "wrong"); err == nil {
			t.Fatal("bad password accepted")
		}
	}

	if _, locked, _ := st.ActiveLockFor("admin"); !locked {
		t.Fatal("threshold crossed but no lock created")
	}

	// Even the right password is refused while locked.
	_, err := a.Login("admin", "correct horse battery")
	if err == nil || !strings.Contains(err.Error(), "locked") {
		t.Errorf("login under lock: %v", err)
	}
}

func TestUnknownUsernameNeverLocks(t *testing.T) {
	a, st := testAuth(t)
	if _, err := a.Setup("correct horse battery"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if _, err := a.Login("nobody", "guess"); err == nil {
			t.Fatal("login for unknown user succeeded")
		}
	}
	if _, locked, _ := st.ActiveLockFor("nobody"); locked {
		t.Error("lock created for nonexistent account")
	}
}

func TestSuccessfulLoginClearsFailures(t *testing.T) {
	a, st := testAuth(t)
	if _, err := a.Setup("correct horse battery"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		a.Login("admin", "wrong")
	}
	if _, err := a.Login("admin", "correct horse battery"); err != nil {
		t.Fatal(err)
	}

	// Two more failures alone must not cross the threshold of 3.
	for i := 0; i < 2; i++ {
		a.Login("admin", "wrong")
	}
	if _, locked, _ := st.ActiveLockFor("admin"); locked {
		t.Error("stale failures counted after successful login")
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	a, _ := testAuth(t)
	if _, ok := a.VerifyToken("not-a-token"); ok {
		t.Error("garbage token verified")
	}
}
