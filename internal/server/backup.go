package server

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fernet/fernet-go"

	"github.com/fleetdeck/fleetdeck/internal/server/store"
)

// BackupReport summarizes one export or import.
type BackupReport struct {
	Path      string `json:"path"`
	Records   int    `json:"records"`
	Overwrote bool   `json:"overwrote"`
}

// backupKey derives the fernet key for a backup file from the
// passphrase. The passphrase never leaves the process.
func backupKey(passphrase string) *fernet.Key {
	sum := sha256.Sum256([]byte(passphrase))
	key := fernet.Key(sum)
	return &key
}

// ExportBackup writes every record to an encrypted file at path.
func ExportBackup(st *store.Store, path, passphrase string) (*BackupReport, error) {
	dump, err := st.Export()
	if err != nil {
		return nil, fmt.Errorf("collect records: %w", err)
	}
	plain, err := json.Marshal(dump)
	if err != nil {
		return nil, err
	}
	sealed, err := fernet.EncryptAndSign(plain, backupKey(passphrase))
	if err != nil {
		return nil, fmt.Errorf("encrypt backup: %w", err)
	}
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}
	n := len(dump.Users) + len(dump.Servers) + len(dump.Agents) + len(dump.Locks) + len(dump.Audit)
	return &BackupReport{Path: path, Records: n}, nil
}

// ImportBackup restores the encrypted file at path. A wrong passphrase
// fails verification without touching the database.
func ImportBackup(st *store.Store, path, passphrase string, overwrite bool) (*BackupReport, error) {
	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	plain := fernet.VerifyAndDecrypt(sealed, 0, []*fernet.Key{backupKey(passphrase)})
	if plain == nil {
		return nil, fmt.Errorf("backup verification failed: wrong passphrase or corrupt file")
	}
	var dump store.Dump
	if err := json.Unmarshal(plain, &dump); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	n, err := st.Import(&dump, overwrite)
	if err != nil {
		return nil, fmt.Errorf("restore records: %w", err)
	}
	return &BackupReport{Path: path, Records: n, Overwrote: overwrite}, nil
}
