// Package validate holds input validation shared by the command layer
// and the session prompt flow. All checks run before any network call.
package validate

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	usernameMin = 3
	usernameMax = 50
)

// Username accepts 3-50 character names of letters, digits, underscore
// and hyphen only.
func Username(name string) error {
	if len(name) < usernameMin || len(name) > usernameMax {
		return fmt.Errorf("username must be %d-%d characters", usernameMin, usernameMax)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return fmt.Errorf("username may only contain letters, digits, '_' and '-'")
		}
	}
	return nil
}

// BackupPath rejects empty paths, embedded NUL bytes, and any path
// whose normalized form still contains a parent-directory segment.
func BackupPath(path string) error {
	if path == "" {
		return fmt.Errorf("path must not be empty")
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains an invalid character")
	}
	cleaned := filepath.Clean(path)
	for _, seg := range strings.Split(filepath.ToSlash(cleaned), "/") {
		if seg == ".." {
			return fmt.Errorf("path must not reference a parent directory")
		}
	}
	return nil
}
