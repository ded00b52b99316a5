// Package auth stores the data portal service key used to authorize
// remote dataset downloads.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyFileName    = "service_key"
	keyringService = "roadpulse"
	keyringUser    = "service_key"
)

// ErrNoKey indicates that no portal service key has been saved yet.
var ErrNoKey = errors.New("no service key saved")

// SaveKey stores the portal service key in the OS keychain,
// falling back to a file under dirPath when no keychain is available.
func SaveKey(dirPath, key string) error {
	if key == "" {
		return errors.New("key is required")
	}

	if err := keyring.Set(keyringService, keyringUser, key); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return saveKeyFile(dirPath, key)
	}

	// Clean up fallback file if a previous save left one behind
	os.Remove(path.Join(dirPath, keyFileName))

	return nil
}

// GetKey returns the saved portal service key. Keys left in the file
// fallback by a previous save are migrated to the OS keychain.
// Returns ErrNoKey when nothing has been saved.
func GetKey(dirPath string) (string, error) {
	// Try keychain first
	key, err := keyring.Get(keyringService, keyringUser)
	if err == nil && key != "" {
		return key, nil
	}

	// Fall back to file
	key, err = getKeyFile(dirPath)
	if err != nil {
		return "", err
	}

	// Migrate to keychain
	if migrateErr := keyring.Set(keyringService, keyringUser, key); migrateErr == nil {
		slog.Info("migrated service key from file to OS keychain")
		os.Remove(path.Join(dirPath, keyFileName))
	}

	return key, nil
}

// DeleteKey removes the saved key from the keychain and the file fallback.
func DeleteKey(dirPath string) error {
	kerr := keyring.Delete(keyringService, keyringUser)
	ferr := os.Remove(path.Join(dirPath, keyFileName))

	if kerr != nil && ferr != nil && os.IsNotExist(ferr) {
		return ErrNoKey
	}

	return nil
}

func saveKeyFile(dirPath, key string) error {
	keyPath := path.Join(dirPath, keyFileName)
	if err := os.WriteFile(keyPath, []byte(key), 0600); err != nil {
		return fmt.Errorf("writing key file %s: %w", keyPath, err)
	}
	return nil
}

func getKeyFile(dirPath string) (string, error) {
	keyPath := path.Join(dirPath, keyFileName)
	b, err := os.ReadFile(keyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoKey
		}
		return "", fmt.Errorf("reading key file %s: %w", keyPath, err)
	}
	return strings.TrimSpace(string(b)), nil
}
