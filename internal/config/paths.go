package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppName = "mailassist"

	// DirEnv overrides the config directory.
	DirEnv = "MAILASSIST_CONFIG_DIR"
)

// Dir is $MAILASSIST_CONFIG_DIR, else ~/.config/mailassist.
func Dir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home dir: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureKeyringDir creates the directory of the keyring file backend.
func EnsureKeyringDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "keyring")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("ensure keyring dir: %w", err)
	}
	return dir, nil
}
