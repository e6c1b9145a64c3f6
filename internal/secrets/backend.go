package secrets

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/term"

	"mailassist/internal/config"
)

const (
	BackendAuto     = "auto"
	BackendKeychain = "keychain"
	BackendFile     = "file"

	keyringPasswordEnv = "MAILASSIST_KEYRING_PASSWORD" //nolint:gosec // env var name, not a credential
	keyringOpenTimeout = 5 * time.Second
)

var (
	errNoTTY                 = errors.New("no TTY available for keyring file backend password prompt")
	errInvalidKeyringBackend = errors.New("invalid keyring backend")
	errKeyringTimeout        = errors.New("keyring connection timed out")
)

// opener decides how the keyring is opened on the current host.
type opener struct {
	goos     string
	dbusAddr string
	timeout  time.Duration
	open     func(keyring.Config) (keyring.Keyring, error)
}

func hostOpener() opener {
	return opener{
		goos:     runtime.GOOS,
		dbusAddr: os.Getenv("DBUS_SESSION_BUS_ADDRESS"),
		timeout:  keyringOpenTimeout,
		open:     keyring.Open,
	}
}

// backends maps a keyring.backend value to the allowed keyring backends.
// Auto on Linux without a D-Bus session falls back to the file backend.
func (o opener) backends(name string) ([]keyring.BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendAuto:
		if o.goos == "linux" && o.dbusAddr == "" {
			return []keyring.BackendType{keyring.FileBackend}, nil
		}
		return nil, nil
	case BackendKeychain:
		return []keyring.BackendType{keyring.KeychainBackend}, nil
	case BackendFile:
		return []keyring.BackendType{keyring.FileBackend}, nil
	default:
		return nil, fmt.Errorf("%w: %q (expected %s, %s or %s)", errInvalidKeyringBackend, name, BackendAuto, BackendKeychain, BackendFile)
	}
}

// guarded reports whether opening may block on an unresponsive D-Bus
// SecretService and needs a deadline.
func (o opener) guarded(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	return o.goos == "linux" && (name == "" || name == BackendAuto) && o.dbusAddr != ""
}

func (o opener) openRing(backend string, dir string, prompt keyring.PromptFunc) (keyring.Keyring, error) {
	allowed, err := o.backends(backend)
	if err != nil {
		return nil, err
	}
	cfg := keyring.Config{
		ServiceName:      config.AppName,
		AllowedBackends:  allowed,
		FileDir:          dir,
		FilePasswordFunc: prompt,
	}
	if !o.guarded(backend) {
		ring, err := o.open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open keyring: %w", err)
		}
		return ring, nil
	}

	type result struct {
		ring keyring.Keyring
		err  error
	}
	done := make(chan result, 1)
	go func() {
		ring, err := o.open(cfg)
		done <- result{ring, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("open keyring: %w", res.err)
		}
		return res.ring, nil
	case <-time.After(o.timeout):
		return nil, fmt.Errorf("%w after %v (D-Bus SecretService may be unresponsive); "+
			"set MAILASSIST_KEYRING_BACKEND=file and %s=<password> to use encrypted file storage instead",
			errKeyringTimeout, o.timeout, keyringPasswordEnv)
	}
}

func openKeyring() (keyring.Keyring, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("resolve keyring backend: %w", err)
	}
	dir, err := config.EnsureKeyringDir()
	if err != nil {
		return nil, err
	}
	return hostOpener().openRing(cfg.Keyring.Backend, dir, filePrompt())
}

// promptFor picks the passphrase source of the file backend: the
// environment when set (empty is a valid passphrase), else the terminal.
func promptFor(password string, passwordSet bool, isTTY bool) keyring.PromptFunc {
	switch {
	case passwordSet:
		return keyring.FixedStringPrompt(password)
	case isTTY:
		return keyring.TerminalPrompt
	default:
		return func(string) (string, error) {
			return "", fmt.Errorf("%w; set %s", errNoTTY, keyringPasswordEnv)
		}
	}
}

func filePrompt() keyring.PromptFunc {
	password, ok := os.LookupEnv(keyringPasswordEnv)
	return promptFor(password, ok, term.IsTerminal(int(os.Stdin.Fd())))
}

// IsKeychainLockedError reports whether msg is the macOS keychain error for a
// locked login keychain.
func IsKeychainLockedError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "user interaction is not allowed") ||
		strings.Contains(lower, "keychain is locked") ||
		strings.Contains(lower, "-25308")
}

func explainKeychainError(err error) error {
	if err != nil && IsKeychainLockedError(err.Error()) {
		return fmt.Errorf("%w\n\nYour macOS keychain is locked. To unlock it, run:\n  security unlock-keychain ~/Library/Keychains/login.keychain-db", err)
	}
	return err
}
