package secrets

import (
	"errors"
	"testing"
	"time"

	"github.com/99designs/keyring"
)

func useArrayKeyring(t *testing.T) {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	prev := openKeyringFunc
	openKeyringFunc = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { openKeyringFunc = prev })
}

func TestAPIKeyRoundTrip(t *testing.T) {
	useArrayKeyring(t)

	if err := SetAPIKey(" OpenAI ", "sk-test"); err != nil {
		t.Fatalf("set api key: %v", err)
	}
	got, err := GetAPIKey("openai")
	if err != nil {
		t.Fatalf("get api key: %v", err)
	}
	if got != "sk-test" {
		t.Fatalf("api key = %q", got)
	}

	if _, err := GetAPIKey("anthropic"); !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestPasswordAndTokenRoundTrip(t *testing.T) {
	useArrayKeyring(t)

	if err := SetPassword("User@Example.com", "pw"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	pw, err := GetPassword("user@example.com")
	if err != nil || pw != "pw" {
		t.Fatalf("get password = %q, %v", pw, err)
	}

	if err := SetToken("graph", []byte(`{"access_token":"a"}`)); err != nil {
		t.Fatalf("set token: %v", err)
	}
	tok, err := GetToken("Graph")
	if err != nil || string(tok) != `{"access_token":"a"}` {
		t.Fatalf("get token = %q, %v", tok, err)
	}
}

func TestMissingInputs(t *testing.T) {
	useArrayKeyring(t)

	if err := SetAPIKey("", "k"); !errors.Is(err, errMissingProvider) {
		t.Fatalf("expected missing provider, got %v", err)
	}
	if err := SetPassword("", "pw"); !errors.Is(err, errMissingUsername) {
		t.Fatalf("expected missing username, got %v", err)
	}
	if err := SetPassword("u", ""); !errors.Is(err, errMissingPassword) {
		t.Fatalf("expected missing password, got %v", err)
	}
	if err := SetAPIKey("openai", ""); !errors.Is(err, errMissingValue) {
		t.Fatalf("expected missing value, got %v", err)
	}
	if err := SetToken(" ", []byte("t")); !errors.Is(err, errMissingName) {
		t.Fatalf("expected missing name, got %v", err)
	}
}

func TestBackendSelection(t *testing.T) {
	tests := []struct {
		name    string
		opener  opener
		backend string
		want    []keyring.BackendType
		wantErr error
	}{
		{name: "auto on darwin", opener: opener{goos: "darwin"}, backend: "auto"},
		{name: "auto on linux without dbus", opener: opener{goos: "linux"}, backend: "", want: []keyring.BackendType{keyring.FileBackend}},
		{name: "auto on linux with dbus", opener: opener{goos: "linux", dbusAddr: "unix:path=/run/bus"}, backend: "auto"},
		{name: "explicit file", opener: opener{goos: "darwin"}, backend: " FILE ", want: []keyring.BackendType{keyring.FileBackend}},
		{name: "explicit keychain", opener: opener{goos: "darwin"}, backend: "keychain", want: []keyring.BackendType{keyring.KeychainBackend}},
		{name: "unknown", opener: opener{goos: "linux"}, backend: "vault", wantErr: errInvalidKeyringBackend},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.opener.backends(tc.backend)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("backends: %v", err)
			}
			if len(got) != len(tc.want) || (len(got) == 1 && got[0] != tc.want[0]) {
				t.Fatalf("backends = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGuardedOpenTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	o := opener{
		goos:     "linux",
		dbusAddr: "unix:path=/run/bus",
		timeout:  10 * time.Millisecond,
		open: func(keyring.Config) (keyring.Keyring, error) {
			<-release
			return nil, errors.New("late")
		},
	}
	if _, err := o.openRing(BackendAuto, t.TempDir(), nil); !errors.Is(err, errKeyringTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestOpenRingPassesFileDir(t *testing.T) {
	dir := t.TempDir()
	var got keyring.Config
	o := opener{goos: "darwin", open: func(cfg keyring.Config) (keyring.Keyring, error) {
		got = cfg
		return keyring.NewArrayKeyring(nil), nil
	}}
	if _, err := o.openRing(BackendFile, dir, nil); err != nil {
		t.Fatalf("open ring: %v", err)
	}
	if got.FileDir != dir || got.ServiceName != "mailassist" || len(got.AllowedBackends) != 1 {
		t.Fatalf("unexpected keyring config: %+v", got)
	}
}

func TestFilePrompt(t *testing.T) {
	prompt := promptFor("", true, false)
	if got, err := prompt("x"); err != nil || got != "" {
		t.Fatalf("fixed empty password = %q, %v", got, err)
	}
	prompt = promptFor("", false, false)
	if _, err := prompt("x"); !errors.Is(err, errNoTTY) {
		t.Fatalf("expected no tty error, got %v", err)
	}
}

func TestIsKeychainLockedError(t *testing.T) {
	if !IsKeychainLockedError("User interaction is not allowed. (-25308)") {
		t.Fatalf("expected locked keychain detection")
	}
	if IsKeychainLockedError("item not found") {
		t.Fatalf("unexpected locked keychain detection")
	}
}
