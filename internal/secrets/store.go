package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"

	"mailassist/internal/config"
)

var (
	ErrSecretNotFound = errors.New("secret not found")

	errMissingName     = errors.New("missing secret name")
	errMissingUsername = errors.New("missing username")
	errMissingPassword = errors.New("missing password")
	errMissingProvider = errors.New("missing provider")
	errMissingValue    = errors.New("missing secret value")

	openKeyringFunc = openKeyring
)

// kind namespaces the entries kept in the keyring.
type kind string

const (
	kindPassword kind = "auth:password"
	kindAPIKey   kind = "ai:api_key"
	kindToken    kind = "oauth:token"
)

func (k kind) key(name string) string {
	return fmt.Sprintf("%s:%s", k, name)
}

func put(k kind, name string, value []byte) error {
	name = normalize(name)
	if name == "" {
		return errMissingName
	}
	ring, err := openKeyringFunc()
	if err != nil {
		return err
	}
	item := keyring.Item{Key: k.key(name), Data: value, Label: config.AppName}
	if err := ring.Set(item); err != nil {
		return explainKeychainError(fmt.Errorf("store secret: %w", err))
	}
	return nil
}

func get(k kind, name string) ([]byte, error) {
	name = normalize(name)
	if name == "" {
		return nil, errMissingName
	}
	ring, err := openKeyringFunc()
	if err != nil {
		return nil, err
	}
	item, err := ring.Get(k.key(name))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrSecretNotFound
		}
		return nil, explainKeychainError(fmt.Errorf("read secret: %w", err))
	}
	return item.Data, nil
}

// SetPassword stores the IMAP password of username.
func SetPassword(username, password string) error {
	if normalize(username) == "" {
		return errMissingUsername
	}
	if password == "" {
		return errMissingPassword
	}
	return put(kindPassword, username, []byte(password))
}

func GetPassword(username string) (string, error) {
	if normalize(username) == "" {
		return "", errMissingUsername
	}
	data, err := get(kindPassword, username)
	return string(data), err
}

// SetAPIKey stores the language-model API key for provider.
func SetAPIKey(provider, key string) error {
	if normalize(provider) == "" {
		return errMissingProvider
	}
	if key == "" {
		return errMissingValue
	}
	return put(kindAPIKey, provider, []byte(key))
}

func GetAPIKey(provider string) (string, error) {
	if normalize(provider) == "" {
		return "", errMissingProvider
	}
	data, err := get(kindAPIKey, provider)
	return string(data), err
}

// SetToken stores an opaque serialized token, such as an OAuth token, under name.
func SetToken(name string, data []byte) error {
	return put(kindToken, name, data)
}

func GetToken(name string) ([]byte, error) {
	return get(kindToken, name)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
