package cli

import (
	"errors"
	"os"
	"strings"

	"mailassist/internal/config"
	"mailassist/internal/secrets"
)

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	if _, ok := os.LookupEnv("MAILASSIST_AUTH_PASSWORD"); ok {
		cfg.Auth.PasswordSource = "env"
		return cfg, nil
	}

	if cfg.Auth.Password != "" {
		cfg.Auth.PasswordSource = "config"
		return cfg, nil
	}

	if cfg.Auth.Username == "" {
		return cfg, nil
	}

	password, err := secrets.GetPassword(cfg.Auth.Username)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return cfg, nil
		}
		return cfg, err
	}

	cfg.Auth.Password = password
	cfg.Auth.PasswordSource = "keyring"
	return cfg, nil
}

// resolveAPIKeys fills the key of the selected AI provider from the keyring
// when neither the environment nor the config file set it.
func resolveAPIKeys(cfg *config.Config) error {
	var target *string
	provider := strings.ToLower(cfg.AI.Provider)
	switch provider {
	case "", config.ProviderOpenAI:
		provider = config.ProviderOpenAI
		target = &cfg.AI.OpenAI.APIKey
	case config.ProviderAnthropic:
		target = &cfg.AI.Anthropic.APIKey
	default:
		return nil
	}
	if *target != "" {
		return nil
	}

	key, err := secrets.GetAPIKey(provider)
	if err != nil {
		if errors.Is(err, secrets.ErrSecretNotFound) {
			return nil
		}
		return err
	}
	*target = key
	return nil
}
