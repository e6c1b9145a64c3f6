package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	GeneratorTemplate = "template"
	GeneratorRemote   = "remote"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	IMAP      IMAPConfig      `mapstructure:"imap" yaml:"imap"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Defaults  DefaultsConfig  `mapstructure:"defaults" yaml:"defaults"`
	Assistant AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
	AI        AIConfig        `mapstructure:"ai" yaml:"ai"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Corpus    CorpusConfig    `mapstructure:"corpus" yaml:"corpus"`
	Keyring   KeyringConfig   `mapstructure:"keyring" yaml:"keyring"`
}

type IMAPConfig struct {
	Host               string `mapstructure:"host" yaml:"host"`
	Port               int    `mapstructure:"port" yaml:"port"`
	TLS                bool   `mapstructure:"tls" yaml:"tls"`
	StartTLS           bool   `mapstructure:"starttls" yaml:"starttls"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type AuthConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	// PasswordSource records where Password came from: env, config or keyring.
	PasswordSource string `mapstructure:"-" yaml:"-"`
}

type DefaultsConfig struct {
	Mailbox       string `mapstructure:"mailbox" yaml:"mailbox"`
	DraftsMailbox string `mapstructure:"drafts_mailbox" yaml:"drafts_mailbox"`
	SentMailbox   string `mapstructure:"sent_mailbox" yaml:"sent_mailbox"`
}

// AssistantConfig selects how reply drafts are produced.
type AssistantConfig struct {
	Generator string        `mapstructure:"generator" yaml:"generator"`
	Endpoint  string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Tone      string        `mapstructure:"tone" yaml:"tone"`
	Signature string        `mapstructure:"signature" yaml:"signature"`
}

type ProviderConfig struct {
	Model   string `mapstructure:"model" yaml:"model"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// AIConfig configures the language-model backend of the serve command.
type AIConfig struct {
	Provider     string         `mapstructure:"provider" yaml:"provider"`
	OpenAI       ProviderConfig `mapstructure:"openai" yaml:"openai"`
	Anthropic    ProviderConfig `mapstructure:"anthropic" yaml:"anthropic"`
	MaxTokens    int            `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature  float64        `mapstructure:"temperature" yaml:"temperature"`
	SystemPrompt string         `mapstructure:"system_prompt" yaml:"system_prompt"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type GraphConfig struct {
	TenantID     string `mapstructure:"tenant_id" yaml:"tenant_id"`
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url" yaml:"redirect_url"`
}

type CorpusConfig struct {
	Source string      `mapstructure:"source" yaml:"source"`
	Months int         `mapstructure:"months" yaml:"months"`
	Limit  int         `mapstructure:"limit" yaml:"limit"`
	Output string      `mapstructure:"output" yaml:"output"`
	Graph  GraphConfig `mapstructure:"graph" yaml:"graph"`
}

// KeyringConfig selects the secret store backend: auto, keychain or file.
type KeyringConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
}

const DefaultSystemPrompt = "You are Joe Newman, an executive coach. Write professional, helpful email responses."

func DefaultConfig() Config {
	return Config{
		IMAP: IMAPConfig{
			Port:     993,
			TLS:      true,
			StartTLS: false,
		},
		Defaults: DefaultsConfig{
			Mailbox:       "INBOX",
			DraftsMailbox: "Drafts",
			SentMailbox:   "Sent",
		},
		Assistant: AssistantConfig{
			Generator: GeneratorTemplate,
			Timeout:   30 * time.Second,
			Tone:      "professional",
			Signature: "Joe Newman",
		},
		AI: AIConfig{
			Provider:     ProviderOpenAI,
			OpenAI:       ProviderConfig{Model: "gpt-4"},
			Anthropic:    ProviderConfig{Model: "claude-3-5-sonnet-20241022"},
			MaxTokens:    500,
			Temperature:  0.7,
			SystemPrompt: DefaultSystemPrompt,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Corpus: CorpusConfig{
			Source: "imap",
			Months: 6,
			Limit:  1000,
			Output: "output/raw-emails.json",
			Graph: GraphConfig{
				TenantID:    "common",
				RedirectURL: "http://localhost:3000/auth/callback",
			},
		},
		Keyring: KeyringConfig{
			Backend: "auto",
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MAILASSIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)
	if err := bindProviderEnv(v); err != nil {
		return cfg, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func Save(cfg Config) (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}

	return path, nil
}

// Redact masks every credential in cfg.
func Redact(cfg Config) Config {
	masked := cfg
	mask := func(s *string) {
		if *s != "" {
			*s = "****"
		}
	}
	mask(&masked.Auth.Password)
	mask(&masked.AI.OpenAI.APIKey)
	mask(&masked.AI.Anthropic.APIKey)
	mask(&masked.Corpus.Graph.ClientSecret)
	return masked
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("imap.host", cfg.IMAP.Host)
	v.SetDefault("imap.port", cfg.IMAP.Port)
	v.SetDefault("imap.tls", cfg.IMAP.TLS)
	v.SetDefault("imap.starttls", cfg.IMAP.StartTLS)
	v.SetDefault("imap.insecure_skip_verify", cfg.IMAP.InsecureSkipVerify)

	v.SetDefault("auth.username", cfg.Auth.Username)
	v.SetDefault("auth.password", cfg.Auth.Password)

	v.SetDefault("defaults.mailbox", cfg.Defaults.Mailbox)
	v.SetDefault("defaults.drafts_mailbox", cfg.Defaults.DraftsMailbox)
	v.SetDefault("defaults.sent_mailbox", cfg.Defaults.SentMailbox)

	v.SetDefault("assistant.generator", cfg.Assistant.Generator)
	v.SetDefault("assistant.endpoint", cfg.Assistant.Endpoint)
	v.SetDefault("assistant.timeout", cfg.Assistant.Timeout)
	v.SetDefault("assistant.tone", cfg.Assistant.Tone)
	v.SetDefault("assistant.signature", cfg.Assistant.Signature)

	v.SetDefault("ai.provider", cfg.AI.Provider)
	v.SetDefault("ai.openai.model", cfg.AI.OpenAI.Model)
	v.SetDefault("ai.openai.api_key", cfg.AI.OpenAI.APIKey)
	v.SetDefault("ai.openai.base_url", cfg.AI.OpenAI.BaseURL)
	v.SetDefault("ai.anthropic.model", cfg.AI.Anthropic.Model)
	v.SetDefault("ai.anthropic.api_key", cfg.AI.Anthropic.APIKey)
	v.SetDefault("ai.anthropic.base_url", cfg.AI.Anthropic.BaseURL)
	v.SetDefault("ai.max_tokens", cfg.AI.MaxTokens)
	v.SetDefault("ai.temperature", cfg.AI.Temperature)
	v.SetDefault("ai.system_prompt", cfg.AI.SystemPrompt)

	v.SetDefault("server.addr", cfg.Server.Addr)

	v.SetDefault("corpus.source", cfg.Corpus.Source)
	v.SetDefault("corpus.months", cfg.Corpus.Months)
	v.SetDefault("corpus.limit", cfg.Corpus.Limit)
	v.SetDefault("corpus.output", cfg.Corpus.Output)
	v.SetDefault("corpus.graph.tenant_id", cfg.Corpus.Graph.TenantID)
	v.SetDefault("corpus.graph.client_id", cfg.Corpus.Graph.ClientID)
	v.SetDefault("corpus.graph.client_secret", cfg.Corpus.Graph.ClientSecret)
	v.SetDefault("corpus.graph.redirect_url", cfg.Corpus.Graph.RedirectURL)

	v.SetDefault("keyring.backend", cfg.Keyring.Backend)
}

// bindProviderEnv also honours the unprefixed variable names used by
// hosted deployments of the response service.
func bindProviderEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"ai.provider":          {"MAILASSIST_AI_PROVIDER", "AI_PROVIDER"},
		"ai.openai.api_key":    {"MAILASSIST_AI_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"ai.openai.model":      {"MAILASSIST_AI_OPENAI_MODEL", "OPENAI_MODEL"},
		"ai.anthropic.api_key": {"MAILASSIST_AI_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
		"ai.anthropic.model":   {"MAILASSIST_AI_ANTHROPIC_MODEL", "ANTHROPIC_MODEL"},

		"corpus.graph.client_id":     {"MAILASSIST_CORPUS_GRAPH_CLIENT_ID", "AZURE_CLIENT_ID"},
		"corpus.graph.client_secret": {"MAILASSIST_CORPUS_GRAPH_CLIENT_SECRET", "AZURE_CLIENT_SECRET"},
		"corpus.graph.tenant_id":     {"MAILASSIST_CORPUS_GRAPH_TENANT_ID", "AZURE_TENANT_ID"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func ValidateIMAP(cfg Config) error {
	if cfg.IMAP.Host == "" {
		return fmt.Errorf("imap.host is required")
	}
	if cfg.Auth.Username == "" {
		return fmt.Errorf("auth.username is required")
	}
	if cfg.Auth.Password == "" {
		return fmt.Errorf("auth.password is required")
	}
	return nil
}

func ValidateAssistant(cfg Config) error {
	switch cfg.Assistant.Generator {
	case "", GeneratorTemplate:
		return nil
	case GeneratorRemote:
		if cfg.Assistant.Endpoint == "" {
			return fmt.Errorf("assistant.endpoint is required for the remote generator")
		}
		return nil
	default:
		return fmt.Errorf("assistant.generator must be %q or %q, got %q", GeneratorTemplate, GeneratorRemote, cfg.Assistant.Generator)
	}
}

func ValidateAI(cfg Config) error {
	switch strings.ToLower(cfg.AI.Provider) {
	case "", ProviderOpenAI, ProviderAnthropic:
		return nil
	default:
		return fmt.Errorf("Invalid AI provider: %s", cfg.AI.Provider)
	}
}
