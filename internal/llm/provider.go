package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mailassist/internal/config"
	"mailassist/internal/metrics"
)

const (
	defaultMaxTokens   = 500
	defaultTemperature = 0.7
	defaultTimeout     = 60 * time.Second
)

var ErrInvalidProvider = errors.New("Invalid AI provider")

// Provider turns a system prompt and a user prompt into a completion.
type Provider interface {
	Name() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Options are shared by every provider client.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

func (o Options) withDefaults(model, baseURL string) Options {
	if o.Model == "" {
		o.Model = model
	}
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.Temperature == 0 {
		o.Temperature = defaultTemperature
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	return o
}

// NewProvider builds the client named by cfg.Provider. An empty name
// selects OpenAI.
func NewProvider(cfg config.AIConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", config.ProviderOpenAI:
		return NewOpenAI(Options{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			BaseURL:     cfg.OpenAI.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	case config.ProviderAnthropic:
		return NewAnthropic(Options{
			APIKey:    cfg.Anthropic.APIKey,
			Model:     cfg.Anthropic.Model,
			BaseURL:   cfg.Anthropic.BaseURL,
			MaxTokens: cfg.MaxTokens,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProvider, cfg.Provider)
	}
}

func recordCall(provider string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordProviderCall(provider, status, time.Since(start))
}
