package draft

import (
	"context"
	"fmt"
	"time"

	"mailassist/internal/config"
	"mailassist/internal/heuristic"
	"mailassist/internal/metrics"

	"go.uber.org/zap"
)

// Request is the input of a draft generator. Its JSON form is the request
// body of the response-generation service.
type Request struct {
	EmailContent string                 `json:"emailContent"`
	Subject      string                 `json:"subject"`
	Sender       string                 `json:"sender"`
	Type         heuristic.ResponseType `json:"type"`
	Tone         heuristic.Tone         `json:"tone"`
}

// Generator produces a reply draft. Implementations are interchangeable at
// the call site.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Template renders drafts locally from the fixed reply templates.
type Template struct {
	Composer heuristic.Composer
}

func NewTemplate(signature string) *Template {
	return &Template{Composer: heuristic.NewComposer(signature)}
}

func (t *Template) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := time.Now()
	out := t.Composer.Compose(req.EmailContent, req.Subject, req.Sender, req.Type, req.Tone)
	metrics.RecordDraftGeneration(config.GeneratorTemplate, "success", time.Since(start))
	return out, nil
}

// New selects the generator named by cfg.Generator.
func New(cfg config.AssistantConfig, log *zap.Logger) (Generator, error) {
	switch cfg.Generator {
	case "", config.GeneratorTemplate:
		return NewTemplate(cfg.Signature), nil
	case config.GeneratorRemote:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("remote generator requires assistant.endpoint")
		}
		return NewRemote(cfg.Endpoint, cfg.Timeout, log), nil
	default:
		return nil, fmt.Errorf("unknown generator %q", cfg.Generator)
	}
}
