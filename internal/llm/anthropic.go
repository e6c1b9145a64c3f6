package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicBaseURL    = "https://api.anthropic.com"
	anthropicAPIVersion = "2023-06-01"
)

type Anthropic struct {
	opts Options
}

func NewAnthropic(opts Options) *Anthropic {
	return &Anthropic{opts: opts.withDefaults("claude-3-5-sonnet-20241022", anthropicBaseURL)}
}

func (c *Anthropic) Name() string { return "anthropic" }

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Anthropic) Generate(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	out, err := c.generate(ctx, system, prompt)
	recordCall(c.Name(), start, err)
	return out, err
}

func (c *Anthropic) generate(ctx context.Context, system, prompt string) (string, error) {
	if c.opts.APIKey == "" {
		return "", errors.New("Anthropic API key not configured")
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.opts.Model,
		MaxTokens: c.opts.MaxTokens,
		System:    system,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.opts.APIKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Anthropic API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := "Unknown error"
		var apiErr anthropicErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return "", fmt.Errorf("Anthropic API error: %s", msg)
	}

	var result messagesResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	var parts []string
	for _, block := range result.Content {
		if block.Type == "text" || block.Type == "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("Anthropic API error: empty content")
	}
	return strings.Join(parts, ""), nil
}
