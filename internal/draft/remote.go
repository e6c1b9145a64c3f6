package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mailassist/internal/config"
	"mailassist/internal/logger"
	"mailassist/internal/metrics"

	"go.uber.org/zap"
)

const maxErrorBody = 4 << 10

// ServiceError is a non-success answer from the response-generation service.
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ServiceError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("response service error (%d): %s: %s", e.StatusCode, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("response service error (%d): %s", e.StatusCode, e.Code)
	case e.Message != "":
		return fmt.Sprintf("response service error (%d): %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("response service error (%d)", e.StatusCode)
	}
}

type successPayload struct {
	Response string `json:"response"`
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Remote asks the response-generation service for a draft. Failures are
// returned to the caller; there is no retry and no local fallback.
type Remote struct {
	endpoint   string
	httpClient *http.Client
	log        *zap.Logger
}

func NewRemote(endpoint string, timeout time.Duration, log *zap.Logger) *Remote {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Remote{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.OrNop(log),
	}
}

func (r *Remote) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, status, err := r.call(ctx, req)
	latency := time.Since(start)

	metrics.RecordDraftGeneration(config.GeneratorRemote, status, latency)
	if err != nil {
		r.log.Warn("remote draft generation failed",
			zap.String("endpoint", r.endpoint),
			zap.String("status", status),
			zap.Duration("latency", latency),
			zap.Error(err))
		return "", err
	}
	r.log.Debug("remote draft generated",
		zap.String("endpoint", r.endpoint),
		zap.Duration("latency", latency),
		zap.Int("length", len(out)))
	return out, nil
}

func (r *Remote) call(ctx context.Context, req Request) (string, string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", "error", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", "error", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return "", "error", fmt.Errorf("call response service: %w", err)
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", status, decodeServiceError(resp)
	}

	var payload successPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", status, fmt.Errorf("decode response: %w", err)
	}
	return payload.Response, "success", nil
}

func decodeServiceError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	serviceErr := &ServiceError{StatusCode: resp.StatusCode}

	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err == nil && (payload.Error != "" || payload.Message != "") {
		serviceErr.Code = payload.Error
		serviceErr.Message = payload.Message
		return serviceErr
	}
	serviceErr.Message = strings.TrimSpace(string(raw))
	return serviceErr
}
