package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mailassist/internal/draft"
	"mailassist/internal/heuristic"
	"mailassist/internal/llm"
	"mailassist/internal/logger"
	"mailassist/internal/metrics"

	"go.uber.org/zap"
)

const (
	GeneratePath = "/api/generate-response"
	maxBodyBytes = 1 << 20
)

// Handler serves the response-generation endpoint.
type Handler struct {
	Provider     llm.Provider
	SystemPrompt string
	Signature    string
	Log          *zap.Logger
}

func NewHandler(provider llm.Provider, systemPrompt, signature string, log *zap.Logger) *Handler {
	return &Handler{
		Provider:     provider,
		SystemPrompt: systemPrompt,
		Signature:    signature,
		Log:          logger.OrNop(log),
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type responseBody struct {
	Response string `json:"response"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}

	var req draft.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.fail(w, req.Type, err)
		return
	}

	text, err := h.generate(r, req)
	if err != nil {
		h.fail(w, req.Type, err)
		return
	}
	metrics.IncrementResponseRequest(string(req.Type), "success")
	writeJSON(w, http.StatusOK, responseBody{Response: text})
}

func (h *Handler) generate(r *http.Request, req draft.Request) (string, error) {
	if h.Provider == nil {
		return "", errors.New("Invalid AI provider")
	}
	prompt := BuildPrompt(req.EmailContent, req.Subject, req.Sender, req.Type, req.Tone, h.Signature)

	start := time.Now()
	text, err := h.Provider.Generate(r.Context(), h.SystemPrompt, prompt)
	logger.OrNop(h.Log).Debug("provider call",
		zap.String("provider", h.Provider.Name()),
		zap.String("type", string(req.Type)),
		zap.Duration("latency", time.Since(start)),
		zap.Bool("ok", err == nil))
	return text, err
}

func (h *Handler) fail(w http.ResponseWriter, responseType heuristic.ResponseType, err error) {
	logger.OrNop(h.Log).Error("AI generation error", zap.Error(err))
	metrics.IncrementResponseRequest(string(responseType), "error")
	writeJSON(w, http.StatusInternalServerError, errorBody{
		Error:   "Failed to generate response",
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
