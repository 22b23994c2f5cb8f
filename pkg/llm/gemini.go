// Package llm содержит клиент генерации структурированного JSON через Gemini REST API.
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

	"github.com/yourusername/studyquest-api/internal/config"
	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
	"github.com/yourusername/studyquest-api/pkg/logger"
)

// Client генерирует JSON-документ по текстовому запросу
type Client interface {
	GenerateJSON(ctx context.Context, prompt string) ([]byte, error)
}

// ErrNotConfigured возвращается, если API-ключ не задан
var ErrNotConfigured = fmt.Errorf("%w: llm api key is not configured", apperrors.ErrExternalService)

// GeminiClient вызывает generateContent, перебирая модели по порядку
type GeminiClient struct {
	apiKey     string
	baseURL    string
	models     []string
	httpClient *http.Client
	log        *logger.Logger
}

// NewGeminiClient создает клиента из конфигурации
func NewGeminiClient(cfg config.LLMConfig, log *logger.Logger) *GeminiClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &GeminiClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		models:     cfg.Models,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With("component", "gemini"),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string  `json:"responseMimeType"`
		Temperature      float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateJSON отправляет prompt и возвращает JSON из первого кандидата.
// При ошибке модели пробуется следующая; все ошибки -> ErrExternalService.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if len(c.models) == 0 {
		return nil, fmt.Errorf("%w: no llm models configured", apperrors.ErrExternalService)
	}

	var req geminiRequest
	req.Contents = []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}
	req.GenerationConfig.ResponseMimeType = "application/json"
	req.GenerationConfig.Temperature = 0.7
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode llm request: %w", err)
	}

	var lastErr error
	for _, model := range c.models {
		text, err := c.call(ctx, model, body)
		if err == nil {
			c.log.Debug("llm response received", "model", model, "bytes", len(text))
			return []byte(stripCodeFence(text)), nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrExternalService, err)
		}
		c.log.Warn("llm model failed, trying next", "model", model, "error", err)
		lastErr = err
	}
	return nil, fmt.Errorf("%w: all llm models failed: %v", apperrors.ErrExternalService, lastErr)
}

func (c *GeminiClient) call(ctx context.Context, model string, body []byte) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("model %s returned %d: %s", model, resp.StatusCode, msg)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model %s returned no candidates", model)
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// stripCodeFence убирает обрамление ```json ... ```, если модель его добавила
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
