package aiapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"promo-series/internal/domain"
	"promo-series/internal/infra/metrics"
)

const (
	defaultPath     = "/v1/ai/generate"
	defaultTimeout  = 2 * time.Minute
	componentLabel  = "aiapi"
	operationLabel  = "generate"
	maxErrorMessage = 300
)

// Client обращается к внутреннему AI-бэкенду по REST.
type Client struct {
	http     *http.Client
	endpoint string
	apiKey   string
}

var _ domain.Completer = (*Client)(nil)

// NewClient создаёт клиента. Пустой path означает /v1/ai/generate.
func NewClient(baseURL, path, apiKey string, timeout time.Duration) *Client {
	if path == "" {
		path = defaultPath
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	endpoint := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	return &Client{
		http:     &http.Client{Timeout: timeout + 5*time.Second},
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

type generateRequest struct {
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Completion string `json:"completion"`
	Text       string `json:"text"`
	Model      string `json:"model"`
	Usage      *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
}

type errorResponse struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// Complete отправляет запрос и разбирает один из поддерживаемых форматов ответа.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return domain.Completion{}, fmt.Errorf("aiapi: %w: API key is empty", domain.ErrAIAuth)
	}
	body, err := json.Marshal(generateRequest{
		Prompt:      req.Prompt,
		System:      req.System,
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return domain.Completion{}, fmt.Errorf("aiapi: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Completion{}, fmt.Errorf("aiapi: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveNetworkRequest(componentLabel, operationLabel, req.Model, start, err)
		return domain.Completion{}, fmt.Errorf("aiapi: %w: %v", domain.ErrAITransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest(componentLabel, operationLabel, req.Model, start, err)
		return domain.Completion{}, fmt.Errorf("aiapi: %w: read response: %v", domain.ErrAITransport, err)
	}
	if resp.StatusCode >= 400 {
		err = classifyStatus(resp.StatusCode, errorMessage(respBody))
		metrics.ObserveNetworkRequest(componentLabel, operationLabel, req.Model, start, err)
		return domain.Completion{}, err
	}

	var decoded generateResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		metrics.ObserveNetworkRequest(componentLabel, operationLabel, req.Model, start, err)
		return domain.Completion{}, fmt.Errorf("aiapi: %w: decode response: %v", domain.ErrAIParse, err)
	}
	text := decoded.text()
	if text == "" {
		err = fmt.Errorf("aiapi: %w: empty completion", domain.ErrAIParse)
		metrics.ObserveNetworkRequest(componentLabel, operationLabel, req.Model, start, err)
		return domain.Completion{}, err
	}
	metrics.ObserveNetworkRequest(componentLabel, operationLabel, req.Model, start, nil)

	out := domain.Completion{Text: text, Model: decoded.Model}
	if out.Model == "" {
		out.Model = req.Model
	}
	if decoded.Usage != nil {
		out.InputTokens = decoded.Usage.InputTokens
		out.OutputTokens = decoded.Usage.OutputTokens
		metrics.ObserveLLMGeneration(out.Model, time.Since(start), out.InputTokens, out.OutputTokens, out.InputTokens+out.OutputTokens)
	}
	return out, nil
}

// text выбирает текст из content[], completion или text по порядку.
func (r generateResponse) text() string {
	var parts []string
	for _, block := range r.Content {
		if block.Type == "" || block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if joined := strings.TrimSpace(strings.Join(parts, "")); joined != "" {
		return joined
	}
	if s := strings.TrimSpace(r.Completion); s != "" {
		return s
	}
	return strings.TrimSpace(r.Text)
}

func errorMessage(body []byte) string {
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if len(apiErr.Error) > 0 {
			var s string
			if json.Unmarshal(apiErr.Error, &s) == nil && s != "" {
				return s
			}
			var obj struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(apiErr.Error, &obj) == nil && obj.Message != "" {
				return obj.Message
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage]
	}
	return msg
}

// classifyStatus относит ответ с ошибкой к одному из классов.
func classifyStatus(status int, message string) error {
	lower := strings.ToLower(message)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || strings.Contains(lower, "api key"):
		return fmt.Errorf("aiapi: %w: status %d: %s", domain.ErrAIAuth, status, message)
	case status >= 500:
		return fmt.Errorf("aiapi: %w: status %d: %s", domain.ErrAIServer, status, message)
	case strings.Contains(lower, "model"):
		return fmt.Errorf("aiapi: %w: status %d: %s", domain.ErrAIModel, status, message)
	default:
		return fmt.Errorf("aiapi: %w: status %d: %s", domain.ErrAITransport, status, message)
	}
}
