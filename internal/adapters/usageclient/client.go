package usageclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"promo-series/internal/domain"
	"promo-series/internal/infra/metrics"
)

const trackEndpoint = "/api/usage/track"

// Client передаёт счётчики использования во внешний сервис по HTTP.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
}

var _ domain.UsageReporter = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

// WithToken добавляет Bearer-токен к запросам.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type trackRequest struct {
	UserID    string `json:"user_id,omitempty"`
	UsageType string `json:"usage_type"`
	Amount    int    `json:"amount"`
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ReportUsage вызывает POST /api/usage/track.
func (c *Client) ReportUsage(ctx context.Context, userID string, usageType domain.UsageType, amount int) error {
	start := time.Now()
	err := c.post(ctx, trackEndpoint, trackRequest{UserID: userID, UsageType: string(usageType), Amount: amount})
	metrics.ObserveNetworkRequest("usage_api", "track", string(usageType), start, err)
	return err
}

func (c *Client) post(ctx context.Context, endpoint string, body any) error {
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	return c.do(req)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	resolved := *c.baseURL
	basePath := strings.TrimSuffix(c.baseURL.Path, "/")
	resolved.Path = path.Clean(basePath + endpoint)
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		buf = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, resolved.String(), buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("usage api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr apiError
		data, readErr := io.ReadAll(resp.Body)
		if readErr == nil && len(data) > 0 {
			_ = json.Unmarshal(data, &apiErr)
		}
		if apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(data))
		}
		if apiErr.Code != "" {
			return fmt.Errorf("usage api error [%s]: %s", apiErr.Code, apiErr.Error)
		}
		return fmt.Errorf("usage api error: status=%d message=%s", resp.StatusCode, apiErr.Error)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
