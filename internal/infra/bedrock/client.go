package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"promo-series/internal/domain"
	"promo-series/internal/infra/metrics"
)

const anthropicVersion = "bedrock-2023-05-31"

// defaultModelIDs идентификаторы Bedrock для моделей Anthropic. Суффикс версии у моделей разный.
var defaultModelIDs = map[string]string{
	"claude-3-haiku-20240307":    "anthropic.claude-3-haiku-20240307-v1:0",
	"claude-3-5-haiku-20241022":  "anthropic.claude-3-5-haiku-20241022-v1:0",
	"claude-3-sonnet-20240229":   "anthropic.claude-3-sonnet-20240229-v1:0",
	"claude-3-5-sonnet-20240620": "anthropic.claude-3-5-sonnet-20240620-v1:0",
	"claude-3-5-sonnet-20241022": "anthropic.claude-3-5-sonnet-20241022-v2:0",
	"claude-3-opus-20240229":     "anthropic.claude-3-opus-20240229-v1:0",
}

// Invoker часть API bedrockruntime, которая нужна клиенту.
type Invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client вызывает модели Anthropic через AWS Bedrock.
type Client struct {
	api      Invoker
	modelMap map[string]string
}

var _ domain.Completer = (*Client)(nil)

// New загружает AWS-конфигурацию из окружения и создаёт клиента.
func New(ctx context.Context, region string, modelMap map[string]string) (*Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	return NewWithInvoker(bedrockruntime.NewFromConfig(cfg), modelMap), nil
}

// NewWithInvoker создаёт клиента поверх готового API.
func NewWithInvoker(api Invoker, modelMap map[string]string) *Client {
	return &Client{api: api, modelMap: modelMap}
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
	Temperature      float64   `json:"temperature,omitempty"`
}

type invokeResponse struct {
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete отправляет запрос в формате Anthropic Messages.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	modelID := c.resolveModel(req.Model)
	body, err := json.Marshal(invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        req.MaxTokens,
		System:           req.System,
		Messages:         []message{{Role: "user", Content: []contentBlock{{Type: "text", Text: req.Prompt}}}},
		Temperature:      req.Temperature,
	})
	if err != nil {
		return domain.Completion{}, fmt.Errorf("bedrock: marshal request: %w", err)
	}

	start := time.Now()
	output, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		metrics.ObserveNetworkRequest("bedrock", "invoke_model", modelID, start, err)
		return domain.Completion{}, fmt.Errorf("bedrock: %w: %v", classify(err), err)
	}

	var resp invokeResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		metrics.ObserveNetworkRequest("bedrock", "invoke_model", modelID, start, err)
		return domain.Completion{}, fmt.Errorf("bedrock: %w: decode response: %v", domain.ErrAIParse, err)
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	metrics.ObserveNetworkRequest("bedrock", "invoke_model", modelID, start, nil)
	metrics.ObserveLLMGeneration(req.Model, time.Since(start), resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.InputTokens+resp.Usage.OutputTokens)
	if strings.TrimSpace(text.String()) == "" {
		return domain.Completion{}, fmt.Errorf("bedrock: %w: empty completion", domain.ErrAIParse)
	}
	return domain.Completion{
		Text:         text.String(),
		Model:        req.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// resolveModel переводит имя модели Anthropic в идентификатор Bedrock.
// Порядок: карта из конфигурации, встроенная таблица, готовый идентификатор как есть.
func (c *Client) resolveModel(model string) string {
	if id, ok := c.modelMap[model]; ok && id != "" {
		return id
	}
	if id, ok := defaultModelIDs[model]; ok {
		return id
	}
	if strings.Contains(model, ".") {
		return model
	}
	if strings.HasPrefix(model, "claude-") {
		return "anthropic." + model + "-v1:0"
	}
	return model
}

func classify(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return domain.ErrAITransport
	}
	switch apiErr.ErrorCode() {
	case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException":
		return domain.ErrAIAuth
	case "ValidationException", "ResourceNotFoundException":
		return domain.ErrAIModel
	case "InternalServerException", "ServiceUnavailableException", "ModelErrorException", "ModelNotReadyException", "ModelTimeoutException":
		return domain.ErrAIServer
	default:
		return domain.ErrAITransport
	}
}
