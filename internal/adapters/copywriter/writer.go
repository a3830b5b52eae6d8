package copywriter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"promo-series/internal/domain"
)

const (
	defaultMaxRetries     = 2
	defaultInitialBackoff = 500 * time.Millisecond
	defaultTemperature    = 0.7
	probePrompt           = "Hello"
	probeMaxTokens        = 10
)

// Writer пишет письма серии через удалённую модель.
type Writer struct {
	completer      domain.Completer
	logger         zerolog.Logger
	maxRetries     uint64
	initialBackoff time.Duration
	modelOverride  string
}

var _ domain.EmailWriter = (*Writer)(nil)

// Option настраивает Writer.
type Option func(*Writer)

// WithLogger задаёт логгер.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Writer) { w.logger = logger }
}

// WithRetries задаёт число повторов и начальную паузу между ними.
func WithRetries(maxRetries int, initial time.Duration) Option {
	return func(w *Writer) {
		if maxRetries >= 0 {
			w.maxRetries = uint64(maxRetries)
		}
		if initial > 0 {
			w.initialBackoff = initial
		}
	}
}

// WithModel принудительно задаёт модель вместо тарифной.
func WithModel(model string) Option {
	return func(w *Writer) { w.modelOverride = strings.TrimSpace(model) }
}

// New создаёт Writer поверх транспорта.
func New(completer domain.Completer, opts ...Option) *Writer {
	w := &Writer{
		completer:      completer,
		logger:         zerolog.Nop(),
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// GenerateFocusedEmail генерирует одно письмо вокруг одной выгоды.
func (w *Writer) GenerateFocusedEmail(ctx context.Context, req domain.FocusRequest) (domain.AIEmail, error) {
	cfg := ModelForTier(req.Options.UserTier)
	model := cfg.Model
	if w.modelOverride != "" {
		model = w.modelOverride
	}
	creq := domain.CompletionRequest{
		System:      systemPrompt(req.Options.Tone, req.Options.UserTier),
		Prompt:      userPrompt(req),
		Model:       model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: defaultTemperature,
	}

	start := time.Now()
	completion, err := w.complete(ctx, creq)
	if err != nil {
		w.logger.Warn().Err(err).Int("email_number", req.Position.EmailNumber).Str("model", model).Msg("copywriter: completion failed")
		return domain.AIEmail{}, err
	}

	subject, body, err := ParseEmail(completion.Text)
	if err != nil {
		return domain.AIEmail{}, err
	}
	if req.Options.HasAffiliateLink() {
		body = ensureAffiliateLink(body, req.Options.AffiliateLink)
	}

	usage := buildUsage(creq, completion, subject, body)
	w.logger.Debug().
		Int("email_number", req.Position.EmailNumber).
		Str("model", usage.Model).
		Int("tokens", usage.TotalTokens).
		Dur("elapsed", time.Since(start)).
		Msg("copywriter: email generated")
	return domain.AIEmail{Subject: subject, Body: body, Usage: usage}, nil
}

// Available проверяет доступность модели коротким запросом без повторов.
func (w *Writer) Available(ctx context.Context) bool {
	if w.completer == nil {
		return false
	}
	model := ModelForTier("free").Model
	if w.modelOverride != "" {
		model = w.modelOverride
	}
	_, err := w.completer.Complete(ctx, domain.CompletionRequest{Prompt: probePrompt, Model: model, MaxTokens: probeMaxTokens})
	if err != nil {
		w.logger.Info().Err(err).Msg("copywriter: ai backend unavailable")
		return false
	}
	return true
}

func (w *Writer) complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if w.completer == nil {
		return domain.Completion{}, fmt.Errorf("copywriter: %w: no transport configured", domain.ErrAIAuth)
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.initialBackoff
	policy.MaxElapsedTime = 0

	var completion domain.Completion
	attempt := 0
	operation := func() error {
		attempt++
		c, err := w.completer.Complete(ctx, req)
		if err != nil {
			if isPermanent(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			w.logger.Debug().Err(err).Int("attempt", attempt).Msg("copywriter: retrying completion")
			return err
		}
		completion = c
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, w.maxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return domain.Completion{}, err
	}
	return completion, nil
}

// ошибки ключа и модели не исправятся повтором
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrAIAuth) || errors.Is(err, domain.ErrAIModel)
}

func buildUsage(req domain.CompletionRequest, c domain.Completion, subject, body string) domain.TokenUsage {
	model := c.Model
	if model == "" {
		model = req.Model
	}
	in := c.InputTokens
	if in <= 0 {
		in = EstimateTokens(req.System + req.Prompt)
	}
	out := c.OutputTokens
	if out <= 0 {
		out = EstimateTokens(subject + body)
	}
	return domain.TokenUsage{
		InputTokens:   in,
		OutputTokens:  out,
		TotalTokens:   in + out,
		EstimatedCost: EstimateCost(model, in, out),
		Model:         model,
	}
}

// UserMessage переводит ошибку генерации в текст для пользователя.
func UserMessage(err error) string {
	const prefix = "Failed to generate content with AI. "
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrAIAuth):
		return prefix + "API key issue: " + err.Error()
	case errors.Is(err, domain.ErrAIModel):
		return prefix + "Model issue: " + err.Error()
	case errors.Is(err, domain.ErrAIServer):
		return prefix + "Server error: " + err.Error()
	default:
		return prefix + "Please try again or check AI service configuration."
	}
}
