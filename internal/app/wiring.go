package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"promo-series/internal/adapters/composer"
	"promo-series/internal/adapters/copywriter"
	"promo-series/internal/adapters/usageclient"
	"promo-series/internal/domain"
	"promo-series/internal/infra/aiapi"
	"promo-series/internal/infra/bedrock"
	"promo-series/internal/infra/config"
	"promo-series/internal/infra/openai"
	"promo-series/internal/usecase/series"
)

// ErrUnknownBackend неизвестное значение переключателя бэкенда.
var ErrUnknownBackend = errors.New("unknown backend")

// NewCompleter выбирает транспорт модели по AI_PROVIDER. nil без ошибки означает, что ИИ не настроен.
func NewCompleter(ctx context.Context, cfg config.AppConfig) (domain.Completer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.AI.Provider)) {
	case "", "aiapi":
		if cfg.AI.BaseURL == "" {
			return nil, nil
		}
		return aiapi.NewClient(cfg.AI.BaseURL, cfg.AI.Path, cfg.AI.APIKey, cfg.AI.Timeout), nil
	case "openai":
		if cfg.AI.APIKey == "" {
			return nil, nil
		}
		return openai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Timeout), nil
	case "bedrock":
		client, err := bedrock.New(ctx, cfg.AI.BedrockRegion, cfg.AI.BedrockModels)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "none", "template":
		return nil, nil
	default:
		return nil, fmt.Errorf("ai provider %q: %w", cfg.AI.Provider, ErrUnknownBackend)
	}
}

// NewWriter оборачивает транспорт в генератор писем. Возвращает nil, если транспорта нет.
func NewWriter(cfg config.AppConfig, completer domain.Completer, logger zerolog.Logger) domain.EmailWriter {
	if completer == nil {
		return nil
	}
	return copywriter.New(completer,
		copywriter.WithLogger(logger.With().Str("component", "copywriter").Logger()),
		copywriter.WithRetries(cfg.AI.Retries, cfg.AI.RetryBackoff),
		copywriter.WithModel(cfg.AI.Model),
	)
}

// NewSeriesService собирает оркестратор. cache может быть nil.
func NewSeriesService(cfg config.AppConfig, writer domain.EmailWriter, cache domain.Cache, events domain.EventSink, logger zerolog.Logger) *series.Service {
	opts := []series.Option{
		series.WithLogger(logger.With().Str("component", "series").Logger()),
		series.WithConcurrency(cfg.AI.Concurrency),
		series.WithCallTimeout(cfg.AI.Timeout),
	}
	if cfg.AI.Probe {
		opts = append(opts, series.WithProbe(cache, cfg.AI.ProbeTTL))
	}
	return series.NewService(writer, composer.NewTemplate(), events, opts...)
}

// NewUsageReporter выбирает бэкенд учёта по USAGE_BACKEND. rpc использует переданный репозиторий.
func NewUsageReporter(cfg config.AppConfig, rpc domain.UsageReporter) (domain.UsageReporter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Usage.Backend)) {
	case "", "rpc":
		return rpc, nil
	case "http":
		client, err := usageclient.New(cfg.Usage.URL,
			usageclient.WithTimeout(cfg.Usage.Timeout),
			usageclient.WithToken(cfg.Usage.Token),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("usage backend %q: %w", cfg.Usage.Backend, ErrUnknownBackend)
	}
}
