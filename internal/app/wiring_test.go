package app

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"promo-series/internal/adapters/usageclient"
	"promo-series/internal/domain"
	"promo-series/internal/infra/aiapi"
	"promo-series/internal/infra/config"
	"promo-series/internal/infra/openai"
)

func TestNewCompleterSelectsProvider(t *testing.T) {
	var cfg config.AppConfig
	cfg.AI.Provider = "aiapi"
	cfg.AI.BaseURL = "http://ai.local"
	c, err := NewCompleter(context.Background(), cfg)
	if _, ok := c.(*aiapi.Client); !ok || err != nil {
		t.Fatalf("ожидали aiapi.Client, получили %T %v", c, err)
	}

	cfg.AI.Provider = "OpenAI"
	cfg.AI.APIKey = "sk-test"
	c, err = NewCompleter(context.Background(), cfg)
	if _, ok := c.(*openai.Client); !ok || err != nil {
		t.Fatalf("ожидали openai.Client, получили %T %v", c, err)
	}

	cfg.AI.Provider = "grpc"
	if _, err := NewCompleter(context.Background(), cfg); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("ожидали ErrUnknownBackend, получили %v", err)
	}
}

func TestNewCompleterWithoutCredentials(t *testing.T) {
	var cfg config.AppConfig
	c, err := NewCompleter(context.Background(), cfg)
	if c != nil || err != nil {
		t.Fatalf("без адреса транспорт не создаётся: %v %v", c, err)
	}
	if w := NewWriter(cfg, c, zerolog.Nop()); w != nil {
		t.Fatal("без транспорта генератор писем должен быть nil")
	}
}

func TestTemplateOnlySeries(t *testing.T) {
	var cfg config.AppConfig
	cfg.AI.Probe = true
	svc := NewSeriesService(cfg, nil, nil, nil, zerolog.Nop())
	result, err := svc.GenerateSeries(context.Background(), []string{"Fast", "Cheap"}, domain.GenerationOptions{Domain: "x.io"})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(result.Emails) != 2 || result.Outcome != domain.OutcomeAllTemplate {
		t.Fatalf("ожидали два шаблонных письма: %+v", result)
	}
}

func TestNewUsageReporter(t *testing.T) {
	var cfg config.AppConfig
	cfg.Usage.Backend = "http"
	cfg.Usage.URL = "http://usage.local"
	r, err := NewUsageReporter(cfg, nil)
	if _, ok := r.(*usageclient.Client); !ok || err != nil {
		t.Fatalf("ожидали usageclient.Client, получили %T %v", r, err)
	}
	cfg.Usage.Backend = "kafka"
	if _, err := NewUsageReporter(cfg, nil); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("ожидали ErrUnknownBackend, получили %v", err)
	}
}
