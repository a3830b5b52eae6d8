package domain

import (
	"context"
	"time"
)

// CompletionRequest запрос к удалённой модели.
type CompletionRequest struct {
	System      string
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Completion ответ модели. Нулевые счётчики токенов означают, что транспорт их не сообщил.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Completer отправляет запрос в удалённую модель.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// FocusRequest параметры генерации одного письма вокруг одной выгоды.
type FocusRequest struct {
	Benefit  string
	Position SeriesPosition
	Options  GenerationOptions
}

// AIEmail письмо, полученное от модели.
type AIEmail struct {
	Subject string
	Body    string
	Usage   TokenUsage
}

// EmailWriter генерирует письма через ИИ.
type EmailWriter interface {
	GenerateFocusedEmail(ctx context.Context, req FocusRequest) (AIEmail, error)
	Available(ctx context.Context) bool
}

// Composer собирает письмо из шаблонов без сетевых вызовов.
type Composer interface {
	Compose(benefit string, opts GenerationOptions, pos SeriesPosition) ComposedEmail
}

// SeriesGenerator строит серию писем.
type SeriesGenerator interface {
	GenerateSeries(ctx context.Context, benefits []string, opts GenerationOptions) (SeriesResult, error)
}

// UsageReporter передаёт счётчики использования в слой хранения.
type UsageReporter interface {
	ReportUsage(ctx context.Context, userID string, usageType UsageType, amount int) error
}

// SeriesRepo сохраняет серии и письма.
type SeriesRepo interface {
	SaveSeries(ctx context.Context, userID, name string, opts GenerationOptions, result SeriesResult) (int64, error)
	ListSeriesEmails(ctx context.Context, seriesID int64) ([]GeneratedEmail, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
